package messaging

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"courtportal/internal/domain"
)

// Outbound composition: validates a write against the channel's policy,
// reflects it optimistically, submits it, and mirrors the confirmed
// message onto the live transport so other participants see it without
// waiting for their next history poll.

// Send posts a new message to the channel. A write against a read-only
// channel fails with ErrPermissionDenied before any transport is
// touched.
func (e *Engine) Send(ctx context.Context, channelID, text, attachmentURL string) (*domain.Message, error) {
	if text == "" && attachmentURL == "" {
		return nil, fmt.Errorf("message needs text or an attachment: %w", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	ch, ok := e.directory.Get(channelID)
	if !ok {
		e.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	if !e.directory.CanWrite(ch) {
		e.mu.Unlock()
		return nil, fmt.Errorf("posting to %s: %w", channelID, domain.ErrPermissionDenied)
	}
	sel, err := SelectorFor(ch, e.self.ID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	pending := domain.Message{
		ID:            pendingIDPrefix + uuid.NewString(),
		SenderID:      e.self.ID,
		SenderRole:    e.self.Role,
		Text:          text,
		AttachmentURL: attachmentURL,
		IsBroadcast:   ch.Kind == domain.ChannelBroadcast,
		ReadBy:        []int64{e.self.ID},
		CreatedAt:     time.Now(),
	}
	switch ch.Kind {
	case domain.ChannelDirect:
		other := ch.Counterpart(e.self.ID)
		pending.ReceiverID = &other
	case domain.ChannelGroup:
		gid := ch.GroupID
		pending.GroupID = &gid
	}
	e.store.InsertPending(pending)
	e.mu.Unlock()

	sent, err := e.messages.Send(ctx, sel, text, attachmentURL)

	e.mu.Lock()
	if err != nil {
		e.store.DropPending(channelID, pending.ID)
		e.mu.Unlock()
		return nil, fmt.Errorf("send message: %w", err)
	}
	e.store.Confirm(pending.ID, *sent)
	e.mu.Unlock()

	if err := e.stream.EmitMessage(*sent); err != nil {
		// Other clients recover the message from their next history load.
		log.Printf("engine: emit message %s: %v", sent.ID, err)
	}
	return sent, nil
}

// Edit replaces the text of one of the local user's own messages. The
// ownership check fails fast locally when the message is known.
func (e *Engine) Edit(ctx context.Context, messageID, newText string) (*domain.Message, error) {
	if newText == "" {
		return nil, fmt.Errorf("edited text must not be empty: %w", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	m, _, known := e.store.Get(messageID)
	e.mu.Unlock()
	if known {
		if m.SenderID != e.self.ID {
			return nil, fmt.Errorf("editing message %s: %w", messageID, domain.ErrPermissionDenied)
		}
		if m.Deleted() {
			return nil, fmt.Errorf("message %s is removed: %w", messageID, domain.ErrInvalidInput)
		}
	}

	updated, err := e.messages.Edit(ctx, messageID, newText)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}

	e.mu.Lock()
	e.store.Update(*updated)
	e.mu.Unlock()

	if err := e.stream.EmitUpdate(*updated); err != nil {
		log.Printf("engine: emit update %s: %v", updated.ID, err)
	}
	return updated, nil
}

// Delete tombstones one of the local user's own messages. The message
// stays in the store; the view renders it as removed.
func (e *Engine) Delete(ctx context.Context, messageID string) error {
	e.mu.Lock()
	m, _, known := e.store.Get(messageID)
	e.mu.Unlock()
	if known && m.SenderID != e.self.ID {
		return fmt.Errorf("deleting message %s: %w", messageID, domain.ErrPermissionDenied)
	}

	tombstone, err := e.messages.Delete(ctx, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	e.mu.Lock()
	e.store.Update(*tombstone)
	e.mu.Unlock()

	if err := e.stream.EmitUpdate(*tombstone); err != nil {
		log.Printf("engine: emit update %s: %v", tombstone.ID, err)
	}
	return nil
}

// MarkRead acknowledges the channel locally and durably. The local
// counter resets even when the server call fails; the next history load
// reconverges the read sets.
func (e *Engine) MarkRead(ctx context.Context, channelID string) error {
	e.mu.Lock()
	ch, ok := e.directory.Get(channelID)
	if !ok {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	sel, err := SelectorFor(ch, e.self.ID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.store.MarkRead(channelID)
	e.mu.Unlock()

	if err := e.messages.MarkRead(ctx, sel); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
