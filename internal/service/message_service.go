package service

import (
	"context"
	"fmt"
	"time"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
	"courtportal/internal/security"
)

// MessageService serves channel history and accepts writes. Message text
// is encrypted at rest and decrypted on the way out; policy checks run
// before anything touches the store.
type MessageService struct {
	messages  domain.MessageRepository
	groups    domain.GroupRepository
	users     domain.UserRepository
	encryptor *security.Encryptor

	MaxMessagesPerChannel int
}

func NewMessageService(
	messages domain.MessageRepository,
	groups domain.GroupRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
	maxMessages int,
) *MessageService {
	return &MessageService{
		messages:              messages,
		groups:                groups,
		users:                 users,
		encryptor:             encryptor,
		MaxMessagesPerChannel: maxMessages,
	}
}

// authorize verifies the caller may read and write the selected channel.
// Broadcast reads are open to everyone; broadcast writes are admin only,
// which Create checks separately.
func (s *MessageService) authorize(ctx context.Context, caller *domain.User, sel messaging.ChannelSelector) error {
	switch {
	case sel.Broadcast:
		return nil
	case sel.GroupID != 0:
		ok, err := s.groups.IsMember(ctx, sel.GroupID, caller.ID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return fmt.Errorf("not a member of group %d: %w", sel.GroupID, domain.ErrPermissionDenied)
		}
		return nil
	case sel.DirectWith != 0:
		other, err := s.users.GetByID(ctx, sel.DirectWith)
		if err != nil {
			return fmt.Errorf("get counterpart: %w", err)
		}
		if other == nil {
			return fmt.Errorf("user %d: %w", sel.DirectWith, domain.ErrNotFound)
		}
		return nil
	}
	return fmt.Errorf("selector identifies no channel: %w", domain.ErrInvalidInput)
}

// History returns the channel backlog in chronological order, decrypted.
func (s *MessageService) History(ctx context.Context, caller *domain.User, sel messaging.ChannelSelector) ([]*domain.Message, error) {
	if err := s.authorize(ctx, caller, sel); err != nil {
		return nil, err
	}

	limit := s.MaxMessagesPerChannel
	var (
		msgs []*domain.Message
		err  error
	)
	switch {
	case sel.Broadcast:
		msgs, err = s.messages.ListBroadcast(ctx, limit)
	case sel.GroupID != 0:
		msgs, err = s.messages.ListGroup(ctx, sel.GroupID, limit)
	default:
		msgs, err = s.messages.ListDirect(ctx, caller.ID, sel.DirectWith, limit)
	}
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order (DB returns DESC).
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	for _, m := range msgs {
		s.decrypt(m)
	}
	return msgs, nil
}

type MessageCreateInput struct {
	Selector      messaging.ChannelSelector
	Text          string
	AttachmentURL string
}

// Create persists a new message after policy checks. Broadcast writes
// require the administrator role; everything else requires channel access.
func (s *MessageService) Create(ctx context.Context, caller *domain.User, in MessageCreateInput) (*domain.Message, error) {
	if in.Text == "" && in.AttachmentURL == "" {
		return nil, fmt.Errorf("message must carry text or an attachment: %w", domain.ErrInvalidInput)
	}
	if len([]rune(in.Text)) > 5000 {
		return nil, fmt.Errorf("message text exceeds 5000 characters: %w", domain.ErrInvalidInput)
	}
	if in.Selector.Broadcast && caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("broadcast channel is read-only for %s accounts: %w", caller.Role, domain.ErrPermissionDenied)
	}
	if err := s.authorize(ctx, caller, in.Selector); err != nil {
		return nil, err
	}

	encrypted := ""
	if in.Text != "" {
		var err error
		if encrypted, err = s.encryptor.Encrypt(in.Text); err != nil {
			return nil, fmt.Errorf("encrypt text: %w", err)
		}
	}

	msg := &domain.Message{
		SenderID:      caller.ID,
		SenderRole:    caller.Role,
		IsBroadcast:   in.Selector.Broadcast,
		Text:          encrypted,
		AttachmentURL: in.AttachmentURL,
	}
	if in.Selector.GroupID != 0 {
		gid := in.Selector.GroupID
		msg.GroupID = &gid
	}
	if in.Selector.DirectWith != 0 {
		rid := in.Selector.DirectWith
		msg.ReceiverID = &rid
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.decrypt(msg)
	return msg, nil
}

// Edit replaces the text of the caller's own message.
func (s *MessageService) Edit(ctx context.Context, caller *domain.User, messageID, newText string) (*domain.Message, error) {
	if newText == "" {
		return nil, fmt.Errorf("edited text must not be empty: %w", domain.ErrInvalidInput)
	}
	if len([]rune(newText)) > 5000 {
		return nil, fmt.Errorf("message text exceeds 5000 characters: %w", domain.ErrInvalidInput)
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	if msg.Deleted() {
		return nil, fmt.Errorf("message is deleted: %w", domain.ErrInvalidInput)
	}
	if msg.SenderID != caller.ID {
		return nil, fmt.Errorf("only the sender may edit a message: %w", domain.ErrPermissionDenied)
	}

	encrypted, err := s.encryptor.Encrypt(newText)
	if err != nil {
		return nil, fmt.Errorf("encrypt text: %w", err)
	}
	now := time.Now().UTC()
	msg.Text = encrypted
	msg.EditedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	s.decrypt(msg)
	return msg, nil
}

// Delete tombstones the caller's own message: the row stays so readers
// see a placeholder, but text and attachment are cleared.
func (s *MessageService) Delete(ctx context.Context, caller *domain.User, messageID string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	if msg.SenderID != caller.ID && caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only the sender may delete a message: %w", domain.ErrPermissionDenied)
	}
	if msg.Deleted() {
		return msg, nil
	}

	now := time.Now().UTC()
	msg.Text = ""
	msg.AttachmentURL = ""
	msg.DeletedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead records the caller in the read set of every message currently
// in the selected channel.
func (s *MessageService) MarkRead(ctx context.Context, caller *domain.User, sel messaging.ChannelSelector) error {
	msgs, err := s.History(ctx, caller, sel)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if !m.ReadByUser(caller.ID) {
			ids = append(ids, m.ID)
		}
	}
	return s.messages.MarkChannelRead(ctx, ids, caller.ID)
}

// RecipientIDs lists the users a stored message must be fanned out to.
// A nil slice with ok=true means "every connected user" (broadcast).
func (s *MessageService) RecipientIDs(ctx context.Context, m *domain.Message) (ids []int64, all bool, err error) {
	switch {
	case m.IsBroadcast:
		return nil, true, nil
	case m.GroupID != nil:
		g, err := s.groups.GetByID(ctx, *m.GroupID)
		if err != nil {
			return nil, false, err
		}
		if g == nil {
			return nil, false, fmt.Errorf("group %d: %w", *m.GroupID, domain.ErrNotFound)
		}
		return g.MemberIDs, false, nil
	case m.ReceiverID != nil:
		return []int64{m.SenderID, *m.ReceiverID}, false, nil
	}
	return nil, false, fmt.Errorf("message %s has no channel: %w", m.ID, domain.ErrInvalidInput)
}

// GetForFanOut loads a stored message by id, decrypted, for push
// delivery. Returns nil without error when the id is unknown.
func (s *MessageService) GetForFanOut(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil || msg == nil {
		return msg, err
	}
	s.decrypt(msg)
	return msg, nil
}

// decrypt replaces the stored ciphertext with plaintext in place. On
// decrypt failure the raw value is kept rather than dropping the message.
func (s *MessageService) decrypt(m *domain.Message) {
	if m.Deleted() || m.Text == "" {
		return
	}
	if dec, err := s.encryptor.Decrypt(m.Text); err == nil {
		m.Text = dec
	}
}
