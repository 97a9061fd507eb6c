package messaging

import (
	"context"
	"fmt"

	"courtportal/internal/domain"
)

// ChannelSelector identifies one channel for history and send calls.
// Exactly one of the fields is set.
type ChannelSelector struct {
	DirectWith int64 `json:"direct_with,omitempty"`
	GroupID    int64 `json:"group_id,omitempty"`
	Broadcast  bool  `json:"broadcast,omitempty"`
}

// SelectorFor builds the backing-query selector for a channel as seen by
// the given user.
func SelectorFor(ch domain.Channel, self int64) (ChannelSelector, error) {
	switch ch.Kind {
	case domain.ChannelBroadcast:
		return ChannelSelector{Broadcast: true}, nil
	case domain.ChannelGroup:
		if ch.GroupID == 0 {
			return ChannelSelector{}, fmt.Errorf("group channel %s has no group id: %w", ch.ID, domain.ErrInvalidInput)
		}
		return ChannelSelector{GroupID: ch.GroupID}, nil
	case domain.ChannelDirect:
		other := ch.Counterpart(self)
		if other == 0 {
			return ChannelSelector{}, fmt.Errorf("direct channel %s has no counterpart: %w", ch.ID, domain.ErrInvalidInput)
		}
		return ChannelSelector{DirectWith: other}, nil
	}
	return ChannelSelector{}, fmt.Errorf("unknown channel kind %q: %w", ch.Kind, domain.ErrInvalidInput)
}

// ChannelAPI is the collaborator that resolves the channel directory.
type ChannelAPI interface {
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// HistoryAPI is the collaborator serving the message backlog.
type HistoryAPI interface {
	History(ctx context.Context, sel ChannelSelector) ([]domain.Message, error)
}

// MessageAPI is the collaborator accepting outbound writes. Delete
// returns the resulting tombstone so it can flow through the same merge
// path as any other update.
type MessageAPI interface {
	Send(ctx context.Context, sel ChannelSelector, text, attachmentURL string) (*domain.Message, error)
	Edit(ctx context.Context, messageID, newText string) (*domain.Message, error)
	Delete(ctx context.Context, messageID string) (*domain.Message, error)
	MarkRead(ctx context.Context, sel ChannelSelector) error
}

// Event stream event types, matching the wire names of the push transport.
const (
	EventMessageNew     = "message:new"
	EventMessageUpdated = "message:updated"
	EventPresence       = "presence:changed"
)

// Event is one inbound push from the live transport.
type Event struct {
	Type     string
	Message  *domain.Message
	Presence *domain.Presence
}

// EventStream is the persistent duplex push transport. Events arrive in
// transport order with no ordering guarantee relative to history
// responses. Emit methods mirror locally confirmed writes onto the
// transport so other participants receive them without polling.
type EventStream interface {
	Subscribe(room string) error
	Unsubscribe(room string) error
	EmitMessage(m domain.Message) error
	EmitUpdate(m domain.Message) error
	Events() <-chan Event
}
