package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListActive(ctx context.Context, role Role) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
}

// MessageRepository defines persistence operations for messages.
// List queries return the newest rows first with the read_by set
// populated; callers reverse to chronological order.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListDirect(ctx context.Context, a, b int64, limit int) ([]*Message, error)
	ListGroup(ctx context.Context, groupID int64, limit int) ([]*Message, error)
	ListBroadcast(ctx context.Context, limit int) ([]*Message, error)
	Update(ctx context.Context, m *Message) error
	AddReadBy(ctx context.Context, messageID string, userID int64) error
	MarkChannelRead(ctx context.Context, messageIDs []string, userID int64) error
}

// GroupRepository defines persistence operations for group channels.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id int64) (*Group, error)
	ListForUser(ctx context.Context, userID int64) ([]*Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// GuestRepository defines persistence operations for guest registrations.
type GuestRepository interface {
	Create(ctx context.Context, g *GuestEntry) error
	GetByID(ctx context.Context, id int64) (*GuestEntry, error)
	ListForJudge(ctx context.Context, judgeID int64) ([]*GuestEntry, error)
	ListAll(ctx context.Context) ([]*GuestEntry, error)
	Update(ctx context.Context, g *GuestEntry) error
	Delete(ctx context.Context, id int64) error
}

// NoticeRepository defines persistence operations for notices.
type NoticeRepository interface {
	Create(ctx context.Context, n *Notice) error
	GetByID(ctx context.Context, id int64) (*Notice, error)
	List(ctx context.Context, noticeType string) ([]*Notice, error)
	Delete(ctx context.Context, id int64) error
}

// EventRepository defines persistence operations for court events.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, upcomingOnly bool) ([]*Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id int64) error
}

// SwearingRepository defines persistence operations for swearing-in
// preferences. One record per user.
type SwearingRepository interface {
	Upsert(ctx context.Context, p *SwearingPreference) error
	GetByUser(ctx context.Context, userID int64) (*SwearingPreference, error)
	ListAll(ctx context.Context) ([]*SwearingPreference, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

// CourtInfoRepository defines persistence operations for court content.
type CourtInfoRepository interface {
	Upsert(ctx context.Context, c *CourtInfo) error
	ListBySection(ctx context.Context, section string) ([]*CourtInfo, error)
	Delete(ctx context.Context, id int64) error
}
