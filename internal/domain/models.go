package domain

import (
	"fmt"
	"time"
)

// Role determines what a user may see and do across the portal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleJudge Role = "judge"
	RoleGuest Role = "guest"
)

// User represents a portal account (administrator, judge, or guest).
type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Role           Role      `db:"role" json:"role"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	IsOnline       bool      `db:"is_online" json:"is_online"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`

	// ResetToken, when set, lets the holder replace the password once.
	ResetToken        *string    `db:"reset_token" json:"-"`
	ResetTokenExpires *time.Time `db:"reset_token_expires" json:"-"`
}

// ChannelKind distinguishes the three conversation shapes the portal knows.
type ChannelKind string

const (
	ChannelDirect    ChannelKind = "direct"
	ChannelGroup     ChannelKind = "group"
	ChannelBroadcast ChannelKind = "broadcast"
)

// BroadcastChannelID is the id of the single synthetic broadcast channel.
const BroadcastChannelID = "broadcast"

// DirectChannelID derives the id of a direct channel from its two
// participants. The id is a pure function of the pair, so both sides
// compute the same channel without a conversation record existing first.
func DirectChannelID(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("direct:%d:%d", a, b)
}

// GroupChannelID derives the channel id for a stored group.
func GroupChannelID(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

// Channel is one conversation visible to a user. Identity and kind are
// immutable for the life of a client session; membership is managed
// out-of-band by the directory service.
type Channel struct {
	ID           string      `json:"id"`
	Kind         ChannelKind `json:"kind"`
	DisplayName  string      `json:"display_name"`
	Participants []int64     `json:"participants,omitempty"`
	GroupID      int64       `json:"group_id,omitempty"`
	// IsReadOnly is derived per viewer: broadcast channels accept writes
	// from administrators only.
	IsReadOnly bool `json:"is_read_only"`
}

// Counterpart returns the other participant of a direct channel.
func (c Channel) Counterpart(self int64) int64 {
	for _, p := range c.Participants {
		if p != self {
			return p
		}
	}
	return 0
}

// Message is a single chat message. IDs are assigned by the server at
// persistence time and are the deduplication key across ingestion paths.
type Message struct {
	ID            string     `db:"id" json:"id"`
	SenderID      int64      `db:"sender_id" json:"sender_id"`
	SenderRole    Role       `db:"sender_role" json:"sender_role"`
	ReceiverID    *int64     `db:"receiver_id" json:"receiver_id,omitempty"`
	GroupID       *int64     `db:"group_id" json:"group_id,omitempty"`
	IsBroadcast   bool       `db:"is_broadcast" json:"is_broadcast"`
	Text          string     `db:"text" json:"text,omitempty"`
	AttachmentURL string     `db:"attachment_url" json:"attachment_url,omitempty"`
	ReadBy        []int64    `json:"read_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	EditedAt      *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Deleted reports whether the message has been tombstoned.
func (m *Message) Deleted() bool { return m.DeletedAt != nil }

// Empty reports whether the message carries neither text nor attachment.
func (m *Message) Empty() bool { return m.Text == "" && m.AttachmentURL == "" }

// ChannelID files the message under exactly one channel. Broadcast wins
// over everything else, then group, then the direct participant pair.
func (m *Message) ChannelID() string {
	switch {
	case m.IsBroadcast:
		return BroadcastChannelID
	case m.GroupID != nil:
		return GroupChannelID(*m.GroupID)
	case m.ReceiverID != nil:
		return DirectChannelID(m.SenderID, *m.ReceiverID)
	}
	return ""
}

// ReadByUser reports whether the given user appears in the read set.
func (m *Message) ReadByUser(userID int64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Presence is the ephemeral online state of one user. Each transport
// event replaces the record wholesale; no history is kept.
type Presence struct {
	UserID   int64     `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Group is a named multi-member conversation created by an administrator.
type Group struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	MemberIDs []int64   `json:"member_ids"`
}

// GuestStatus tracks the lifecycle of a judge's guest registration.
type GuestStatus string

const (
	GuestDraft     GuestStatus = "draft"
	GuestSubmitted GuestStatus = "submitted"
)

// GuestEntry is one visitor registered by a judge.
type GuestEntry struct {
	ID        int64       `db:"id" json:"id"`
	JudgeID   int64       `db:"judge_id" json:"judge_id"`
	Name      string      `db:"name" json:"name"`
	IDNumber  string      `db:"id_number" json:"id_number"`
	Phone     string      `db:"phone" json:"phone,omitempty"`
	Email     string      `db:"email" json:"email,omitempty"`
	Status    GuestStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Notice is a published circular or announcement.
type Notice struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Type      string    `db:"type" json:"type"`
	IsUrgent  bool      `db:"is_urgent" json:"is_urgent"`
	FileURL   string    `db:"file_url" json:"file_url,omitempty"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event is a scheduled court event.
type Event struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	Location    string    `db:"location" json:"location,omitempty"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	IsMandatory bool      `db:"is_mandatory" json:"is_mandatory"`
	CreatedBy   int64     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CeremonyChoice is how an official elects to be sworn in.
type CeremonyChoice string

const (
	CeremonyOath        CeremonyChoice = "oath"
	CeremonyAffirmation CeremonyChoice = "affirmation"
)

// Valid reports whether the choice is one the ceremony recognises.
func (c CeremonyChoice) Valid() bool {
	return c == CeremonyOath || c == CeremonyAffirmation
}

// SwearingPreference records a user's swearing-in election. At most one
// record exists per user; saving again replaces the previous election.
type SwearingPreference struct {
	ID             int64          `db:"id" json:"id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	CeremonyChoice CeremonyChoice `db:"ceremony_choice" json:"ceremony_choice"`
	ReligiousText  string         `db:"religious_text" json:"religious_text,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CourtInfo is a keyed content document (divisions, FAQs, contacts).
type CourtInfo struct {
	ID        int64     `db:"id" json:"id"`
	Section   string    `db:"section" json:"section"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
