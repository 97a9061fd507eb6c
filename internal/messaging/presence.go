package messaging

import "courtportal/internal/domain"

// PresenceTracker keeps the last known online state per identity. Each
// event replaces the record wholesale.
type PresenceTracker struct {
	records map[int64]domain.Presence
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{records: make(map[int64]domain.Presence)}
}

func (t *PresenceTracker) Apply(p domain.Presence) {
	t.records[p.UserID] = p
}

// Status returns the last known presence for the user; unknown users
// are reported offline.
func (t *PresenceTracker) Status(userID int64) domain.Presence {
	if p, ok := t.records[userID]; ok {
		return p
	}
	return domain.Presence{UserID: userID}
}
