package messaging

import (
	"sort"
	"strings"
	"time"

	"courtportal/internal/domain"
)

const (
	// pendingIDPrefix marks optimistic local placeholders. Temporary ids
	// never leave the engine boundary.
	pendingIDPrefix = "pending-"

	// confirmTolerance is the createdAt window within which a server
	// message is treated as the confirmation of a local placeholder.
	confirmTolerance = 10 * time.Second

	// orphanTTL bounds how long an update without a base message is kept
	// before being dropped; the next history load self-heals.
	orphanTTL = 30 * time.Second

	maxOrphans = 64
)

type entry struct {
	msg     domain.Message
	arrival int
	pending bool
}

type orphan struct {
	msg      domain.Message
	buffered time.Time
}

type timeline struct {
	entries []*entry
	byID    map[string]*entry
	orphans []orphan
	unread  int
}

func newTimeline() *timeline {
	return &timeline{byID: make(map[string]*entry)}
}

// Store keeps one deduplicated, createdAt-ordered message list per
// channel, merging history snapshots, live events, and the composer's
// optimistic writes. It is the only holder of message state; callers
// never manipulate the lists directly. The store itself is not
// goroutine safe: the engine serializes every mutation.
type Store struct {
	self     int64
	active   string
	arrival  int
	now      func() time.Time
	channels map[string]*timeline
}

func NewStore(self int64) *Store {
	return &Store{
		self:     self,
		now:      time.Now,
		channels: make(map[string]*timeline),
	}
}

func (s *Store) channel(id string) *timeline {
	tl, ok := s.channels[id]
	if !ok {
		tl = newTimeline()
		s.channels[id] = tl
	}
	return tl
}

// SetActive marks the channel the user currently has open and resets its
// unread counter.
func (s *Store) SetActive(channelID string) {
	s.active = channelID
	if tl, ok := s.channels[channelID]; ok {
		tl.unread = 0
	}
}

// Active returns the currently open channel id.
func (s *Store) Active() string { return s.active }

// Insert merges a message into its channel timeline. Inserting an id
// that already exists is an update, not a duplicate; a server message
// matching a local placeholder promotes it instead of appending.
func (s *Store) Insert(m domain.Message) {
	chID := m.ChannelID()
	if chID == "" {
		return
	}
	tl := s.channel(chID)

	if e, ok := tl.byID[m.ID]; ok {
		mergeInto(e, m)
		return
	}

	if e := tl.matchPending(m); e != nil {
		delete(tl.byID, e.msg.ID)
		e.pending = false
		e.msg.ID = m.ID
		if !m.CreatedAt.IsZero() {
			// The server clock is authoritative for ordering.
			e.msg.CreatedAt = m.CreatedAt
		}
		mergeInto(e, m)
		tl.byID[m.ID] = e
		tl.resort()
		tl.replayOrphans(m.ID)
		return
	}

	s.arrival++
	e := &entry{msg: m, arrival: s.arrival, pending: strings.HasPrefix(m.ID, pendingIDPrefix)}
	tl.entries = append(tl.entries, e)
	tl.byID[m.ID] = e
	tl.resort()
	tl.replayOrphans(m.ID)

	// Orphan replay may already have folded a read receipt into the
	// entry, so the unread decision looks at the merged read set, not
	// the raw event's.
	if m.SenderID != s.self && chID != s.active && !e.msg.ReadByUser(s.self) {
		tl.unread++
	}
}

// InsertPending records an optimistic local write under its temporary id.
func (s *Store) InsertPending(m domain.Message) {
	s.Insert(m)
}

// Confirm promotes the placeholder with the given temporary id to the
// server-confirmed message. Returns false if the placeholder is gone,
// e.g. because a live event already promoted it.
func (s *Store) Confirm(tempID string, confirmed domain.Message) bool {
	chID := confirmed.ChannelID()
	tl, ok := s.channels[chID]
	if !ok {
		return false
	}
	e, ok := tl.byID[tempID]
	if !ok {
		// The push path may have delivered the confirmed message first;
		// merge instead so fields like read_by are not lost.
		s.Insert(confirmed)
		return false
	}
	delete(tl.byID, tempID)
	e.pending = false
	e.msg.ID = confirmed.ID
	if !confirmed.CreatedAt.IsZero() {
		e.msg.CreatedAt = confirmed.CreatedAt
	}
	mergeInto(e, confirmed)
	tl.byID[confirmed.ID] = e
	tl.resort()
	tl.replayOrphans(confirmed.ID)
	return true
}

// DropPending removes a placeholder after a failed send.
func (s *Store) DropPending(channelID, tempID string) {
	tl, ok := s.channels[channelID]
	if !ok {
		return
	}
	e, ok := tl.byID[tempID]
	if !ok {
		return
	}
	delete(tl.byID, tempID)
	for i, it := range tl.entries {
		if it == e {
			tl.entries = append(tl.entries[:i], tl.entries[i+1:]...)
			break
		}
	}
}

// Update merges an edit/delete/read update into an existing message. An
// update whose base message has not arrived yet is buffered briefly and
// replayed once the base is observed; it is never surfaced as an error.
func (s *Store) Update(m domain.Message) {
	chID := m.ChannelID()
	if chID == "" {
		return
	}
	tl := s.channel(chID)
	if e, ok := tl.byID[m.ID]; ok {
		mergeInto(e, m)
		return
	}
	tl.bufferOrphan(m, s.now())
}

// Messages returns a copy of the channel's ordered timeline.
func (s *Store) Messages(channelID string) []domain.Message {
	tl, ok := s.channels[channelID]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(tl.entries))
	for i, e := range tl.entries {
		out[i] = e.msg
	}
	return out
}

// Get looks a message up by id across all channels.
func (s *Store) Get(messageID string) (domain.Message, string, bool) {
	for chID, tl := range s.channels {
		if e, ok := tl.byID[messageID]; ok {
			return e.msg, chID, true
		}
	}
	return domain.Message{}, "", false
}

// Unread returns the channel's unread counter.
func (s *Store) Unread(channelID string) int {
	if tl, ok := s.channels[channelID]; ok {
		return tl.unread
	}
	return 0
}

// MarkRead acknowledges the whole channel: the counter resets and the
// local user joins every message's read set.
func (s *Store) MarkRead(channelID string) {
	tl, ok := s.channels[channelID]
	if !ok {
		return
	}
	tl.unread = 0
	for _, e := range tl.entries {
		if !e.msg.ReadByUser(s.self) {
			e.msg.ReadBy = append(e.msg.ReadBy, s.self)
		}
	}
}

// matchPending finds a placeholder that the candidate confirms: same
// sender, same body, createdAt within the tolerance window.
func (tl *timeline) matchPending(m domain.Message) *entry {
	for _, e := range tl.entries {
		if !e.pending {
			continue
		}
		if e.msg.SenderID != m.SenderID ||
			e.msg.Text != m.Text ||
			e.msg.AttachmentURL != m.AttachmentURL {
			continue
		}
		d := m.CreatedAt.Sub(e.msg.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d <= confirmTolerance {
			return e
		}
	}
	return nil
}

// resort restores ascending createdAt order. The sort is stable so ties
// keep arrival order.
func (tl *timeline) resort() {
	sort.SliceStable(tl.entries, func(i, j int) bool {
		return tl.entries[i].msg.CreatedAt.Before(tl.entries[j].msg.CreatedAt)
	})
}

func (tl *timeline) bufferOrphan(m domain.Message, now time.Time) {
	kept := tl.orphans[:0]
	for _, o := range tl.orphans {
		if now.Sub(o.buffered) < orphanTTL {
			kept = append(kept, o)
		}
	}
	tl.orphans = kept
	if len(tl.orphans) >= maxOrphans {
		return
	}
	tl.orphans = append(tl.orphans, orphan{msg: m, buffered: now})
}

func (tl *timeline) replayOrphans(id string) {
	kept := tl.orphans[:0]
	for _, o := range tl.orphans {
		if o.msg.ID == id {
			if e, ok := tl.byID[id]; ok {
				mergeInto(e, o.msg)
			}
			continue
		}
		kept = append(kept, o)
	}
	tl.orphans = kept
}

// mergeInto folds candidate fields into an existing entry in place.
// Tombstones stick: a delete is never undone by a late snapshot.
func mergeInto(e *entry, m domain.Message) {
	if m.EditedAt != nil {
		e.msg.EditedAt = m.EditedAt
		e.msg.Text = m.Text
		e.msg.AttachmentURL = m.AttachmentURL
	}
	if m.DeletedAt != nil {
		e.msg.DeletedAt = m.DeletedAt
		e.msg.Text = ""
		e.msg.AttachmentURL = ""
	}
	if e.msg.SenderRole == "" {
		e.msg.SenderRole = m.SenderRole
	}
	for _, id := range m.ReadBy {
		if !e.msg.ReadByUser(id) {
			e.msg.ReadBy = append(e.msg.ReadBy, id)
		}
	}
}
