package messaging

import (
	"courtportal/internal/domain"
)

// Directory resolves the set of channels visible to the local user and
// their permission metadata. Direct channels are materialized lazily:
// the first message between two identities is enough to synthesize the
// channel entry, no conversation record is required.
//
// The directory holds no network client; the engine fetches the listing
// and applies it here under its own lock.
type Directory struct {
	self domain.User
	byID map[string]domain.Channel
	// order preserves server listing order; synthesized channels append.
	order []string
}

func NewDirectory(self domain.User) *Directory {
	d := &Directory{
		self: self,
		byID: make(map[string]domain.Channel),
	}
	// The broadcast channel always exists, even before the first fetch.
	d.put(domain.Channel{
		ID:          domain.BroadcastChannelID,
		Kind:        domain.ChannelBroadcast,
		DisplayName: "Broadcast",
	})
	return d
}

// Apply folds a fetched listing into the directory. Entries already
// known (including lazily synthesized direct channels) are refreshed in
// place; nothing is ever removed, so a partial listing cannot clear
// channels the user can still see.
func (d *Directory) Apply(chans []domain.Channel) {
	for _, ch := range chans {
		d.put(ch)
	}
}

func (d *Directory) put(ch domain.Channel) {
	ch.IsReadOnly = ch.Kind == domain.ChannelBroadcast && d.self.Role != domain.RoleAdmin
	if _, ok := d.byID[ch.ID]; !ok {
		d.order = append(d.order, ch.ID)
	}
	d.byID[ch.ID] = ch
}

// Get returns the channel with the given id, if visible.
func (d *Directory) Get(id string) (domain.Channel, bool) {
	ch, ok := d.byID[id]
	return ch, ok
}

// Channels returns the directory in listing order.
func (d *Directory) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// EnsureDirect returns the direct channel with the given counterpart,
// synthesizing it if no entry exists yet.
func (d *Directory) EnsureDirect(counterpart int64, displayName string) domain.Channel {
	id := domain.DirectChannelID(d.self.ID, counterpart)
	if ch, ok := d.byID[id]; ok {
		return ch
	}
	ch := domain.Channel{
		ID:           id,
		Kind:         domain.ChannelDirect,
		DisplayName:  displayName,
		Participants: []int64{d.self.ID, counterpart},
	}
	d.put(ch)
	return d.byID[id]
}

// CanWrite reports whether the local user may post to the channel.
func (d *Directory) CanWrite(ch domain.Channel) bool {
	if ch.Kind == domain.ChannelBroadcast {
		return d.self.Role == domain.RoleAdmin
	}
	return true
}
