package messaging

import (
	"context"
	"log"
	"sync"
	"time"

	"courtportal/internal/domain"
)

// ChannelView is the per-channel read model exposed to the presentation
// layer: the ordered timeline, the unread counter, and write capability.
type ChannelView struct {
	Channel  domain.Channel
	Messages []domain.Message
	Unread   int
	CanWrite bool
}

// Engine is the client-side messaging core. It merges the pull-based
// history fetch and the push-based live stream into one store, enforces
// per-channel write policy, and serves the read model the dashboards
// render.
//
// A single mutex serializes every mutation of the store, the directory,
// and the presence map; network calls always happen outside the lock
// and their results re-enter through the request-generation guard, so a
// partial merge state is never observable.
type Engine struct {
	self     domain.User
	channels ChannelAPI
	history  *HistoryLoader
	messages MessageAPI
	stream   EventStream

	mu        sync.Mutex
	directory *Directory
	store     *Store
	presence  *PresenceTracker
	// gen is bumped on every channel switch; a history response carrying
	// an older generation is discarded instead of applied.
	gen        uint64
	activeRoom string
}

// Options tunes engine behaviour; the zero value is usable.
type Options struct {
	HistoryTimeout time.Duration
}

func NewEngine(self domain.User, channels ChannelAPI, history HistoryAPI, messages MessageAPI, stream EventStream, opts Options) *Engine {
	return &Engine{
		self:      self,
		channels:  channels,
		history:   NewHistoryLoader(history, opts.HistoryTimeout),
		messages:  messages,
		stream:    stream,
		directory: NewDirectory(self),
		store:     NewStore(self.ID),
		presence:  NewPresenceTracker(),
	}
}

// Run consumes the live event stream until the context is cancelled or
// the stream closes. Event handling is synchronous: no await happens
// mid-mutation.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.stream.Events():
			if !ok {
				return
			}
			e.handleEvent(ev)
		}
	}
}

func (e *Engine) handleEvent(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case EventMessageNew:
		if ev.Message == nil {
			return
		}
		if !e.route(*ev.Message) {
			log.Printf("engine: discarding unroutable message %s", ev.Message.ID)
			return
		}
		e.store.Insert(*ev.Message)
	case EventMessageUpdated:
		if ev.Message == nil {
			return
		}
		e.store.Update(*ev.Message)
	case EventPresence:
		if ev.Presence == nil {
			return
		}
		e.presence.Apply(*ev.Presence)
	}
}

// route attributes an inbound message to a channel, synthesizing direct
// channels on first contact. Messages matching no visible channel are
// rejected.
func (e *Engine) route(m domain.Message) bool {
	switch {
	case m.IsBroadcast:
		return true
	case m.GroupID != nil:
		_, ok := e.directory.Get(domain.GroupChannelID(*m.GroupID))
		return ok
	case m.ReceiverID != nil:
		if m.SenderID != e.self.ID && *m.ReceiverID != e.self.ID {
			return false
		}
		counterpart := m.SenderID
		if counterpart == e.self.ID {
			counterpart = *m.ReceiverID
		}
		e.directory.EnsureDirect(counterpart, "")
		return true
	}
	return false
}

// RefreshChannels re-resolves the channel directory. On failure the
// previously resolved list stays intact.
func (e *Engine) RefreshChannels(ctx context.Context) error {
	chans, err := e.channels.ListChannels(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.directory.Apply(chans)
	e.mu.Unlock()
	return nil
}

// SelectChannel opens a channel: resets its unread counter, re-homes the
// room subscription, and loads its history. A history response that
// lands after another SelectChannel call is silently discarded; actual
// network cancellation is not assumed.
func (e *Engine) SelectChannel(ctx context.Context, channelID string) error {
	e.mu.Lock()
	ch, ok := e.directory.Get(channelID)
	if !ok {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	e.gen++
	gen := e.gen
	prevRoom := e.activeRoom
	e.activeRoom = channelID
	e.store.SetActive(channelID)
	e.mu.Unlock()

	if prevRoom != "" && prevRoom != channelID {
		if err := e.stream.Unsubscribe(prevRoom); err != nil {
			log.Printf("engine: unsubscribe %s: %v", prevRoom, err)
		}
	}
	if err := e.stream.Subscribe(channelID); err != nil {
		log.Printf("engine: subscribe %s: %v", channelID, err)
	}

	msgs, err := e.history.Load(ctx, ch, e.self.ID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// The user has already switched away; this response must not
		// touch the store.
		return nil
	}
	if err != nil {
		return err
	}
	for _, m := range msgs {
		e.store.Insert(m)
	}
	return nil
}

// Channels returns the resolved channel directory.
func (e *Engine) Channels() []domain.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.directory.Channels()
}

// View returns the read model for one channel.
func (e *Engine) View(channelID string) (ChannelView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.directory.Get(channelID)
	if !ok {
		return ChannelView{}, false
	}
	return ChannelView{
		Channel:  ch,
		Messages: e.store.Messages(channelID),
		Unread:   e.store.Unread(channelID),
		CanWrite: e.directory.CanWrite(ch),
	}, true
}

// PresenceOf returns the last known presence of a counterparty.
func (e *Engine) PresenceOf(userID int64) domain.Presence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presence.Status(userID)
}
