package messaging_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
)

type fakeChannelAPI struct {
	channels []domain.Channel
	err      error
}

func (f *fakeChannelAPI) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return f.channels, f.err
}

// fakeHistoryAPI serves canned backlogs per selector and can hold a
// response until released, to exercise the switch-while-loading path.
type fakeHistoryAPI struct {
	mu      sync.Mutex
	byGroup map[int64][]domain.Message
	direct  map[int64][]domain.Message
	gate    map[int64]chan struct{}
	calls   int
}

func newFakeHistoryAPI() *fakeHistoryAPI {
	return &fakeHistoryAPI{
		byGroup: make(map[int64][]domain.Message),
		direct:  make(map[int64][]domain.Message),
		gate:    make(map[int64]chan struct{}),
	}
}

func (f *fakeHistoryAPI) holdDirect(with int64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gate[with] = ch
	return ch
}

func (f *fakeHistoryAPI) History(ctx context.Context, sel messaging.ChannelSelector) ([]domain.Message, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate[sel.DirectWith]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case sel.GroupID != 0:
		return f.byGroup[sel.GroupID], nil
	case sel.DirectWith != 0:
		return f.direct[sel.DirectWith], nil
	}
	return nil, nil
}

type fakeMessageAPI struct {
	mu        sync.Mutex
	sendCalls int
	sendErr   error
	nextID    string
}

func (f *fakeMessageAPI) Send(ctx context.Context, sel messaging.ChannelSelector, text, attachmentURL string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	m := domain.Message{
		ID:          f.nextID,
		SenderID:    selfID,
		IsBroadcast: sel.Broadcast,
		Text:        text,
		ReadBy:      []int64{selfID},
		CreatedAt:   time.Now(),
	}
	if sel.DirectWith != 0 {
		other := sel.DirectWith
		m.ReceiverID = &other
	}
	if sel.GroupID != 0 {
		gid := sel.GroupID
		m.GroupID = &gid
	}
	return &m, nil
}

func (f *fakeMessageAPI) Edit(ctx context.Context, messageID, newText string) (*domain.Message, error) {
	now := time.Now()
	other := otherID
	return &domain.Message{ID: messageID, SenderID: selfID, ReceiverID: &other, Text: newText, EditedAt: &now}, nil
}

func (f *fakeMessageAPI) Delete(ctx context.Context, messageID string) (*domain.Message, error) {
	now := time.Now()
	other := otherID
	return &domain.Message{ID: messageID, SenderID: selfID, ReceiverID: &other, DeletedAt: &now}, nil
}

func (f *fakeMessageAPI) MarkRead(ctx context.Context, sel messaging.ChannelSelector) error {
	return nil
}

func (f *fakeMessageAPI) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

type fakeStream struct {
	mu      sync.Mutex
	events  chan messaging.Event
	rooms   []string
	left    []string
	emitted []domain.Message
	updates []domain.Message
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan messaging.Event, 16)}
}

func (f *fakeStream) Subscribe(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
	return nil
}

func (f *fakeStream) Unsubscribe(room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, room)
	return nil
}

func (f *fakeStream) EmitMessage(m domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, m)
	return nil
}

func (f *fakeStream) EmitUpdate(m domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, m)
	return nil
}

func (f *fakeStream) Events() <-chan messaging.Event { return f.events }

// selfIDv is an addressable copy for fields needing *int64.
var selfIDv = selfID

func testUser(role domain.Role) domain.User {
	return domain.User{ID: selfID, Name: "Judge One", Role: role}
}

func directChannel() domain.Channel {
	return domain.Channel{
		ID:           domain.DirectChannelID(selfID, otherID),
		Kind:         domain.ChannelDirect,
		DisplayName:  "Registrar",
		Participants: []int64{selfID, otherID},
	}
}

func newTestEngine(role domain.Role) (*messaging.Engine, *fakeChannelAPI, *fakeHistoryAPI, *fakeMessageAPI, *fakeStream) {
	chans := &fakeChannelAPI{channels: []domain.Channel{directChannel()}}
	hist := newFakeHistoryAPI()
	msgs := &fakeMessageAPI{nextID: "srv-1"}
	stream := newFakeStream()
	eng := messaging.NewEngine(testUser(role), chans, hist, msgs, stream, messaging.Options{})
	return eng, chans, hist, msgs, stream
}

func TestEngineSelectChannelLoadsHistory(t *testing.T) {
	eng, _, hist, _, stream := newTestEngine(domain.RoleJudge)
	require.NoError(t, eng.RefreshChannels(context.Background()))

	chID := domain.DirectChannelID(selfID, otherID)
	hist.direct[otherID] = []domain.Message{
		directMsg("m2", otherID, "second", baseTime.Add(time.Minute)),
		directMsg("m1", otherID, "first", baseTime),
	}

	require.NoError(t, eng.SelectChannel(context.Background(), chID))

	view, ok := eng.View(chID)
	require.True(t, ok)
	assert.Len(t, view.Messages, 2)
	assert.Equal(t, "m1", view.Messages[0].ID)
	assert.Equal(t, 0, view.Unread)
	assert.True(t, view.CanWrite)
	assert.Contains(t, stream.rooms, chID)
}

func TestEngineStaleHistoryDiscarded(t *testing.T) {
	eng, chans, hist, _, _ := newTestEngine(domain.RoleJudge)

	thirdID := int64(3)
	second := domain.Channel{
		ID:           domain.DirectChannelID(selfID, thirdID),
		Kind:         domain.ChannelDirect,
		DisplayName:  "Clerk",
		Participants: []int64{selfID, thirdID},
	}
	chans.channels = append(chans.channels, second)
	require.NoError(t, eng.RefreshChannels(context.Background()))

	slowCh := domain.DirectChannelID(selfID, otherID)
	fastCh := domain.DirectChannelID(selfID, thirdID)
	hist.direct[otherID] = []domain.Message{directMsg("stale-1", otherID, "old", baseTime)}
	hist.direct[thirdID] = []domain.Message{{
		ID: "fresh-1", SenderID: thirdID, ReceiverID: &selfIDv, Text: "new", CreatedAt: baseTime,
	}}

	gate := hist.holdDirect(otherID)

	done := make(chan error, 1)
	go func() {
		done <- eng.SelectChannel(context.Background(), slowCh)
	}()

	// Let the slow load start, then switch away before it resolves.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, eng.SelectChannel(context.Background(), fastCh))

	close(gate)
	require.NoError(t, <-done)

	// The stale response must not have touched the store.
	slowView, ok := eng.View(slowCh)
	require.True(t, ok)
	assert.Empty(t, slowView.Messages)

	fastView, ok := eng.View(fastCh)
	require.True(t, ok)
	assert.Len(t, fastView.Messages, 1)
}

func TestEngineBroadcastWritePolicy(t *testing.T) {
	t.Run("NonAdminRejectedBeforeTransport", func(t *testing.T) {
		eng, _, _, msgs, _ := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		_, err := eng.Send(context.Background(), domain.BroadcastChannelID, "to everyone", "")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Equal(t, 0, msgs.sent())

		view, ok := eng.View(domain.BroadcastChannelID)
		require.True(t, ok)
		assert.False(t, view.CanWrite)
		assert.Empty(t, view.Messages)
	})

	t.Run("AdminMayBroadcast", func(t *testing.T) {
		eng, _, _, msgs, _ := newTestEngine(domain.RoleAdmin)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		_, err := eng.Send(context.Background(), domain.BroadcastChannelID, "to everyone", "")
		assert.NoError(t, err)
		assert.Equal(t, 1, msgs.sent())
	})
}

func TestEngineSend(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	t.Run("ConfirmedMessageReplacesPlaceholder", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))
		require.NoError(t, eng.SelectChannel(context.Background(), chID))

		sent, err := eng.Send(context.Background(), chID, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, "srv-1", sent.ID)

		view, _ := eng.View(chID)
		require.Len(t, view.Messages, 1)
		assert.Equal(t, "srv-1", view.Messages[0].ID)

		// The confirmed message is mirrored onto the live transport.
		require.Len(t, stream.emitted, 1)
		assert.Equal(t, "srv-1", stream.emitted[0].ID)
	})

	t.Run("FailedSendLeavesNoResidue", func(t *testing.T) {
		eng, _, _, msgs, _ := newTestEngine(domain.RoleJudge)
		msgs.sendErr = domain.ErrTransportUnavailable
		require.NoError(t, eng.RefreshChannels(context.Background()))
		require.NoError(t, eng.SelectChannel(context.Background(), chID))

		_, err := eng.Send(context.Background(), chID, "hello", "")
		assert.Error(t, err)

		view, _ := eng.View(chID)
		assert.Empty(t, view.Messages)
	})

	t.Run("EmptyMessageRejected", func(t *testing.T) {
		eng, _, _, _, _ := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		_, err := eng.Send(context.Background(), chID, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestEngineLiveEvents(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	run := func(t *testing.T, eng *messaging.Engine, stream *fakeStream, events ...messaging.Event) {
		t.Helper()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan struct{})
		go func() {
			eng.Run(ctx)
			close(done)
		}()
		for _, ev := range events {
			stream.events <- ev
		}
		close(stream.events)
		<-done
	}

	t.Run("IncomingMessageCountsUnreadOnInactiveChannel", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))
		require.NoError(t, eng.SelectChannel(context.Background(), domain.BroadcastChannelID))

		m := directMsg("m1", otherID, "ping", baseTime)
		run(t, eng, stream, messaging.Event{Type: messaging.EventMessageNew, Message: &m})

		view, _ := eng.View(chID)
		assert.Equal(t, 1, view.Unread)

		require.NoError(t, eng.SelectChannel(context.Background(), chID))
		view, _ = eng.View(chID)
		assert.Equal(t, 0, view.Unread)
	})

	t.Run("MessageForStrangersDiscarded", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		sender, receiver := int64(7), int64(8)
		m := domain.Message{ID: "x1", SenderID: sender, ReceiverID: &receiver, Text: "psst", CreatedAt: baseTime}
		run(t, eng, stream, messaging.Event{Type: messaging.EventMessageNew, Message: &m})

		_, _, found := storeProbe(eng, "x1")
		assert.False(t, found)
	})

	t.Run("FirstContactSynthesizesDirectChannel", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		newcomer := int64(9)
		m := domain.Message{ID: "n1", SenderID: newcomer, ReceiverID: &selfIDv, Text: "hello", CreatedAt: baseTime}
		run(t, eng, stream, messaging.Event{Type: messaging.EventMessageNew, Message: &m})

		view, ok := eng.View(domain.DirectChannelID(selfID, newcomer))
		require.True(t, ok)
		assert.Len(t, view.Messages, 1)
	})

	t.Run("UpdateBeforeBaseIsBuffered", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)
		require.NoError(t, eng.RefreshChannels(context.Background()))

		edited := directMsg("m1", otherID, "amended", baseTime)
		at := baseTime.Add(time.Minute)
		edited.EditedAt = &at
		base := directMsg("m1", otherID, "original", baseTime)

		run(t, eng, stream,
			messaging.Event{Type: messaging.EventMessageUpdated, Message: &edited},
			messaging.Event{Type: messaging.EventMessageNew, Message: &base},
		)

		view, _ := eng.View(chID)
		require.Len(t, view.Messages, 1)
		assert.Equal(t, "amended", view.Messages[0].Text)
	})

	t.Run("PresenceTracked", func(t *testing.T) {
		eng, _, _, _, stream := newTestEngine(domain.RoleJudge)

		p := domain.Presence{UserID: otherID, Online: true, LastSeen: baseTime}
		run(t, eng, stream, messaging.Event{Type: messaging.EventPresence, Presence: &p})

		assert.True(t, eng.PresenceOf(otherID).Online)
		assert.False(t, eng.PresenceOf(99).Online)
	})
}

// storeProbe looks a message up through the public view API.
func storeProbe(eng *messaging.Engine, id string) (domain.Message, string, bool) {
	for _, ch := range eng.Channels() {
		if view, ok := eng.View(ch.ID); ok {
			for _, m := range view.Messages {
				if m.ID == id {
					return m, ch.ID, true
				}
			}
		}
	}
	return domain.Message{}, "", false
}

func TestEngineEditAndDelete(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	t.Run("EditOthersMessageRejectedLocally", func(t *testing.T) {
		eng, _, hist, _, _ := newTestEngine(domain.RoleJudge)
		hist.direct[otherID] = []domain.Message{directMsg("m1", otherID, "theirs", baseTime)}
		require.NoError(t, eng.RefreshChannels(context.Background()))
		require.NoError(t, eng.SelectChannel(context.Background(), chID))

		_, err := eng.Edit(context.Background(), "m1", "hijack")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("DeleteTombstonesInPlace", func(t *testing.T) {
		eng, _, hist, _, stream := newTestEngine(domain.RoleJudge)
		hist.direct[otherID] = []domain.Message{directMsg("m1", selfID, "mine", baseTime)}
		require.NoError(t, eng.RefreshChannels(context.Background()))
		require.NoError(t, eng.SelectChannel(context.Background(), chID))

		require.NoError(t, eng.Delete(context.Background(), "m1"))

		view, _ := eng.View(chID)
		require.Len(t, view.Messages, 1)
		assert.True(t, view.Messages[0].Deleted())
		assert.Empty(t, view.Messages[0].Text)
		assert.Len(t, stream.updates, 1)
	})
}

func TestEngineSelectUnknownChannel(t *testing.T) {
	eng, _, _, _, _ := newTestEngine(domain.RoleJudge)
	err := eng.SelectChannel(context.Background(), "group:404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
