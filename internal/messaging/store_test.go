package messaging_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
)

const (
	selfID  = int64(1)
	otherID = int64(2)
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func directMsg(id string, sender int64, text string, at time.Time) domain.Message {
	receiver := selfID
	if sender == selfID {
		receiver = otherID
	}
	return domain.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: &receiver,
		Text:       text,
		ReadBy:     []int64{sender},
		CreatedAt:  at,
	}
}

func TestStoreOrdering(t *testing.T) {
	s := messaging.NewStore(selfID)
	chID := domain.DirectChannelID(selfID, otherID)

	s.Insert(directMsg("m3", otherID, "third", baseTime.Add(2*time.Minute)))
	s.Insert(directMsg("m1", otherID, "first", baseTime))
	s.Insert(directMsg("m2", selfID, "second", baseTime.Add(time.Minute)))

	msgs := s.Messages(chID)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestStoreTieBreakKeepsArrivalOrder(t *testing.T) {
	s := messaging.NewStore(selfID)
	chID := domain.DirectChannelID(selfID, otherID)

	// Identical timestamps: arrival order must be preserved.
	s.Insert(directMsg("a", otherID, "one", baseTime))
	s.Insert(directMsg("b", otherID, "two", baseTime))
	s.Insert(directMsg("c", otherID, "three", baseTime))

	msgs := s.Messages(chID)
	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestStoreDeduplicatesByID(t *testing.T) {
	s := messaging.NewStore(selfID)
	chID := domain.DirectChannelID(selfID, otherID)

	m := directMsg("m1", otherID, "hello", baseTime)
	s.Insert(m)

	// Same message arrives again via the other ingestion path, now with a
	// larger read set.
	dup := m
	dup.ReadBy = []int64{otherID, selfID}
	s.Insert(dup)

	msgs := s.Messages(chID)
	assert.Len(t, msgs, 1)
	assert.ElementsMatch(t, []int64{otherID, selfID}, msgs[0].ReadBy)
}

func TestStoreUnreadAccounting(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	t.Run("IncomingToInactiveChannel", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)
		s.Insert(directMsg("m1", otherID, "hi", baseTime))
		assert.Equal(t, 1, s.Unread(chID))
	})

	t.Run("OwnMessageNeverCounts", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)
		s.Insert(directMsg("m1", selfID, "hi", baseTime))
		assert.Equal(t, 0, s.Unread(chID))
	})

	t.Run("ActiveChannelNeverCounts", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(chID)
		s.Insert(directMsg("m1", otherID, "hi", baseTime))
		assert.Equal(t, 0, s.Unread(chID))
	})

	t.Run("AlreadyReadNeverCounts", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)
		m := directMsg("m1", otherID, "hi", baseTime)
		m.ReadBy = []int64{otherID, selfID}
		s.Insert(m)
		assert.Equal(t, 0, s.Unread(chID))
	})

	t.Run("SelectingResetsCounter", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)
		s.Insert(directMsg("m1", otherID, "hi", baseTime))
		s.Insert(directMsg("m2", otherID, "again", baseTime.Add(time.Second)))
		assert.Equal(t, 2, s.Unread(chID))

		s.SetActive(chID)
		assert.Equal(t, 0, s.Unread(chID))
	})

	t.Run("BufferedReadReceiptSuppressesCount", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)

		// The read receipt overtakes the message it acknowledges.
		receipt := directMsg("m1", otherID, "hi", baseTime)
		receipt.ReadBy = []int64{otherID, selfID}
		s.Update(receipt)

		s.Insert(directMsg("m1", otherID, "hi", baseTime))
		assert.Equal(t, 0, s.Unread(chID))
	})

	t.Run("DuplicateDeliveryCountsOnce", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.SetActive(domain.BroadcastChannelID)
		m := directMsg("m1", otherID, "hi", baseTime)
		s.Insert(m)
		s.Insert(m)
		assert.Equal(t, 1, s.Unread(chID))
	})
}

func TestStorePendingPromotion(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	t.Run("ConfirmPromotesPlaceholder", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		pending := directMsg("pending-abc", selfID, "draft", baseTime)
		s.InsertPending(pending)

		confirmed := directMsg("srv-1", selfID, "draft", baseTime.Add(time.Second))
		assert.True(t, s.Confirm("pending-abc", confirmed))

		msgs := s.Messages(chID)
		assert.Len(t, msgs, 1)
		assert.Equal(t, "srv-1", msgs[0].ID)
	})

	t.Run("LiveEventPromotesFirst", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		pending := directMsg("pending-abc", selfID, "draft", baseTime)
		s.InsertPending(pending)

		// The echo of our own send arrives over the push path before the
		// REST response does.
		echo := directMsg("srv-1", selfID, "draft", baseTime.Add(time.Second))
		s.Insert(echo)

		msgs := s.Messages(chID)
		assert.Len(t, msgs, 1)
		assert.Equal(t, "srv-1", msgs[0].ID)

		// The late confirmation merges instead of duplicating.
		assert.False(t, s.Confirm("pending-abc", echo))
		assert.Len(t, s.Messages(chID), 1)
	})

	t.Run("DifferentBodyIsNotAConfirmation", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.InsertPending(directMsg("pending-abc", selfID, "draft", baseTime))
		s.Insert(directMsg("srv-1", selfID, "unrelated", baseTime.Add(time.Second)))
		assert.Len(t, s.Messages(chID), 2)
	})

	t.Run("OutsideToleranceIsNotAConfirmation", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.InsertPending(directMsg("pending-abc", selfID, "draft", baseTime))
		s.Insert(directMsg("srv-1", selfID, "draft", baseTime.Add(time.Minute)))
		assert.Len(t, s.Messages(chID), 2)
	})

	t.Run("DropPendingRemovesPlaceholder", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.InsertPending(directMsg("pending-abc", selfID, "draft", baseTime))
		s.DropPending(chID, "pending-abc")
		assert.Empty(t, s.Messages(chID))
	})
}

func TestStoreUpdateMerges(t *testing.T) {
	chID := domain.DirectChannelID(selfID, otherID)

	t.Run("EditReplacesText", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.Insert(directMsg("m1", otherID, "original", baseTime))

		edited := directMsg("m1", otherID, "amended", baseTime)
		at := baseTime.Add(time.Minute)
		edited.EditedAt = &at
		s.Update(edited)

		msgs := s.Messages(chID)
		assert.Equal(t, "amended", msgs[0].Text)
		assert.NotNil(t, msgs[0].EditedAt)
	})

	t.Run("TombstoneClearsBodyAndSticks", func(t *testing.T) {
		s := messaging.NewStore(selfID)
		s.Insert(directMsg("m1", otherID, "secret", baseTime))

		tomb := directMsg("m1", otherID, "", baseTime)
		at := baseTime.Add(time.Minute)
		tomb.DeletedAt = &at
		s.Update(tomb)

		msgs := s.Messages(chID)
		assert.True(t, msgs[0].Deleted())
		assert.Empty(t, msgs[0].Text)

		// A stale history snapshot must not resurrect the body.
		s.Insert(directMsg("m1", otherID, "secret", baseTime))
		msgs = s.Messages(chID)
		assert.True(t, msgs[0].Deleted())
		assert.Empty(t, msgs[0].Text)
	})

	t.Run("OrphanUpdateBufferedUntilBaseArrives", func(t *testing.T) {
		s := messaging.NewStore(selfID)

		edited := directMsg("m1", otherID, "amended", baseTime)
		at := baseTime.Add(time.Minute)
		edited.EditedAt = &at
		s.Update(edited)
		assert.Empty(t, s.Messages(chID))

		s.Insert(directMsg("m1", otherID, "original", baseTime))
		msgs := s.Messages(chID)
		assert.Len(t, msgs, 1)
		assert.Equal(t, "amended", msgs[0].Text)
	})
}

func TestStoreMarkRead(t *testing.T) {
	s := messaging.NewStore(selfID)
	chID := domain.DirectChannelID(selfID, otherID)
	s.SetActive(domain.BroadcastChannelID)
	s.Insert(directMsg("m1", otherID, "one", baseTime))
	s.Insert(directMsg("m2", otherID, "two", baseTime.Add(time.Second)))
	assert.Equal(t, 2, s.Unread(chID))

	s.MarkRead(chID)
	assert.Equal(t, 0, s.Unread(chID))
	for _, m := range s.Messages(chID) {
		assert.True(t, m.ReadByUser(selfID))
	}
}

func TestStoreGet(t *testing.T) {
	s := messaging.NewStore(selfID)
	s.Insert(directMsg("m1", otherID, "hello", baseTime))

	m, chID, ok := s.Get("m1")
	assert.True(t, ok)
	assert.Equal(t, domain.DirectChannelID(selfID, otherID), chID)
	assert.Equal(t, "hello", m.Text)

	_, _, ok = s.Get("missing")
	assert.False(t, ok)
}
