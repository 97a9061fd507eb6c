package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
	"courtportal/internal/security"
	"courtportal/internal/service"
)

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListDirect(ctx context.Context, a, b int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, a, b, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListGroup(ctx context.Context, groupID int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, groupID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListBroadcast(ctx context.Context, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) Update(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) AddReadBy(ctx context.Context, messageID string, userID int64) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MockMessageRepo) MarkChannelRead(ctx context.Context, messageIDs []string, userID int64) error {
	args := m.Called(ctx, messageIDs, userID)
	return args.Error(0)
}

type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) Create(ctx context.Context, g *domain.Group) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Group), args.Error(1)
}

func (m *MockGroupRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func testEncryptor(t *testing.T) *security.Encryptor {
	t.Helper()
	enc, err := security.NewEncryptor([]byte("unit-test-key"))
	require.NoError(t, err)
	return enc
}

func newMessageService(t *testing.T, msgs *MockMessageRepo, groups *MockGroupRepo, users *MockUserRepo) *service.MessageService {
	return service.NewMessageService(msgs, groups, users, testEncryptor(t), 100)
}

func judge() *domain.User {
	return &domain.User{ID: 7, Name: "Judge One", Role: domain.RoleJudge, IsActive: true}
}

func TestCreateMessage(t *testing.T) {
	t.Run("BroadcastRequiresAdmin", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		_, err := svc.Create(context.Background(), judge(), service.MessageCreateInput{
			Selector: messaging.ChannelSelector{Broadcast: true},
			Text:     "to everyone",
		})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("AdminBroadcastStoredEncrypted", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		var stored string
		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			stored = m.Text
			return m.IsBroadcast
		})).Return(nil)

		out, err := svc.Create(context.Background(), admin(), service.MessageCreateInput{
			Selector: messaging.ChannelSelector{Broadcast: true},
			Text:     "court closes early",
		})
		require.NoError(t, err)
		// At-rest ciphertext differs from what the caller gets back.
		assert.NotEqual(t, "court closes early", stored)
		assert.Equal(t, "court closes early", out.Text)
	})

	t.Run("GroupRequiresMembership", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		groups := new(MockGroupRepo)
		svc := newMessageService(t, msgs, groups, new(MockUserRepo))

		groups.On("IsMember", mock.Anything, int64(3), int64(7)).Return(false, nil)

		_, err := svc.Create(context.Background(), judge(), service.MessageCreateInput{
			Selector: messaging.ChannelSelector{GroupID: 3},
			Text:     "hello",
		})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("DirectToUnknownUser", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), users)

		users.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

		_, err := svc.Create(context.Background(), judge(), service.MessageCreateInput{
			Selector: messaging.ChannelSelector{DirectWith: 99},
			Text:     "hello",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("EmptyMessageRejected", func(t *testing.T) {
		svc := newMessageService(t, new(MockMessageRepo), new(MockGroupRepo), new(MockUserRepo))

		_, err := svc.Create(context.Background(), judge(), service.MessageCreateInput{
			Selector: messaging.ChannelSelector{DirectWith: 2},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestHistoryDecryptsAndReorders(t *testing.T) {
	msgs := new(MockMessageRepo)
	users := new(MockUserRepo)
	svc := newMessageService(t, msgs, new(MockGroupRepo), users)
	enc := testEncryptor(t)

	cipher1, _ := enc.Encrypt("first")
	cipher2, _ := enc.Encrypt("second")
	other := int64(2)
	users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other, IsActive: true}, nil)
	// Repo returns newest-first; the service flips to chronological.
	msgs.On("ListDirect", mock.Anything, int64(7), other, 100).Return([]*domain.Message{
		{ID: "m2", SenderID: other, ReceiverID: ptr(int64(7)), Text: cipher2, CreatedAt: time.Now()},
		{ID: "m1", SenderID: 7, ReceiverID: &other, Text: cipher1, CreatedAt: time.Now().Add(-time.Minute)},
	}, nil)

	out, err := svc.History(context.Background(), judge(), messaging.ChannelSelector{DirectWith: other})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Text)
	assert.Equal(t, "second", out[1].Text)
}

func ptr[T any](v T) *T { return &v }

func TestEditMessage(t *testing.T) {
	t.Run("OnlySenderMayEdit", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 99}, nil)

		_, err := svc.Edit(context.Background(), judge(), "m1", "rewrite")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("DeletedMessageCannotBeEdited", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		now := time.Now()
		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 7, DeletedAt: &now}, nil)

		_, err := svc.Edit(context.Background(), judge(), "m1", "rewrite")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("SuccessSetsEditedAt", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		other := int64(2)
		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 7, ReceiverID: &other, Text: "old"}, nil)
		msgs.On("Update", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.EditedAt != nil && m.Text != "rewrite" // stored encrypted
		})).Return(nil)

		out, err := svc.Edit(context.Background(), judge(), "m1", "rewrite")
		require.NoError(t, err)
		assert.Equal(t, "rewrite", out.Text)
		assert.NotNil(t, out.EditedAt)
	})
}

func TestDeleteMessage(t *testing.T) {
	t.Run("SenderDeleteProducesTombstone", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		other := int64(2)
		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 7, ReceiverID: &other, Text: "secret", AttachmentURL: "/f.pdf"}, nil)
		msgs.On("Update", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.DeletedAt != nil && m.Text == "" && m.AttachmentURL == ""
		})).Return(nil)

		out, err := svc.Delete(context.Background(), judge(), "m1")
		require.NoError(t, err)
		assert.True(t, out.Deleted())
		assert.Empty(t, out.Text)
	})

	t.Run("StrangerCannotDelete", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 99}, nil)

		_, err := svc.Delete(context.Background(), judge(), "m1")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("AdminMayDeleteAnyMessage", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 99, IsBroadcast: true, Text: "oops"}, nil)
		msgs.On("Update", mock.Anything, mock.Anything).Return(nil)

		out, err := svc.Delete(context.Background(), admin(), "m1")
		require.NoError(t, err)
		assert.True(t, out.Deleted())
	})

	t.Run("RepeatedDeleteIsIdempotent", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newMessageService(t, msgs, new(MockGroupRepo), new(MockUserRepo))

		now := time.Now()
		msgs.On("GetByID", mock.Anything, "m1").Return(&domain.Message{ID: "m1", SenderID: 7, DeletedAt: &now}, nil)

		out, err := svc.Delete(context.Background(), judge(), "m1")
		require.NoError(t, err)
		assert.True(t, out.Deleted())
		msgs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestRecipientIDs(t *testing.T) {
	msgs := new(MockMessageRepo)
	groups := new(MockGroupRepo)
	svc := newMessageService(t, msgs, groups, new(MockUserRepo))

	t.Run("Broadcast", func(t *testing.T) {
		_, all, err := svc.RecipientIDs(context.Background(), &domain.Message{ID: "b1", IsBroadcast: true})
		assert.NoError(t, err)
		assert.True(t, all)
	})

	t.Run("Group", func(t *testing.T) {
		gid := int64(3)
		groups.On("GetByID", mock.Anything, gid).Return(&domain.Group{ID: gid, MemberIDs: []int64{1, 7, 9}}, nil)

		ids, all, err := svc.RecipientIDs(context.Background(), &domain.Message{ID: "g1", GroupID: &gid})
		assert.NoError(t, err)
		assert.False(t, all)
		assert.ElementsMatch(t, []int64{1, 7, 9}, ids)
	})

	t.Run("Direct", func(t *testing.T) {
		other := int64(2)
		ids, all, err := svc.RecipientIDs(context.Background(), &domain.Message{ID: "d1", SenderID: 7, ReceiverID: &other})
		assert.NoError(t, err)
		assert.False(t, all)
		assert.ElementsMatch(t, []int64{7, 2}, ids)
	})
}
