package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
)

// Mocks

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, eventID, authorID int64, text string) (*domain.MessageResponse, error) {
	args := m.Called(ctx, eventID, authorID, text)
	return args.Get(0).(*domain.MessageResponse), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, eventID int64, beforeID, afterID *int64, limit int) ([]*domain.MessageResponse, error) {
	args := m.Called(ctx, eventID, beforeID, afterID, limit)
	return args.Get(0).([]*domain.MessageResponse), args.Error(1)
}

func (m *MockMessageRepository) AuthorOf(ctx context.Context, messageID, eventID int64) (int64, error) {
	args := m.Called(ctx, messageID, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) LastAuthoredAt(ctx context.Context, eventID, authorID int64) (*time.Time, error) {
	args := m.Called(ctx, eventID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockMessageRepository) Delete(ctx context.Context, messageID, eventID int64) error {
	args := m.Called(ctx, messageID, eventID)
	return args.Error(0)
}

type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

type RecordingBroadcaster struct {
	types []string
}

func (b *RecordingBroadcaster) PublishEvent(_ context.Context, _ int64, messageType string, _ any, _ *int64) {
	b.types = append(b.types, messageType)
}

func newTestService() (*Service, *MockMessageRepository, *MockParticipantRepository, *RecordingBroadcaster) {
	messages := new(MockMessageRepository)
	participants := new(MockParticipantRepository)
	broadcaster := &RecordingBroadcaster{}
	return NewService(messages, participants, broadcaster), messages, participants, broadcaster
}

func TestSendBroadcastsMessage(t *testing.T) {
	service, messages, participants, broadcaster := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleMember, nil)
	messages.On("LastAuthoredAt", ctx, int64(1), int64(10)).Return(nil, nil)
	messages.On("Create", ctx, int64(1), int64(10), "hi").Return(&domain.MessageResponse{
		ID: 100, Event: 1, Author: 10, Text: "hi",
	}, nil)

	message, err := service.Send(ctx, 1, 10, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", message.Text)
	assert.Equal(t, []string{"chat.message"}, broadcaster.types)
	messages.AssertExpectations(t)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	service, _, participants, broadcaster := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleNone, nil)

	_, err := service.Send(ctx, 1, 10, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, broadcaster.types)
}

func TestSendValidatesText(t *testing.T) {
	service, _, participants, _ := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleMember, nil)

	_, err := service.Send(ctx, 1, 10, "   ")
	assert.ErrorIs(t, err, domain.ErrMessageEmpty)

	_, err = service.Send(ctx, 1, 10, strings.Repeat("x", domain.MaxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
}

func TestSendRateLimited(t *testing.T) {
	service, messages, participants, broadcaster := newTestService()
	ctx := context.Background()

	now := time.Now()
	service.now = func() time.Time { return now }

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleMember, nil)

	recent := now.Add(-500 * time.Millisecond)
	messages.On("LastAuthoredAt", ctx, int64(1), int64(10)).Return(&recent, nil).Once()

	_, err := service.Send(ctx, 1, 10, "too fast")
	assert.ErrorIs(t, err, domain.ErrMessageRate)
	assert.Empty(t, broadcaster.types)

	// A message older than the window passes.
	old := now.Add(-MessageRateLimit)
	messages.On("LastAuthoredAt", ctx, int64(1), int64(10)).Return(&old, nil).Once()
	messages.On("Create", ctx, int64(1), int64(10), "ok now").Return(&domain.MessageResponse{ID: 101, Text: "ok now"}, nil)

	_, err = service.Send(ctx, 1, 10, "ok now")
	assert.NoError(t, err)
}

func TestDeletePermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("author deletes own message", func(t *testing.T) {
		service, messages, participants, _ := newTestService()
		participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleMember, nil)
		messages.On("AuthorOf", ctx, int64(100), int64(1)).Return(int64(10), nil)
		messages.On("Delete", ctx, int64(100), int64(1)).Return(nil)

		assert.NoError(t, service.Delete(ctx, 1, 100, 10))
	})

	t.Run("organizer deletes any message", func(t *testing.T) {
		service, messages, participants, _ := newTestService()
		participants.On("GetRole", ctx, int64(1), int64(20)).Return(domain.RoleOrganizer, nil)
		messages.On("AuthorOf", ctx, int64(100), int64(1)).Return(int64(10), nil)
		messages.On("Delete", ctx, int64(100), int64(1)).Return(nil)

		assert.NoError(t, service.Delete(ctx, 1, 100, 20))
	})

	t.Run("member cannot delete foreign message", func(t *testing.T) {
		service, messages, participants, _ := newTestService()
		participants.On("GetRole", ctx, int64(1), int64(30)).Return(domain.RoleMember, nil)
		messages.On("AuthorOf", ctx, int64(100), int64(1)).Return(int64(10), nil)

		assert.ErrorIs(t, service.Delete(ctx, 1, 100, 30), domain.ErrForbidden)
	})
}

func TestListPassesCursors(t *testing.T) {
	service, messages, participants, _ := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleMember, nil)
	before := int64(50)
	messages.On("List", ctx, int64(1), &before, (*int64)(nil), 30).Return([]*domain.MessageResponse{}, nil)

	_, err := service.List(ctx, 1, 10, &before, nil, 30)
	assert.NoError(t, err)
	messages.AssertExpectations(t)
}
