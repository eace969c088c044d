package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
)

// Mocks

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) CreateWithOwner(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	event.ID = 1
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, eventID int64) (*domain.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*domain.Event), args.Int(1), args.Error(2)
}

func (m *MockEventRepository) Update(ctx context.Context, eventID int64, update *domain.EventUpdate) (*domain.Event, error) {
	args := m.Called(ctx, eventID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) Delete(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

func newTestService() (*Service, *MockEventRepository, *MockParticipantRepository) {
	events := new(MockEventRepository)
	participants := new(MockParticipantRepository)
	return NewService(events, participants), events, participants
}

func TestCreateValidatesTimeRange(t *testing.T) {
	service, events, _ := newTestService()

	start := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := service.Create(context.Background(), 10, &domain.EventCreate{
		Title:   "Broken",
		StartAt: &start,
		EndAt:   &end,
	})
	assert.ErrorIs(t, err, domain.ErrEventTimeRange)
	events.AssertNotCalled(t, "CreateWithOwner")
}

func TestCreateReturnsOrganizerRole(t *testing.T) {
	service, events, _ := newTestService()
	ctx := context.Background()

	events.On("CreateWithOwner", ctx, mock.AnythingOfType("*domain.Event")).Return(nil)

	response, err := service.Create(ctx, 10, &domain.EventCreate{Title: "Picnic"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, response.MyRole)
	assert.Equal(t, int64(10), response.Owner)
}

func TestGetRequiresParticipant(t *testing.T) {
	service, _, participants := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleNone, nil)

	_, err := service.Get(ctx, 1, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateChecksMergedTimeRange(t *testing.T) {
	service, events, participants := newTestService()
	ctx := context.Background()

	start := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 10, StartAt: &start}, nil)

	badEnd := start.Add(-time.Hour)
	_, err := service.Update(ctx, 1, 10, &domain.EventUpdate{EndAt: &badEnd})
	assert.ErrorIs(t, err, domain.ErrEventTimeRange)
}

func TestDeleteOwnerOnly(t *testing.T) {
	service, events, participants := newTestService()
	ctx := context.Background()

	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 99}, nil)
	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)

	err := service.Delete(ctx, 1, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	participants.On("GetRole", ctx, int64(1), int64(99)).Return(domain.RoleOrganizer, nil)
	events.On("Delete", ctx, int64(1)).Return(nil)
	assert.NoError(t, service.Delete(ctx, 1, 99))
}
