package participant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
)

// Mocks

type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

func (m *MockParticipantRepository) List(ctx context.Context, eventID int64, orderBy string, descending bool, limit, offset int) ([]*domain.ParticipantResponse, int, error) {
	args := m.Called(ctx, eventID, orderBy, descending, limit, offset)
	return args.Get(0).([]*domain.ParticipantResponse), args.Int(1), args.Error(2)
}

func (m *MockParticipantRepository) GetByID(ctx context.Context, eventID, participantID int64) (*domain.ParticipantResponse, error) {
	args := m.Called(ctx, eventID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantResponse), args.Error(1)
}

func (m *MockParticipantRepository) UpdateRole(ctx context.Context, eventID, participantID, callerID int64, newRole domain.Role) (*domain.ParticipantResponse, error) {
	args := m.Called(ctx, eventID, participantID, callerID, newRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantResponse), args.Error(1)
}

func (m *MockParticipantRepository) Delete(ctx context.Context, eventID, participantID, callerID int64) error {
	args := m.Called(ctx, eventID, participantID, callerID)
	return args.Error(0)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) GetByID(ctx context.Context, eventID int64) (*domain.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func newTestService() (*Service, *MockParticipantRepository, *MockEventRepository) {
	participants := new(MockParticipantRepository)
	events := new(MockEventRepository)
	return NewService(participants, events), participants, events
}

func TestListOrganizerOnly(t *testing.T) {
	service, participants, events := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(20)).Return(domain.RoleMember, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 99}, nil)

	_, _, err := service.List(ctx, 1, 20, "name", 25, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListOrderingParsing(t *testing.T) {
	service, participants, events := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 10}, nil)
	participants.On("List", ctx, int64(1), "role", true, 25, 0).Return([]*domain.ParticipantResponse{}, 0, nil)

	_, _, err := service.List(ctx, 1, 10, "-role", 25, 0)
	require.NoError(t, err)
	participants.AssertExpectations(t)
}

func TestListUnknownOrderingFallsBackToName(t *testing.T) {
	service, participants, events := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 10}, nil)
	participants.On("List", ctx, int64(1), "name", false, 25, 0).Return([]*domain.ParticipantResponse{}, 0, nil)

	_, _, err := service.List(ctx, 1, 10, "email", 25, 0)
	require.NoError(t, err)
	participants.AssertExpectations(t)
}

func TestUpdateRolePassesLastOrganizerGuard(t *testing.T) {
	service, participants, events := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 10}, nil)
	participants.On("UpdateRole", ctx, int64(1), int64(8), int64(10), domain.RoleMember).
		Return(nil, domain.ErrSelfLastOrganizer)

	_, err := service.UpdateRole(ctx, 1, 8, 10, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrSelfLastOrganizer)
}

func TestRemoveDelegatesGuardToStore(t *testing.T) {
	service, participants, events := newTestService()
	ctx := context.Background()

	participants.On("GetRole", ctx, int64(1), int64(10)).Return(domain.RoleOrganizer, nil)
	events.On("GetByID", ctx, int64(1)).Return(&domain.Event{ID: 1, OwnerID: 10}, nil)
	participants.On("Delete", ctx, int64(1), int64(8), int64(10)).Return(domain.ErrLastOrganizer)

	assert.ErrorIs(t, service.Remove(ctx, 1, 8, 10), domain.ErrLastOrganizer)
}
