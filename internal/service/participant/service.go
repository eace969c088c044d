package participant

import (
	"context"

	"eventplanner-backend/internal/authz"
	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// ParticipantRepository interface for participant data operations. The
// last-organizer guard lives behind UpdateRole and Delete so direct store
// paths cannot violate it.
type ParticipantRepository interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
	List(ctx context.Context, eventID int64, orderBy string, descending bool, limit, offset int) ([]*domain.ParticipantResponse, int, error)
	GetByID(ctx context.Context, eventID, participantID int64) (*domain.ParticipantResponse, error)
	UpdateRole(ctx context.Context, eventID, participantID, callerID int64, newRole domain.Role) (*domain.ParticipantResponse, error)
	Delete(ctx context.Context, eventID, participantID, callerID int64) error
}

// EventRepository interface for event lookups
type EventRepository interface {
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
}

// Service handles participant management
type Service struct {
	participants ParticipantRepository
	events       EventRepository
}

// NewService creates a new participant service
func NewService(participants ParticipantRepository, events EventRepository) *Service {
	return &Service{participants: participants, events: events}
}

func (s *Service) requireOrganizer(ctx context.Context, eventID, userID int64) error {
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if decision := authz.Decide(role, event.OwnerID == userID, authz.ActionManageParticipants); !decision.Allowed {
		return domain.ErrForbidden
	}
	return nil
}

// List retrieves participants of an event; organizer only. orderBy is
// "name" or "role", optionally prefixed with "-" for descending.
func (s *Service) List(ctx context.Context, eventID, userID int64, ordering string, limit, offset int) ([]*domain.ParticipantResponse, int, error) {
	if err := s.requireOrganizer(ctx, eventID, userID); err != nil {
		return nil, 0, err
	}

	descending := false
	orderBy := ordering
	if len(orderBy) > 0 && orderBy[0] == '-' {
		descending = true
		orderBy = orderBy[1:]
	}
	if orderBy != "role" {
		orderBy = "name"
	}
	return s.participants.List(ctx, eventID, orderBy, descending, limit, offset)
}

// UpdateRole changes a participant's role; organizer only. The repository
// rejects demoting the last organizer inside the same transaction.
func (s *Service) UpdateRole(ctx context.Context, eventID, participantID, userID int64, newRole domain.Role) (*domain.ParticipantResponse, error) {
	if err := s.requireOrganizer(ctx, eventID, userID); err != nil {
		return nil, err
	}
	if !domain.ValidRole(newRole) {
		return nil, domain.ErrForbidden
	}
	return s.participants.UpdateRole(ctx, eventID, participantID, userID, newRole)
}

// Remove detaches a participant from the event; organizer only. Their tasks
// survive unassigned.
func (s *Service) Remove(ctx context.Context, eventID, participantID, userID int64) error {
	if err := s.requireOrganizer(ctx, eventID, userID); err != nil {
		return err
	}
	return s.participants.Delete(ctx, eventID, participantID, userID)
}

var _ ParticipantRepository = (*postgres.ParticipantRepository)(nil)
