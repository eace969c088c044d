package event

import (
	"context"

	"eventplanner-backend/internal/authz"
	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// EventRepository interface for event data operations
type EventRepository interface {
	CreateWithOwner(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, int, error)
	Update(ctx context.Context, eventID int64, update *domain.EventUpdate) (*domain.Event, error)
	Delete(ctx context.Context, eventID int64) error
}

// ParticipantRepository interface for role checks
type ParticipantRepository interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
}

// Service handles event workspace lifecycle
type Service struct {
	events       EventRepository
	participants ParticipantRepository
}

// NewService creates a new event service
func NewService(events EventRepository, participants ParticipantRepository) *Service {
	return &Service{events: events, participants: participants}
}

// Create creates an event; the owner is materialized as organizer in the
// same transaction.
func (s *Service) Create(ctx context.Context, ownerID int64, input *domain.EventCreate) (*domain.EventResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	event := &domain.Event{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
	}
	if err := s.events.CreateWithOwner(ctx, event); err != nil {
		return nil, err
	}

	response := event.ToResponse()
	response.MyRole = domain.RoleOrganizer
	return response, nil
}

// Get retrieves an event for one of its participants
func (s *Service) Get(ctx context.Context, eventID, userID int64) (*domain.EventResponse, error) {
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleNone {
		return nil, domain.ErrForbidden
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	response := event.ToResponse()
	response.MyRole = role
	return response, nil
}

// List retrieves the caller's events
func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]*domain.EventResponse, int, error) {
	events, total, err := s.events.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*domain.EventResponse, len(events))
	for i, event := range events {
		role, err := s.participants.GetRole(ctx, event.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		responses[i] = event.ToResponse()
		responses[i].MyRole = role
	}
	return responses, total, nil
}

// Update patches an event; organizer only
func (s *Service) Update(ctx context.Context, eventID, userID int64, update *domain.EventUpdate) (*domain.EventResponse, error) {
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if decision := authz.Decide(role, current.OwnerID == userID, authz.ActionEditEvent); !decision.Allowed {
		return nil, domain.ErrForbidden
	}

	startAt := current.StartAt
	if update.StartAt != nil {
		startAt = update.StartAt
	}
	endAt := current.EndAt
	if update.EndAt != nil {
		endAt = update.EndAt
	}
	probe := domain.EventCreate{StartAt: startAt, EndAt: endAt}
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	event, err := s.events.Update(ctx, eventID, update)
	if err != nil {
		return nil, err
	}
	response := event.ToResponse()
	response.MyRole = role
	return response, nil
}

// Delete removes an event with all of its children; owner only
func (s *Service) Delete(ctx context.Context, eventID, userID int64) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if decision := authz.Decide(role, event.OwnerID == userID, authz.ActionDeleteEvent); !decision.Allowed {
		return domain.ErrForbidden
	}
	return s.events.Delete(ctx, eventID)
}

var _ EventRepository = (*postgres.EventRepository)(nil)
