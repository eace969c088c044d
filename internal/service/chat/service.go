package chat

import (
	"context"
	"strings"
	"time"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// MessageRateLimit is the minimum spacing between two messages of the same
// author within one event. Derived from the store, so it survives restarts.
const MessageRateLimit = 800 * time.Millisecond

// MessageRepository interface for message data operations
type MessageRepository interface {
	Create(ctx context.Context, eventID, authorID int64, text string) (*domain.MessageResponse, error)
	List(ctx context.Context, eventID int64, beforeID, afterID *int64, limit int) ([]*domain.MessageResponse, error)
	AuthorOf(ctx context.Context, messageID, eventID int64) (int64, error)
	LastAuthoredAt(ctx context.Context, eventID, authorID int64) (*time.Time, error)
	Delete(ctx context.Context, messageID, eventID int64) error
}

// ParticipantRepository interface for role checks
type ParticipantRepository interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
}

// Broadcaster publishes observable changes to the event's group
type Broadcaster interface {
	PublishEvent(ctx context.Context, eventID int64, messageType string, payload any, senderID *int64)
}

// Service handles chat business logic
type Service struct {
	messages     MessageRepository
	participants ParticipantRepository
	broadcaster  Broadcaster
	now          func() time.Time
}

// NewService creates a new chat service
func NewService(messages MessageRepository, participants ParticipantRepository, broadcaster Broadcaster) *Service {
	return &Service{
		messages:     messages,
		participants: participants,
		broadcaster:  broadcaster,
		now:          time.Now,
	}
}

func (s *Service) requireParticipant(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return domain.RoleNone, err
	}
	if role == domain.RoleNone {
		return domain.RoleNone, domain.ErrForbidden
	}
	return role, nil
}

// Send persists a message and broadcasts it to the event group. The DTO is
// viewer-agnostic; every subscriber, the author included, receives it.
func (s *Service) Send(ctx context.Context, eventID, authorID int64, text string) (*domain.MessageResponse, error) {
	if _, err := s.requireParticipant(ctx, eventID, authorID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrMessageEmpty
	}
	if len([]rune(text)) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	lastAt, err := s.messages.LastAuthoredAt(ctx, eventID, authorID)
	if err != nil {
		return nil, err
	}
	if lastAt != nil && s.now().Sub(*lastAt) < MessageRateLimit {
		return nil, domain.ErrMessageRate
	}

	message, err := s.messages.Create(ctx, eventID, authorID, text)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "chat.message", message, nil)
	return message, nil
}

// List pages event messages chronologically with before_id/after_id cursors
func (s *Service) List(ctx context.Context, eventID, userID int64, beforeID, afterID *int64, limit int) ([]*domain.MessageResponse, error) {
	if _, err := s.requireParticipant(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, eventID, beforeID, afterID, limit)
}

// Delete removes a message. Authors delete their own; organizers delete any
// in their event. No broadcast: clients tolerate disappearing ids.
func (s *Service) Delete(ctx context.Context, eventID, messageID, userID int64) error {
	role, err := s.requireParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}

	authorID, err := s.messages.AuthorOf(ctx, messageID, eventID)
	if err != nil {
		return err
	}
	if authorID != userID && role != domain.RoleOrganizer {
		return domain.ErrForbidden
	}

	return s.messages.Delete(ctx, messageID, eventID)
}

var _ MessageRepository = (*postgres.MessageRepository)(nil)
