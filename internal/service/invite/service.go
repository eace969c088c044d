package invite

import (
	"context"
	"fmt"
	"time"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// InviteRepository interface for invite data operations
type InviteRepository interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)
	Accept(ctx context.Context, token string, userID int64, now time.Time) (*postgres.AcceptResult, error)
	Revoke(ctx context.Context, inviteID int64) error
}

// EventRepository interface for event lookups
type EventRepository interface {
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
}

// Service handles invite business logic
type Service struct {
	invites  InviteRepository
	events   EventRepository
	frontURL string
	now      func() time.Time
}

// NewService creates a new invite service. frontURL is the public frontend
// base used for constructed join links.
func NewService(invites InviteRepository, events EventRepository, frontURL string) *Service {
	return &Service{
		invites:  invites,
		events:   events,
		frontURL: frontURL,
		now:      time.Now,
	}
}

func (s *Service) inviteURL(token string) string {
	return fmt.Sprintf("%s/join?token=%s", s.frontURL, token)
}

func (s *Service) toResponse(invite *domain.Invite) *domain.InviteResponse {
	return &domain.InviteResponse{
		ID:        invite.ID,
		Event:     invite.EventID,
		Token:     invite.Token,
		URL:       s.inviteURL(invite.Token),
		ExpiresAt: invite.ExpiresAt,
		MaxUses:   invite.MaxUses,
		UsesCount: invite.UsesCount,
		IsRevoked: invite.IsRevoked,
		CreatedAt: invite.CreatedAt,
	}
}

// Create issues a new invite; owner only
func (s *Service) Create(ctx context.Context, eventID, userID int64, input *domain.InviteCreate) (*domain.InviteResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != userID {
		return nil, domain.ErrForbidden
	}

	invite := &domain.Invite{
		EventID:   eventID,
		Token:     domain.NewInviteToken(),
		CreatedBy: userID,
		ExpiresAt: s.now().Add(time.Duration(input.ExpiresInHours) * time.Hour),
		MaxUses:   input.MaxUses,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}
	return s.toResponse(invite), nil
}

// Validate derives the invite status for anyone holding the token. An
// unknown or missing token yields not_found with null fields, never an
// error status.
func (s *Service) Validate(ctx context.Context, token string) (*domain.InviteValidation, error) {
	notFound := &domain.InviteValidation{Status: domain.InviteStatusNotFound}
	if token == "" {
		return notFound, nil
	}

	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if err == domain.ErrInviteNotFound {
			return notFound, nil
		}
		return nil, err
	}

	event, err := s.events.GetByID(ctx, invite.EventID)
	if err != nil {
		return nil, err
	}

	expiresAt := invite.ExpiresAt
	return &domain.InviteValidation{
		Status:    invite.Status(s.now()),
		Event:     event.ToSnippet(),
		UsesLeft:  invite.UsesLeft(),
		ExpiresAt: &expiresAt,
	}, nil
}

// AcceptOutcome describes one accept attempt
type AcceptOutcome struct {
	Status        domain.InviteStatus
	AlreadyMember bool
	EventID       int64
}

// Accept joins the caller to the invite's event. The store re-checks the
// status under a row lock so a limited invite admits exactly max_uses
// members regardless of concurrency.
func (s *Service) Accept(ctx context.Context, token string, userID int64) (*AcceptOutcome, error) {
	if token == "" {
		return nil, domain.ErrInviteNotFound
	}
	result, err := s.invites.Accept(ctx, token, userID, s.now())
	if err != nil {
		return nil, err
	}
	return &AcceptOutcome{
		Status:        result.Status,
		AlreadyMember: result.AlreadyMember,
		EventID:       result.EventID,
	}, nil
}

// Revoke disables an invite; owner only, idempotent
func (s *Service) Revoke(ctx context.Context, token string, userID int64) error {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	event, err := s.events.GetByID(ctx, invite.EventID)
	if err != nil {
		return err
	}
	if event.OwnerID != userID {
		return domain.ErrForbidden
	}
	return s.invites.Revoke(ctx, invite.ID)
}

var _ InviteRepository = (*postgres.InviteRepository)(nil)
