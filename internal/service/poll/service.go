package poll

import (
	"context"
	"time"

	"eventplanner-backend/internal/authz"
	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// PollRepository interface for poll data operations
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll, options []domain.PollOptionCreate) error
	GetByID(ctx context.Context, pollID int64) (*domain.Poll, error)
	List(ctx context.Context, eventID int64, isClosed *bool, limit, offset int) ([]*domain.Poll, int, error)
	OptionsWithVotes(ctx context.Context, pollID int64) ([]*domain.PollOptionResponse, error)
	OptionIDs(ctx context.Context, pollID int64) ([]int64, error)
	UserVotes(ctx context.Context, pollID, userID int64) ([]int64, error)
	UserVotesForPolls(ctx context.Context, pollIDs []int64, userID int64) (map[int64][]int64, error)
	Vote(ctx context.Context, poll *domain.Poll, userID int64, optionIDs []int64) (*postgres.VoteResult, error)
	Close(ctx context.Context, pollID int64) (closedNow bool, version int64, err error)
	Delete(ctx context.Context, pollID int64) error
}

// EventRepository interface for event lookups
type EventRepository interface {
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
}

// ParticipantRepository interface for role checks
type ParticipantRepository interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
}

// Broadcaster publishes observable changes to the event's group
type Broadcaster interface {
	PublishEvent(ctx context.Context, eventID int64, messageType string, payload any, senderID *int64)
}

// Service handles poll business logic
type Service struct {
	polls        PollRepository
	events       EventRepository
	participants ParticipantRepository
	broadcaster  Broadcaster
	now          func() time.Time
}

// NewService creates a new poll service
func NewService(
	polls PollRepository,
	events EventRepository,
	participants ParticipantRepository,
	broadcaster Broadcaster,
) *Service {
	return &Service{
		polls:        polls,
		events:       events,
		participants: participants,
		broadcaster:  broadcaster,
		now:          time.Now,
	}
}

func (s *Service) requireRole(ctx context.Context, eventID, userID int64, action authz.Action) error {
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if decision := authz.Decide(role, event.OwnerID == userID, action); !decision.Allowed {
		return domain.ErrForbidden
	}
	return nil
}

// buildResponse assembles the read DTO with derived fields for one viewer
func (s *Service) buildResponse(ctx context.Context, poll *domain.Poll, viewerID int64) (*domain.PollResponse, error) {
	options, err := s.polls.OptionsWithVotes(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	myVotes, err := s.polls.UserVotes(ctx, poll.ID, viewerID)
	if err != nil {
		return nil, err
	}
	return &domain.PollResponse{
		ID:              poll.ID,
		Event:           poll.EventID,
		Type:            poll.Type,
		Question:        poll.Question,
		Multiple:        poll.Multiple,
		AllowChangeVote: poll.AllowChangeVote,
		IsClosed:        poll.IsClosed,
		EndAt:           poll.EndAt,
		Version:         poll.Version,
		CreatedAt:       poll.CreatedAt,
		Options:         options,
		TotalVotes:      domain.TotalVotes(options),
		MyVotes:         myVotes,
		LeaderOptionIDs: domain.LeaderOptionIDs(options),
	}, nil
}

// Create creates a poll; organizer only. Version starts at 1.
func (s *Service) Create(ctx context.Context, eventID, userID int64, input *domain.PollCreate) (*domain.PollResponse, error) {
	if err := s.requireRole(ctx, eventID, userID, authz.ActionManagePolls); err != nil {
		return nil, err
	}

	options, err := input.NormalizeOptions()
	if err != nil {
		return nil, err
	}

	allowChange := true
	if input.AllowChangeVote != nil {
		allowChange = *input.AllowChangeVote
	}
	poll := &domain.Poll{
		EventID:         eventID,
		CreatedBy:       userID,
		Type:            input.Type,
		Question:        input.Question,
		Multiple:        input.Multiple,
		AllowChangeVote: allowChange,
		EndAt:           input.EndAt,
	}
	if err := s.polls.Create(ctx, poll, options); err != nil {
		return nil, err
	}

	response, err := s.buildResponse(ctx, poll, userID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "poll.created", map[string]any{
		"event_id": eventID,
		"poll":     response,
		"version":  poll.Version,
	}, nil)
	return response, nil
}

// Get retrieves one poll for a participant of its event
func (s *Service) Get(ctx context.Context, pollID, userID int64) (*domain.PollResponse, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, poll.EventID, userID, authz.ActionViewEvent); err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, poll, userID)
}

// List retrieves event polls with the viewer's votes batched in
func (s *Service) List(ctx context.Context, eventID, userID int64, isClosed *bool, limit, offset int) ([]*domain.PollResponse, int, error) {
	if err := s.requireRole(ctx, eventID, userID, authz.ActionViewEvent); err != nil {
		return nil, 0, err
	}

	polls, total, err := s.polls.List(ctx, eventID, isClosed, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	pollIDs := make([]int64, len(polls))
	for i, poll := range polls {
		pollIDs[i] = poll.ID
	}
	voteMap, err := s.polls.UserVotesForPolls(ctx, pollIDs, userID)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*domain.PollResponse, len(polls))
	for i, poll := range polls {
		options, err := s.polls.OptionsWithVotes(ctx, poll.ID)
		if err != nil {
			return nil, 0, err
		}
		myVotes := voteMap[poll.ID]
		if myVotes == nil {
			myVotes = []int64{}
		}
		responses[i] = &domain.PollResponse{
			ID:              poll.ID,
			Event:           poll.EventID,
			Type:            poll.Type,
			Question:        poll.Question,
			Multiple:        poll.Multiple,
			AllowChangeVote: poll.AllowChangeVote,
			IsClosed:        poll.IsClosed,
			EndAt:           poll.EndAt,
			Version:         poll.Version,
			CreatedAt:       poll.CreatedAt,
			Options:         options,
			TotalVotes:      domain.TotalVotes(options),
			MyVotes:         myVotes,
			LeaderOptionIDs: domain.LeaderOptionIDs(options),
		}
	}
	return responses, total, nil
}

// Vote applies the caller's ballot and broadcasts the delta when it changed
// anything. The broadcast carries only the touched options plus the fresh
// totals, leaders and version.
func (s *Service) Vote(ctx context.Context, pollID, userID int64, optionIDs []int64) (*domain.PollResponse, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	role, err := s.participants.GetRole(ctx, poll.EventID, userID)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleNone {
		return nil, domain.ErrForbidden
	}

	if poll.IsVotingClosed(s.now()) {
		return nil, domain.ErrVotingClosed
	}
	if err := validateBallot(poll, optionIDs); err != nil {
		return nil, err
	}
	known, err := s.polls.OptionIDs(ctx, pollID)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[int64]bool, len(known))
	for _, id := range known {
		knownSet[id] = true
	}
	for _, id := range optionIDs {
		if !knownSet[id] {
			return nil, domain.ErrOptionNotInPoll
		}
	}

	result, err := s.polls.Vote(ctx, poll, userID, optionIDs)
	if err != nil {
		return nil, err
	}
	poll.Version = result.Version

	response, err := s.buildResponse(ctx, poll, userID)
	if err != nil {
		return nil, err
	}

	if result.Changed {
		touchedSet := make(map[int64]bool, len(result.Touched))
		for _, id := range result.Touched {
			touchedSet[id] = true
		}
		delta := make([]map[string]any, 0, len(result.Touched))
		for _, option := range response.Options {
			if touchedSet[option.ID] {
				delta = append(delta, map[string]any{
					"id":          option.ID,
					"votes_count": option.VotesCount,
				})
			}
		}
		s.broadcaster.PublishEvent(ctx, poll.EventID, "poll.updated", map[string]any{
			"event_id":          poll.EventID,
			"poll_id":           poll.ID,
			"options":           delta,
			"total_votes":       response.TotalVotes,
			"leader_option_ids": response.LeaderOptionIDs,
			"version":           result.Version,
		}, nil)
	}
	return response, nil
}

// validateBallot checks the shape of the ballot against the poll type
func validateBallot(poll *domain.Poll, optionIDs []int64) error {
	if !poll.Multiple && len(optionIDs) != 1 {
		return domain.ErrSingleChoiceOnly
	}
	if poll.Multiple && len(optionIDs) == 0 {
		return domain.ErrSingleChoiceOnly
	}
	seen := make(map[int64]bool, len(optionIDs))
	for _, id := range optionIDs {
		if seen[id] {
			return domain.ErrDuplicateOptionIDs
		}
		seen[id] = true
	}
	return nil
}

// Close closes a poll; organizer only. Idempotent: only the first close
// bumps the version and broadcasts.
func (s *Service) Close(ctx context.Context, pollID, userID int64) (*domain.PollResponse, error) {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, poll.EventID, userID, authz.ActionManagePolls); err != nil {
		return nil, err
	}

	closedNow, version, err := s.polls.Close(ctx, pollID)
	if err != nil {
		return nil, err
	}
	poll.IsClosed = true
	poll.Version = version

	if closedNow {
		s.broadcaster.PublishEvent(ctx, poll.EventID, "poll.closed", map[string]any{
			"event_id": poll.EventID,
			"poll_id":  poll.ID,
			"version":  version,
		}, nil)
	}
	return s.buildResponse(ctx, poll, userID)
}

// Delete removes a poll with its options and votes; organizer only
func (s *Service) Delete(ctx context.Context, pollID, userID int64) error {
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, poll.EventID, userID, authz.ActionManagePolls); err != nil {
		return err
	}

	if err := s.polls.Delete(ctx, pollID); err != nil {
		return err
	}

	s.broadcaster.PublishEvent(ctx, poll.EventID, "poll.deleted", map[string]any{
		"event_id": poll.EventID,
		"poll_id":  poll.ID,
	}, nil)
	return nil
}

var _ PollRepository = (*postgres.PollRepository)(nil)
