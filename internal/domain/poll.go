package domain

import (
	"strings"
	"time"
)

// PollType represents the kind of poll
type PollType string

const (
	PollTypeDate   PollType = "date"
	PollTypePlace  PollType = "place"
	PollTypeCustom PollType = "custom"
)

// ValidPollType reports whether t is a known poll type
func ValidPollType(t PollType) bool {
	return t == PollTypeDate || t == PollTypePlace || t == PollTypeCustom
}

// Poll belongs to an event and owns its options and votes.
// Maps to the polls table. Version increases monotonically on every
// observable change and lets clients discard stale deltas.
type Poll struct {
	ID                         int64      `json:"id" db:"id"`
	EventID                    int64      `json:"event" db:"event_id"`
	CreatedBy                  int64      `json:"created_by" db:"created_by"`
	Type                       PollType   `json:"type" db:"type"`
	Question                   string     `json:"question" db:"question"`
	Multiple                   bool       `json:"multiple" db:"multiple"`
	AllowChangeVote            bool       `json:"allow_change_vote" db:"allow_change_vote"`
	IsClosed                   bool       `json:"is_closed" db:"is_closed"`
	EndAt                      *time.Time `json:"end_at,omitempty" db:"end_at"`
	Version                    int64      `json:"version" db:"version"`
	ClosingNotificationSentAt  *time.Time `json:"-" db:"closing_notification_sent_at"`
	ClosingNotificationForEnd  *time.Time `json:"-" db:"closing_notification_for_end_at"`
	CreatedAt                  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether end_at has passed at time t
func (p *Poll) IsExpired(t time.Time) bool {
	return p.EndAt != nil && !p.EndAt.After(t)
}

// IsVotingClosed reports whether voting is closed at time t
func (p *Poll) IsVotingClosed(t time.Time) bool {
	return p.IsClosed || p.IsExpired(t)
}

// PollOption is one answer of a poll. Date polls use DateValue, place and
// custom polls use Label; each is unique within its poll.
type PollOption struct {
	ID        int64      `json:"id" db:"id"`
	PollID    int64      `json:"poll" db:"poll_id"`
	Label     *string    `json:"label,omitempty" db:"label"`
	DateValue *time.Time `json:"date_value,omitempty" db:"date_value"`
}

// Vote is a single (poll, user, option) ballot row
type Vote struct {
	ID        int64     `json:"id" db:"id"`
	PollID    int64     `json:"poll" db:"poll_id"`
	OptionID  int64     `json:"option" db:"option_id"`
	UserID    int64     `json:"user" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PollOptionCreate represents one option in a poll creation request
type PollOptionCreate struct {
	Label     string     `json:"label"`
	DateValue *time.Time `json:"date_value"`
}

// PollCreate represents data needed to create a poll
type PollCreate struct {
	Type            PollType           `json:"type" binding:"required,oneof=date place custom"`
	Question        string             `json:"question" binding:"required,max=200"`
	Multiple        bool               `json:"multiple"`
	AllowChangeVote *bool              `json:"allow_change_vote"`
	EndAt           *time.Time         `json:"end_at"`
	Options         []PollOptionCreate `json:"options" binding:"required"`
}

// NormalizeOptions validates and canonicalizes the creation options per poll
// type: date polls need unique date values, the rest need unique non-empty
// labels.
func (pc *PollCreate) NormalizeOptions() ([]PollOptionCreate, error) {
	if len(pc.Options) < 2 {
		return nil, ErrInsufficientOptions
	}

	normalized := make([]PollOptionCreate, 0, len(pc.Options))
	switch pc.Type {
	case PollTypeDate:
		seen := make(map[time.Time]bool, len(pc.Options))
		for _, opt := range pc.Options {
			if opt.DateValue == nil {
				return nil, ErrOptionDateRequired
			}
			day := opt.DateValue.Truncate(24 * time.Hour)
			if seen[day] {
				return nil, ErrDuplicateOptions
			}
			seen[day] = true
			normalized = append(normalized, PollOptionCreate{DateValue: &day})
		}
	case PollTypePlace, PollTypeCustom:
		seen := make(map[string]bool, len(pc.Options))
		for _, opt := range pc.Options {
			label := strings.TrimSpace(opt.Label)
			if label == "" {
				return nil, ErrOptionLabelRequired
			}
			if seen[label] {
				return nil, ErrDuplicateOptions
			}
			seen[label] = true
			normalized = append(normalized, PollOptionCreate{Label: label})
		}
	default:
		return nil, ErrInvalidPollType
	}
	return normalized, nil
}

// VoteRequest carries the full set of chosen option ids
type VoteRequest struct {
	OptionIDs []int64 `json:"option_ids"`
}

// PollOptionResponse is an option with its vote count
type PollOptionResponse struct {
	ID         int64      `json:"id"`
	Label      *string    `json:"label,omitempty"`
	DateValue  *time.Time `json:"date_value,omitempty"`
	VotesCount int        `json:"votes_count"`
}

// DisplayLabel returns the human-readable label of the option
func (o *PollOptionResponse) DisplayLabel() string {
	if o.Label != nil {
		return *o.Label
	}
	if o.DateValue != nil {
		return o.DateValue.Format("02.01.2006")
	}
	return ""
}

// PollResponse represents the poll returned to clients
type PollResponse struct {
	ID              int64                 `json:"id"`
	Event           int64                 `json:"event"`
	Type            PollType              `json:"type"`
	Question        string                `json:"question"`
	Multiple        bool                  `json:"multiple"`
	AllowChangeVote bool                  `json:"allow_change_vote"`
	IsClosed        bool                  `json:"is_closed"`
	EndAt           *time.Time            `json:"end_at,omitempty"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	Options         []*PollOptionResponse `json:"options"`
	TotalVotes      int                   `json:"total_votes"`
	MyVotes         []int64               `json:"my_votes"`
	LeaderOptionIDs []int64               `json:"leader_option_ids"`
}

// LeaderOptionIDs returns the option ids tied at the strictly positive
// maximum vote count. Empty when nobody voted.
func LeaderOptionIDs(options []*PollOptionResponse) []int64 {
	maxVotes := 0
	leaders := []int64{}
	for _, option := range options {
		if option.VotesCount == 0 {
			continue
		}
		switch {
		case option.VotesCount > maxVotes:
			maxVotes = option.VotesCount
			leaders = []int64{option.ID}
		case option.VotesCount == maxVotes:
			leaders = append(leaders, option.ID)
		}
	}
	return leaders
}

// TotalVotes sums per-option vote counts
func TotalVotes(options []*PollOptionResponse) int {
	total := 0
	for _, option := range options {
		total += option.VotesCount
	}
	return total
}

// Poll-related errors
var (
	ErrPollNotFound        = NewError("POLL_NOT_FOUND", "Poll not found")
	ErrInsufficientOptions = NewError("INSUFFICIENT_OPTIONS", "At least 2 options are required")
	ErrDuplicateOptions    = NewError("DUPLICATE_OPTIONS", "Options must be unique within the poll")
	ErrOptionDateRequired  = NewError("OPTION_DATE_REQUIRED", "Every option of a date poll needs a date_value")
	ErrOptionLabelRequired = NewError("OPTION_LABEL_REQUIRED", "Every option needs a non-empty label")
	ErrInvalidPollType     = NewError("INVALID_POLL_TYPE", "Invalid poll type")
	ErrVotingClosed        = NewError("VOTING_CLOSED", "Voting is not available")
	ErrSingleChoiceOnly    = NewError("SINGLE_CHOICE_ONLY", "Exactly one option must be chosen for this poll")
	ErrDuplicateOptionIDs  = NewError("DUPLICATE_OPTION_IDS", "Option ids must be unique")
	ErrOptionNotInPoll     = NewError("OPTION_NOT_IN_POLL", "Some option ids do not belong to this poll")
	ErrVoteChangeForbidden = NewError("VOTE_CHANGE_FORBIDDEN", "Changing the vote is not allowed for this poll")
)
