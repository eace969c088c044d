package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventplanner-backend/internal/domain"
)

// PollRepository handles polls, options and votes. Vote mutations and the
// version counter run under row locks so concurrent ballots serialize.
type PollRepository struct {
	pool *pgxpool.Pool
}

// NewPollRepository creates a new PollRepository
func NewPollRepository(pool *pgxpool.Pool) *PollRepository {
	return &PollRepository{pool: pool}
}

const pollColumns = `id, event_id, created_by, type, question, multiple, allow_change_vote, is_closed, end_at, version, closing_notification_sent_at, closing_notification_for_end_at, created_at, updated_at`

func scanPoll(row pgx.Row) (*domain.Poll, error) {
	poll := &domain.Poll{}
	err := row.Scan(
		&poll.ID,
		&poll.EventID,
		&poll.CreatedBy,
		&poll.Type,
		&poll.Question,
		&poll.Multiple,
		&poll.AllowChangeVote,
		&poll.IsClosed,
		&poll.EndAt,
		&poll.Version,
		&poll.ClosingNotificationSentAt,
		&poll.ClosingNotificationForEnd,
		&poll.CreatedAt,
		&poll.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to scan poll: %w", err)
	}
	return poll, nil
}

// Create inserts a poll with its options in one transaction. Version starts
// at 1.
func (r *PollRepository) Create(ctx context.Context, poll *domain.Poll, options []domain.PollOptionCreate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO polls (event_id, created_by, type, question, multiple, allow_change_vote, end_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING id, version, created_at, updated_at
	`, poll.EventID, poll.CreatedBy, poll.Type, poll.Question, poll.Multiple,
		poll.AllowChangeVote, poll.EndAt).Scan(&poll.ID, &poll.Version, &poll.CreatedAt, &poll.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	for _, option := range options {
		var label *string
		if option.Label != "" {
			l := option.Label
			label = &l
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO poll_options (poll_id, label, date_value)
			VALUES ($1, $2, $3)
		`, poll.ID, label, option.DateValue); err != nil {
			return fmt.Errorf("failed to create poll option: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a poll by id
func (r *PollRepository) GetByID(ctx context.Context, pollID int64) (*domain.Poll, error) {
	return scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, pollID))
}

// List retrieves event polls newest first, optionally filtered by is_closed
func (r *PollRepository) List(ctx context.Context, eventID int64, isClosed *bool, limit, offset int) ([]*domain.Poll, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM polls
		WHERE event_id = $1 AND ($2::BOOLEAN IS NULL OR is_closed = $2)
	`, eventID, isClosed).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count polls: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+pollColumns+` FROM polls
		WHERE event_id = $1 AND ($2::BOOLEAN IS NULL OR is_closed = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, eventID, isClosed, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	polls := make([]*domain.Poll, 0)
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, 0, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, total, nil
}

// OptionsWithVotes retrieves the poll's options with vote counts, ordered by id
func (r *PollRepository) OptionsWithVotes(ctx context.Context, pollID int64) ([]*domain.PollOptionResponse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.label, o.date_value, COUNT(v.id) AS votes_count
		FROM poll_options o
		LEFT JOIN votes v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.label, o.date_value
		ORDER BY o.id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	defer rows.Close()

	options := make([]*domain.PollOptionResponse, 0)
	for rows.Next() {
		option := &domain.PollOptionResponse{}
		if err := rows.Scan(&option.ID, &option.Label, &option.DateValue, &option.VotesCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

// OptionIDs returns the ids of the poll's options
func (r *PollRepository) OptionIDs(ctx context.Context, pollID int64) ([]int64, error) {
	return queryIDs(ctx, r.pool, `SELECT id FROM poll_options WHERE poll_id = $1 ORDER BY id`, pollID)
}

// UserVotes returns the option ids the user voted for in one poll
func (r *PollRepository) UserVotes(ctx context.Context, pollID, userID int64) ([]int64, error) {
	return queryIDs(ctx, r.pool, `
		SELECT option_id FROM votes WHERE poll_id = $1 AND user_id = $2 ORDER BY option_id
	`, pollID, userID)
}

// UserVotesForPolls collects the caller's votes across several polls
func (r *PollRepository) UserVotesForPolls(ctx context.Context, pollIDs []int64, userID int64) (map[int64][]int64, error) {
	voteMap := make(map[int64][]int64, len(pollIDs))
	if len(pollIDs) == 0 {
		return voteMap, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT poll_id, option_id FROM votes
		WHERE poll_id = ANY($1) AND user_id = $2
		ORDER BY option_id
	`, pollIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pollID, optionID int64
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		voteMap[pollID] = append(voteMap[pollID], optionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return voteMap, nil
}

// VoteResult reports what a committed vote mutation changed
type VoteResult struct {
	Changed bool
	// Touched holds the option ids whose counts moved (inserted or deleted)
	Touched []int64
	Version int64
}

// Vote applies the ballot under a row lock on the caller's existing votes.
// Single-choice changes self-heal by deleting every existing row before
// inserting the chosen one. The poll version is bumped in the same
// transaction iff anything changed.
func (r *PollRepository) Vote(ctx context.Context, poll *domain.Poll, userID int64, optionIDs []int64) (*VoteResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := lockedVoteOptionIDs(ctx, tx, poll.ID, userID)
	if err != nil {
		return nil, err
	}
	existingSet := int64Set(existing)

	touched := make(map[int64]bool)
	inserted := 0
	deleted := 0

	if !poll.Multiple {
		selected := optionIDs[0]
		if len(existing) > 0 {
			if !existingSet[selected] && !poll.AllowChangeVote {
				return nil, domain.ErrVoteChangeForbidden
			}
			if !existingSet[selected] {
				for _, optionID := range existing {
					touched[optionID] = true
				}
				if _, err := tx.Exec(ctx, `
					DELETE FROM votes WHERE poll_id = $1 AND user_id = $2
				`, poll.ID, userID); err != nil {
					return nil, fmt.Errorf("failed to delete votes: %w", err)
				}
				deleted += len(existing)
				if err := insertVote(ctx, tx, poll.ID, selected, userID); err != nil {
					return nil, err
				}
				inserted++
				touched[selected] = true
			}
		} else {
			if err := insertVote(ctx, tx, poll.ID, selected, userID); err != nil {
				return nil, err
			}
			inserted++
			touched[selected] = true
		}
	} else {
		newSet := int64Set(optionIDs)
		if len(existing) > 0 && !poll.AllowChangeVote && !sameIDMultiset(existing, optionIDs) {
			return nil, domain.ErrVoteChangeForbidden
		}

		if poll.AllowChangeVote {
			for _, optionID := range existing {
				if !newSet[optionID] {
					if _, err := tx.Exec(ctx, `
						DELETE FROM votes WHERE poll_id = $1 AND user_id = $2 AND option_id = $3
					`, poll.ID, userID, optionID); err != nil {
						return nil, fmt.Errorf("failed to delete vote: %w", err)
					}
					deleted++
					touched[optionID] = true
				}
			}
		}
		for _, optionID := range optionIDs {
			if existingSet[optionID] {
				continue
			}
			if err := insertVote(ctx, tx, poll.ID, optionID, userID); err != nil {
				return nil, err
			}
			inserted++
			touched[optionID] = true
		}
	}

	result := &VoteResult{
		Changed: inserted > 0 || deleted > 0,
		Touched: make([]int64, 0, len(touched)),
		Version: poll.Version,
	}
	for optionID := range touched {
		result.Touched = append(result.Touched, optionID)
	}

	if result.Changed {
		if err := tx.QueryRow(ctx, `
			UPDATE polls SET version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING version
		`, poll.ID).Scan(&result.Version); err != nil {
			return nil, fmt.Errorf("failed to bump version: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func lockedVoteOptionIDs(ctx context.Context, tx pgx.Tx, pollID, userID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, `
		SELECT option_id FROM votes
		WHERE poll_id = $1 AND user_id = $2
		ORDER BY option_id
		FOR UPDATE
	`, pollID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock votes: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// insertVote inserts one ballot row, idempotent under retry
func insertVote(ctx context.Context, tx pgx.Tx, pollID, optionID, userID int64) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO votes (poll_id, option_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, user_id, option_id) DO NOTHING
	`, pollID, optionID, userID); err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// Close marks the poll closed. The conditional update makes it idempotent:
// only the first close bumps the version and reports closedNow.
func (r *PollRepository) Close(ctx context.Context, pollID int64) (closedNow bool, version int64, err error) {
	err = r.pool.QueryRow(ctx, `
		UPDATE polls SET is_closed = TRUE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND is_closed = FALSE
		RETURNING version
	`, pollID).Scan(&version)
	if err == nil {
		return true, version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, fmt.Errorf("failed to close poll: %w", err)
	}

	poll, err := r.GetByID(ctx, pollID)
	if err != nil {
		return false, 0, err
	}
	return false, poll.Version, nil
}

// Delete removes a poll; options and votes cascade at the store level
func (r *PollRepository) Delete(ctx context.Context, pollID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

// ListClosingUnnotified selects polls that are voting-closed at now and have
// not been notified for their current end_at
func (r *PollRepository) ListClosingUnnotified(ctx context.Context, now time.Time) ([]*domain.Poll, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pollColumns+` FROM polls
		WHERE (is_closed = TRUE OR (end_at IS NOT NULL AND end_at <= $1))
		  AND (closing_notification_sent_at IS NULL
		       OR closing_notification_for_end_at IS DISTINCT FROM end_at)
		ORDER BY id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list closing polls: %w", err)
	}
	defer rows.Close()

	polls := make([]*domain.Poll, 0)
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, nil
}

// MarkClosingNotified records the closing-notification idempotency pair
func (r *PollRepository) MarkClosingNotified(ctx context.Context, pollID int64, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE polls
		SET closing_notification_sent_at = $2, closing_notification_for_end_at = end_at
		WHERE id = $1
	`, pollID, now)
	if err != nil {
		return fmt.Errorf("failed to mark closing notified: %w", err)
	}
	return nil
}
