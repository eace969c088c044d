package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventplanner-backend/internal/domain"
)

// ParticipantRepository handles participant rows. The last-organizer guard is
// enforced here, inside the mutating transactions, so no caller path can
// leave an event without organizers.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetRole returns the user's role in the event, RoleNone when absent
func (r *ParticipantRepository) GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error) {
	var role domain.Role
	err := r.pool.QueryRow(ctx, `
		SELECT role FROM participants WHERE event_id = $1 AND user_id = $2
	`, eventID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoleNone, nil
		}
		return domain.RoleNone, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetByID retrieves one participant of the event with joined user fields
func (r *ParticipantRepository) GetByID(ctx context.Context, eventID, participantID int64) (*domain.ParticipantResponse, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT p.id, p.event_id, p.user_id, u.name, u.email, u.avatar_path, p.role, p.joined_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1 AND p.id = $2
	`, eventID, participantID)
	return scanParticipant(row)
}

func scanParticipant(row pgx.Row) (*domain.ParticipantResponse, error) {
	participant := &domain.ParticipantResponse{}
	err := row.Scan(
		&participant.ID,
		&participant.Event,
		&participant.User,
		&participant.UserName,
		&participant.UserEmail,
		&participant.AvatarPath,
		&participant.Role,
		&participant.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return participant, nil
}

// List retrieves participants of an event ordered by user name or role
func (r *ParticipantRepository) List(ctx context.Context, eventID int64, orderBy string, descending bool, limit, offset int) ([]*domain.ParticipantResponse, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants WHERE event_id = $1
	`, eventID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count participants: %w", err)
	}

	column := "u.name"
	if orderBy == "role" {
		column = "p.role"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.event_id, p.user_id, u.name, u.email, u.avatar_path, p.role, p.joined_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1
		ORDER BY %s %s, p.id
		LIMIT $2 OFFSET $3
	`, column, direction)

	rows, err := r.pool.Query(ctx, query, eventID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*domain.ParticipantResponse, 0)
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, 0, err
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, total, nil
}

// Create attaches a user to the event with the given role
func (r *ParticipantRepository) Create(ctx context.Context, eventID, userID int64, role domain.Role) (*domain.Participant, error) {
	participant := &domain.Participant{EventID: eventID, UserID: userID, Role: role}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO participants (event_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`, eventID, userID, role).Scan(&participant.ID, &participant.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyParticipant
		}
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return participant, nil
}

// UpdateRole changes a participant's role under the last-organizer guard.
// callerID distinguishes the self_last_organizer denial.
func (r *ParticipantRepository) UpdateRole(ctx context.Context, eventID, participantID, callerID int64, newRole domain.Role) (*domain.ParticipantResponse, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	var currentRole domain.Role
	err = tx.QueryRow(ctx, `
		SELECT user_id, role FROM participants
		WHERE event_id = $1 AND id = $2
		FOR UPDATE
	`, eventID, participantID).Scan(&userID, &currentRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to lock participant: %w", err)
	}

	if currentRole == domain.RoleOrganizer && newRole != domain.RoleOrganizer {
		others, err := r.countOtherOrganizers(ctx, tx, eventID, participantID)
		if err != nil {
			return nil, err
		}
		if others == 0 {
			if userID == callerID {
				return nil, domain.ErrSelfLastOrganizer
			}
			return nil, domain.ErrLastOrganizer
		}
	}

	if currentRole != newRole {
		if _, err := tx.Exec(ctx, `
			UPDATE participants SET role = $3 WHERE event_id = $1 AND id = $2
		`, eventID, participantID, newRole); err != nil {
			return nil, fmt.Errorf("failed to update role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.GetByID(ctx, eventID, participantID)
}

// Delete removes a participant under the last-organizer guard and clears the
// assignee of their tasks
func (r *ParticipantRepository) Delete(ctx context.Context, eventID, participantID, callerID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	var currentRole domain.Role
	err = tx.QueryRow(ctx, `
		SELECT user_id, role FROM participants
		WHERE event_id = $1 AND id = $2
		FOR UPDATE
	`, eventID, participantID).Scan(&userID, &currentRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		return fmt.Errorf("failed to lock participant: %w", err)
	}

	if currentRole == domain.RoleOrganizer {
		others, err := r.countOtherOrganizers(ctx, tx, eventID, participantID)
		if err != nil {
			return err
		}
		if others == 0 {
			if userID == callerID {
				return domain.ErrSelfLastOrganizer
			}
			return domain.ErrLastOrganizer
		}
	}

	// The tasks survive unassigned.
	if _, err := tx.Exec(ctx, `
		UPDATE tasks SET assignee_id = NULL WHERE assignee_id = $1
	`, participantID); err != nil {
		return fmt.Errorf("failed to clear task assignees: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM participants WHERE event_id = $1 AND id = $2
	`, eventID, participantID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) countOtherOrganizers(ctx context.Context, tx pgx.Tx, eventID, participantID int64) (int, error) {
	var others int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants
		WHERE event_id = $1 AND role = $2 AND id <> $3
	`, eventID, domain.RoleOrganizer, participantID).Scan(&others)
	if err != nil {
		return 0, fmt.Errorf("failed to count organizers: %w", err)
	}
	return others, nil
}

// ExistsForUser reports whether the user participates in the event
func (r *ParticipantRepository) ExistsForUser(ctx context.Context, eventID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM participants WHERE event_id = $1 AND user_id = $2)
	`, eventID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

// GetEventParticipantByID maps a participant id to its event; used for
// same-event assignment validation
func (r *ParticipantRepository) GetEventParticipantByID(ctx context.Context, participantID int64) (*domain.Participant, error) {
	participant := &domain.Participant{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, user_id, role, joined_at FROM participants WHERE id = $1
	`, participantID).Scan(
		&participant.ID,
		&participant.EventID,
		&participant.UserID,
		&participant.Role,
		&participant.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return participant, nil
}

// FindByUser resolves the participant row of a user within an event
func (r *ParticipantRepository) FindByUser(ctx context.Context, eventID, userID int64) (*domain.Participant, error) {
	participant := &domain.Participant{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, user_id, role, joined_at FROM participants
		WHERE event_id = $1 AND user_id = $2
	`, eventID, userID).Scan(
		&participant.ID,
		&participant.EventID,
		&participant.UserID,
		&participant.Role,
		&participant.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return participant, nil
}

// ListUserIDs returns the user ids of all participants of an event
func (r *ParticipantRepository) ListUserIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM participants WHERE event_id = $1
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant users: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}
	return ids, nil
}
