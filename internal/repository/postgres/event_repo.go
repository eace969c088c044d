package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventplanner-backend/internal/domain"
)

// EventRepository handles event rows
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, owner_id, title, description, category, location, start_at, end_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.Location,
		&event.StartAt,
		&event.EndAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return event, nil
}

// CreateWithOwner inserts the event and materializes its owner as organizer
// in the same transaction
func (r *EventRepository) CreateWithOwner(ctx context.Context, event *domain.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO events (owner_id, title, description, category, location, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		event.OwnerID,
		event.Title,
		event.Description,
		event.Category,
		event.Location,
		event.StartAt,
		event.EndAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participants (event_id, user_id, role)
		VALUES ($1, $2, $3)
	`, event.ID, event.OwnerID, domain.RoleOrganizer)
	if err != nil {
		return fmt.Errorf("failed to create owner participant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an event by id
func (r *EventRepository) GetByID(ctx context.Context, eventID int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, eventID))
}

// ListForUser retrieves events the user participates in, newest start first
func (r *EventRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM events e
		JOIN participants p ON p.event_id = e.id
		WHERE p.user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("e", eventColumns)+`
		FROM events e
		JOIN participants p ON p.event_id = e.id
		WHERE p.user_id = $1
		ORDER BY e.start_at DESC NULLS LAST, e.id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}
	return events, total, nil
}

// Update applies a partial event update and returns the fresh row
func (r *EventRepository) Update(ctx context.Context, eventID int64, update *domain.EventUpdate) (*domain.Event, error) {
	query := `
		UPDATE events
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    category = COALESCE($4, category),
		    location = COALESCE($5, location),
		    start_at = COALESCE($6, start_at),
		    end_at = COALESCE($7, end_at),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, query,
		eventID,
		update.Title,
		update.Description,
		update.Category,
		update.Location,
		update.StartAt,
		update.EndAt,
	))
}

// Delete removes the event; children cascade at the store level
func (r *EventRepository) Delete(ctx context.Context, eventID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
