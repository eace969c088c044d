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

// MessageRepository handles chat messages. Ordering within an event is
// always (created_at, id) ascending.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageSelect = `
	SELECT m.id, m.event_id, m.author_id, u.name, u.email, u.avatar_path, m.text, m.created_at, m.edited_at
	FROM messages m
	JOIN users u ON u.id = m.author_id
`

func scanMessage(row pgx.Row) (*domain.MessageResponse, error) {
	message := &domain.MessageResponse{}
	var authorName, authorEmail string
	err := row.Scan(
		&message.ID,
		&message.Event,
		&message.Author,
		&authorName,
		&authorEmail,
		&message.AuthorAvatar,
		&message.Text,
		&message.CreatedAt,
		&message.EditedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	message.AuthorName = authorName
	if message.AuthorName == "" {
		message.AuthorName = authorEmail
	}
	return message, nil
}

// Create inserts a message and returns its full response row
func (r *MessageRepository) Create(ctx context.Context, eventID, authorID int64, text string) (*domain.MessageResponse, error) {
	var messageID int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (event_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id
	`, eventID, authorID, text).Scan(&messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return r.GetByID(ctx, messageID)
}

// GetByID retrieves one message with author fields
func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*domain.MessageResponse, error) {
	return scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, messageID))
}

// AuthorOf returns the author of a message
func (r *MessageRepository) AuthorOf(ctx context.Context, messageID, eventID int64) (int64, error) {
	var authorID int64
	err := r.pool.QueryRow(ctx, `
		SELECT author_id FROM messages WHERE id = $1 AND event_id = $2
	`, messageID, eventID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrMessageNotFound
		}
		return 0, fmt.Errorf("failed to get message author: %w", err)
	}
	return authorID, nil
}

// List pages messages chronologically. before_id pages backwards: rows are
// fetched descending internally and reversed so the page itself is emitted
// ascending.
func (r *MessageRepository) List(ctx context.Context, eventID int64, beforeID, afterID *int64, limit int) ([]*domain.MessageResponse, error) {
	query := messageSelect + ` WHERE m.event_id = $1`
	args := []any{eventID}
	descending := false

	switch {
	case beforeID != nil:
		query += ` AND m.id < $2 ORDER BY m.created_at DESC, m.id DESC`
		args = append(args, *beforeID)
		descending = true
	case afterID != nil:
		query += ` AND m.id > $2 ORDER BY m.created_at, m.id`
		args = append(args, *afterID)
	default:
		query += ` ORDER BY m.created_at, m.id`
	}
	query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.MessageResponse, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if descending {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

// LastAuthoredAt returns when the author last posted in the event; nil when
// they never did. The chat rate limit derives from this, so it survives
// process restarts.
func (r *MessageRepository) LastAuthoredAt(ctx context.Context, eventID, authorID int64) (*time.Time, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM messages
		WHERE event_id = $1 AND author_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, eventID, authorID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}
	return &createdAt, nil
}

// Delete removes one message of the event
func (r *MessageRepository) Delete(ctx context.Context, messageID, eventID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM messages WHERE id = $1 AND event_id = $2
	`, messageID, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}
