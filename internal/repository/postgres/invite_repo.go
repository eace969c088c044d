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

// InviteRepository handles invite rows. uses_count only moves forward, under
// a row lock, so concurrent accepts cannot oversubscribe a limited invite.
type InviteRepository struct {
	pool *pgxpool.Pool
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(pool *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

const inviteColumns = `id, event_id, token, created_by, expires_at, max_uses, uses_count, is_revoked, created_at, updated_at`

func scanInvite(row pgx.Row) (*domain.Invite, error) {
	invite := &domain.Invite{}
	err := row.Scan(
		&invite.ID,
		&invite.EventID,
		&invite.Token,
		&invite.CreatedBy,
		&invite.ExpiresAt,
		&invite.MaxUses,
		&invite.UsesCount,
		&invite.IsRevoked,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to scan invite: %w", err)
	}
	return invite, nil
}

// Create inserts an invite
func (r *InviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	query := `
		INSERT INTO invites (event_id, token, created_by, expires_at, max_uses)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uses_count, is_revoked, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		invite.EventID,
		invite.Token,
		invite.CreatedBy,
		invite.ExpiresAt,
		invite.MaxUses,
	).Scan(&invite.ID, &invite.UsesCount, &invite.IsRevoked, &invite.CreatedAt, &invite.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetByToken retrieves an invite by its opaque token
func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE token = $1`
	return scanInvite(r.pool.QueryRow(ctx, query, token))
}

// AcceptResult is the outcome of an accept attempt
type AcceptResult struct {
	Status        domain.InviteStatus
	AlreadyMember bool
	EventID       int64
}

// Accept re-checks the invite under a row lock, inserts the member and
// increments uses_count atomically. Already-member short-circuits without
// touching the counter.
func (r *InviteRepository) Accept(ctx context.Context, token string, userID int64, now time.Time) (*AcceptResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invite, err := scanInvite(tx.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM invites WHERE token = $1 FOR UPDATE
	`, token))
	if err != nil {
		return nil, err
	}

	var alreadyMember bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM participants WHERE event_id = $1 AND user_id = $2)
	`, invite.EventID, userID).Scan(&alreadyMember)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if alreadyMember {
		return &AcceptResult{Status: domain.InviteStatusOK, AlreadyMember: true, EventID: invite.EventID}, nil
	}

	status := invite.Status(now)
	if status != domain.InviteStatusOK {
		return &AcceptResult{Status: status, EventID: invite.EventID}, nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO participants (event_id, user_id, role)
		VALUES ($1, $2, $3)
	`, invite.EventID, userID, domain.RoleMember); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE invites SET uses_count = uses_count + 1, updated_at = NOW() WHERE id = $1
	`, invite.ID); err != nil {
		return nil, fmt.Errorf("failed to increment uses: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &AcceptResult{Status: domain.InviteStatusOK, EventID: invite.EventID}, nil
}

// Revoke sets is_revoked; idempotent
func (r *InviteRepository) Revoke(ctx context.Context, inviteID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invites SET is_revoked = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_revoked = FALSE
	`, inviteID)
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	return nil
}
