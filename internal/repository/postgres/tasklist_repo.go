package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventplanner-backend/internal/domain"
)

// TaskListRepository handles board columns. Within an event the set of
// position values equals {0..N-1} after every committed mutation.
type TaskListRepository struct {
	pool *pgxpool.Pool
}

// NewTaskListRepository creates a new TaskListRepository
func NewTaskListRepository(pool *pgxpool.Pool) *TaskListRepository {
	return &TaskListRepository{pool: pool}
}

const taskListColumns = `id, event_id, title, position, created_at, updated_at`

func scanTaskList(row pgx.Row) (*domain.TaskList, error) {
	list := &domain.TaskList{}
	err := row.Scan(
		&list.ID,
		&list.EventID,
		&list.Title,
		&list.Order,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskListNotFound
		}
		return nil, fmt.Errorf("failed to scan task list: %w", err)
	}
	return list, nil
}

// Create appends a column at the end of the event's board. Append reads one
// aggregate and writes one row; no sibling moves.
func (r *TaskListRepository) Create(ctx context.Context, list *domain.TaskList) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxOrder int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), -1) FROM task_lists WHERE event_id = $1
	`, list.EventID).Scan(&maxOrder)
	if err != nil {
		return fmt.Errorf("failed to read max position: %w", err)
	}
	list.Order = maxOrder + 1

	err = tx.QueryRow(ctx, `
		INSERT INTO task_lists (event_id, title, position)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, list.EventID, list.Title, list.Order).Scan(&list.ID, &list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task list: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a column by id
func (r *TaskListRepository) GetByID(ctx context.Context, listID int64) (*domain.TaskList, error) {
	query := `SELECT ` + taskListColumns + ` FROM task_lists WHERE id = $1`
	return scanTaskList(r.pool.QueryRow(ctx, query, listID))
}

// ListByEvent retrieves the event's columns in board order
func (r *TaskListRepository) ListByEvent(ctx context.Context, eventID int64) ([]*domain.TaskList, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskListColumns+` FROM task_lists
		WHERE event_id = $1
		ORDER BY position, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	defer rows.Close()

	lists := make([]*domain.TaskList, 0)
	for rows.Next() {
		list, err := scanTaskList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task lists: %w", err)
	}
	return lists, nil
}

// Update renames a column and returns the fresh row
func (r *TaskListRepository) Update(ctx context.Context, listID int64, update *domain.TaskListUpdate) (*domain.TaskList, error) {
	query := `
		UPDATE task_lists
		SET title = COALESCE($2, title), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskListColumns
	return scanTaskList(r.pool.QueryRow(ctx, query, listID, update.Title))
}

// Delete removes a column; its tasks cascade at the store level. Order
// normalization runs in a separate transaction afterwards.
func (r *TaskListRepository) Delete(ctx context.Context, listID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_lists WHERE id = $1`, listID)
	if err != nil {
		return fmt.Errorf("failed to delete task list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskListNotFound
	}
	return nil
}

// Reorder assigns position = index of each id in orderedIDs. The id set must
// equal the event's current columns exactly.
func (r *TaskListRepository) Reorder(ctx context.Context, eventID int64, orderedIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockedChildIDs(ctx, tx, `
		SELECT id FROM task_lists WHERE event_id = $1 ORDER BY position, id FOR UPDATE
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to lock task lists: %w", err)
	}
	if !sameIDMultiset(current, orderedIDs) {
		return domain.ErrInvalidOrderedIDs
	}

	for index, id := range orderedIDs {
		if _, err := tx.Exec(ctx, `
			UPDATE task_lists SET position = $2, updated_at = NOW() WHERE id = $1
		`, id, index); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NormalizeOrders renumbers the event's columns to 0..N-1 walking
// (position, id). Idempotent: a second run changes nothing.
func (r *TaskListRepository) NormalizeOrders(ctx context.Context, eventID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := normalizePositions(ctx, tx, `
		SELECT id, position FROM task_lists WHERE event_id = $1 ORDER BY position, id FOR UPDATE
	`, `UPDATE task_lists SET position = $2 WHERE id = $1`, eventID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// OrderedIDs returns the event's column ids in board order
func (r *TaskListRepository) OrderedIDs(ctx context.Context, eventID int64) ([]int64, error) {
	return queryIDs(ctx, r.pool, `
		SELECT id FROM task_lists WHERE event_id = $1 ORDER BY position, id
	`, eventID)
}

// lockedChildIDs collects the locked child ids of a container
func lockedChildIDs(ctx context.Context, tx pgx.Tx, query string, parentID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// normalizePositions walks locked (id, position) pairs and rewrites any row
// whose position differs from its index
func normalizePositions(ctx context.Context, tx pgx.Tx, selectQuery, updateQuery string, parentID int64) error {
	rows, err := tx.Query(ctx, selectQuery, parentID)
	if err != nil {
		return fmt.Errorf("failed to lock rows: %w", err)
	}

	type rowOrder struct {
		id       int64
		position int
	}
	ordered := make([]rowOrder, 0)
	for rows.Next() {
		var ro rowOrder
		if err := rows.Scan(&ro.id, &ro.position); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan row: %w", err)
		}
		ordered = append(ordered, ro)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for index, ro := range ordered {
		if ro.position == index {
			continue
		}
		if _, err := tx.Exec(ctx, updateQuery, ro.id, index); err != nil {
			return fmt.Errorf("failed to normalize position: %w", err)
		}
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
