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

// TaskRepository handles tasks, their dependencies, the board snapshot, the
// progress aggregate and the deadline-reminder queries.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskColumns = `id, list_id, title, description, status, assignee_id, start_at, due_at, position, deadline_reminder_sent_at, deadline_reminder_for_due_at, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	task := &domain.Task{}
	err := row.Scan(
		&task.ID,
		&task.ListID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.AssigneeID,
		&task.StartAt,
		&task.DueAt,
		&task.Order,
		&task.DeadlineReminderSentAt,
		&task.DeadlineReminderForDueAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

// Create appends a task at the end of its list and records its dependencies.
// Dependencies must live in the same event as the list.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxOrder int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), -1) FROM tasks WHERE list_id = $1
	`, task.ListID).Scan(&maxOrder)
	if err != nil {
		return fmt.Errorf("failed to read max position: %w", err)
	}
	task.Order = maxOrder + 1

	err = tx.QueryRow(ctx, `
		INSERT INTO tasks (list_id, title, description, status, assignee_id, start_at, due_at, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, task.ListID, task.Title, task.Description, task.Status, task.AssigneeID,
		task.StartAt, task.DueAt, task.Order).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := replaceDependencies(ctx, tx, task.ID, task.ListID, task.DependsOn); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// replaceDependencies rewrites the depends_on set of a task, verifying that
// every dependency belongs to the same event as the task's list
func replaceDependencies(ctx context.Context, tx pgx.Tx, taskID, listID int64, dependsOn []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM task_dependencies WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("failed to clear dependencies: %w", err)
	}
	if len(dependsOn) == 0 {
		return nil
	}

	var sameEvent int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tasks t
		JOIN task_lists l ON l.id = t.list_id
		WHERE t.id = ANY($1)
		  AND l.event_id = (SELECT event_id FROM task_lists WHERE id = $2)
	`, dependsOn, listID).Scan(&sameEvent)
	if err != nil {
		return fmt.Errorf("failed to validate dependencies: %w", err)
	}
	if sameEvent != len(dependsOn) {
		return domain.ErrDependencyCrossEvent
	}

	for _, depID := range dependsOn {
		if depID == taskID {
			return domain.ErrDependencyCrossEvent
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO task_dependencies (task_id, depends_on_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, taskID, depID); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a task with its dependency ids
func (r *TaskRepository) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if err != nil {
		return nil, err
	}
	deps, err := queryIDs(ctx, r.pool, `
		SELECT depends_on_id FROM task_dependencies WHERE task_id = $1 ORDER BY depends_on_id
	`, taskID)
	if err != nil {
		return nil, err
	}
	task.DependsOn = deps
	return task, nil
}

// EventIDForTask resolves the owning event of a task
func (r *TaskRepository) EventIDForTask(ctx context.Context, taskID int64) (int64, error) {
	var eventID int64
	err := r.pool.QueryRow(ctx, `
		SELECT l.event_id FROM tasks t JOIN task_lists l ON l.id = t.list_id WHERE t.id = $1
	`, taskID).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrTaskNotFound
		}
		return 0, fmt.Errorf("failed to resolve task event: %w", err)
	}
	return eventID, nil
}

// Update applies a partial update. A non-nil DependsOn replaces the whole
// dependency set.
func (r *TaskRepository) Update(ctx context.Context, taskID int64, update *domain.TaskUpdate) (*domain.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    start_at = COALESCE($4, start_at),
		    due_at = COALESCE($5, due_at),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskColumns, taskID, update.Title, update.Description, update.StartAt, update.DueAt))
	if err != nil {
		return nil, err
	}

	if update.DependsOn != nil {
		if err := replaceDependencies(ctx, tx, taskID, task.ListID, *update.DependsOn); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.GetByID(ctx, taskID)
}

// SetStatus persists a status transition
func (r *TaskRepository) SetStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1
	`, taskID, status)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// DependenciesDone reports whether every dependency of the task is done
func (r *TaskRepository) DependenciesDone(ctx context.Context, taskID int64) (bool, error) {
	var pending int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM task_dependencies d
		JOIN tasks t ON t.id = d.depends_on_id
		WHERE d.task_id = $1 AND t.status <> $2
	`, taskID, domain.TaskStatusDone).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("failed to check dependencies: %w", err)
	}
	return pending == 0, nil
}

// Assign sets or clears the assignee
func (r *TaskRepository) Assign(ctx context.Context, taskID int64, assignee *int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET assignee_id = $2, updated_at = NOW() WHERE id = $1
	`, taskID, assignee)
	if err != nil {
		return fmt.Errorf("failed to assign task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Take self-assigns an unassigned task. The conditional update decides the
// race: the loser affects zero rows and gets the conflict error.
func (r *TaskRepository) Take(ctx context.Context, taskID, participantID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET assignee_id = $2, updated_at = NOW()
		WHERE id = $1 AND assignee_id IS NULL
	`, taskID, participantID)
	if err != nil {
		return fmt.Errorf("failed to take task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)
		`, taskID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check task: %w", err)
		}
		if !exists {
			return domain.ErrTaskNotFound
		}
		return domain.ErrTaskAlreadyAssigned
	}
	return nil
}

// Delete removes a task and returns its list id for normalization
func (r *TaskRepository) Delete(ctx context.Context, taskID int64) (int64, error) {
	var listID int64
	err := r.pool.QueryRow(ctx, `
		DELETE FROM tasks WHERE id = $1 RETURNING list_id
	`, taskID).Scan(&listID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrTaskNotFound
		}
		return 0, fmt.Errorf("failed to delete task: %w", err)
	}
	return listID, nil
}

// Reorder assigns position = index of each id in orderedIDs within the list
func (r *TaskRepository) Reorder(ctx context.Context, listID int64, orderedIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockedChildIDs(ctx, tx, `
		SELECT id FROM tasks WHERE list_id = $1 ORDER BY position, id FOR UPDATE
	`, listID)
	if err != nil {
		return fmt.Errorf("failed to lock tasks: %w", err)
	}
	if !sameIDMultiset(current, orderedIDs) {
		return domain.ErrInvalidOrderedIDs
	}

	for index, id := range orderedIDs {
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET position = $2, updated_at = NOW() WHERE id = $1
		`, id, index); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NormalizeOrders renumbers the list's tasks to 0..N-1 walking (position, id)
func (r *TaskRepository) NormalizeOrders(ctx context.Context, listID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := normalizePositions(ctx, tx, `
		SELECT id, position FROM tasks WHERE list_id = $1 ORDER BY position, id FOR UPDATE
	`, `UPDATE tasks SET position = $2 WHERE id = $1`, listID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// OrderedIDs returns the list's task ids in board order
func (r *TaskRepository) OrderedIDs(ctx context.Context, listID int64) ([]int64, error) {
	return queryIDs(ctx, r.pool, `
		SELECT id FROM tasks WHERE list_id = $1 ORDER BY position, id
	`, listID)
}

// ListByEvent loads all tasks of an event keyed by list, with dependencies,
// for the board snapshot
func (r *TaskRepository) ListByEvent(ctx context.Context, eventID int64) (map[int64][]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("t", taskColumns)+`
		FROM tasks t
		JOIN task_lists l ON l.id = t.list_id
		WHERE l.event_id = $1
		ORDER BY t.position, t.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	byList := make(map[int64][]*domain.Task)
	byID := make(map[int64]*domain.Task)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		task.DependsOn = []int64{}
		byList[task.ListID] = append(byList[task.ListID], task)
		byID[task.ID] = task
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	depRows, err := r.pool.Query(ctx, `
		SELECT d.task_id, d.depends_on_id
		FROM task_dependencies d
		JOIN tasks t ON t.id = d.task_id
		JOIN task_lists l ON l.id = t.list_id
		WHERE l.event_id = $1
		ORDER BY d.depends_on_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer depRows.Close()

	for depRows.Next() {
		var taskID, depID int64
		if err := depRows.Scan(&taskID, &depID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if task, ok := byID[taskID]; ok {
			task.DependsOn = append(task.DependsOn, depID)
		}
	}
	if err := depRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return byList, nil
}

// Progress computes the per-list status aggregates in one grouped query
func (r *TaskRepository) Progress(ctx context.Context, eventID int64) ([]*domain.ListProgress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.title,
		       COUNT(t.id) AS total,
		       COUNT(t.id) FILTER (WHERE t.status = 'todo') AS todo,
		       COUNT(t.id) FILTER (WHERE t.status = 'doing') AS doing,
		       COUNT(t.id) FILTER (WHERE t.status = 'done') AS done
		FROM task_lists l
		LEFT JOIN tasks t ON t.list_id = l.id
		WHERE l.event_id = $1
		GROUP BY l.id, l.title, l.position
		ORDER BY l.position, l.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}
	defer rows.Close()

	byList := make([]*domain.ListProgress, 0)
	for rows.Next() {
		entry := &domain.ListProgress{}
		if err := rows.Scan(&entry.ListID, &entry.Title, &entry.Total, &entry.Todo, &entry.Doing, &entry.Done); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		byList = append(byList, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress rows: %w", err)
	}
	return byList, nil
}

// ReminderRow is one task that may need a deadline reminder, joined with the
// recipients' coordinates
type ReminderRow struct {
	TaskID         int64
	Title          string
	DueAt          time.Time
	EventTitle     string
	ListTitle      string
	OwnerUserID    int64
	AssigneeUserID *int64
}

// ListDueReminders selects open tasks whose deadline falls inside the
// lookahead window and which were not yet reminded for the current due_at
// (or whose last reminder is older than the cooldown)
func (r *TaskRepository) ListDueReminders(ctx context.Context, now time.Time, lookahead, cooldown time.Duration) ([]*ReminderRow, error) {
	windowEnd := now.Add(lookahead)
	cooldownThreshold := now.Add(-cooldown)

	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.title, t.due_at, e.title, l.title, e.owner_id, p.user_id
		FROM tasks t
		JOIN task_lists l ON l.id = t.list_id
		JOIN events e ON e.id = l.event_id
		LEFT JOIN participants p ON p.id = t.assignee_id
		WHERE t.due_at IS NOT NULL
		  AND t.due_at >= $1 AND t.due_at <= $2
		  AND t.status IN ('todo', 'doing')
		  AND (t.deadline_reminder_sent_at IS NULL
		       OR t.deadline_reminder_sent_at < $3
		       OR t.deadline_reminder_for_due_at IS DISTINCT FROM t.due_at)
		ORDER BY t.due_at, t.id
	`, now, windowEnd, cooldownThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder tasks: %w", err)
	}
	defer rows.Close()

	reminders := make([]*ReminderRow, 0)
	for rows.Next() {
		row := &ReminderRow{}
		if err := rows.Scan(&row.TaskID, &row.Title, &row.DueAt, &row.EventTitle, &row.ListTitle, &row.OwnerUserID, &row.AssigneeUserID); err != nil {
			return nil, fmt.Errorf("failed to scan reminder row: %w", err)
		}
		reminders = append(reminders, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return reminders, nil
}

// MarkReminded records the reminder idempotency pair for the given tasks
func (r *TaskRepository) MarkReminded(ctx context.Context, taskIDs []int64, now time.Time) error {
	if len(taskIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET deadline_reminder_sent_at = $2, deadline_reminder_for_due_at = due_at
		WHERE id = ANY($1)
	`, taskIDs, now)
	if err != nil {
		return fmt.Errorf("failed to mark reminders: %w", err)
	}
	return nil
}
