package domain

import (
	"time"
)

// TaskStatus represents the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo  TaskStatus = "todo"
	TaskStatusDoing TaskStatus = "doing"
	TaskStatusDone  TaskStatus = "done"
)

// ValidTaskStatus reports whether s is a known status
func ValidTaskStatus(s TaskStatus) bool {
	return s == TaskStatusTodo || s == TaskStatusDoing || s == TaskStatusDone
}

// TaskList is one column of an event board.
// Maps to the task_lists table; order values within an event are always
// exactly 0..N-1 after every committed mutation.
type TaskList struct {
	ID        int64     `json:"id" db:"id"`
	EventID   int64     `json:"event" db:"event_id"`
	Title     string    `json:"title" db:"title"`
	Order     int       `json:"order" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Task belongs to a task list. Order values within a list are compact.
type Task struct {
	ID                       int64      `json:"id" db:"id"`
	ListID                   int64      `json:"list" db:"list_id"`
	Title                    string     `json:"title" db:"title"`
	Description              string     `json:"description" db:"description"`
	Status                   TaskStatus `json:"status" db:"status"`
	AssigneeID               *int64     `json:"assignee,omitempty" db:"assignee_id"`
	StartAt                  *time.Time `json:"start_at,omitempty" db:"start_at"`
	DueAt                    *time.Time `json:"due_at,omitempty" db:"due_at"`
	Order                    int        `json:"order" db:"position"`
	DependsOn                []int64    `json:"depends_on"`
	DeadlineReminderSentAt   *time.Time `json:"-" db:"deadline_reminder_sent_at"`
	DeadlineReminderForDueAt *time.Time `json:"-" db:"deadline_reminder_for_due_at"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// ValidateDates checks the due_at >= start_at invariant
func (t *Task) ValidateDates() error {
	if t.StartAt != nil && t.DueAt != nil && t.DueAt.Before(*t.StartAt) {
		return ErrTaskDateRange
	}
	return nil
}

// TaskListCreate represents data needed to create a board column
type TaskListCreate struct {
	Event int64  `json:"event" binding:"required"`
	Title string `json:"title" binding:"required,max=100"`
}

// TaskListUpdate represents a column rename
type TaskListUpdate struct {
	Title *string `json:"title" binding:"omitempty,max=100"`
}

// TaskCreate represents data needed to create a task
type TaskCreate struct {
	List        int64      `json:"list" binding:"required"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status" binding:"omitempty,oneof=todo doing done"`
	Assignee    *int64     `json:"assignee"`
	StartAt     *time.Time `json:"start_at"`
	DueAt       *time.Time `json:"due_at"`
	DependsOn   []int64    `json:"depends_on"`
}

// TaskUpdate represents a partial task update
type TaskUpdate struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	Assignee    *int64     `json:"assignee"`
	StartAt     *time.Time `json:"start_at"`
	DueAt       *time.Time `json:"due_at"`
	DependsOn   *[]int64   `json:"depends_on"`
}

// ReorderRequest carries the full explicit ordering of a container's children
type ReorderRequest struct {
	OrderedIDs []int64 `json:"ordered_ids"`
}

// StatusChangeRequest carries a task status transition
type StatusChangeRequest struct {
	Status TaskStatus `json:"status" binding:"required,oneof=todo doing done"`
}

// AssignRequest carries an explicit assignment; nil clears the assignee
type AssignRequest struct {
	Assignee *int64 `json:"assignee"`
}

// BoardList is a column with its ordered tasks for the board snapshot
type BoardList struct {
	TaskList
	Tasks []*Task `json:"tasks"`
}

// Board is the full board snapshot of one event
type Board struct {
	Event *EventResponse `json:"event"`
	Lists []*BoardList   `json:"lists"`
}

// ProgressCounts groups task totals by status
type ProgressCounts struct {
	Todo  int `json:"todo"`
	Doing int `json:"doing"`
	Done  int `json:"done"`
}

// ListProgress is the per-column slice of the progress aggregate
type ListProgress struct {
	ListID int64  `json:"list_id"`
	Title  string `json:"title"`
	Total  int    `json:"total"`
	Todo   int    `json:"todo"`
	Doing  int    `json:"doing"`
	Done   int    `json:"done"`
}

// EventProgress is the derived progress aggregate for one event
type EventProgress struct {
	EventID     int64           `json:"event_id"`
	TotalTasks  int             `json:"total_tasks"`
	Counts      ProgressCounts  `json:"counts"`
	PercentDone float64         `json:"percent_done"`
	ByList      []*ListProgress `json:"by_list"`
	GeneratedAt string          `json:"generated_at"`
	TTLSeconds  int             `json:"ttl_seconds"`
}

// Task-related errors
var (
	ErrTaskNotFound         = NewError("TASK_NOT_FOUND", "Task not found")
	ErrTaskListNotFound     = NewError("TASKLIST_NOT_FOUND", "Task list not found")
	ErrTaskDateRange        = NewError("INVALID_TIME_RANGE", "due_at must not be earlier than start_at")
	ErrInvalidOrderedIDs    = NewError("invalid_ids", "ordered_ids must match the current children of the target")
	ErrDependenciesNotDone  = NewError("DEPENDENCIES_NOT_DONE", "All dependencies must be done before this transition")
	ErrDependencyCrossEvent = NewError("DEPENDENCY_CROSS_EVENT", "Dependencies must belong to the same event")
	ErrAssigneeWrongEvent   = NewError("ASSIGNEE_WRONG_EVENT", "Assignee must participate in the same event")
	ErrTaskAlreadyAssigned  = NewError("already_assigned", "Task is already assigned")
)
