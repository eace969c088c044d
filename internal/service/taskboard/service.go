package taskboard

import (
	"context"
	"time"

	"eventplanner-backend/internal/authz"
	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
)

// TaskRepository interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, taskID int64) (*domain.Task, error)
	EventIDForTask(ctx context.Context, taskID int64) (int64, error)
	Update(ctx context.Context, taskID int64, update *domain.TaskUpdate) (*domain.Task, error)
	SetStatus(ctx context.Context, taskID int64, status domain.TaskStatus) error
	DependenciesDone(ctx context.Context, taskID int64) (bool, error)
	Assign(ctx context.Context, taskID int64, assignee *int64) error
	Take(ctx context.Context, taskID, participantID int64) error
	Delete(ctx context.Context, taskID int64) (int64, error)
	Reorder(ctx context.Context, listID int64, orderedIDs []int64) error
	NormalizeOrders(ctx context.Context, listID int64) error
	OrderedIDs(ctx context.Context, listID int64) ([]int64, error)
	ListByEvent(ctx context.Context, eventID int64) (map[int64][]*domain.Task, error)
	Progress(ctx context.Context, eventID int64) ([]*domain.ListProgress, error)
}

// TaskListRepository interface for board column operations
type TaskListRepository interface {
	Create(ctx context.Context, list *domain.TaskList) error
	GetByID(ctx context.Context, listID int64) (*domain.TaskList, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*domain.TaskList, error)
	Update(ctx context.Context, listID int64, update *domain.TaskListUpdate) (*domain.TaskList, error)
	Delete(ctx context.Context, listID int64) error
	Reorder(ctx context.Context, eventID int64, orderedIDs []int64) error
	NormalizeOrders(ctx context.Context, eventID int64) error
	OrderedIDs(ctx context.Context, eventID int64) ([]int64, error)
}

// EventRepository interface for event lookups
type EventRepository interface {
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
}

// ParticipantRepository interface for role and assignment checks
type ParticipantRepository interface {
	GetRole(ctx context.Context, eventID, userID int64) (domain.Role, error)
	GetEventParticipantByID(ctx context.Context, participantID int64) (*domain.Participant, error)
	FindByUser(ctx context.Context, eventID, userID int64) (*domain.Participant, error)
}

// Broadcaster publishes observable changes to the event's group
type Broadcaster interface {
	PublishEvent(ctx context.Context, eventID int64, messageType string, payload any, senderID *int64)
}

// ProgressCache stores the derived progress aggregate
type ProgressCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Service handles board business logic
type Service struct {
	tasks        TaskRepository
	lists        TaskListRepository
	events       EventRepository
	participants ParticipantRepository
	broadcaster  Broadcaster
	progress     *ProgressEngine
}

// NewService creates a new board service
func NewService(
	tasks TaskRepository,
	lists TaskListRepository,
	events EventRepository,
	participants ParticipantRepository,
	broadcaster Broadcaster,
	cache ProgressCache,
) *Service {
	return &Service{
		tasks:        tasks,
		lists:        lists,
		events:       events,
		participants: participants,
		broadcaster:  broadcaster,
		progress:     NewProgressEngine(tasks, cache),
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

// invalidateProgress evicts the cached aggregate and tells connected clients
// to refetch. Runs after every committed task or list create, update or
// delete, task status change and assignment; reorders do not call it.
func (s *Service) invalidateProgress(ctx context.Context, eventID int64) {
	s.progress.Invalidate(ctx, eventID)
	s.broadcaster.PublishEvent(ctx, eventID, "progress.invalidate", struct{}{}, nil)
}

// Board returns the full board snapshot of an event
func (s *Service) Board(ctx context.Context, eventID, userID int64) (*domain.Board, error) {
	if err := s.requireRole(ctx, eventID, userID, authz.ActionViewEvent); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	lists, err := s.lists.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tasksByList, err := s.tasks.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	board := &domain.Board{
		Event: event.ToResponse(),
		Lists: make([]*domain.BoardList, 0, len(lists)),
	}
	for _, list := range lists {
		tasks := tasksByList[list.ID]
		if tasks == nil {
			tasks = []*domain.Task{}
		}
		board.Lists = append(board.Lists, &domain.BoardList{TaskList: *list, Tasks: tasks})
	}
	return board, nil
}

// CreateList appends a board column and broadcasts it
func (s *Service) CreateList(ctx context.Context, userID int64, input *domain.TaskListCreate) (*domain.TaskList, error) {
	if err := s.requireRole(ctx, input.Event, userID, authz.ActionManageBoard); err != nil {
		return nil, err
	}

	list := &domain.TaskList{EventID: input.Event, Title: input.Title}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, list.EventID, "tasklist.created", list, nil)
	s.invalidateProgress(ctx, list.EventID)
	return list, nil
}

// UpdateList renames a column
func (s *Service) UpdateList(ctx context.Context, userID, listID int64, update *domain.TaskListUpdate) (*domain.TaskList, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, list.EventID, userID, authz.ActionManageBoard); err != nil {
		return nil, err
	}

	updated, err := s.lists.Update(ctx, listID, update)
	if err != nil {
		return nil, err
	}
	// A rename changes the progress by_list titles, so clients refetch.
	s.invalidateProgress(ctx, updated.EventID)
	return updated, nil
}

// DeleteList removes a column. Cascade happens at the store; the remaining
// columns are renumbered in a fresh transaction afterwards.
func (s *Service) DeleteList(ctx context.Context, userID, listID int64) error {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, list.EventID, userID, authz.ActionManageBoard); err != nil {
		return err
	}

	if err := s.lists.Delete(ctx, listID); err != nil {
		return err
	}
	if err := s.lists.NormalizeOrders(ctx, list.EventID); err != nil {
		return err
	}

	s.broadcaster.PublishEvent(ctx, list.EventID, "tasklist.deleted", map[string]int64{
		"id":    listID,
		"event": list.EventID,
	}, nil)
	s.invalidateProgress(ctx, list.EventID)
	return nil
}

// ReorderLists applies an explicit column ordering
func (s *Service) ReorderLists(ctx context.Context, userID, eventID int64, orderedIDs []int64) error {
	if err := s.requireRole(ctx, eventID, userID, authz.ActionManageBoard); err != nil {
		return err
	}
	if hasDuplicateIDs(orderedIDs) {
		return domain.ErrInvalidOrderedIDs
	}

	if err := s.lists.Reorder(ctx, eventID, orderedIDs); err != nil {
		return err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "tasklist.reordered", map[string]any{
		"event":       eventID,
		"ordered_ids": orderedIDs,
	}, nil)
	return nil
}

// CreateTask appends a task to its list and broadcasts it
func (s *Service) CreateTask(ctx context.Context, userID int64, input *domain.TaskCreate) (*domain.Task, error) {
	list, err := s.lists.GetByID(ctx, input.List)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, list.EventID, userID, authz.ActionManageBoard); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.TaskStatusTodo
	}
	task := &domain.Task{
		ListID:      input.List,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		StartAt:     input.StartAt,
		DueAt:       input.DueAt,
		DependsOn:   input.DependsOn,
	}
	if err := task.ValidateDates(); err != nil {
		return nil, err
	}
	if input.Assignee != nil {
		if err := s.validateAssignee(ctx, list.EventID, *input.Assignee); err != nil {
			return nil, err
		}
		task.AssigneeID = input.Assignee
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, list.EventID, "task.created", task, nil)
	s.invalidateProgress(ctx, list.EventID)
	return task, nil
}

// GetTask retrieves one task for a participant of its event
func (s *Service) GetTask(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, eventID, userID, authz.ActionViewEvent); err != nil {
		return nil, err
	}
	return s.tasks.GetByID(ctx, taskID)
}

// UpdateTask applies a partial update and broadcasts the fresh task
func (s *Service) UpdateTask(ctx context.Context, userID, taskID int64, update *domain.TaskUpdate) (*domain.Task, error) {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, eventID, userID, authz.ActionManageBoard); err != nil {
		return nil, err
	}

	current, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	startAt := current.StartAt
	if update.StartAt != nil {
		startAt = update.StartAt
	}
	dueAt := current.DueAt
	if update.DueAt != nil {
		dueAt = update.DueAt
	}
	probe := domain.Task{StartAt: startAt, DueAt: dueAt}
	if err := probe.ValidateDates(); err != nil {
		return nil, err
	}

	task, err := s.tasks.Update(ctx, taskID, update)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "task.updated", task, nil)
	s.invalidateProgress(ctx, eventID)
	return task, nil
}

// DeleteTask removes a task and renumbers its list in a fresh transaction
func (s *Service) DeleteTask(ctx context.Context, userID, taskID int64) error {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, eventID, userID, authz.ActionManageBoard); err != nil {
		return err
	}

	listID, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.NormalizeOrders(ctx, listID); err != nil {
		return err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "task.deleted", map[string]int64{
		"id":   taskID,
		"list": listID,
	}, nil)
	s.invalidateProgress(ctx, eventID)
	return nil
}

// ReorderTasks applies an explicit task ordering within one list
func (s *Service) ReorderTasks(ctx context.Context, userID, listID int64, orderedIDs []int64) error {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return err
	}
	if err := s.requireRole(ctx, list.EventID, userID, authz.ActionManageBoard); err != nil {
		return err
	}
	if hasDuplicateIDs(orderedIDs) {
		return domain.ErrInvalidOrderedIDs
	}

	if err := s.tasks.Reorder(ctx, listID, orderedIDs); err != nil {
		return err
	}

	s.broadcaster.PublishEvent(ctx, list.EventID, "task.reordered", map[string]any{
		"list":        listID,
		"ordered_ids": orderedIDs,
	}, nil)
	return nil
}

// SetStatus transitions a task. Moving into doing or done requires every
// dependency to be done. Allowed for organizers and the current assignee.
func (s *Service) SetStatus(ctx context.Context, userID, taskID int64, status domain.TaskStatus) (*domain.Task, error) {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	allowed := role == domain.RoleOrganizer
	if !allowed && task.AssigneeID != nil {
		assignee, err := s.participants.GetEventParticipantByID(ctx, *task.AssigneeID)
		if err == nil && assignee.UserID == userID {
			allowed = true
		}
	}
	if !allowed {
		return nil, domain.ErrForbidden
	}

	if status == domain.TaskStatusDoing || status == domain.TaskStatusDone {
		done, err := s.tasks.DependenciesDone(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !done {
			return nil, domain.ErrDependenciesNotDone
		}
	}

	if err := s.tasks.SetStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	task, err = s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "task.updated", task, nil)
	s.invalidateProgress(ctx, eventID)
	return task, nil
}

// Assign sets or clears the assignee; organizer only. The participant must
// belong to the task's event.
func (s *Service) Assign(ctx context.Context, userID, taskID int64, assignee *int64) (*domain.Task, error) {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, eventID, userID, authz.ActionManageBoard); err != nil {
		return nil, err
	}
	if assignee != nil {
		if err := s.validateAssignee(ctx, eventID, *assignee); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Assign(ctx, taskID, assignee); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "task.updated", task, nil)
	s.invalidateProgress(ctx, eventID)
	return task, nil
}

// Take self-assigns an unassigned task. Exactly one of two concurrent
// takers wins; the other observes the conflict.
func (s *Service) Take(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	eventID, err := s.tasks.EventIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	role, err := s.participants.GetRole(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleNone {
		return nil, domain.ErrForbidden
	}

	participant, err := s.participants.FindByUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Take(ctx, taskID, participant.ID); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.PublishEvent(ctx, eventID, "task.updated", task, nil)
	s.invalidateProgress(ctx, eventID)
	return task, nil
}

// Progress returns the cached progress aggregate, computing it on miss
func (s *Service) Progress(ctx context.Context, eventID, userID int64) (*domain.EventProgress, error) {
	if err := s.requireRole(ctx, eventID, userID, authz.ActionViewEvent); err != nil {
		return nil, err
	}
	return s.progress.Get(ctx, eventID)
}

func (s *Service) validateAssignee(ctx context.Context, eventID, participantID int64) error {
	participant, err := s.participants.GetEventParticipantByID(ctx, participantID)
	if err != nil {
		return domain.ErrAssigneeWrongEvent
	}
	if participant.EventID != eventID {
		return domain.ErrAssigneeWrongEvent
	}
	return nil
}

func hasDuplicateIDs(ids []int64) bool {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

var _ TaskRepository = (*postgres.TaskRepository)(nil)
var _ TaskListRepository = (*postgres.TaskListRepository)(nil)
