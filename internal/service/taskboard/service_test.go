package taskboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
)

// Function-field fakes keep the wide repository interfaces manageable.

type fakeTasks struct {
	TaskRepository
	getByID          func(taskID int64) (*domain.Task, error)
	eventIDForTask   func(taskID int64) (int64, error)
	dependenciesDone func(taskID int64) (bool, error)
	setStatus        func(taskID int64, status domain.TaskStatus) error
	take             func(taskID, participantID int64) error
	deleteTask       func(taskID int64) (int64, error)
	reorder          func(listID int64, orderedIDs []int64) error
	normalize        func(listID int64) error
	progress         func(eventID int64) ([]*domain.ListProgress, error)
}

func (f *fakeTasks) GetByID(_ context.Context, taskID int64) (*domain.Task, error) {
	return f.getByID(taskID)
}
func (f *fakeTasks) EventIDForTask(_ context.Context, taskID int64) (int64, error) {
	return f.eventIDForTask(taskID)
}
func (f *fakeTasks) DependenciesDone(_ context.Context, taskID int64) (bool, error) {
	return f.dependenciesDone(taskID)
}
func (f *fakeTasks) SetStatus(_ context.Context, taskID int64, status domain.TaskStatus) error {
	return f.setStatus(taskID, status)
}
func (f *fakeTasks) Take(_ context.Context, taskID, participantID int64) error {
	return f.take(taskID, participantID)
}
func (f *fakeTasks) Delete(_ context.Context, taskID int64) (int64, error) {
	return f.deleteTask(taskID)
}
func (f *fakeTasks) Reorder(_ context.Context, listID int64, orderedIDs []int64) error {
	return f.reorder(listID, orderedIDs)
}
func (f *fakeTasks) NormalizeOrders(_ context.Context, listID int64) error {
	return f.normalize(listID)
}
func (f *fakeTasks) Progress(_ context.Context, eventID int64) ([]*domain.ListProgress, error) {
	return f.progress(eventID)
}

type fakeLists struct {
	TaskListRepository
	getByID func(listID int64) (*domain.TaskList, error)
}

func (f *fakeLists) GetByID(_ context.Context, listID int64) (*domain.TaskList, error) {
	return f.getByID(listID)
}

type fakeEvents struct {
	events map[int64]*domain.Event
}

func (f *fakeEvents) GetByID(_ context.Context, eventID int64) (*domain.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

type fakeParticipants struct {
	roles        map[int64]domain.Role      // by userID
	participants map[int64]*domain.Participant // by participantID
}

func (f *fakeParticipants) GetRole(_ context.Context, _, userID int64) (domain.Role, error) {
	return f.roles[userID], nil
}
func (f *fakeParticipants) GetEventParticipantByID(_ context.Context, participantID int64) (*domain.Participant, error) {
	participant, ok := f.participants[participantID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return participant, nil
}
func (f *fakeParticipants) FindByUser(_ context.Context, eventID, userID int64) (*domain.Participant, error) {
	for _, participant := range f.participants {
		if participant.EventID == eventID && participant.UserID == userID {
			return participant, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

type recordedBroadcast struct {
	eventID     int64
	messageType string
}

type fakeBroadcaster struct {
	broadcasts []recordedBroadcast
}

func (b *fakeBroadcaster) PublishEvent(_ context.Context, eventID int64, messageType string, _ any, _ *int64) {
	b.broadcasts = append(b.broadcasts, recordedBroadcast{eventID, messageType})
}

func (b *fakeBroadcaster) types() []string {
	out := make([]string, len(b.broadcasts))
	for i, bc := range b.broadcasts {
		out[i] = bc.messageType
	}
	return out
}

type mapCache struct {
	data    map[string][]byte
	deletes []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}
func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	value, ok := c.data[key]
	return value, ok
}
func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.data[key] = value
}
func (c *mapCache) Delete(_ context.Context, key string) {
	delete(c.data, key)
	c.deletes = append(c.deletes, key)
}

func organizerWorld() (*fakeEvents, *fakeParticipants) {
	events := &fakeEvents{events: map[int64]*domain.Event{
		1: {ID: 1, OwnerID: 99, Title: "Launch"},
	}}
	participants := &fakeParticipants{
		roles: map[int64]domain.Role{
			10: domain.RoleOrganizer,
			20: domain.RoleMember,
		},
		participants: map[int64]*domain.Participant{
			7: {ID: 7, EventID: 1, UserID: 20, Role: domain.RoleMember},
			8: {ID: 8, EventID: 1, UserID: 10, Role: domain.RoleOrganizer},
		},
	}
	return events, participants
}

func TestSetStatusDependencyGate(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	depsDone := false
	tasks := &fakeTasks{
		eventIDForTask: func(int64) (int64, error) { return 1, nil },
		getByID: func(taskID int64) (*domain.Task, error) {
			return &domain.Task{ID: taskID, ListID: 2, Status: domain.TaskStatusTodo}, nil
		},
		dependenciesDone: func(int64) (bool, error) { return depsDone, nil },
		setStatus:        func(int64, domain.TaskStatus) error { return nil },
	}
	service := NewService(tasks, &fakeLists{}, events, participants, broadcaster, newMapCache())
	ctx := context.Background()

	_, err := service.SetStatus(ctx, 10, 5, domain.TaskStatusDoing)
	assert.ErrorIs(t, err, domain.ErrDependenciesNotDone)
	assert.Empty(t, broadcaster.broadcasts)

	depsDone = true
	_, err = service.SetStatus(ctx, 10, 5, domain.TaskStatusDoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"task.updated", "progress.invalidate"}, broadcaster.types())

	// Moving back to todo never consults dependencies.
	depsDone = false
	_, err = service.SetStatus(ctx, 10, 5, domain.TaskStatusTodo)
	assert.NoError(t, err)
}

func TestSetStatusAllowedForAssignee(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	assignee := int64(7)
	tasks := &fakeTasks{
		eventIDForTask: func(int64) (int64, error) { return 1, nil },
		getByID: func(taskID int64) (*domain.Task, error) {
			return &domain.Task{ID: taskID, AssigneeID: &assignee, Status: domain.TaskStatusTodo}, nil
		},
		dependenciesDone: func(int64) (bool, error) { return true, nil },
		setStatus:        func(int64, domain.TaskStatus) error { return nil },
	}
	service := NewService(tasks, &fakeLists{}, events, participants, broadcaster, newMapCache())
	ctx := context.Background()

	// User 20 owns participant 7 and is the assignee.
	_, err := service.SetStatus(ctx, 20, 5, domain.TaskStatusDone)
	assert.NoError(t, err)

	// Another plain member is rejected.
	participants.roles[30] = domain.RoleMember
	_, err = service.SetStatus(ctx, 30, 5, domain.TaskStatusDone)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReorderTasksRejectsDuplicates(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	tasks := &fakeTasks{
		reorder: func(int64, []int64) error {
			t.Fatal("reorder must not reach the store with duplicate ids")
			return nil
		},
	}
	lists := &fakeLists{getByID: func(listID int64) (*domain.TaskList, error) {
		return &domain.TaskList{ID: listID, EventID: 1}, nil
	}}
	service := NewService(tasks, lists, events, participants, broadcaster, newMapCache())

	err := service.ReorderTasks(context.Background(), 10, 2, []int64{1, 2, 1})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderedIDs)
}

func TestReorderTasksBroadcasts(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	var applied []int64
	tasks := &fakeTasks{
		reorder: func(_ int64, orderedIDs []int64) error {
			applied = orderedIDs
			return nil
		},
	}
	lists := &fakeLists{getByID: func(listID int64) (*domain.TaskList, error) {
		return &domain.TaskList{ID: listID, EventID: 1}, nil
	}}
	service := NewService(tasks, lists, events, participants, broadcaster, newMapCache())

	require.NoError(t, service.ReorderTasks(context.Background(), 10, 2, []int64{3, 1, 2}))
	assert.Equal(t, []int64{3, 1, 2}, applied)
	assert.Equal(t, []string{"task.reordered"}, broadcaster.types())
}

func TestReorderForbiddenForMember(t *testing.T) {
	events, participants := organizerWorld()
	service := NewService(&fakeTasks{}, &fakeLists{getByID: func(listID int64) (*domain.TaskList, error) {
		return &domain.TaskList{ID: listID, EventID: 1}, nil
	}}, events, participants, &fakeBroadcaster{}, newMapCache())

	err := service.ReorderTasks(context.Background(), 20, 2, []int64{1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTakePassesConflictThrough(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	tasks := &fakeTasks{
		eventIDForTask: func(int64) (int64, error) { return 1, nil },
		take: func(_, participantID int64) error {
			assert.Equal(t, int64(7), participantID)
			return domain.ErrTaskAlreadyAssigned
		},
	}
	service := NewService(tasks, &fakeLists{}, events, participants, broadcaster, newMapCache())

	_, err := service.Take(context.Background(), 20, 5)
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyAssigned)
	assert.Empty(t, broadcaster.broadcasts)
}

func TestDeleteTaskNormalizesAndInvalidates(t *testing.T) {
	events, participants := organizerWorld()
	broadcaster := &fakeBroadcaster{}
	cache := newMapCache()
	normalized := []int64{}
	tasks := &fakeTasks{
		eventIDForTask: func(int64) (int64, error) { return 1, nil },
		deleteTask:     func(int64) (int64, error) { return 2, nil },
		normalize: func(listID int64) error {
			normalized = append(normalized, listID)
			return nil
		},
	}
	service := NewService(tasks, &fakeLists{}, events, participants, broadcaster, cache)

	require.NoError(t, service.DeleteTask(context.Background(), 10, 5))
	assert.Equal(t, []int64{2}, normalized)
	assert.Equal(t, []string{"task.deleted", "progress.invalidate"}, broadcaster.types())
	assert.Contains(t, cache.deletes, ProgressCacheKey(1))
}

func TestProgressEngineComputeAndCache(t *testing.T) {
	calls := 0
	tasks := &fakeTasks{
		progress: func(int64) ([]*domain.ListProgress, error) {
			calls++
			return []*domain.ListProgress{
				{ListID: 1, Title: "Todo", Total: 3, Todo: 2, Done: 1},
				{ListID: 2, Title: "Later", Total: 3, Doing: 1, Done: 2},
			}, nil
		},
	}
	cache := newMapCache()
	engine := NewProgressEngine(tasks, cache)
	ctx := context.Background()

	progress, err := engine.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, progress.TotalTasks)
	assert.Equal(t, domain.ProgressCounts{Todo: 2, Doing: 1, Done: 3}, progress.Counts)
	assert.Equal(t, 50.0, progress.PercentDone)
	assert.Equal(t, 30, progress.TTLSeconds)
	assert.Equal(t, 1, calls)

	// The second read comes from cache and keeps the generation stamp.
	cached, err := engine.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, progress.GeneratedAt, cached.GeneratedAt)

	// Invalidation forces a recomputation.
	engine.Invalidate(ctx, 1)
	_, err = engine.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestProgressEngineEmptyBoard(t *testing.T) {
	tasks := &fakeTasks{
		progress: func(int64) ([]*domain.ListProgress, error) {
			return []*domain.ListProgress{}, nil
		},
	}
	engine := NewProgressEngine(tasks, newMapCache())

	progress, err := engine.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.TotalTasks)
	assert.Equal(t, 0.0, progress.PercentDone)
}

func TestProgressRounding(t *testing.T) {
	tasks := &fakeTasks{
		progress: func(int64) ([]*domain.ListProgress, error) {
			return []*domain.ListProgress{
				{ListID: 1, Title: "L", Total: 3, Todo: 2, Done: 1},
			}, nil
		},
	}
	engine := NewProgressEngine(tasks, newMapCache())

	progress, err := engine.Get(context.Background(), 1)
	require.NoError(t, err)
	// 1/3 done rounds to one decimal place.
	assert.Equal(t, 33.3, progress.PercentDone)
}

func TestAssignValidatesSameEvent(t *testing.T) {
	events, participants := organizerWorld()
	participants.participants[9] = &domain.Participant{ID: 9, EventID: 2, UserID: 50}
	tasks := &fakeTasks{
		eventIDForTask: func(int64) (int64, error) { return 1, nil },
	}
	service := NewService(tasks, &fakeLists{}, events, participants, &fakeBroadcaster{}, newMapCache())

	foreign := int64(9)
	_, err := service.Assign(context.Background(), 10, 5, &foreign)
	assert.ErrorIs(t, err, domain.ErrAssigneeWrongEvent)
}
