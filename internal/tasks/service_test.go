package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

type memoryRepo struct {
	tasks  map[int64]Task
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tasks: map[int64]Task{}, nextID: 1}
}

func (m *memoryRepo) ListByProject(_ context.Context, projectID int64) ([]Task, error) {
	var out []Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListByAssignee(_ context.Context, userID int64) ([]Task, error) {
	var out []Task
	for _, t := range m.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) Create(_ context.Context, t Task) (Task, error) {
	t.ID = m.nextID
	m.nextID++
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memoryRepo) Update(_ context.Context, t Task) (Task, error) {
	if _, ok := m.tasks[t.ID]; !ok {
		return Task{}, shared.ErrNotFound
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.tasks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// stubProjects grants access to listed user IDs only.
type stubProjects struct {
	allowed map[int64]bool
}

func (s *stubProjects) Authorize(_ context.Context, actor authz.Actor, projectID int64) (projects.Project, error) {
	if s.allowed != nil && !s.allowed[actor.UserID] {
		return projects.Project{}, projects.ErrDenied
	}
	return projects.Project{ID: projectID}, nil
}

func newTestService(allowed ...int64) *Service {
	ports := &stubProjects{}
	if len(allowed) > 0 {
		ports.allowed = map[int64]bool{}
		for _, id := range allowed {
			ports.allowed[id] = true
		}
	}
	return NewService(newMemoryRepo(), ports)
}

func manager() authz.Actor {
	return authz.Actor{UserID: 2, Perms: perm.Combine(perm.CreateTasks, perm.EditTasks, perm.AssignTasks)}
}

func TestCreateDefaultsAndFlags(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), authz.Actor{UserID: 5}, 1, Input{Title: "Pour slab"})
	require.ErrorIs(t, err, ErrDenied)

	task, err := svc.Create(context.Background(), manager(), 1, Input{Title: "Pour slab"})
	require.NoError(t, err)
	require.Equal(t, StatusTodo, task.Status)
	require.Equal(t, PriorityMedium, task.Priority)
	require.Nil(t, task.AssigneeID)

	_, err = svc.Create(context.Background(), manager(), 1, Input{Title: ""})
	require.ErrorIs(t, err, ErrBadInput)

	_, err = svc.Create(context.Background(), manager(), 1, Input{Title: "x", Priority: "urgent"})
	require.ErrorIs(t, err, ErrBadInput)
}

func TestAssignRequiresFlag(t *testing.T) {
	svc := newTestService()
	task, err := svc.Create(context.Background(), manager(), 1, Input{Title: "Inspect forms"})
	require.NoError(t, err)

	worker := int64(7)
	_, err = svc.Assign(context.Background(), authz.Actor{UserID: 3, Perms: perm.Combine(perm.EditTasks)}, task.ID, &worker)
	require.ErrorIs(t, err, ErrDenied)

	assigned, err := svc.Assign(context.Background(), manager(), task.ID, &worker)
	require.NoError(t, err)
	require.Equal(t, worker, *assigned.AssigneeID)

	// Clearing the assignee is allowed.
	cleared, err := svc.Assign(context.Background(), manager(), task.ID, nil)
	require.NoError(t, err)
	require.Nil(t, cleared.AssigneeID)
}

func TestAssigneeCanMoveOwnTask(t *testing.T) {
	// Worker 7 has no task flags and no project visibility.
	svc := newTestService(2)
	task, err := svc.Create(context.Background(), manager(), 1, Input{Title: "Hang drywall"})
	require.NoError(t, err)
	worker := int64(7)
	_, err = svc.Assign(context.Background(), manager(), task.ID, &worker)
	require.NoError(t, err)

	workerActor := authz.Actor{UserID: 7}
	got, err := svc.Get(context.Background(), workerActor, task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, got.ID)

	moved, err := svc.SetStatus(context.Background(), workerActor, task.ID, StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, moved.Status)

	// A stranger with no flags cannot.
	_, err = svc.SetStatus(context.Background(), authz.Actor{UserID: 8}, task.ID, StatusDone)
	require.ErrorIs(t, err, projects.ErrDenied)

	mine, err := svc.Mine(context.Background(), workerActor)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestSetStatusRejectsUnknownState(t *testing.T) {
	svc := newTestService()
	task, err := svc.Create(context.Background(), manager(), 1, Input{Title: "Order steel"})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), manager(), task.ID, Status("blocked"))
	require.ErrorIs(t, err, ErrBadInput)
}

func TestDeleteRequiresEditFlag(t *testing.T) {
	svc := newTestService()
	task, err := svc.Create(context.Background(), manager(), 1, Input{Title: "Strike forms"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), authz.Actor{UserID: 4, Perms: perm.Combine(perm.CreateTasks)}, task.ID)
	require.ErrorIs(t, err, ErrDenied)
	require.NoError(t, svc.Delete(context.Background(), manager(), task.ID))
}
