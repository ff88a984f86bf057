package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
)

// ErrDenied indicates the actor lacks rights for the operation.
var ErrDenied = errors.New("tasks: access denied")

// ErrBadInput indicates an invalid status or priority value.
var ErrBadInput = errors.New("tasks: invalid input")

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByProject(ctx context.Context, projectID int64) ([]Task, error)
	ListByAssignee(ctx context.Context, userID int64) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Create(ctx context.Context, t Task) (Task, error)
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectsPort exposes the project access check.
type ProjectsPort interface {
	Authorize(ctx context.Context, actor authz.Actor, projectID int64) (projects.Project, error)
}

// Service orchestrates task operations.
type Service struct {
	repo     RepositoryPort
	projects ProjectsPort
}

// NewService constructs the tasks service.
func NewService(repo RepositoryPort, projectsPort ProjectsPort) *Service {
	return &Service{repo: repo, projects: projectsPort}
}

// List returns tasks for a project the actor can access.
func (s *Service) List(ctx context.Context, actor authz.Actor, projectID int64) ([]Task, error) {
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Mine returns the actor's own assignments across projects. No project
// check: a task assigned to you is always visible to you.
func (s *Service) Mine(ctx context.Context, actor authz.Actor) ([]Task, error) {
	return s.repo.ListByAssignee(ctx, actor.UserID)
}

// Get returns one task after a project access check.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.AssigneeID != nil && *t.AssigneeID == actor.UserID {
		return t, nil
	}
	if _, err := s.projects.Authorize(ctx, actor, t.ProjectID); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Input describes task fields supplied by the caller.
type Input struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
}

// Create adds a task to a project.
func (s *Service) Create(ctx context.Context, actor authz.Actor, projectID int64, input Input) (Task, error) {
	if !actor.Perms.Has(perm.CreateTasks) {
		return Task{}, ErrDenied
	}
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return Task{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, ErrBadInput
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return Task{}, ErrBadInput
	}
	return s.repo.Create(ctx, Task{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      StatusTodo,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedBy:   actor.UserID,
	})
}

// Update edits task fields. Assignees may always move their own task's
// status; other edits need the edit flag.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, input Input) (Task, error) {
	if !actor.Perms.Has(perm.EditTasks) {
		return Task{}, ErrDenied
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		t.Title = title
	}
	t.Description = strings.TrimSpace(input.Description)
	if input.Priority != "" {
		if !ValidPriority(input.Priority) {
			return Task{}, ErrBadInput
		}
		t.Priority = input.Priority
	}
	t.DueDate = input.DueDate
	return s.repo.Update(ctx, t)
}

// SetStatus moves a task through its progress states. The assignee may
// update their own task without the edit flag.
func (s *Service) SetStatus(ctx context.Context, actor authz.Actor, id int64, status Status) (Task, error) {
	if !ValidStatus(status) {
		return Task{}, ErrBadInput
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	isAssignee := t.AssigneeID != nil && *t.AssigneeID == actor.UserID
	if !isAssignee && !actor.Perms.Has(perm.EditTasks) {
		return Task{}, ErrDenied
	}
	t.Status = status
	return s.repo.Update(ctx, t)
}

// Assign sets or clears the task assignee.
func (s *Service) Assign(ctx context.Context, actor authz.Actor, id int64, assigneeID *int64) (Task, error) {
	if !actor.Perms.Has(perm.AssignTasks) {
		return Task{}, ErrDenied
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	t.AssigneeID = assigneeID
	return s.repo.Update(ctx, t)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.Perms.Has(perm.EditTasks) {
		return ErrDenied
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
