// Package dashboard aggregates a per-user summary across projects,
// tasks, and approval queues. Every count honors the same access rules
// as the underlying modules.
package dashboard

import (
	"context"
	"time"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/drawings"
	"github.com/ridgeline-pm/ridgeline/internal/materials"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/scope"
	"github.com/ridgeline-pm/ridgeline/internal/tasks"
)

// ProjectsPort lists projects visible to the actor.
type ProjectsPort interface {
	List(ctx context.Context, actor authz.Actor) ([]projects.Project, error)
}

// TasksPort lists the actor's assignments.
type TasksPort interface {
	Mine(ctx context.Context, actor authz.Actor) ([]tasks.Task, error)
}

// ScopePort lists scope items per project.
type ScopePort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]scope.Item, error)
}

// DrawingsPort lists drawings per project.
type DrawingsPort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]drawings.Drawing, error)
}

// MaterialsPort lists material specs per project.
type MaterialsPort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]materials.Spec, error)
}

// Summary is the dashboard payload. TotalScopeValue is present only
// for viewers holding the financial view flag.
type Summary struct {
	Projects        ProjectCounts  `json:"projects"`
	Tasks           TaskCounts     `json:"tasks"`
	Pending         PendingCounts  `json:"pending_approvals"`
	TotalScopeValue *float64       `json:"total_scope_value,omitempty"`
	StatusBreakdown map[string]int `json:"project_status_breakdown"`
}

// ProjectCounts summarizes visible projects.
type ProjectCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Owned  int `json:"owned"`
}

// TaskCounts summarizes the actor's assignments.
type TaskCounts struct {
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// PendingCounts summarizes items waiting on approval across the
// actor's visible projects.
type PendingCounts struct {
	ShopDrawings  int `json:"shop_drawings"`
	MaterialSpecs int `json:"material_specs"`
	ScopeChanges  int `json:"scope_changes"`
}

// Service assembles the summary.
type Service struct {
	projects  ProjectsPort
	tasks     TasksPort
	scope     ScopePort
	drawings  DrawingsPort
	materials MaterialsPort
	now       func() time.Time
}

// NewService constructs the dashboard service.
func NewService(projectsPort ProjectsPort, tasksPort TasksPort, scopePort ScopePort, drawingsPort DrawingsPort, materialsPort MaterialsPort) *Service {
	return &Service{
		projects:  projectsPort,
		tasks:     tasksPort,
		scope:     scopePort,
		drawings:  drawingsPort,
		materials: materialsPort,
		now:       time.Now,
	}
}

// Summary builds the actor's dashboard. Sections whose underlying list
// the actor cannot access are simply absent from the counts rather than
// failing the whole summary.
func (s *Service) Summary(ctx context.Context, actor authz.Actor) (Summary, error) {
	visible, err := s.projects.List(ctx, actor)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{StatusBreakdown: map[string]int{}}
	out.Projects.Total = len(visible)
	for _, p := range visible {
		out.StatusBreakdown[string(p.Status)]++
		if p.Status == projects.StatusActive {
			out.Projects.Active++
		}
		if p.OwnerID == actor.UserID {
			out.Projects.Owned++
		}
	}

	mine, err := s.tasks.Mine(ctx, actor)
	if err != nil {
		return Summary{}, err
	}
	out.Tasks.Assigned = len(mine)
	for _, t := range mine {
		if t.Status == tasks.StatusInProgress {
			out.Tasks.InProgress++
		}
		if t.DueDate != nil && t.Status != tasks.StatusDone && t.DueDate.Before(s.now()) {
			out.Tasks.Overdue++
		}
	}

	var scopeValue float64
	for _, p := range visible {
		items, err := s.scope.List(ctx, actor, p.ID)
		if err == nil {
			for _, item := range items {
				if item.Status == scope.StatusPending {
					out.Pending.ScopeChanges++
				}
				scopeValue += item.TotalCost
			}
		}
		ds, err := s.drawings.List(ctx, actor, p.ID)
		if err == nil {
			for _, d := range ds {
				if d.Status == drawings.StatusSubmitted {
					out.Pending.ShopDrawings++
				}
			}
		}
		specs, err := s.materials.List(ctx, actor, p.ID)
		if err == nil {
			for _, spec := range specs {
				if spec.Status == materials.StatusSubmitted {
					out.Pending.MaterialSpecs++
				}
			}
		}
	}

	if perm.CanViewCosts(actor.Perms) {
		out.TotalScopeValue = &scopeValue
	}
	return out, nil
}
