package scope

import (
	"context"
	"errors"
	"strings"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
)

// ErrDenied indicates the actor lacks rights for the operation.
var ErrDenied = errors.New("scope: access denied")

// ErrBadTransition indicates an approval action on the wrong status.
var ErrBadTransition = errors.New("scope: invalid status transition")

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByProject(ctx context.Context, projectID int64) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, i Item) (Item, error)
	Update(ctx context.Context, i Item) (Item, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectsPort exposes the project authorization checks.
type ProjectsPort interface {
	Authorize(ctx context.Context, actor authz.Actor, projectID int64) (projects.Project, error)
	AuthorizeApproval(ctx context.Context, actor authz.Actor, projectID int64, approvalType projects.ApprovalType) (projects.Project, error)
}

// Service orchestrates scope item operations.
type Service struct {
	repo     RepositoryPort
	projects ProjectsPort
}

// NewService constructs the scope service.
func NewService(repo RepositoryPort, projectsPort ProjectsPort) *Service {
	return &Service{repo: repo, projects: projectsPort}
}

// List returns scope items for a project the actor can access. The
// handler applies financial redaction before serializing.
func (s *Service) List(ctx context.Context, actor authz.Actor, projectID int64) ([]Item, error) {
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Get returns one item after a project access check.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if _, err := s.projects.Authorize(ctx, actor, item.ProjectID); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Input describes scope item fields supplied by the caller.
type Input struct {
	Title       string
	Description string
	Category    string
	Unit        string
	Quantity    float64
	UnitCost    float64
}

// Create adds a scope item to a project.
func (s *Service) Create(ctx context.Context, actor authz.Actor, projectID int64, input Input) (Item, error) {
	if !actor.Perms.Has(perm.CreateScopeItems) {
		return Item{}, ErrDenied
	}
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return Item{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Item{}, errors.New("scope: title required")
	}
	return s.repo.Create(ctx, Item{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Unit:        strings.TrimSpace(input.Unit),
		Quantity:    input.Quantity,
		UnitCost:    input.UnitCost,
		TotalCost:   input.Quantity * input.UnitCost,
		Status:      StatusDraft,
		CreatedBy:   actor.UserID,
	})
}

// Update edits an item. Cost edits additionally require the financial
// edit flag so estimators without it cannot reprice lines.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, input Input) (Item, error) {
	if !actor.Perms.Has(perm.EditScopeItems) {
		return Item{}, ErrDenied
	}
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return Item{}, err
	}
	costChanged := input.UnitCost != item.UnitCost || input.Quantity != item.Quantity
	if costChanged && !actor.Perms.Has(perm.EditFinancialData) {
		return Item{}, ErrDenied
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		item.Title = title
	}
	item.Description = strings.TrimSpace(input.Description)
	item.Category = strings.TrimSpace(input.Category)
	item.Unit = strings.TrimSpace(input.Unit)
	item.Quantity = input.Quantity
	item.UnitCost = input.UnitCost
	item.TotalCost = input.Quantity * input.UnitCost
	// Edits to an approved item reopen the change workflow.
	if item.Status == StatusApproved {
		item.Status = StatusDraft
	}
	return s.repo.Update(ctx, item)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.Perms.Has(perm.DeleteScopeItems) {
		return ErrDenied
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Submit moves a draft item into the pending approval queue.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, id int64) (Item, error) {
	if !actor.Perms.HasAny(perm.CreateScopeItems, perm.EditScopeItems) {
		return Item{}, ErrDenied
	}
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return Item{}, err
	}
	if item.Status != StatusDraft && item.Status != StatusRejected {
		return Item{}, ErrBadTransition
	}
	item.Status = StatusPending
	return s.repo.Update(ctx, item)
}

// Approve accepts a pending scope change. Entitlement follows the
// scope-change approval rule including the per-project overlay.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, id int64) (Item, error) {
	return s.resolve(ctx, actor, id, StatusApproved)
}

// Reject declines a pending scope change.
func (s *Service) Reject(ctx context.Context, actor authz.Actor, id int64) (Item, error) {
	return s.resolve(ctx, actor, id, StatusRejected)
}

func (s *Service) resolve(ctx context.Context, actor authz.Actor, id int64, next Status) (Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if _, err := s.projects.AuthorizeApproval(ctx, actor, item.ProjectID, projects.ApprovalScopeChanges); err != nil {
		return Item{}, err
	}
	if item.Status != StatusPending {
		return Item{}, ErrBadTransition
	}
	item.Status = next
	return s.repo.Update(ctx, item)
}
