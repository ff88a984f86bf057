package materials

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// ErrDenied indicates the actor lacks rights for the operation.
var ErrDenied = errors.New("materials: access denied")

// ErrBadTransition indicates a workflow action on the wrong status.
var ErrBadTransition = errors.New("materials: invalid status transition")

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByProject(ctx context.Context, projectID int64) ([]Spec, error)
	Get(ctx context.Context, id int64) (Spec, error)
	Create(ctx context.Context, s Spec) (Spec, error)
	Update(ctx context.Context, s Spec) (Spec, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectsPort exposes the project authorization checks.
type ProjectsPort interface {
	Authorize(ctx context.Context, actor authz.Actor, projectID int64) (projects.Project, error)
	AuthorizeApproval(ctx context.Context, actor authz.Actor, projectID int64, approvalType projects.ApprovalType) (projects.Project, error)
}

// RecorderPort persists approval history. Satisfied by
// shared.ApprovalRecorder.
type RecorderPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// Notifier enqueues background notifications for workflow events.
type Notifier interface {
	ApprovalRequested(ctx context.Context, module string, ref uuid.UUID, projectID int64) error
}

// Service orchestrates material spec operations.
type Service struct {
	repo     RepositoryPort
	projects ProjectsPort
	recorder RecorderPort
	notifier Notifier
}

// NewService constructs the materials service. notifier may be nil.
func NewService(repo RepositoryPort, projectsPort ProjectsPort, recorder RecorderPort, notifier Notifier) *Service {
	return &Service{repo: repo, projects: projectsPort, recorder: recorder, notifier: notifier}
}

// List returns specs for a project the actor can access. The handler
// applies financial redaction before serializing.
func (s *Service) List(ctx context.Context, actor authz.Actor, projectID int64) ([]Spec, error) {
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Get returns one spec after a project access check.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Spec, error) {
	spec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Spec{}, err
	}
	if _, err := s.projects.Authorize(ctx, actor, spec.ProjectID); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Input describes spec fields supplied by the caller.
type Input struct {
	Name         string
	Description  string
	Manufacturer string
	Model        string
	Unit         string
	Quantity     float64
	UnitPrice    float64
}

// Create registers a new spec in draft.
func (s *Service) Create(ctx context.Context, actor authz.Actor, projectID int64, input Input) (Spec, error) {
	if !actor.Perms.Has(perm.EditMaterialSpecs) {
		return Spec{}, ErrDenied
	}
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return Spec{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Spec{}, errors.New("materials: name required")
	}
	return s.repo.Create(ctx, Spec{
		Ref:          uuid.New(),
		ProjectID:    projectID,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Manufacturer: strings.TrimSpace(input.Manufacturer),
		Model:        strings.TrimSpace(input.Model),
		Unit:         strings.TrimSpace(input.Unit),
		Quantity:     input.Quantity,
		UnitPrice:    input.UnitPrice,
		TotalPrice:   input.Quantity * input.UnitPrice,
		Status:       StatusDraft,
		SubmittedBy:  actor.UserID,
	})
}

// Update edits a spec. Price changes additionally require the financial
// edit flag. An approved spec returns to draft on edit.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, input Input) (Spec, error) {
	if !actor.Perms.Has(perm.EditMaterialSpecs) {
		return Spec{}, ErrDenied
	}
	spec, err := s.Get(ctx, actor, id)
	if err != nil {
		return Spec{}, err
	}
	priceChanged := input.UnitPrice != spec.UnitPrice || input.Quantity != spec.Quantity
	if priceChanged && !actor.Perms.Has(perm.EditFinancialData) {
		return Spec{}, ErrDenied
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		spec.Name = name
	}
	spec.Description = strings.TrimSpace(input.Description)
	spec.Manufacturer = strings.TrimSpace(input.Manufacturer)
	spec.Model = strings.TrimSpace(input.Model)
	spec.Unit = strings.TrimSpace(input.Unit)
	spec.Quantity = input.Quantity
	spec.UnitPrice = input.UnitPrice
	spec.TotalPrice = input.Quantity * input.UnitPrice
	if spec.Status == StatusApproved || spec.Status == StatusRejected {
		spec.Status = StatusDraft
	}
	return s.repo.Update(ctx, spec)
}

// Delete removes a spec that has not been approved.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.Perms.Has(perm.EditMaterialSpecs) {
		return ErrDenied
	}
	spec, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if spec.Status == StatusApproved {
		return ErrBadTransition
	}
	return s.repo.Delete(ctx, id)
}

// Submit places a draft spec into review and notifies approvers.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, id int64) (Spec, error) {
	if !actor.Perms.Has(perm.EditMaterialSpecs) {
		return Spec{}, ErrDenied
	}
	spec, err := s.Get(ctx, actor, id)
	if err != nil {
		return Spec{}, err
	}
	if spec.Status != StatusDraft {
		return Spec{}, ErrBadTransition
	}
	spec.Status = StatusSubmitted
	updated, err := s.repo.Update(ctx, spec)
	if err != nil {
		return Spec{}, err
	}
	s.record(ctx, actor, updated, shared.ApprovalSubmit, "")
	if s.notifier != nil {
		if err := s.notifier.ApprovalRequested(ctx, Module, updated.Ref, updated.ProjectID); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Approve accepts a submitted spec. Entitlement follows the material
// spec approval rule including the per-project overlay.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, id int64, note string) (Spec, error) {
	return s.resolve(ctx, actor, id, StatusApproved, shared.ApprovalApprove, note)
}

// Reject declines a submitted spec.
func (s *Service) Reject(ctx context.Context, actor authz.Actor, id int64, note string) (Spec, error) {
	return s.resolve(ctx, actor, id, StatusRejected, shared.ApprovalReject, note)
}

func (s *Service) resolve(ctx context.Context, actor authz.Actor, id int64, next Status, action shared.ApprovalAction, note string) (Spec, error) {
	spec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Spec{}, err
	}
	if _, err := s.projects.AuthorizeApproval(ctx, actor, spec.ProjectID, projects.ApprovalMaterialSpecs); err != nil {
		return Spec{}, err
	}
	if spec.Status != StatusSubmitted {
		return Spec{}, ErrBadTransition
	}
	spec.Status = next
	updated, err := s.repo.Update(ctx, spec)
	if err != nil {
		return Spec{}, err
	}
	s.record(ctx, actor, updated, action, note)
	return updated, nil
}

func (s *Service) record(ctx context.Context, actor authz.Actor, spec Spec, action shared.ApprovalAction, note string) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, shared.ApprovalLog{
		Module:  Module,
		RefID:   spec.Ref,
		ActorID: actor.UserID,
		Action:  action,
		Note:    note,
	})
}

// History lists the approval trail for a spec.
func (s *Service) History(ctx context.Context, actor authz.Actor, id int64) ([]shared.ApprovalLog, error) {
	spec, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.List(ctx, Module, spec.Ref)
}
