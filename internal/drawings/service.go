package drawings

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
var ErrDenied = errors.New("drawings: access denied")

// ErrBadTransition indicates a workflow action on the wrong status.
var ErrBadTransition = errors.New("drawings: invalid status transition")

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByProject(ctx context.Context, projectID int64) ([]Drawing, error)
	Get(ctx context.Context, id int64) (Drawing, error)
	Create(ctx context.Context, d Drawing) (Drawing, error)
	Update(ctx context.Context, d Drawing) (Drawing, error)
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

// Service orchestrates shop drawing operations.
type Service struct {
	repo     RepositoryPort
	projects ProjectsPort
	recorder RecorderPort
	notifier Notifier
}

// NewService constructs the drawings service. notifier may be nil.
func NewService(repo RepositoryPort, projectsPort ProjectsPort, recorder RecorderPort, notifier Notifier) *Service {
	return &Service{repo: repo, projects: projectsPort, recorder: recorder, notifier: notifier}
}

// List returns drawings for a project the actor can access.
func (s *Service) List(ctx context.Context, actor authz.Actor, projectID int64) ([]Drawing, error) {
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Get returns one drawing after a project access check.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Drawing, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Drawing{}, err
	}
	if _, err := s.projects.Authorize(ctx, actor, d.ProjectID); err != nil {
		return Drawing{}, err
	}
	return d, nil
}

// Input describes drawing fields supplied by the caller.
type Input struct {
	Number     string
	Title      string
	Discipline string
	FileURL    string
}

// Create registers a new drawing in draft.
func (s *Service) Create(ctx context.Context, actor authz.Actor, projectID int64, input Input) (Drawing, error) {
	if !actor.Perms.Has(perm.CreateShopDrawings) {
		return Drawing{}, ErrDenied
	}
	if _, err := s.projects.Authorize(ctx, actor, projectID); err != nil {
		return Drawing{}, err
	}
	number := strings.TrimSpace(input.Number)
	title := strings.TrimSpace(input.Title)
	if number == "" || title == "" {
		return Drawing{}, errors.New("drawings: number and title required")
	}
	return s.repo.Create(ctx, Drawing{
		Ref:         uuid.New(),
		ProjectID:   projectID,
		Number:      number,
		Title:       title,
		Discipline:  strings.TrimSpace(input.Discipline),
		Revision:    0,
		Status:      StatusDraft,
		FileURL:     strings.TrimSpace(input.FileURL),
		SubmittedBy: actor.UserID,
	})
}

// Update edits drawing metadata. Editing a rejected drawing bumps the
// revision and returns it to draft for resubmission.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, input Input) (Drawing, error) {
	if !actor.Perms.Has(perm.EditShopDrawings) {
		return Drawing{}, ErrDenied
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return Drawing{}, err
	}
	if d.Status == StatusApproved {
		return Drawing{}, ErrBadTransition
	}
	if number := strings.TrimSpace(input.Number); number != "" {
		d.Number = number
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		d.Title = title
	}
	d.Discipline = strings.TrimSpace(input.Discipline)
	d.FileURL = strings.TrimSpace(input.FileURL)
	if d.Status == StatusRejected {
		d.Revision++
		d.Status = StatusDraft
	}
	return s.repo.Update(ctx, d)
}

// Delete removes a draft drawing.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.Perms.Has(perm.EditShopDrawings) {
		return ErrDenied
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if d.Status != StatusDraft {
		return ErrBadTransition
	}
	return s.repo.Delete(ctx, id)
}

// Submit places a draft drawing into review and notifies approvers.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, id int64) (Drawing, error) {
	if !actor.Perms.HasAny(perm.CreateShopDrawings, perm.EditShopDrawings) {
		return Drawing{}, ErrDenied
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return Drawing{}, err
	}
	if d.Status != StatusDraft {
		return Drawing{}, ErrBadTransition
	}
	d.Status = StatusSubmitted
	updated, err := s.repo.Update(ctx, d)
	if err != nil {
		return Drawing{}, err
	}
	s.record(ctx, actor, updated, shared.ApprovalSubmit, "")
	if s.notifier != nil {
		if err := s.notifier.ApprovalRequested(ctx, Module, updated.Ref, updated.ProjectID); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Approve accepts a submitted drawing. Entitlement follows the shop
// drawing approval rule, including client approvers and the per-project
// overlay.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, id int64, note string) (Drawing, error) {
	return s.resolve(ctx, actor, id, StatusApproved, shared.ApprovalApprove, note)
}

// Reject declines a submitted drawing.
func (s *Service) Reject(ctx context.Context, actor authz.Actor, id int64, note string) (Drawing, error) {
	return s.resolve(ctx, actor, id, StatusRejected, shared.ApprovalReject, note)
}

func (s *Service) resolve(ctx context.Context, actor authz.Actor, id int64, next Status, action shared.ApprovalAction, note string) (Drawing, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Drawing{}, err
	}
	if _, err := s.projects.AuthorizeApproval(ctx, actor, d.ProjectID, projects.ApprovalShopDrawings); err != nil {
		return Drawing{}, err
	}
	if d.Status != StatusSubmitted {
		return Drawing{}, ErrBadTransition
	}
	d.Status = next
	updated, err := s.repo.Update(ctx, d)
	if err != nil {
		return Drawing{}, err
	}
	s.record(ctx, actor, updated, action, note)
	return updated, nil
}

func (s *Service) record(ctx context.Context, actor authz.Actor, d Drawing, action shared.ApprovalAction, note string) {
	if s.recorder == nil {
		return
	}
	// History is best-effort; the state change already committed.
	_ = s.recorder.Record(ctx, shared.ApprovalLog{
		Module:  Module,
		RefID:   d.Ref,
		ActorID: actor.UserID,
		Action:  action,
		Note:    note,
	})
}

// History lists the approval trail for a drawing.
func (s *Service) History(ctx context.Context, actor authz.Actor, id int64) ([]shared.ApprovalLog, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.List(ctx, Module, d.Ref)
}
