package projects

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// ErrDenied indicates the actor lacks rights on the project.
var ErrDenied = errors.New("projects: access denied")

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]Project, error)
	ListVisible(ctx context.Context, userID int64) ([]Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	Delete(ctx context.Context, id int64) error
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
	AddMember(ctx context.Context, m Member) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
	IsApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) (bool, error)
	ListApprovers(ctx context.Context, projectID int64) ([]Approver, error)
	AddApprover(ctx context.Context, a Approver) error
	RemoveApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) error
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates project operations. It assembles the relationship
// facts the permission evaluator needs; the evaluator itself stays pure.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the project service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// facts fetches the relationship facts for an evaluator check.
func (s *Service) facts(ctx context.Context, project Project, actor authz.Actor, approvalType ApprovalType) (perm.ProjectFacts, error) {
	facts := perm.ProjectFacts{OwnerID: project.OwnerID, UserID: actor.UserID}
	assigned, err := s.repo.IsMember(ctx, project.ID, actor.UserID)
	if err != nil {
		return perm.ProjectFacts{}, err
	}
	facts.IsAssigned = assigned
	if approvalType != "" {
		isApprover, err := s.repo.IsApprover(ctx, project.ID, actor.UserID, approvalType)
		if err != nil {
			return perm.ProjectFacts{}, err
		}
		facts.IsApprover = isApprover
	}
	return facts, nil
}

// Authorize loads the project and verifies read access for the actor.
// Other domain packages use this before touching project-scoped records.
func (s *Service) Authorize(ctx context.Context, actor authz.Actor, projectID int64) (Project, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	facts, err := s.facts(ctx, project, actor, "")
	if err != nil {
		return Project{}, err
	}
	if !perm.CanAccessProject(actor.Perms, facts) {
		return Project{}, ErrDenied
	}
	return project, nil
}

// AuthorizeManage verifies management rights.
func (s *Service) AuthorizeManage(ctx context.Context, actor authz.Actor, projectID int64) (Project, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	facts, err := s.facts(ctx, project, actor, "")
	if err != nil {
		return Project{}, err
	}
	if !perm.CanManageProject(actor.Perms, facts) {
		return Project{}, ErrDenied
	}
	return project, nil
}

// AuthorizeApproval verifies approval rights for one workflow, feeding
// the overlay fact into the evaluator.
func (s *Service) AuthorizeApproval(ctx context.Context, actor authz.Actor, projectID int64, approvalType ApprovalType) (Project, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	facts, err := s.facts(ctx, project, actor, approvalType)
	if err != nil {
		return Project{}, err
	}
	var allowed bool
	switch approvalType {
	case ApprovalShopDrawings:
		allowed = perm.CanApproveShopDrawings(actor.Perms, facts)
	case ApprovalMaterialSpecs:
		allowed = perm.CanApproveMaterialSpecs(actor.Perms, facts)
	case ApprovalScopeChanges:
		allowed = perm.CanApproveScopeChanges(actor.Perms, facts)
	default:
		return Project{}, errors.New("projects: unknown approval type")
	}
	if !allowed {
		return Project{}, ErrDenied
	}
	return project, nil
}

// List returns the projects visible to the actor: everything for holders
// of the view-all flag, otherwise owned plus assigned.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Project, error) {
	if actor.Perms.Has(perm.ViewAllProjects) {
		return s.repo.ListAll(ctx)
	}
	if !actor.Perms.Has(perm.ViewAssignedProjects) {
		// Owned projects remain visible even with no view flags at all.
		projects, err := s.repo.ListVisible(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		owned := make([]Project, 0, len(projects))
		for _, p := range projects {
			if p.OwnerID == actor.UserID {
				owned = append(owned, p)
			}
		}
		return owned, nil
	}
	return s.repo.ListVisible(ctx, actor.UserID)
}

// Get returns a single project after an access check.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Project, error) {
	return s.Authorize(ctx, actor, id)
}

// CreateInput describes a new project.
type CreateInput struct {
	Name        string
	Code        string
	Description string
	Status      Status
}

// Create registers a project owned by the actor.
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (Project, error) {
	if !actor.Perms.Has(perm.CreateProjects) {
		return Project{}, ErrDenied
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Project{}, errors.New("projects: name required")
	}
	status := input.Status
	if status == "" {
		status = StatusPlanning
	}
	project, err := s.repo.Create(ctx, Project{
		Name:        name,
		Code:        strings.TrimSpace(input.Code),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		OwnerID:     actor.UserID,
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, actor.UserID, "project.create", project.ID, nil)
	return project, nil
}

// UpdateInput describes mutable project fields.
type UpdateInput struct {
	Name        string
	Description string
	Status      Status
}

// Update modifies a project the actor can manage.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, input UpdateInput) (Project, error) {
	project, err := s.AuthorizeManage(ctx, actor, id)
	if err != nil {
		return Project{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		project.Name = name
	}
	if input.Description != "" {
		project.Description = strings.TrimSpace(input.Description)
	}
	if input.Status != "" {
		project.Status = input.Status
	}
	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, actor.UserID, "project.update", id, nil)
	return updated, nil
}

// Delete removes a project. Beyond management rights this demands the
// delete flag, except for the owner removing their own project.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	project, err := s.AuthorizeManage(ctx, actor, id)
	if err != nil {
		return err
	}
	if project.OwnerID != actor.UserID && !actor.Perms.Has(perm.DeleteProjects) {
		return ErrDenied
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "project.delete", id, nil)
	return nil
}

// Members returns assignments for a project the actor can access.
func (s *Service) Members(ctx context.Context, actor authz.Actor, projectID int64) ([]Member, error) {
	if _, err := s.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// AddMember assigns a user; requires management rights.
func (s *Service) AddMember(ctx context.Context, actor authz.Actor, projectID, userID int64, position string) error {
	if _, err := s.AuthorizeManage(ctx, actor, projectID); err != nil {
		return err
	}
	if err := s.repo.AddMember(ctx, Member{ProjectID: projectID, UserID: userID, Position: strings.TrimSpace(position)}); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "project.member_add", projectID, map[string]any{"user_id": userID})
	return nil
}

// RemoveMember removes an assignment; requires management rights.
func (s *Service) RemoveMember(ctx context.Context, actor authz.Actor, projectID, userID int64) error {
	if _, err := s.AuthorizeManage(ctx, actor, projectID); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "project.member_remove", projectID, map[string]any{"user_id": userID})
	return nil
}

// Approvers lists the overlay for a project the actor can access.
func (s *Service) Approvers(ctx context.Context, actor authz.Actor, projectID int64) ([]Approver, error) {
	if _, err := s.Authorize(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListApprovers(ctx, projectID)
}

// GrantApprover adds an overlay row; requires management rights.
// Overlay grants do not expire; revocation is the only removal path.
func (s *Service) GrantApprover(ctx context.Context, actor authz.Actor, projectID, userID int64, approvalType ApprovalType) error {
	if !ValidApprovalType(approvalType) {
		return errors.New("projects: unknown approval type")
	}
	if _, err := s.AuthorizeManage(ctx, actor, projectID); err != nil {
		return err
	}
	err := s.repo.AddApprover(ctx, Approver{
		ProjectID:    projectID,
		UserID:       userID,
		ApprovalType: approvalType,
		GrantedBy:    actor.UserID,
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "project.approver_grant", projectID, map[string]any{
		"user_id": userID,
		"type":    string(approvalType),
	})
	return nil
}

// RevokeApprover removes an overlay row; requires management rights.
func (s *Service) RevokeApprover(ctx context.Context, actor authz.Actor, projectID, userID int64, approvalType ApprovalType) error {
	if _, err := s.AuthorizeManage(ctx, actor, projectID); err != nil {
		return err
	}
	if err := s.repo.RemoveApprover(ctx, projectID, userID, approvalType); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "project.approver_revoke", projectID, map[string]any{
		"user_id": userID,
		"type":    string(approvalType),
	})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, projectID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "project",
		EntityID: strconv.FormatInt(projectID, 10),
		Meta:     meta,
	})
}
