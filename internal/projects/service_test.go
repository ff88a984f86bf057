package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

type approverKey struct {
	projectID    int64
	userID       int64
	approvalType ApprovalType
}

type memoryProjectRepo struct {
	projects  map[int64]Project
	members   map[int64][]Member
	approvers map[approverKey]Approver
	nextID    int64
}

func newMemoryProjectRepo() *memoryProjectRepo {
	return &memoryProjectRepo{
		projects:  make(map[int64]Project),
		members:   make(map[int64][]Member),
		approvers: make(map[approverKey]Approver),
	}
}

func (r *memoryProjectRepo) ListAll(ctx context.Context) ([]Project, error) {
	list := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		list = append(list, p)
	}
	return list, nil
}

func (r *memoryProjectRepo) ListVisible(ctx context.Context, userID int64) ([]Project, error) {
	var list []Project
	for _, p := range r.projects {
		if p.OwnerID == userID {
			list = append(list, p)
			continue
		}
		for _, m := range r.members[p.ID] {
			if m.UserID == userID {
				list = append(list, p)
				break
			}
		}
	}
	return list, nil
}

func (r *memoryProjectRepo) Get(ctx context.Context, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryProjectRepo) Create(ctx context.Context, p Project) (Project, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryProjectRepo) Update(ctx context.Context, p Project) (Project, error) {
	if _, ok := r.projects[p.ID]; !ok {
		return Project{}, shared.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryProjectRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.projects[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *memoryProjectRepo) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	for _, m := range r.members[projectID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryProjectRepo) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	return append([]Member(nil), r.members[projectID]...), nil
}

func (r *memoryProjectRepo) AddMember(ctx context.Context, m Member) error {
	for _, existing := range r.members[m.ProjectID] {
		if existing.UserID == m.UserID {
			return ErrDuplicateMember
		}
	}
	m.CreatedAt = time.Now()
	r.members[m.ProjectID] = append(r.members[m.ProjectID], m)
	return nil
}

func (r *memoryProjectRepo) RemoveMember(ctx context.Context, projectID, userID int64) error {
	members := r.members[projectID]
	for i, m := range members {
		if m.UserID == userID {
			r.members[projectID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryProjectRepo) IsApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) (bool, error) {
	_, ok := r.approvers[approverKey{projectID, userID, approvalType}]
	return ok, nil
}

func (r *memoryProjectRepo) ListApprovers(ctx context.Context, projectID int64) ([]Approver, error) {
	var list []Approver
	for key, a := range r.approvers {
		if key.projectID == projectID {
			list = append(list, a)
		}
	}
	return list, nil
}

func (r *memoryProjectRepo) AddApprover(ctx context.Context, a Approver) error {
	key := approverKey{a.ProjectID, a.UserID, a.ApprovalType}
	if _, ok := r.approvers[key]; ok {
		return ErrDuplicateApprover
	}
	a.CreatedAt = time.Now()
	r.approvers[key] = a
	return nil
}

func (r *memoryProjectRepo) RemoveApprover(ctx context.Context, projectID, userID int64, approvalType ApprovalType) error {
	key := approverKey{projectID, userID, approvalType}
	if _, ok := r.approvers[key]; !ok {
		return shared.ErrNotFound
	}
	delete(r.approvers, key)
	return nil
}

func actorWith(userID int64, flags ...perm.Flag) authz.Actor {
	return authz.Actor{UserID: userID, Perms: perm.Combine(flags...)}
}

func seedProject(t *testing.T, svc *Service, owner authz.Actor) Project {
	t.Helper()
	project, err := svc.Create(context.Background(), owner, CreateInput{Name: "Tower A", Code: "TWR-A"})
	require.NoError(t, err)
	return project
}

func TestCreateRequiresFlag(t *testing.T) {
	svc := NewService(newMemoryProjectRepo(), nil)
	_, err := svc.Create(context.Background(), actorWith(1), CreateInput{Name: "X", Code: "X"})
	require.ErrorIs(t, err, ErrDenied)
}

func TestOwnerManagesWithZeroFlags(t *testing.T) {
	svc := NewService(newMemoryProjectRepo(), nil)
	owner := actorWith(1, perm.CreateProjects)
	project := seedProject(t, svc, owner)

	// Flags revoked after creation; ownership still wins.
	bare := actorWith(1)
	_, err := svc.Update(context.Background(), bare, project.ID, UpdateInput{Name: "Tower A1"})
	require.NoError(t, err)

	stranger := actorWith(2)
	_, err = svc.Update(context.Background(), stranger, project.ID, UpdateInput{Name: "Nope"})
	require.ErrorIs(t, err, ErrDenied)
}

func TestAccessPaths(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo, nil)
	owner := actorWith(1, perm.CreateProjects)
	project := seedProject(t, svc, owner)

	viewer := actorWith(2, perm.ViewAllProjects)
	_, err := svc.Get(context.Background(), viewer, project.ID)
	require.NoError(t, err)

	member := actorWith(3, perm.ViewAssignedProjects)
	_, err = svc.Get(context.Background(), member, project.ID)
	require.ErrorIs(t, err, ErrDenied, "assigned flag without assignment must deny")

	require.NoError(t, svc.AddMember(context.Background(), owner, project.ID, 3, "site engineer"))
	_, err = svc.Get(context.Background(), member, project.ID)
	require.NoError(t, err)

	// Assignment without the view-assigned flag stays denied.
	flagless := actorWith(3)
	_, err = svc.Get(context.Background(), flagless, project.ID)
	require.ErrorIs(t, err, ErrDenied)
}

func TestListScopesByFlag(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo, nil)
	owner := actorWith(1, perm.CreateProjects)
	seedProject(t, svc, owner)
	seedProject(t, svc, actorWith(5, perm.CreateProjects))

	all, err := svc.List(context.Background(), actorWith(9, perm.ViewAllProjects))
	require.NoError(t, err)
	require.Len(t, all, 2)

	ownOnly, err := svc.List(context.Background(), actorWith(1))
	require.NoError(t, err)
	require.Len(t, ownOnly, 1)

	nothing, err := svc.List(context.Background(), actorWith(9))
	require.NoError(t, err)
	require.Empty(t, nothing)
}

// cachingProjectRepo hands out the same backing slice on every call, the
// way a caching repository would.
type cachingProjectRepo struct {
	*memoryProjectRepo
	visible []Project
}

func (r *cachingProjectRepo) ListVisible(ctx context.Context, userID int64) ([]Project, error) {
	return r.visible, nil
}

func TestListDoesNotMutateRepositorySlice(t *testing.T) {
	owned := Project{ID: 1, OwnerID: 1, Name: "Riverside"}
	assigned := Project{ID: 2, OwnerID: 5, Name: "Hilltop"}
	repo := &cachingProjectRepo{
		memoryProjectRepo: newMemoryProjectRepo(),
		visible:           []Project{assigned, owned},
	}
	svc := NewService(repo, nil)

	list, err := svc.List(context.Background(), actorWith(1))
	require.NoError(t, err)
	require.Equal(t, []Project{owned}, list)

	// The repository's slice must come back intact for the next caller.
	require.Equal(t, []Project{assigned, owned}, repo.visible)
}

func TestApproverOverlayUniqueness(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo, nil)
	owner := actorWith(1, perm.CreateProjects)
	project := seedProject(t, svc, owner)

	err := svc.GrantApprover(context.Background(), owner, project.ID, 7, ApprovalShopDrawings)
	require.NoError(t, err)
	err = svc.GrantApprover(context.Background(), owner, project.ID, 7, ApprovalShopDrawings)
	require.ErrorIs(t, err, ErrDuplicateApprover)

	// Same user, different workflow is a distinct row.
	err = svc.GrantApprover(context.Background(), owner, project.ID, 7, ApprovalMaterialSpecs)
	require.NoError(t, err)
}

func TestApprovalRequiresBaseFlag(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo, nil)
	owner := actorWith(1, perm.CreateProjects)
	project := seedProject(t, svc, owner)

	require.NoError(t, svc.GrantApprover(context.Background(), owner, project.ID, 7, ApprovalShopDrawings))

	// Overlay row alone is not enough without an approval flag.
	overlayOnly := actorWith(7)
	_, err := svc.AuthorizeApproval(context.Background(), overlayOnly, project.ID, ApprovalShopDrawings)
	require.ErrorIs(t, err, ErrDenied)

	entitled := actorWith(7, perm.ApproveShopDrawings)
	_, err = svc.AuthorizeApproval(context.Background(), entitled, project.ID, ApprovalShopDrawings)
	require.NoError(t, err)

	// Flag without overlay, ownership or manage-all is also denied.
	flagOnly := actorWith(8, perm.ApproveShopDrawings)
	_, err = svc.AuthorizeApproval(context.Background(), flagOnly, project.ID, ApprovalShopDrawings)
	require.ErrorIs(t, err, ErrDenied)
}

func TestDeleteRules(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo, nil)
	owner := actorWith(1, perm.CreateProjects)
	project := seedProject(t, svc, owner)

	manager := actorWith(2, perm.ManageAllProjects)
	err := svc.Delete(context.Background(), manager, project.ID)
	require.ErrorIs(t, err, ErrDenied, "manage-all without the delete flag must not delete")

	deleter := actorWith(2, perm.ManageAllProjects, perm.DeleteProjects)
	require.NoError(t, svc.Delete(context.Background(), deleter, project.ID))

	project = seedProject(t, svc, owner)
	require.NoError(t, svc.Delete(context.Background(), actorWith(1), project.ID), "owner deletes without flags")
}
