package scope

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
	items  map[int64]Item
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Item{}, nextID: 1}
}

func (m *memoryRepo) ListByProject(_ context.Context, projectID int64) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.ProjectID == projectID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Item, error) {
	item, ok := m.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (m *memoryRepo) Create(_ context.Context, i Item) (Item, error) {
	i.ID = m.nextID
	m.nextID++
	m.items[i.ID] = i
	return i, nil
}

func (m *memoryRepo) Update(_ context.Context, i Item) (Item, error) {
	if _, ok := m.items[i.ID]; !ok {
		return Item{}, shared.ErrNotFound
	}
	m.items[i.ID] = i
	return i, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// stubProjects grants access to everyone and approval rights only to
// the configured approver.
type stubProjects struct {
	approverID int64
	denyAccess bool
}

func (s *stubProjects) Authorize(_ context.Context, _ authz.Actor, projectID int64) (projects.Project, error) {
	if s.denyAccess {
		return projects.Project{}, projects.ErrDenied
	}
	return projects.Project{ID: projectID}, nil
}

func (s *stubProjects) AuthorizeApproval(_ context.Context, actor authz.Actor, projectID int64, _ projects.ApprovalType) (projects.Project, error) {
	if actor.UserID != s.approverID {
		return projects.Project{}, projects.ErrDenied
	}
	return projects.Project{ID: projectID}, nil
}

func newTestService() (*Service, *memoryRepo, *stubProjects) {
	repo := newMemoryRepo()
	ports := &stubProjects{approverID: 9}
	return NewService(repo, ports), repo, ports
}

func estimator() authz.Actor {
	return authz.Actor{UserID: 2, Perms: perm.Combine(
		perm.CreateScopeItems, perm.EditScopeItems, perm.DeleteScopeItems, perm.EditFinancialData,
	)}
}

func TestCreateRequiresFlag(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), authz.Actor{UserID: 5}, 1, Input{Title: "Footings"})
	require.ErrorIs(t, err, ErrDenied)

	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Footings", Quantity: 10, UnitCost: 250})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, item.Status)
	require.Equal(t, float64(2500), item.TotalCost)
}

func TestUpdateCostEditGated(t *testing.T) {
	svc, _, _ := newTestService()
	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Rebar", Quantity: 4, UnitCost: 100})
	require.NoError(t, err)

	// Editor without the financial flag may change text but not costs.
	editor := authz.Actor{UserID: 3, Perms: perm.Combine(perm.EditScopeItems)}
	_, err = svc.Update(context.Background(), editor, item.ID, Input{Title: "Rebar", Quantity: 4, UnitCost: 150})
	require.ErrorIs(t, err, ErrDenied)

	updated, err := svc.Update(context.Background(), editor, item.ID, Input{Title: "Rebar #5", Quantity: 4, UnitCost: 100})
	require.NoError(t, err)
	require.Equal(t, "Rebar #5", updated.Title)

	updated, err = svc.Update(context.Background(), estimator(), item.ID, Input{Title: "Rebar #5", Quantity: 6, UnitCost: 100})
	require.NoError(t, err)
	require.Equal(t, float64(600), updated.TotalCost)
}

func TestUpdateApprovedReopensDraft(t *testing.T) {
	svc, repo, _ := newTestService()
	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Slab", Quantity: 1, UnitCost: 50})
	require.NoError(t, err)

	item.Status = StatusApproved
	repo.items[item.ID] = item

	updated, err := svc.Update(context.Background(), estimator(), item.ID, Input{Title: "Slab", Quantity: 1, UnitCost: 50})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, updated.Status)
}

func TestApprovalWorkflow(t *testing.T) {
	svc, _, _ := newTestService()
	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Paving", Quantity: 2, UnitCost: 80})
	require.NoError(t, err)

	approver := authz.Actor{UserID: 9}

	// Approving a draft is rejected.
	_, err = svc.Approve(context.Background(), approver, item.ID)
	require.ErrorIs(t, err, ErrBadTransition)

	submitted, err := svc.Submit(context.Background(), estimator(), item.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, submitted.Status)

	// Non-approvers are denied even with pending status.
	_, err = svc.Approve(context.Background(), estimator(), item.ID)
	require.ErrorIs(t, err, projects.ErrDenied)

	approved, err := svc.Approve(context.Background(), approver, item.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)

	// Re-approval of a resolved item is a conflict.
	_, err = svc.Reject(context.Background(), approver, item.ID)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestSubmitAfterRejection(t *testing.T) {
	svc, _, _ := newTestService()
	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Glazing", Quantity: 1, UnitCost: 10})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), estimator(), item.ID)
	require.NoError(t, err)
	rejected, err := svc.Reject(context.Background(), authz.Actor{UserID: 9}, item.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	resubmitted, err := svc.Submit(context.Background(), estimator(), item.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, resubmitted.Status)
}

func TestListRedactionShape(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Drywall", Quantity: 3, UnitCost: 20})
	require.NoError(t, err)

	items, err := svc.List(context.Background(), authz.Actor{UserID: 4, Perms: perm.Combine(perm.ViewAssignedProjects)}, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	records := perm.FilterFinancial([]map[string]any{items[0].Record()}, perm.Combine(perm.ViewAssignedProjects), CostFields)
	require.NotContains(t, records[0], "unit_cost")
	require.NotContains(t, records[0], "total_cost")
	require.Contains(t, records[0], "title")
}

func TestDeleteRequiresFlag(t *testing.T) {
	svc, repo, _ := newTestService()
	item, err := svc.Create(context.Background(), estimator(), 1, Input{Title: "Fence", Quantity: 1, UnitCost: 5})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), authz.Actor{UserID: 6, Perms: perm.Combine(perm.EditScopeItems)}, item.ID)
	require.ErrorIs(t, err, ErrDenied)

	require.NoError(t, svc.Delete(context.Background(), estimator(), item.ID))
	require.Empty(t, repo.items)
}
