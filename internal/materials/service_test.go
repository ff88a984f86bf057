package materials

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

type memoryRepo struct {
	specs  map[int64]Spec
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{specs: map[int64]Spec{}, nextID: 1}
}

func (m *memoryRepo) ListByProject(_ context.Context, projectID int64) ([]Spec, error) {
	var out []Spec
	for _, s := range m.specs {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Spec, error) {
	s, ok := m.specs[id]
	if !ok {
		return Spec{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Create(_ context.Context, s Spec) (Spec, error) {
	s.ID = m.nextID
	m.nextID++
	m.specs[s.ID] = s
	return s, nil
}

func (m *memoryRepo) Update(_ context.Context, s Spec) (Spec, error) {
	if _, ok := m.specs[s.ID]; !ok {
		return Spec{}, shared.ErrNotFound
	}
	m.specs[s.ID] = s
	return s, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.specs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.specs, id)
	return nil
}

type memoryRecorder struct {
	logs []shared.ApprovalLog
}

func (m *memoryRecorder) Record(_ context.Context, log shared.ApprovalLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryRecorder) List(_ context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range m.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type stubProjects struct {
	approverID int64
}

func (s *stubProjects) Authorize(_ context.Context, _ authz.Actor, projectID int64) (projects.Project, error) {
	return projects.Project{ID: projectID}, nil
}

func (s *stubProjects) AuthorizeApproval(_ context.Context, actor authz.Actor, projectID int64, _ projects.ApprovalType) (projects.Project, error) {
	if actor.UserID != s.approverID {
		return projects.Project{}, projects.ErrDenied
	}
	return projects.Project{ID: projectID}, nil
}

func newTestService() (*Service, *memoryRecorder) {
	recorder := &memoryRecorder{}
	return NewService(newMemoryRepo(), &stubProjects{approverID: 9}, recorder, nil), recorder
}

func specWriter() authz.Actor {
	return authz.Actor{UserID: 2, Perms: perm.Combine(perm.EditMaterialSpecs, perm.EditFinancialData)}
}

func TestCreateRequiresEditFlag(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), authz.Actor{UserID: 5}, 1, Input{Name: "Rebar"})
	require.ErrorIs(t, err, ErrDenied)

	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "Rebar", Quantity: 100, UnitPrice: 3.5})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, spec.Status)
	require.Equal(t, float64(350), spec.TotalPrice)
	require.NotEqual(t, uuid.Nil, spec.Ref)
}

func TestPriceEditRequiresFinancialFlag(t *testing.T) {
	svc, _ := newTestService()
	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "CMU block", Quantity: 500, UnitPrice: 2})
	require.NoError(t, err)

	editor := authz.Actor{UserID: 3, Perms: perm.Combine(perm.EditMaterialSpecs)}
	_, err = svc.Update(context.Background(), editor, spec.ID, Input{Name: "CMU block", Quantity: 500, UnitPrice: 2.4})
	require.ErrorIs(t, err, ErrDenied)

	updated, err := svc.Update(context.Background(), editor, spec.ID, Input{Name: "CMU block 8in", Quantity: 500, UnitPrice: 2})
	require.NoError(t, err)
	require.Equal(t, "CMU block 8in", updated.Name)
}

func TestApprovalWorkflow(t *testing.T) {
	svc, _ := newTestService()
	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "Waterproofing", Quantity: 10, UnitPrice: 40})
	require.NoError(t, err)

	approver := authz.Actor{UserID: 9}

	_, err = svc.Approve(context.Background(), approver, spec.ID, "")
	require.ErrorIs(t, err, ErrBadTransition)

	submitted, err := svc.Submit(context.Background(), specWriter(), spec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)

	_, err = svc.Approve(context.Background(), specWriter(), spec.ID, "")
	require.ErrorIs(t, err, projects.ErrDenied)

	approved, err := svc.Approve(context.Background(), approver, spec.ID, "meets spec")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)

	logs, err := svc.History(context.Background(), specWriter(), spec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, shared.ApprovalApprove, logs[1].Action)
}

func TestRejectedSpecReturnsToDraftOnEdit(t *testing.T) {
	svc, _ := newTestService()
	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "Sealant", Quantity: 20, UnitPrice: 12})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), specWriter(), spec.ID)
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), authz.Actor{UserID: 9}, spec.ID, "wrong grade")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), specWriter(), spec.ID, Input{Name: "Sealant NP1", Quantity: 20, UnitPrice: 12})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, updated.Status)
}

func TestApprovedSpecCannotBeDeleted(t *testing.T) {
	svc, _ := newTestService()
	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "Anchor bolts", Quantity: 200, UnitPrice: 1.1})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), specWriter(), spec.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), authz.Actor{UserID: 9}, spec.ID, "")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), specWriter(), spec.ID)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestRecordRedaction(t *testing.T) {
	svc, _ := newTestService()
	spec, err := svc.Create(context.Background(), specWriter(), 1, Input{Name: "Glass", Quantity: 8, UnitPrice: 900})
	require.NoError(t, err)

	records := perm.FilterFinancial([]map[string]any{spec.Record()}, perm.Combine(perm.ViewAssignedProjects), CostFields)
	require.NotContains(t, records[0], "unit_price")
	require.NotContains(t, records[0], "total_price")
	require.Contains(t, records[0], "manufacturer")
}
