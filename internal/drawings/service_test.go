package drawings

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
	drawings map[int64]Drawing
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{drawings: map[int64]Drawing{}, nextID: 1}
}

func (m *memoryRepo) ListByProject(_ context.Context, projectID int64) ([]Drawing, error) {
	var out []Drawing
	for _, d := range m.drawings {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Drawing, error) {
	d, ok := m.drawings[id]
	if !ok {
		return Drawing{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *memoryRepo) Create(_ context.Context, d Drawing) (Drawing, error) {
	d.ID = m.nextID
	m.nextID++
	m.drawings[d.ID] = d
	return d, nil
}

func (m *memoryRepo) Update(_ context.Context, d Drawing) (Drawing, error) {
	if _, ok := m.drawings[d.ID]; !ok {
		return Drawing{}, shared.ErrNotFound
	}
	m.drawings[d.ID] = d
	return d, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.drawings[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.drawings, id)
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

type notifyCapture struct {
	calls int
}

func (n *notifyCapture) ApprovalRequested(_ context.Context, _ string, _ uuid.UUID, _ int64) error {
	n.calls++
	return nil
}

func newTestService() (*Service, *memoryRecorder, *notifyCapture) {
	recorder := &memoryRecorder{}
	notifier := &notifyCapture{}
	svc := NewService(newMemoryRepo(), &stubProjects{approverID: 9}, recorder, notifier)
	return svc, recorder, notifier
}

func drafter() authz.Actor {
	return authz.Actor{UserID: 2, Perms: perm.Combine(perm.CreateShopDrawings, perm.EditShopDrawings)}
}

func TestCreateAssignsRefAndDraft(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), authz.Actor{UserID: 5}, 1, Input{Number: "SD-001", Title: "Stair detail"})
	require.ErrorIs(t, err, ErrDenied)

	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-001", Title: "Stair detail"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, d.Ref)
	require.Equal(t, StatusDraft, d.Status)
	require.Equal(t, 0, d.Revision)
}

func TestSubmitRecordsAndNotifies(t *testing.T) {
	svc, recorder, notifier := newTestService()
	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-002", Title: "Curtain wall"})
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)
	require.Equal(t, 1, notifier.calls)
	require.Len(t, recorder.logs, 1)
	require.Equal(t, shared.ApprovalSubmit, recorder.logs[0].Action)
	require.Equal(t, d.Ref, recorder.logs[0].RefID)

	// Double submit is a conflict.
	_, err = svc.Submit(context.Background(), drafter(), d.ID)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestApproveRequiresEntitlement(t *testing.T) {
	svc, recorder, _ := newTestService()
	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-003", Title: "Handrail"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), drafter(), d.ID, "")
	require.ErrorIs(t, err, projects.ErrDenied)

	approved, err := svc.Approve(context.Background(), authz.Actor{UserID: 9}, d.ID, "reviewed")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, shared.ApprovalApprove, recorder.logs[len(recorder.logs)-1].Action)
	require.Equal(t, "reviewed", recorder.logs[len(recorder.logs)-1].Note)
}

func TestRejectThenRevise(t *testing.T) {
	svc, _, _ := newTestService()
	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-004", Title: "Canopy"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), authz.Actor{UserID: 9}, d.ID, "wrong gauge")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	// Editing a rejected drawing bumps the revision and reopens draft.
	revised, err := svc.Update(context.Background(), drafter(), d.ID, Input{Number: "SD-004", Title: "Canopy rev A"})
	require.NoError(t, err)
	require.Equal(t, 1, revised.Revision)
	require.Equal(t, StatusDraft, revised.Status)

	resubmitted, err := svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, resubmitted.Status)
}

func TestApprovedDrawingIsImmutable(t *testing.T) {
	svc, _, _ := newTestService()
	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-005", Title: "Louvre"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), authz.Actor{UserID: 9}, d.ID, "")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), drafter(), d.ID, Input{Number: "SD-005", Title: "Louvre B"})
	require.ErrorIs(t, err, ErrBadTransition)
	err = svc.Delete(context.Background(), drafter(), d.ID)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestHistoryReturnsTrail(t *testing.T) {
	svc, _, _ := newTestService()
	d, err := svc.Create(context.Background(), drafter(), 1, Input{Number: "SD-006", Title: "Soffit"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), drafter(), d.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), authz.Actor{UserID: 9}, d.ID, "ok")
	require.NoError(t, err)

	logs, err := svc.History(context.Background(), drafter(), d.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, shared.ApprovalSubmit, logs[0].Action)
	require.Equal(t, shared.ApprovalApprove, logs[1].Action)
}
