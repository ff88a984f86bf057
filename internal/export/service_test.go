package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/materials"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/scope"
	"github.com/ridgeline-pm/ridgeline/internal/tasks"
)

type stubProjects struct{}

func (stubProjects) Authorize(_ context.Context, _ authz.Actor, projectID int64) (projects.Project, error) {
	return projects.Project{ID: projectID, Name: "Riverside Tower", Code: "RT-100"}, nil
}

type stubScope struct{ items []scope.Item }

func (s stubScope) List(_ context.Context, _ authz.Actor, _ int64) ([]scope.Item, error) {
	return s.items, nil
}

type stubMaterials struct{ specs []materials.Spec }

func (s stubMaterials) List(_ context.Context, _ authz.Actor, _ int64) ([]materials.Spec, error) {
	return s.specs, nil
}

type stubTasks struct{ list []tasks.Task }

func (s stubTasks) List(_ context.Context, _ authz.Actor, _ int64) ([]tasks.Task, error) {
	return s.list, nil
}

func fixtureService() *Service {
	svc := NewService(
		stubProjects{},
		stubScope{items: []scope.Item{
			{ID: 1, Title: "Excavation", Unit: "m3", Quantity: 1200, UnitCost: 18.5, TotalCost: 22200, Status: scope.StatusApproved},
			{ID: 2, Title: "Footings", Unit: "m3", Quantity: 300, UnitCost: 240, TotalCost: 72000, Status: scope.StatusPending},
		}},
		stubMaterials{specs: []materials.Spec{
			{ID: 1, Name: "Rebar", Manufacturer: "Acme", Unit: "t", Quantity: 40, UnitPrice: 850, TotalPrice: 34000, Status: materials.StatusApproved},
		}},
		stubTasks{list: []tasks.Task{
			{ID: 1, Title: "Mobilize", Status: tasks.StatusDone, Priority: tasks.PriorityHigh},
		}},
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func exporter(extra ...perm.Flag) authz.Actor {
	flags := append([]perm.Flag{perm.ExportData, perm.ViewAllProjects}, extra...)
	return authz.Actor{UserID: 2, Perms: perm.Combine(flags...)}
}

func TestScopeCSVRequiresExportFlag(t *testing.T) {
	svc := fixtureService()
	var buf bytes.Buffer
	err := svc.ScopeCSV(context.Background(), authz.Actor{UserID: 2, Perms: perm.Combine(perm.ViewAllProjects)}, 1, &buf)
	require.ErrorIs(t, err, ErrDenied)
	require.Zero(t, buf.Len())
}

func TestScopeCSVWithCosts(t *testing.T) {
	svc := fixtureService()
	var buf bytes.Buffer
	require.NoError(t, svc.ScopeCSV(context.Background(), exporter(perm.ViewFinancialData), 1, &buf))

	out := buf.String()
	require.Contains(t, out, "# Project: Riverside Tower (RT-100) | Export: Scope Items")
	require.Contains(t, out, "# Generated: 2026-03-01T12:00:00Z")
	require.NotContains(t, out, "# Cost columns withheld")
	require.Contains(t, out, "Unit Cost")
	require.Contains(t, out, "22,200.00")
	// The total label sits in the cell next to the amount.
	require.Contains(t, out, ",,,,,,Total,\"94,200.00\"\r\n")
	require.True(t, strings.Contains(out, "\r\n"))
}

func TestScopeCSVRedactsCosts(t *testing.T) {
	svc := fixtureService()
	var buf bytes.Buffer
	require.NoError(t, svc.ScopeCSV(context.Background(), exporter(), 1, &buf))

	out := buf.String()
	require.Contains(t, out, "# Cost columns withheld")
	require.NotContains(t, out, "Unit Cost")
	require.NotContains(t, out, "22,200.00")
	require.Contains(t, out, "Excavation")
}

func TestMaterialsCSV(t *testing.T) {
	svc := fixtureService()
	var buf bytes.Buffer
	require.NoError(t, svc.MaterialsCSV(context.Background(), exporter(perm.ViewFinancialData), 1, &buf))

	out := buf.String()
	require.Contains(t, out, "Material Specs")
	require.Contains(t, out, "Rebar")
	require.Contains(t, out, "34,000.00")
}

func TestTasksCSVHasNoCostColumns(t *testing.T) {
	svc := fixtureService()
	var buf bytes.Buffer
	require.NoError(t, svc.TasksCSV(context.Background(), exporter(), 1, &buf))

	out := buf.String()
	require.Contains(t, out, "Mobilize")
	require.Contains(t, out, "done")
	require.NotContains(t, out, "Cost")
}
