package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/materials"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/scope"
	"github.com/ridgeline-pm/ridgeline/internal/tasks"
)

// ErrDenied indicates the actor lacks the export flag.
var ErrDenied = errors.New("export: access denied")

// ProjectsPort resolves and authorizes the exported project.
type ProjectsPort interface {
	Authorize(ctx context.Context, actor authz.Actor, projectID int64) (projects.Project, error)
}

// ScopePort lists scope items for export.
type ScopePort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]scope.Item, error)
}

// MaterialsPort lists material specs for export.
type MaterialsPort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]materials.Spec, error)
}

// TasksPort lists tasks for export.
type TasksPort interface {
	List(ctx context.Context, actor authz.Actor, projectID int64) ([]tasks.Task, error)
}

// Service streams CSV exports. Cost columns are withheld from actors
// lacking the financial view flag, mirroring the JSON redaction.
type Service struct {
	projects  ProjectsPort
	scope     ScopePort
	materials MaterialsPort
	tasks     TasksPort
	now       func() time.Time
}

// NewService constructs the export service.
func NewService(projectsPort ProjectsPort, scopePort ScopePort, materialsPort MaterialsPort, tasksPort TasksPort) *Service {
	return &Service{
		projects:  projectsPort,
		scope:     scopePort,
		materials: materialsPort,
		tasks:     tasksPort,
		now:       time.Now,
	}
}

func (s *Service) authorize(ctx context.Context, actor authz.Actor, projectID int64) (projects.Project, error) {
	if !actor.Perms.Has(perm.ExportData) {
		return projects.Project{}, ErrDenied
	}
	return s.projects.Authorize(ctx, actor, projectID)
}

func (s *Service) header(streamer *csvStreamer, project projects.Project, section string, costsHidden bool) error {
	if err := streamer.writeComment(fmt.Sprintf("# Project: %s (%s) | Export: %s", project.Name, project.Code, section)); err != nil {
		return err
	}
	if err := streamer.writeComment("# Generated: " + s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if costsHidden {
		return streamer.writeComment("# Cost columns withheld")
	}
	return nil
}

// ScopeCSV streams the project's scope items.
func (s *Service) ScopeCSV(ctx context.Context, actor authz.Actor, projectID int64, w io.Writer) error {
	project, err := s.authorize(ctx, actor, projectID)
	if err != nil {
		return err
	}
	items, err := s.scope.List(ctx, actor, projectID)
	if err != nil {
		return err
	}
	withCosts := perm.CanViewCosts(actor.Perms)
	streamer := newCSVStreamer(w)
	if err := s.header(streamer, project, "Scope Items", !withCosts); err != nil {
		return err
	}
	header := []string{"ID", "Title", "Category", "Unit", "Quantity", "Status"}
	if withCosts {
		header = append(header, "Unit Cost", "Total Cost")
	}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	var total float64
	for _, item := range items {
		row := []string{
			fmt.Sprintf("%d", item.ID),
			item.Title,
			item.Category,
			item.Unit,
			formatQuantity(item.Quantity),
			string(item.Status),
		}
		if withCosts {
			row = append(row, formatMoney(item.UnitCost), formatMoney(item.TotalCost))
			total += item.TotalCost
		}
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	if withCosts {
		if err := streamer.writeRow([]string{"", "", "", "", "", "", "Total", formatMoney(total)}); err != nil {
			return err
		}
	}
	return streamer.Close()
}

// MaterialsCSV streams the project's material specs.
func (s *Service) MaterialsCSV(ctx context.Context, actor authz.Actor, projectID int64, w io.Writer) error {
	project, err := s.authorize(ctx, actor, projectID)
	if err != nil {
		return err
	}
	specs, err := s.materials.List(ctx, actor, projectID)
	if err != nil {
		return err
	}
	withCosts := perm.CanViewCosts(actor.Perms)
	streamer := newCSVStreamer(w)
	if err := s.header(streamer, project, "Material Specs", !withCosts); err != nil {
		return err
	}
	header := []string{"ID", "Name", "Manufacturer", "Model", "Unit", "Quantity", "Status"}
	if withCosts {
		header = append(header, "Unit Price", "Total Price")
	}
	if err := streamer.writeRow(header); err != nil {
		return err
	}
	for _, spec := range specs {
		row := []string{
			fmt.Sprintf("%d", spec.ID),
			spec.Name,
			spec.Manufacturer,
			spec.Model,
			spec.Unit,
			formatQuantity(spec.Quantity),
			string(spec.Status),
		}
		if withCosts {
			row = append(row, formatMoney(spec.UnitPrice), formatMoney(spec.TotalPrice))
		}
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	return streamer.Close()
}

// TasksCSV streams the project's tasks.
func (s *Service) TasksCSV(ctx context.Context, actor authz.Actor, projectID int64, w io.Writer) error {
	project, err := s.authorize(ctx, actor, projectID)
	if err != nil {
		return err
	}
	list, err := s.tasks.List(ctx, actor, projectID)
	if err != nil {
		return err
	}
	streamer := newCSVStreamer(w)
	if err := s.header(streamer, project, "Tasks", false); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"ID", "Title", "Status", "Priority", "Assignee", "Due"}); err != nil {
		return err
	}
	for _, t := range list {
		assignee := ""
		if t.AssigneeID != nil {
			assignee = fmt.Sprintf("%d", *t.AssigneeID)
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		if err := streamer.writeRow([]string{
			fmt.Sprintf("%d", t.ID),
			t.Title,
			string(t.Status),
			string(t.Priority),
			assignee,
			due,
		}); err != nil {
			return err
		}
	}
	return streamer.Close()
}
