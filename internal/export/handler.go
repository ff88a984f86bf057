package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/platform/httpx"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Handler serves CSV downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/export/scope.csv", h.scope)
	r.Get("/projects/{projectID}/export/materials.csv", h.materials)
	r.Get("/projects/{projectID}/export/tasks.csv", h.tasks)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "scope", h.service.ScopeCSV)
}

func (h *Handler) materials(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "materials", h.service.MaterialsCSV)
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "tasks", h.service.TasksCSV)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, name string, write func(ctx context.Context, actor authz.Actor, projectID int64, w io.Writer) error) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid projectID")
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())

	// Authorize before any bytes go out so denials still produce a
	// proper problem response.
	if _, err := h.service.authorize(r.Context(), actor, projectID); err != nil {
		switch {
		case errors.Is(err, ErrDenied), errors.Is(err, projects.ErrDenied):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient rights")
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
		default:
			h.logger.Error("export authorize", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("project-%d-%s.csv", projectID, name)))

	if err := write(r.Context(), actor, projectID, w); err != nil {
		// Headers were already written; the truncated download is all
		// the client can observe.
		h.logger.Error("export stream", slog.String("export", name), slog.Any("error", err))
	}
}
