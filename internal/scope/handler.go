package scope

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/platform/httpx"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Handler manages scope item endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers scope routes under /projects/{projectID}/scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/scope", h.list)
	r.Post("/projects/{projectID}/scope", h.create)
	r.Get("/scope/{id}", h.get)
	r.Put("/scope/{id}", h.update)
	r.Delete("/scope/{id}", h.delete)
	r.Post("/scope/{id}/submit", h.submit)
	r.Post("/scope/{id}/approve", h.approve)
	r.Post("/scope/{id}/reject", h.reject)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	items, err := h.service.List(r.Context(), actor, projectID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	records := make([]map[string]any, len(items))
	for i, item := range items {
		records[i] = item.Record()
	}
	records = perm.FilterFinancial(records, actor.Perms, CostFields)
	httpx.JSON(w, http.StatusOK, map[string]any{"scope_items": records})
}

type itemPayload struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	item, err := h.service.Create(r.Context(), actor, projectID, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm.RedactRecord(item.Record(), actor.Perms, CostFields))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	item, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(item.Record(), actor.Perms, CostFields))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	item, err := h.service.Update(r.Context(), actor, id, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(item.Record(), actor.Perms, CostFields))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor authz.Actor, id int64) (Item, error)) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	item, err := op(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(item.Record(), actor.Perms, CostFields))
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return Input{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Input{}, false
	}
	return Input{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		Unit:        payload.Unit,
		Quantity:    payload.Quantity,
		UnitCost:    payload.UnitCost,
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "scope item not found")
	case errors.Is(err, ErrDenied), errors.Is(err, projects.ErrDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient rights")
	case errors.Is(err, ErrBadTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("scope handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
