package materials

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

// Handler manages material spec endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers material spec routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/materials", h.list)
	r.Post("/projects/{projectID}/materials", h.create)
	r.Get("/materials/{id}", h.get)
	r.Put("/materials/{id}", h.update)
	r.Delete("/materials/{id}", h.delete)
	r.Post("/materials/{id}/submit", h.submit)
	r.Post("/materials/{id}/approve", h.approve)
	r.Post("/materials/{id}/reject", h.reject)
	r.Get("/materials/{id}/history", h.history)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "projectID")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	specs, err := h.service.List(r.Context(), actor, projectID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	records := make([]map[string]any, len(specs))
	for i, spec := range specs {
		records[i] = spec.Record()
	}
	records = perm.FilterFinancial(records, actor.Perms, CostFields)
	httpx.JSON(w, http.StatusOK, map[string]any{"material_specs": records})
}

type specPayload struct {
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	UnitPrice    float64 `json:"unit_price" validate:"gte=0"`
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
	spec, err := h.service.Create(r.Context(), actor, projectID, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm.RedactRecord(spec.Record(), actor.Perms, CostFields))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	spec, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(spec.Record(), actor.Perms, CostFields))
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
	spec, err := h.service.Update(r.Context(), actor, id, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(spec.Record(), actor.Perms, CostFields))
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
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	spec, err := h.service.Submit(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(spec.Record(), actor.Perms, CostFields))
}

type reviewPayload struct {
	Note string `json:"note"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor authz.Actor, id int64, note string) (Spec, error)) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload reviewPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
			return
		}
	}
	actor, _ := authz.ActorFromContext(r.Context())
	spec, err := op(r.Context(), actor, id, payload.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm.RedactRecord(spec.Record(), actor.Perms, CostFields))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	logs, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": logs})
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var payload specPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return Input{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Input{}, false
	}
	return Input{
		Name:         payload.Name,
		Description:  payload.Description,
		Manufacturer: payload.Manufacturer,
		Model:        payload.Model,
		Unit:         payload.Unit,
		Quantity:     payload.Quantity,
		UnitPrice:    payload.UnitPrice,
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "material spec not found")
	case errors.Is(err, ErrDenied), errors.Is(err, projects.ErrDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient rights")
	case errors.Is(err, ErrBadTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("materials handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
