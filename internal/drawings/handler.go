package drawings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/platform/httpx"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Handler manages shop drawing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers drawing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/drawings", h.list)
	r.Post("/projects/{projectID}/drawings", h.create)
	r.Get("/drawings/{id}", h.get)
	r.Put("/drawings/{id}", h.update)
	r.Delete("/drawings/{id}", h.delete)
	r.Post("/drawings/{id}/submit", h.submit)
	r.Post("/drawings/{id}/approve", h.approve)
	r.Post("/drawings/{id}/reject", h.reject)
	r.Get("/drawings/{id}/history", h.history)
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
	httpx.JSON(w, http.StatusOK, map[string]any{"drawings": items})
}

type drawingPayload struct {
	Number     string `json:"number" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Discipline string `json:"discipline"`
	FileURL    string `json:"file_url" validate:"omitempty,url"`
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
	d, err := h.service.Create(r.Context(), actor, projectID, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	d, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
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
	d, err := h.service.Update(r.Context(), actor, id, payload)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
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
	d, err := h.service.Submit(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
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

func (h *Handler) review(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor authz.Actor, id int64, note string) (Drawing, error)) {
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
	d, err := op(r.Context(), actor, id, payload.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
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
	var payload drawingPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return Input{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Input{}, false
	}
	return Input{
		Number:     payload.Number,
		Title:      payload.Title,
		Discipline: payload.Discipline,
		FileURL:    payload.FileURL,
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "drawing not found")
	case errors.Is(err, ErrDenied), errors.Is(err, projects.ErrDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient rights")
	case errors.Is(err, ErrBadTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("drawings handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
