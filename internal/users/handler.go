package users

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
	"github.com/ridgeline-pm/ridgeline/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validate: validator.New()}
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(perm.ManageUsers))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/{id}/permissions", h.replacePermissions)
		r.Post("/{id}/permissions/grant", h.grant)
		r.Post("/{id}/permissions/revoke", h.revoke)
		r.Post("/{id}/role", h.assignRole)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/reactivate", h.reactivate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(perm.ManageUsers, perm.AccessAdminPanel))
		r.Get("/roles", h.roles)
		r.Get("/permissions/catalog", h.catalog)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	meta := shared.NewPagination(page, perPage, len(list))
	start := (meta.Page - 1) * meta.PerPage
	if start > len(list) {
		start = len(list)
	}
	end := start + meta.PerPage
	if end > len(list) {
		end = len(list)
	}

	views := make([]View, 0, end-start)
	for _, u := range list[start:end] {
		views = append(views, NewView(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views, "pagination": meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(user))
}

type createPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	user, err := h.service.Create(r.Context(), actor.UserID, CreateInput{
		Email:    payload.Email,
		Name:     payload.Name,
		Password: payload.Password,
		Role:     perm.Role(payload.Role),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewView(user))
}

type permissionPayload struct {
	Permission string `json:"permission" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	h.mutateFlag(w, r, h.service.GrantFlag)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.mutateFlag(w, r, h.service.RevokeFlag)
}

func (h *Handler) mutateFlag(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, userID int64, flagName string) (User, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload permissionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	user, err := op(r.Context(), actor.UserID, id, payload.Permission)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(user))
}

func (h *Handler) replacePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Permissions int64 `json:"permissions"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	user, err := h.service.ReplacePermissions(r.Context(), actor.UserID, id, payload.Permissions)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(user))
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Role string `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	user, err := h.service.AssignRole(r.Context(), actor.UserID, id, perm.Role(payload.Role))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(user))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor.UserID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Reactivate(r.Context(), actor.UserID, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) roles(w http.ResponseWriter, r *http.Request) {
	type roleView struct {
		Name        string   `json:"name"`
		Permissions int64    `json:"permissions"`
		Grants      []string `json:"grants"`
	}
	views := make([]roleView, 0, len(perm.Roles()))
	for _, role := range perm.Roles() {
		tpl, _ := perm.Template(role)
		views = append(views, roleView{Name: string(role), Permissions: int64(tpl), Grants: tpl.Names()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": views})
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	type flagView struct {
		Name  string `json:"name"`
		Value int64  `json:"value"`
	}
	flags := make([]flagView, 0, len(perm.Catalog()))
	for _, f := range perm.Catalog() {
		flags = append(flags, flagView{Name: f.Name(), Value: int64(f)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": flags})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
	case errors.Is(err, ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrUnknownFlag), errors.Is(err, ErrInvalidValue):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrStaleValue):
		httpx.Problem(w, http.StatusConflict, "Conflict", "permissions changed concurrently, retry")
	default:
		h.logger.Error("users handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
