package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ridgeline-pm/ridgeline/internal/auth"
	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/dashboard"
	"github.com/ridgeline-pm/ridgeline/internal/drawings"
	"github.com/ridgeline-pm/ridgeline/internal/export"
	"github.com/ridgeline-pm/ridgeline/internal/materials"
	"github.com/ridgeline-pm/ridgeline/internal/observability"
	"github.com/ridgeline-pm/ridgeline/internal/perm"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/scope"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
	"github.com/ridgeline-pm/ridgeline/internal/tasks"
	"github.com/ridgeline-pm/ridgeline/internal/users"
)

// RouterParams aggregates everything the HTTP router mounts.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	Authz          authz.Middleware

	Auth      *auth.Handler
	Users     *users.Handler
	Projects  *projects.Handler
	Scope     *scope.Handler
	Drawings  *drawings.Handler
	Materials *materials.Handler
	Tasks     *tasks.Handler
	Dashboard *dashboard.Handler
	Export    *export.Handler
}

// NewRouter assembles the chi router: public auth and health routes,
// then everything else behind session authentication.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         p.Logger,
		Config:         p.Config,
		SessionManager: p.SessionManager,
		CSRFManager:    p.CSRFManager,
		Metrics:        p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		p.Auth.MountRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(p.Authz.Authenticate)

			p.Projects.MountRoutes(protected)
			p.Scope.MountRoutes(protected)
			p.Drawings.MountRoutes(protected)
			p.Materials.MountRoutes(protected)
			p.Tasks.MountRoutes(protected)
			p.Dashboard.MountRoutes(protected)
			protected.Route("/users", func(r chi.Router) {
				p.Users.MountRoutes(r)
			})

			protected.Group(func(exports chi.Router) {
				exports.Use(p.Authz.Require(perm.ExportData))
				p.Export.MountRoutes(exports)
			})
		})
	})

	return r
}
