package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/ridgeline-pm/ridgeline/internal/app"
	"github.com/ridgeline-pm/ridgeline/internal/auth"
	"github.com/ridgeline-pm/ridgeline/internal/authz"
	"github.com/ridgeline-pm/ridgeline/internal/dashboard"
	"github.com/ridgeline-pm/ridgeline/internal/drawings"
	"github.com/ridgeline-pm/ridgeline/internal/export"
	"github.com/ridgeline-pm/ridgeline/internal/materials"
	"github.com/ridgeline-pm/ridgeline/internal/observability"
	"github.com/ridgeline-pm/ridgeline/internal/platform/cache"
	"github.com/ridgeline-pm/ridgeline/internal/platform/db"
	"github.com/ridgeline-pm/ridgeline/internal/projects"
	"github.com/ridgeline-pm/ridgeline/internal/scope"
	"github.com/ridgeline-pm/ridgeline/internal/shared"
	"github.com/ridgeline-pm/ridgeline/internal/tasks"
	"github.com/ridgeline-pm/ridgeline/internal/users"
	"github.com/ridgeline-pm/ridgeline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ridgeline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)

	authzMiddleware := authz.Middleware{Source: usersRepo, Logger: logger}
	usersHandler := users.NewHandler(logger, usersService, authzMiddleware)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo, auditLogger)
	projectsHandler := projects.NewHandler(logger, projectsService)

	scopeRepo := scope.NewRepository(pool)
	scopeService := scope.NewService(scopeRepo, projectsService)
	scopeHandler := scope.NewHandler(logger, scopeService)

	drawingsRepo := drawings.NewRepository(pool)
	drawingsService := drawings.NewService(drawingsRepo, projectsService, approvalRecorder, jobClient)
	drawingsHandler := drawings.NewHandler(logger, drawingsService)

	materialsRepo := materials.NewRepository(pool)
	materialsService := materials.NewService(materialsRepo, projectsService, approvalRecorder, jobClient)
	materialsHandler := materials.NewHandler(logger, materialsService)

	tasksRepo := tasks.NewRepository(pool)
	tasksService := tasks.NewService(tasksRepo, projectsService)
	tasksHandler := tasks.NewHandler(logger, tasksService)

	dashboardService := dashboard.NewService(projectsService, tasksService, scopeService, drawingsService, materialsService)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	exportService := export.NewService(projectsService, scopeService, materialsService, tasksService)
	exportHandler := export.NewHandler(logger, exportService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		Authz:          authzMiddleware,
		Auth:           authHandler,
		Users:          usersHandler,
		Projects:       projectsHandler,
		Scope:          scopeHandler,
		Drawings:       drawingsHandler,
		Materials:      materialsHandler,
		Tasks:          tasksHandler,
		Dashboard:      dashboardHandler,
		Export:         exportHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
