package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris/scholaris/internal/app"
	"github.com/scholaris/scholaris/internal/auth"
	"github.com/scholaris/scholaris/internal/authz"
	"github.com/scholaris/scholaris/internal/observability"
	"github.com/scholaris/scholaris/internal/permissions"
	"github.com/scholaris/scholaris/internal/platform/cache"
	"github.com/scholaris/scholaris/internal/platform/db"
	"github.com/scholaris/scholaris/internal/roles"
	"github.com/scholaris/scholaris/internal/shared"
	"github.com/scholaris/scholaris/internal/students"
	"github.com/scholaris/scholaris/internal/users"
	"github.com/scholaris/scholaris/jobs"
)

func main() {
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

	sessionManager := shared.NewSessionManager(redisClient, "scholaris_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

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

	permCache := authz.NewVersionedCache(redisClient, cfg.PermissionCacheTTL)
	store := authz.NewPGStore(pool)
	resolver := authz.NewResolver(store, permCache)
	gate := authz.NewGate(resolver, logger)
	invalidator := authz.NewInvalidator(permCache, jobClient, logger)
	guard := authz.Middleware{Gate: gate, Logger: logger, Audit: auditLogger, Metrics: metrics}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, resolver)

	permissionsRepo := permissions.NewRepository(pool)
	permissionsService := permissions.NewService(permissionsRepo, invalidator, auditLogger, logger)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, &guard)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, invalidator, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, &guard)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, invalidator, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, &guard)

	studentsRepo := students.NewRepository(pool)
	studentsService := students.NewService(studentsRepo)
	studentsHandler := students.NewHandler(logger, studentsService, &guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		UsersHandler:       usersHandler,
		StudentsHandler:    studentsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
