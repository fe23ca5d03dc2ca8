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

	"github.com/campusquiz/campusquiz/internal/app"
	"github.com/campusquiz/campusquiz/internal/auth"
	"github.com/campusquiz/campusquiz/internal/observability"
	"github.com/campusquiz/campusquiz/internal/platform/cache"
	"github.com/campusquiz/campusquiz/internal/platform/db"
	"github.com/campusquiz/campusquiz/internal/quiz"
	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/roles"
	"github.com/campusquiz/campusquiz/internal/users"
	"github.com/campusquiz/campusquiz/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient := jobs.NewClient(redisOpts.QueueOpts())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts.QueueOpts())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("init tokens", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, logger, metrics)
	registry := rbac.NewRegistry()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Registry: registry, Logger: logger}

	quizService := quiz.NewService(quiz.NewRepository(dbpool), quiz.Options{
		Publisher:   jobClient,
		Leaderboard: jobs.NewLeaderboard(redisClient, cfg.LeaderboardTTL),
		Recorder:    metrics,
		Logger:      logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokens,
		AuthHandler:        auth.NewHandler(logger, authService),
		QuizHandler:        quiz.NewHandler(logger, quizService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	// Every guarded route is mounted now, so the registry is complete.
	if _, err := rbac.NewSeeder(rbacRepo, logger).Seed(ctx, registry.Discover()); err != nil {
		logger.Error("seed permissions", slog.Any("error", err))
		os.Exit(1)
	}

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
