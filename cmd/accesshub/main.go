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

	"golang.org/x/sync/errgroup"

	"github.com/accesshub/accesshub/internal/app"
	"github.com/accesshub/accesshub/internal/auth"
	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/command"
	"github.com/accesshub/accesshub/internal/dashboard"
	"github.com/accesshub/accesshub/internal/identity"
	"github.com/accesshub/accesshub/internal/observability"
	"github.com/accesshub/accesshub/internal/platform/cache"
	"github.com/accesshub/accesshub/internal/platform/db"
	"github.com/accesshub/accesshub/internal/platform/ratelimit"
	"github.com/accesshub/accesshub/internal/rbac"
	"github.com/accesshub/accesshub/internal/users"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	resolver := identity.NewResolver(dbpool)
	guard := authz.NewGuard(tokens, resolver, logger)
	mw := authz.Middleware{Guard: guard, Observe: metrics.RecordAuthzDecision}

	var loginLimiter, signupLimiter *ratelimit.Limiter
	if redisClient != nil {
		loginLimiter = ratelimit.New(redisClient, "rl:login", cfg.LoginRateLimit, time.Minute)
		signupLimiter = ratelimit.New(redisClient, "rl:signup", cfg.SignupRateLimit, time.Minute)
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, resolver, tokens, cfg.BcryptCost)
	authHandler := auth.NewHandler(logger, authService, mw, loginLimiter, signupLimiter)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo)
	rbacHandler := rbac.NewHandler(logger, rbacService, mw)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacService, mw)

	executor := command.NewExecutor(rbacService)
	commandHandler := command.NewHandler(logger, executor, mw)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardHandler := dashboard.NewHandler(logger, dashboardRepo, mw)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		UsersHandler:     usersHandler,
		CommandHandler:   commandHandler,
		DashboardHandler: dashboardHandler,
		Pool:             dbpool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
