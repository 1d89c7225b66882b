package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/student-auth/internal/api/http"
	"github.com/spec-kit/student-auth/internal/api/http/handlers"
	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/config"
	"github.com/spec-kit/student-auth/internal/events"
	"github.com/spec-kit/student-auth/internal/observability"
	"github.com/spec-kit/student-auth/internal/persistence"
	"github.com/spec-kit/student-auth/internal/repository"
	"github.com/spec-kit/student-auth/internal/service"
	"github.com/spec-kit/student-auth/internal/worker"
	"github.com/spec-kit/student-auth/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		applied, err := persistence.RunMigrations(ctx, pool, migrations.Files, logger)
		if err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("migrations complete", zap.Int("applied", applied))
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clk := clock.WallClock
	codec, err := auth.NewCodec(cfg.Auth.JWTSecret, clk)
	if err != nil {
		logger.Fatal("invalid jwt secret", zap.Error(err))
	}
	issuer := auth.NewIssuer(codec, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	validator := auth.NewValidator(codec, clk, logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	events.SubscribeAudit(dispatcher, logger, metrics)

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewRefreshTokenRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:         userRepo,
		RefreshTokenRepo: tokenRepo,
		Tx:               repository.NewTransactor(pool),
		Hasher:           auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Issuer:           issuer,
		Validator:        validator,
		Clock:            clk,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	studentService := service.NewStudentService(studentRepo, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var redisProbe handlers.Pinger
	if redis.Enabled() {
		redisProbe = redis
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisProbe, metrics),
		Auth:           handlers.NewAuthHandler(authService, clk, cfg.App.Name),
		Students:       handlers.NewStudentsHandler(studentService),
		AuthMiddleware: auth.NewAuthMiddleware(validator, logger),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if cfg.Sweeper.Enabled {
		var lock worker.SweepLock = worker.LocalSweepLock{}
		if redis.Enabled() {
			lock = worker.NewRedisSweepLock(redis.Client, worker.DefaultSweepLockKey, uuid.NewString())
		}
		sweeper := worker.NewTokenSweeper(worker.SweeperConfig{
			Cleaner:  authService,
			Lock:     lock,
			Clock:    clk,
			Interval: cfg.Sweeper.Interval(),
			Recorder: metrics,
			Logger:   logger,
		})
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped with error", zap.Error(err))
	}
}
