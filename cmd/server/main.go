// Package main is the entry point for the speech practice progression
// service. It wires the challenge catalog, PostgreSQL persistence, the Redis
// leaderboard cache, the event bus, the background scheduler, and the REST
// API together.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Speak-Craft/backend/config"
	"github.com/Speak-Craft/backend/internal/application/command"
	"github.com/Speak-Craft/backend/internal/application/eventhandler"
	"github.com/Speak-Craft/backend/internal/application/query"
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/infrastructure/messaging"
	"github.com/Speak-Craft/backend/internal/infrastructure/persistence/postgres"
	"github.com/Speak-Craft/backend/internal/infrastructure/persistence/redis"
	"github.com/Speak-Craft/backend/internal/infrastructure/scheduler"
	"github.com/Speak-Craft/backend/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/Speak-Craft/backend/internal/interface/http"
	"github.com/Speak-Craft/backend/internal/interface/http/handlers"
	"github.com/Speak-Craft/backend/pkg/logger"
	"github.com/Speak-Craft/backend/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Logging.Level),
	})
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	log.Info("starting service",
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Challenge catalog
	// ─────────────────────────────────────────────────────────────────────────
	catalog := challenge.Default()
	if cfg.Catalog.Path != "" {
		catalog, err = challenge.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
		}
		log.Info("loaded catalog override", logger.String("path", cfg.Catalog.Path))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	var conn *postgres.Connection
	err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
		var connErr error
		if cfg.Database.URL != "" {
			conn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		} else {
			pgCfg := postgres.DefaultConfig()
			pgCfg.Host = cfg.Database.Host
			pgCfg.Port = cfg.Database.Port
			pgCfg.User = cfg.Database.User
			pgCfg.Password = cfg.Database.Password
			pgCfg.Database = cfg.Database.Name
			pgCfg.SSLMode = cfg.Database.SSLMode
			pgCfg.MaxConns = int32(cfg.Database.MaxConns)
			pgCfg.MinConns = int32(cfg.Database.MinConns)
			pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
			conn, connErr = postgres.NewConnection(ctx, pgCfg)
		}
		return connErr
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if cfg.Database.RunMigrations {
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	stateRepo := postgres.NewProgressionRepository(conn)
	sessionRepo := postgres.NewSessionRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// Redis leaderboard cache (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var lbCache leaderboard.Cache
	if !cfg.Redis.Disabled {
		err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
			redisCfg := redis.DefaultConfig()
			redisCfg.Host = cfg.Redis.Host
			redisCfg.Port = cfg.Redis.Port
			redisCfg.Password = cfg.Redis.Password
			redisCfg.DB = cfg.Redis.DB

			var cacheErr error
			redisCache, cacheErr = redis.NewCache(redisCfg)
			return cacheErr
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisCache.Close()

		lbCache = redis.NewBreakeredLeaderboardCache(
			redis.NewLeaderboardCache(redisCache, redis.DefaultLeaderboardTTL),
			log,
		)
	} else {
		log.Warn("redis disabled, leaderboard recomputed on every read")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = slogger
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = bus.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	startChallenge := command.NewStartChallengeHandler(catalog, stateRepo, sessionRepo)
	submitSession := command.NewSubmitSessionHandler(catalog, stateRepo, sessionRepo, bus)
	getProgress := query.NewGetProgressHandler(catalog, stateRepo, sessionRepo)
	getLeaderboard := query.NewGetLeaderboardHandler(sessionRepo, stateRepo, lbCache)
	getUserRank := query.NewGetUserRankHandler(sessionRepo, stateRepo)
	getPaceSummary := query.NewGetPaceSummaryHandler(sessionRepo)

	if lbCache != nil {
		invalidator := eventhandler.NewOnLeaderboardInvalidatedHandler(lbCache, log)
		if err := bus.Subscribe(invalidator.EventType(), invalidator.Handle); err != nil {
			return fmt.Errorf("subscribe leaderboard invalidator: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled && lbCache != nil {
		sched = scheduler.NewScheduler(slogger)

		refreshCfg := jobs.DefaultRefreshLeaderboardConfig()
		refreshCfg.Limit = cfg.Leaderboard.Limit
		refreshJob := jobs.NewRefreshLeaderboardJob(getLeaderboard, lbCache, slogger, refreshCfg)

		schedule := scheduler.NewIntervalSchedule(cfg.Scheduler.LeaderboardRefreshInterval)
		if err := sched.Register(refreshJob, schedule); err != nil {
			return fmt.Errorf("register refresh job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("postgres", handlers.NewPingCheck(conn))
	if redisCache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))
	}

	server := httpserver.NewServer(httpserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeyHeader:   cfg.Server.APIKeyHeader,
		APIKeyHashes:   cfg.Server.APIKeyHashes,
	}, httpserver.Dependencies{
		StartChallenge: startChallenge,
		SubmitSession:  submitSession,
		GetProgress:    getProgress,
		GetLeaderboard: getLeaderboard,
		GetUserRank:    getUserRank,
		GetPaceSummary: getPaceSummary,
		Logger:         log,
		HealthChecker:  health,
	})

	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// Shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	log.Info("service stopped")
	return nil
}
