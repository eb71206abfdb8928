package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/user/rank-tracker/internal/adapter/browser"
	"github.com/user/rank-tracker/internal/adapter/postgres"
	"github.com/user/rank-tracker/internal/adapter/redis"
	"github.com/user/rank-tracker/internal/api"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/platform"
	"github.com/user/rank-tracker/internal/resolver"
	"github.com/user/rank-tracker/internal/usecase"
	"github.com/user/rank-tracker/pkg/config"
	"github.com/user/rank-tracker/pkg/logger"
	"github.com/user/rank-tracker/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer log.Sync()

	metrics.Init()

	// Storage layer
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	taskRepo := postgres.NewTaskRepo(pool)
	rankRepo := postgres.NewRankRepo(pool)
	trafficRepo := postgres.NewTrafficRepo(pool)
	slotRepo := postgres.NewSlotRepo(pool)
	cooldownRepo := redis.NewCooldownRepo(redisClient)

	// Platform scrapers
	registry := platform.DefaultRegistry()
	if err := registry.Validate([]entity.Platform{
		entity.PlatformCoupang,
		entity.PlatformCoupangApp,
		entity.PlatformNaverShopping,
		entity.PlatformPlace,
	}); err != nil {
		log.Fatal("scraper registry incomplete", zap.Error(err))
	}

	// Crawl pipeline
	session := browser.NewSessionManager(cfg.PageLoadTimeout(), log)
	res := resolver.New(resolver.Bounds{
		MaxPages:          cfg.MaxPages,
		MaxCandidates:     cfg.MaxCandidates,
		MinExhaustedDepth: cfg.MinExhaustedDepth,
		FailureBudget:     cfg.PageFailureBudget,
	}, log)

	// Usecases
	recorder := usecase.NewRecorder(rankRepo, log)
	gate := usecase.NewGate(cooldownRepo, cfg.CooldownWindow(), log)
	trigger := usecase.NewManualTrigger(gate, slotRepo, taskRepo, log)
	traffic := usecase.NewTrafficSimulator(trafficRepo, log)
	orchestrator := usecase.NewOrchestrator(taskRepo, registry, session, res, recorder, usecase.OrchestratorOptions{
		IdleSleep:      cfg.IdleSleep(),
		ErrorSleep:     cfg.ErrorSleep(),
		InterTaskPause: cfg.InterTaskPause(),
	}, log)

	// Traffic scheduler
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.TrafficTickSpec, func() {
		if _, err := traffic.Tick(context.Background()); err != nil {
			log.Error("scheduled traffic tick failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("invalid traffic tick spec", zap.Error(err))
	}
	if _, err := scheduler.AddFunc(cfg.TrafficDailyResetSpec, func() {
		if _, err := traffic.DailyReset(context.Background()); err != nil {
			log.Error("scheduled traffic reset failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("invalid traffic reset spec", zap.Error(err))
	}
	scheduler.Start()

	// API server
	server := api.NewServer(cfg, recorder, gate, trigger, traffic, taskRepo, cooldownRepo, log)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := orchestrator.Run(runCtx); err != nil && err != context.Canceled {
			log.Error("orchestrator stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	log.Info("rank tracker started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
