package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betting-pool/internal/auth"
	"betting-pool/internal/cache"
	"betting-pool/internal/config"
	"betting-pool/internal/database"
	"betting-pool/internal/events"
	"betting-pool/internal/handlers"
	"betting-pool/internal/jobs"
	"betting-pool/internal/logger"
	"betting-pool/internal/metrics"
	"betting-pool/internal/repository"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New("betting-pool", cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize repository
	var repoOpts []repository.Option
	if cfg.Database.Driver == "postgres" {
		repoOpts = append(repoOpts, repository.WithIsolation(cfg.Database.TxIsolation))
	}
	repo := repository.NewRepository(db, repoOpts...)

	// Pool stats cache
	var poolCache cache.PoolStatsCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			zlog.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		poolCache = cache.NewRedisPoolStatsCache(rdb, cfg.Redis.PoolStatsTTL)
		zlog.Info("pool stats cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Domain events
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zlog.Info("event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := services.Deps{
		Repo:      repo,
		Logger:    zlog,
		Cache:     poolCache,
		Publisher: publisher,
		Metrics:   metrics.New(registry),
	}

	// Initialize services
	svc := handlers.Services{
		Users:          services.NewUserService(deps, cfg.App.InitialBalance),
		Bets:           services.NewBetService(deps, cfg.App.DefaultCommissionRate),
		Pool:           services.NewPoolService(deps),
		Participation:  services.NewParticipationService(deps, cfg.App.MinimumStake),
		Settlement:     services.NewSettlementService(deps),
		Ledger:         services.NewLedgerService(deps),
		Admin:          services.NewAdminService(deps),
		Reconciliation: services.NewReconciliationService(deps),
	}

	// Start reconciliation job
	reconcileJob := jobs.NewReconcileJob(svc.Reconciliation, cfg.Jobs.ReconcileInterval, zlog)
	if err := reconcileJob.Start(); err != nil {
		zlog.Fatal("failed to start reconciliation job", zap.Error(err))
	}

	router := handlers.NewRouter(svc, cfg.Server.FrontendURL, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), zlog)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if err := reconcileJob.Stop(); err != nil {
		zlog.Error("failed to stop reconciliation job", zap.Error(err))
	}

	zlog.Info("server exited")
}
