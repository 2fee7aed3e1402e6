package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	"github.com/NomadCrew/nomadnova-backend/db"
	"github.com/NomadCrew/nomadnova-backend/handlers"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/events"
	"github.com/NomadCrew/nomadnova-backend/internal/scheduler"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/internal/store/memory"
	"github.com/NomadCrew/nomadnova-backend/internal/store/postgres"
	"github.com/NomadCrew/nomadnova-backend/internal/websocket"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	membershipservice "github.com/NomadCrew/nomadnova-backend/models/membership/service"
	notificationservice "github.com/NomadCrew/nomadnova-backend/models/notification/service"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	tripservice "github.com/NomadCrew/nomadnova-backend/models/trip/service"
	"github.com/NomadCrew/nomadnova-backend/router"
	"github.com/NomadCrew/nomadnova-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// appStore is implemented by both the postgres and the in-memory store.
type appStore interface {
	Trips() store.TripStore
	Memberships() store.MembershipStore
	Economies() store.EconomyStore
	Notifications() store.NotificationStore
	Ping(ctx context.Context) error
}

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		dataStore appStore
		dbClient  *db.DatabaseClient
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		dataStore = memory.NewStore()
	default:
		if err := db.RunMigrations(cfg.Database.URL()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		poolConfig, err := config.ConfigurePostgresPool(&cfg.Database)
		if err != nil {
			log.Fatalf("Failed to configure database pool: %v", err)
		}
		dbClient = db.NewDatabaseClient(poolConfig)
		pool, err := dbClient.Connect(ctx)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		dataStore = postgres.NewStore(pool)
	}

	redisClient := redis.NewClient(config.ConfigureRedisOptions(&cfg.Redis))
	if err := config.TestRedisConnection(redisClient); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()

	redisPublisher := events.NewRedisPublisher(redisClient, events.ConfigFrom(cfg.EventService))
	publisher := events.NewAsyncPublisher(workerPool, redisPublisher)

	clk := clock.Real{}
	notificationService := notificationservice.NewNotificationService(dataStore.Notifications(), publisher, clk)
	rewardsService := rewardsservice.NewRewardsService(dataStore.Economies(), publisher, notificationService, clk, cfg.Rewards)
	ledger := membershipservice.NewLedger(dataStore.Trips(), dataStore.Memberships(), rewardsService, notificationService, clk)
	tripService := tripservice.NewTripService(dataStore.Trips(), dataStore.Memberships(), rewardsService, notificationService, clk)
	completionService := tripservice.NewCompletionService(dataStore.Trips(), dataStore.Memberships(), rewardsService, notificationService, clk, cfg.Scheduler)

	var sweepScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sweepScheduler = scheduler.NewScheduler(completionService, cfg.Scheduler)
		if err := sweepScheduler.Start(); err != nil {
			log.Fatalf("Failed to start completion scheduler: %v", err)
		}
	}

	hub := websocket.NewHub(redisPublisher)
	if err := hub.Start(ctx); err != nil {
		log.Fatalf("Failed to start websocket hub: %v", err)
	}

	jwtValidator, err := middleware.NewJWTValidator(cfg.Server.JwtSecretKey)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	healthService := services.NewHealthService(dataStore, redisClient, cfg.Server.Version)
	healthService.SetActiveConnectionsGetter(hub.GetConnectionCount)
	if dbClient != nil {
		pool := dbClient.GetPool()
		healthService.SetPoolUsageGetter(func() (int32, int32) {
			stat := pool.Stat()
			return stat.AcquiredConns(), stat.MaxConns()
		})
	}

	r := router.SetupRouter(router.Dependencies{
		Config:              cfg,
		JWTValidator:        jwtValidator,
		RedisClient:         redisClient,
		TripHandler:         handlers.NewTripHandler(tripService, ledger),
		MemberHandler:       handlers.NewMemberHandler(ledger),
		EconomyHandler:      handlers.NewEconomyHandler(rewardsService),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		HealthHandler:       handlers.NewHealthHandler(healthService),
		WSHandler:           websocket.NewHandler(hub, cfg.Server),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Errorw("Completion scheduler did not stop cleanly", "error", err)
		}
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool did not drain", "error", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Websocket hub shutdown failed", "error", err)
	}
	if err := redisPublisher.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Redis publisher shutdown failed", "error", err)
	}
	if dbClient != nil {
		dbClient.Close()
	}
	if err := redisClient.Close(); err != nil {
		log.Errorw("Redis close failed", "error", err)
	}
	log.Info("Server stopped")
}
