package services

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dbPingAttempts = 3

// Pinger is satisfied by *pgxpool.Pool, pgxmock pools and the stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	dbPool            Pinger
	redisClient       *redis.Client
	version           string
	log               *zap.SugaredLogger
	startTime         time.Time
	retryDelay        time.Duration
	activeConnections func() int
	poolUsage         func() (acquired, max int32)
}

func NewHealthService(dbPool Pinger, redisClient *redis.Client, version string) *HealthService {
	return &HealthService{
		dbPool:      dbPool,
		redisClient: redisClient,
		version:     version,
		log:         logger.GetLogger().Named("health"),
		startTime:   time.Now(),
		retryDelay:  100 * time.Millisecond,
	}
}

// SetActiveConnectionsGetter reports live websocket connections in health output.
func (h *HealthService) SetActiveConnectionsGetter(getter func() int) {
	h.activeConnections = getter
}

// SetPoolUsageGetter enables the connection pool saturation check.
func (h *HealthService) SetPoolUsageGetter(getter func() (acquired, max int32)) {
	h.poolUsage = getter
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	dbStatus := h.checkDatabase(ctx)
	components["database"] = dbStatus
	overallStatus = worst(overallStatus, dbStatus.Status)

	redisStatus := h.checkRedis(ctx)
	components["redis"] = redisStatus
	overallStatus = worst(overallStatus, redisStatus.Status)

	if h.activeConnections != nil {
		components["websocket"] = types.HealthComponent{
			Status:  types.HealthStatusUp,
			Details: fmt.Sprintf("%d active connections", h.activeConnections()),
		}
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

// IsLive reports whether the process is serving at all.
func (h *HealthService) IsLive() bool {
	return true
}

// IsReady reports whether dependencies are reachable enough to serve traffic.
func (h *HealthService) IsReady(ctx context.Context) bool {
	return h.CheckHealth(ctx).Status != types.HealthStatusDown
}

func worst(current, next types.HealthStatus) types.HealthStatus {
	switch {
	case current == types.HealthStatusDown || next == types.HealthStatusDown:
		return types.HealthStatusDown
	case current == types.HealthStatusDegraded || next == types.HealthStatusDegraded:
		return types.HealthStatusDegraded
	default:
		return types.HealthStatusUp
	}
}

func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	var err error
	for attempt := 1; attempt <= dbPingAttempts; attempt++ {
		if err = h.dbPool.Ping(ctx); err == nil {
			break
		}
		h.log.Warnw("Database ping failed", "attempt", attempt, "error", err)
		if attempt < dbPingAttempts && h.retryDelay > 0 {
			select {
			case <-ctx.Done():
				attempt = dbPingAttempts
			case <-time.After(h.retryDelay):
			}
		}
	}
	if err != nil {
		h.log.Errorw("Database health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Database connection failed after multiple attempts",
		}
	}

	if h.poolUsage != nil {
		acquired, max := h.poolUsage()
		if max > 0 && float64(acquired)/float64(max) > 0.8 {
			return types.HealthComponent{
				Status:  types.HealthStatusDegraded,
				Details: "Connection pool near capacity",
			}
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if h.redisClient == nil {
		return types.HealthComponent{
			Status:  types.HealthStatusUp,
			Details: "Redis not configured",
		}
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
