// Package db owns the PostgreSQL connection lifecycle and schema migrations.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = time.Second
)

// DatabaseClient creates and owns a pgxpool.Pool, retrying the initial
// connection while the database is still starting.
type DatabaseClient struct {
	pool       *pgxpool.Pool
	config     *pgxpool.Config
	mu         sync.RWMutex
	maxRetries int
	retryDelay time.Duration
}

func NewDatabaseClient(config *pgxpool.Config) *DatabaseClient {
	return &DatabaseClient{
		config:     config,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Connect creates the pool and pings it, backing off linearly between attempts.
func (dc *DatabaseClient) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.pool != nil {
		return dc.pool, nil
	}
	if dc.config == nil {
		return nil, fmt.Errorf("cannot connect: database configuration not available")
	}

	log := logger.GetLogger()
	var lastErr error
	for attempt := 1; attempt <= dc.maxRetries; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, dc.config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				dc.pool = pool
				log.Infow("Connected to database", "attempt", attempt)
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		log.Warnw("Database connection attempt failed",
			"attempt", attempt,
			"maxRetries", dc.maxRetries,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dc.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", dc.maxRetries, lastErr)
}

// GetPool returns the pool, or nil before Connect succeeds.
func (dc *DatabaseClient) GetPool() *pgxpool.Pool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.pool
}

func (dc *DatabaseClient) Close() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.pool != nil {
		dc.pool.Close()
		dc.pool = nil
	}
}
