// Package scheduler runs the trip completion sweep on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	"github.com/NomadCrew/nomadnova-backend/logger"
	tripservice "github.com/NomadCrew/nomadnova-backend/models/trip/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultInterval is used when the configuration leaves the schedule empty.
const DefaultInterval = "@every 60s"

var ErrAlreadyStarted = errors.New("scheduler already started")

// Sweeper is the unit of work run on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) (*tripservice.SweepResult, error)
}

// Scheduler owns one cron instance with a single sweep entry. Ticks that
// arrive while a sweep is still running are skipped.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	interval string
	log      *zap.SugaredLogger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(sweeper Sweeper, cfg config.SchedulerConfig) *Scheduler {
	log := logger.GetLogger().Named("scheduler")
	cl := cronLogger{log: log}
	interval := cfg.Interval
	if interval == "" {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the sweep and starts the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if _, err := s.cron.AddFunc(s.interval, s.tick); err != nil {
		return fmt.Errorf("register completion sweep %q: %w", s.interval, err)
	}
	s.cron.Start()
	s.started = true
	s.log.Infow("Completion scheduler started", "interval", s.interval)
	return nil
}

// RunOnce runs a sweep immediately on the caller's goroutine.
func (s *Scheduler) RunOnce(ctx context.Context) (*tripservice.SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}

// Stop cancels an in-flight sweep and waits for it to return or for ctx to
// expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info("Completion scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Completion scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	result, err := s.sweeper.Sweep(s.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.Errorw("Completion sweep failed", "error", err)
		return
	}
	if result != nil && result.Failed > 0 {
		s.log.Warnw("Completion sweep left trips for the next tick", "failed", result.Failed)
	}
	if result != nil && result.SideEffectFailures > 0 {
		s.log.Errorw("Completion sweep lost rewards or notifications", "sideEffectFailures", result.SideEffectFailures)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
