package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	defaultSweepBatchSize = 100
	defaultPerTripTimeout = 15 * time.Second
)

type completionMetrics struct {
	sweeps        *prometheus.CounterVec
	duration      prometheus.Histogram
	autoCompleted prometheus.Counter
	sideEffects   prometheus.Counter
}

var (
	metricsInstance *completionMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newCompletionMetrics() *completionMetrics {
	metricsOnce.Do(func() {
		factory := promauto.With(defaultRegistry)
		metricsInstance = &completionMetrics{
			sweeps: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_completion_sweeps_total",
				Help: "Completion sweeps by result",
			}, []string{"result"}),
			duration: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "nomadnova_completion_sweep_duration_seconds",
				Help:    "Wall time of one completion sweep",
				Buckets: prometheus.DefBuckets,
			}),
			autoCompleted: factory.NewCounter(prometheus.CounterOpts{
				Name: "nomadnova_trips_auto_completed_total",
				Help: "Trips moved to completed by the sweep",
			}),
			sideEffects: factory.NewCounter(prometheus.CounterOpts{
				Name: "nomadnova_completion_side_effect_failures_total",
				Help: "Completion rewards or notifications lost after a trip was completed",
			}),
		}
	})
	return metricsInstance
}

// SweepResult summarises one sweep. SideEffectFailures counts rewards and
// notifications that failed for trips already counted in Completed; those are
// not retried.
type SweepResult struct {
	Scanned            int
	Completed          int
	Skipped            int
	Failed             int
	SideEffectFailures int
}

// CompletionService force-completes trips whose end date has passed.
type CompletionService struct {
	trips          store.TripStore
	finisher       *completionFinisher
	clock          clock.Clock
	batchSize      int
	perTripTimeout time.Duration
	log            *zap.SugaredLogger
	metrics        *completionMetrics
}

func NewCompletionService(
	trips store.TripStore,
	memberships store.MembershipStore,
	rewards rewardsservice.Awarder,
	notifier rewardsservice.Notifier,
	clk clock.Clock,
	cfg config.SchedulerConfig,
) *CompletionService {
	log := logger.GetLogger().Named("completion")
	s := &CompletionService{
		trips:          trips,
		finisher:       newCompletionFinisher(memberships, rewards, notifier, log),
		clock:          clk,
		batchSize:      cfg.BatchSize,
		perTripTimeout: cfg.PerTripTimeout(),
		log:            log,
		metrics:        newCompletionMetrics(),
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultSweepBatchSize
	}
	if s.perTripTimeout <= 0 {
		s.perTripTimeout = defaultPerTripTimeout
	}
	return s
}

// Sweep completes every expired open trip it finds, one at a time. A trip
// that fails is logged and picked up again by the next sweep; a trip that was
// completed concurrently is skipped without rewards.
func (s *CompletionService) Sweep(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	defer func() { s.metrics.duration.Observe(time.Since(start).Seconds()) }()

	now := s.clock.Now()
	expired, err := s.trips.ListExpiredTrips(ctx, now, s.batchSize)
	if err != nil {
		s.metrics.sweeps.WithLabelValues("error").Inc()
		s.log.Errorw("Failed to list expired trips", "error", err)
		return nil, err
	}

	result := &SweepResult{Scanned: len(expired)}
	for _, trip := range expired {
		if ctx.Err() != nil {
			break
		}
		lost, err := s.completeExpired(ctx, trip, now)
		switch {
		case err == nil:
			result.Completed++
			result.SideEffectFailures += lost
		case errors.Is(err, store.ErrGuardFailed):
			result.Skipped++
		default:
			result.Failed++
			s.log.Errorw("Failed to auto-complete trip", "tripID", trip.ID, "error", err)
		}
	}

	label := "success"
	if result.Failed > 0 || result.SideEffectFailures > 0 {
		label = "partial"
	}
	s.metrics.sweeps.WithLabelValues(label).Inc()
	if result.Scanned > 0 {
		s.log.Infow("Completion sweep finished",
			"scanned", result.Scanned,
			"completed", result.Completed,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"sideEffectFailures", result.SideEffectFailures)
	}
	return result, ctx.Err()
}

// completeExpired returns how many completion side effects were lost.
func (s *CompletionService) completeExpired(ctx context.Context, trip *types.Trip, now time.Time) (int, error) {
	tripCtx, cancel := context.WithTimeout(ctx, s.perTripTimeout)
	defer cancel()

	completed, err := s.trips.CompleteTrip(tripCtx, trip.ID, now, true)
	if err != nil {
		return 0, err
	}
	s.metrics.autoCompleted.Inc()

	failed := s.finisher.finish(tripCtx, completed)
	if failed > 0 {
		s.metrics.sideEffects.Add(float64(failed))
		s.log.Warnw("Trip auto-completed with failed side effects",
			"tripID", trip.ID,
			"failed", failed)
	}
	return failed, nil
}
