package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "nomadnova:events"

// Config holds configuration for RedisPublisher.
type Config struct {
	Channel          string
	PublishTimeout   time.Duration
	SubscribeTimeout time.Duration
	EventBufferSize  int
}

func DefaultConfig() Config {
	return Config{
		Channel:          DefaultChannel,
		PublishTimeout:   5 * time.Second,
		SubscribeTimeout: 10 * time.Second,
		EventBufferSize:  100,
	}
}

// ConfigFrom maps the event service section of the app config, falling back
// to defaults for unset values.
func ConfigFrom(cfg config.EventServiceConfig) Config {
	out := DefaultConfig()
	if cfg.Channel != "" {
		out.Channel = cfg.Channel
	}
	if cfg.PublishTimeoutSeconds > 0 {
		out.PublishTimeout = time.Duration(cfg.PublishTimeoutSeconds) * time.Second
	}
	if cfg.SubscribeTimeoutSeconds > 0 {
		out.SubscribeTimeout = time.Duration(cfg.SubscribeTimeoutSeconds) * time.Second
	}
	if cfg.EventBufferSize > 0 {
		out.EventBufferSize = cfg.EventBufferSize
	}
	return out
}

type metrics struct {
	publishLatency    prometheus.Histogram
	errorCount        *prometheus.CounterVec
	eventCount        *prometheus.CounterVec
	activeSubscribers prometheus.Gauge
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		factory := promauto.With(defaultRegistry)
		metricsInstance = &metrics{
			publishLatency: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "nomadnova_realtime_publish_duration_seconds",
				Help:    "Time taken to publish events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_realtime_errors_total",
				Help: "Total number of event-related errors",
			}, []string{"operation", "type"}),
			eventCount: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_realtime_events_total",
				Help: "Total number of events by operation and name",
			}, []string{"operation", "event"}),
			activeSubscribers: factory.NewGauge(prometheus.GaugeOpts{
				Name: "nomadnova_realtime_active_subscribers",
				Help: "Current number of active subscriptions",
			}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

// RedisPublisher publishes every event on one Redis channel and fans the
// channel back out to local subscribers.
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var (
	_ types.EventPublisher  = (*RedisPublisher)(nil)
	_ types.EventSubscriber = (*RedisPublisher)(nil)
)

func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
		cancels: make(map[string]context.CancelFunc),
	}
}

// prepare fills defaults and validates.
func prepare(event types.Event) (types.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	return event, event.Validate()
}

func (p *RedisPublisher) Publish(ctx context.Context, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	event, err := prepare(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.config.Channel, data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues("publish", string(event.Name)).Inc()
	return nil
}

// Subscribe streams events from the shared channel until ctx is cancelled or
// the publisher shuts down. Slow consumers lose events rather than block.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan types.Event, error) {
	pubsub := p.rdb.Subscribe(ctx, p.config.Channel)

	recvCtx, cancelRecv := context.WithTimeout(ctx, p.config.SubscribeTimeout)
	_, err := pubsub.Receive(recvCtx)
	cancelRecv()
	if err != nil {
		_ = pubsub.Close()
		p.metrics.errorCount.WithLabelValues("subscribe", "redis").Inc()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	subID := uuid.NewString()
	subCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancels[subID] = cancel
	p.mu.Unlock()

	out := make(chan types.Event, p.config.EventBufferSize)
	p.metrics.activeSubscribers.Inc()
	p.wg.Add(1)
	go p.processMessages(subCtx, subID, pubsub, out)

	return out, nil
}

func (p *RedisPublisher) processMessages(ctx context.Context, subID string, pubsub *redis.PubSub, out chan<- types.Event) {
	defer p.wg.Done()
	defer func() {
		if err := pubsub.Close(); err != nil {
			p.log.Errorw("Error closing pubsub", "error", err, "subscription", subID)
		}
		p.mu.Lock()
		delete(p.cancels, subID)
		p.mu.Unlock()
		close(out)
		p.metrics.activeSubscribers.Dec()
		p.log.Infow("Subscription closed", "subscription", subID)
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, err := decodeEvent(msg.Payload)
			if err != nil {
				p.metrics.errorCount.WithLabelValues("process", "unmarshal").Inc()
				p.log.Errorw("Failed to unmarshal event", "error", err, "subscription", subID)
				continue
			}
			select {
			case out <- event:
				p.metrics.eventCount.WithLabelValues("receive", string(event.Name)).Inc()
			default:
				p.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
				p.log.Warnw("Dropped event due to full channel", "subscription", subID, "event", event.Name)
			}
		}
	}
}

func decodeEvent(payload string) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, err
	}
	return event, nil
}

// Shutdown cancels every subscription and waits for their goroutines.
func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("RedisPublisher shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
