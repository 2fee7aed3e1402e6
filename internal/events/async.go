package events

import (
	"context"
	"errors"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/services"
	"github.com/NomadCrew/nomadnova-backend/types"
)

// ErrEventDropped is returned when the worker pool refused the publish job.
var ErrEventDropped = errors.New("event dropped: worker queue full")

// JobSubmitter is satisfied by *services.WorkerPool.
type JobSubmitter interface {
	Submit(job services.Job) bool
}

// AsyncPublisher hands each publish to the worker pool so request paths never
// wait on Redis.
type AsyncPublisher struct {
	pool JobSubmitter
	next types.EventPublisher
}

var _ types.EventPublisher = (*AsyncPublisher)(nil)

func NewAsyncPublisher(pool JobSubmitter, next types.EventPublisher) *AsyncPublisher {
	return &AsyncPublisher{pool: pool, next: next}
}

// Publish queues the event. The caller's ctx is not propagated because the
// request usually finishes before the job runs.
func (a *AsyncPublisher) Publish(_ context.Context, event types.Event) error {
	ok := a.pool.Submit(services.Job{
		Name: "publish:" + string(event.Name),
		Execute: func(ctx context.Context) error {
			return a.next.Publish(ctx, event)
		},
	})
	if !ok {
		logger.GetLogger().Warnw("Realtime event dropped", "event", event.Name, "userID", event.UserID)
		return ErrEventDropped
	}
	return nil
}
