package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/card-service/internal/platform/logger"
)

// AsyncPublisher emits events in the background so callers never wait on
// the event channel.
type AsyncPublisher struct {
	emitter EventEmitter
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewAsyncPublisher wraps emitter.
// If logger is nil, a default logger will be used.
func NewAsyncPublisher(emitter EventEmitter, logger *slog.Logger) *AsyncPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncPublisher{
		emitter: emitter,
		logger:  logger.With("component", "async_publisher"),
	}
}

// Publish emits event on a new goroutine and returns immediately. The
// returned channel receives the outcome exactly once; callers may ignore it.
// Cancelling ctx after Publish returns does not stop the emit.
func (p *AsyncPublisher) Publish(ctx context.Context, event *Event) <-chan error {
	done := make(chan error, 1)
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContextOrDefault(ctx, p.logger)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		err := p.emitter.EmitEvent(ctx, event)
		if err != nil {
			log.Error("failed to publish event",
				slog.String("error", err.Error()),
				slog.String("event_id", event.ID.String()),
				slog.String("topic", event.Topic))
		} else {
			log.Info("event published",
				slog.String("event_id", event.ID.String()),
				slog.String("topic", event.Topic),
				slog.String("event_type", event.Type))
		}
		done <- err
	}()

	return done
}

// Wait blocks until every publish started so far has finished.
func (p *AsyncPublisher) Wait() {
	p.wg.Wait()
}
