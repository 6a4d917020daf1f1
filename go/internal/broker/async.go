package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// AsyncPublisher queues events and publishes them from a single goroutine
// so that callers holding locks never wait on the network
type AsyncPublisher struct {
	publisher Publisher
	queue     chan MatchEvent
	timeout   time.Duration

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewAsyncPublisher wraps publisher with a queue of the given size
func NewAsyncPublisher(publisher Publisher, size int) *AsyncPublisher {
	return &AsyncPublisher{
		publisher: publisher,
		queue:     make(chan MatchEvent, size),
		timeout:   5 * time.Second,
	}
}

// Enqueue schedules event without blocking; the event is dropped when the queue is full
func (a *AsyncPublisher) Enqueue(event MatchEvent) bool {
	select {
	case a.queue <- event:
		return true
	default:
		a.dropped.Add(1)
		log.Warn().
			Str("event_type", event.Type).
			Str("room_id", event.RoomID).
			Msg("match event queue full, dropping event")
		return false
	}
}

// Start publishes queued events until ctx is done, then drains what is left
func (a *AsyncPublisher) Start(ctx context.Context) {
	log.Info().Msg("match event publisher started")

	for {
		select {
		case <-ctx.Done():
			a.drain()
			log.Info().Msg("match event publisher stopped")
			return
		case event := <-a.queue:
			a.publish(context.Background(), event)
		}
	}
}

func (a *AsyncPublisher) drain() {
	for {
		select {
		case event := <-a.queue:
			a.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (a *AsyncPublisher) publish(ctx context.Context, event MatchEvent) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.publisher.Publish(ctx, event); err != nil {
		a.failed.Add(1)
		log.Error().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("event_type", event.Type).
			Msg("failed to publish match event")
		return
	}
	a.published.Add(1)
}

// Stats reports publish counters
func (a *AsyncPublisher) Stats() map[string]int64 {
	return map[string]int64{
		"published": a.published.Load(),
		"dropped":   a.dropped.Load(),
		"failed":    a.failed.Load(),
		"queued":    int64(len(a.queue)),
	}
}

// Close closes the underlying publisher
func (a *AsyncPublisher) Close() error {
	return a.publisher.Close()
}
