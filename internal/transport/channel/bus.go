// Package channel provides the in-memory event bus between the trigger
// sources (watcher, reconciler, renewal sweeper) and the dispatcher.
package channel

import (
	"context"

	"github.com/tildeverse/domaind/internal/domain"
)

// MetricsSink records bus buffer metrics. Methods are fire-and-forget.
type MetricsSink interface {
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()
}

type Option func(*EventBus)

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) {
		b.metrics = sink
	}
}

// EventBus carries triggers to the single dispatcher goroutine. Emit blocks
// when the buffer is full rather than dropping: trigger files are requests
// users are waiting on.
type EventBus struct {
	ch      chan domain.Trigger
	metrics MetricsSink
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch: make(chan domain.Trigger, buffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics != nil {
		b.metrics.BufferCapacitySet(buffer)
	}
	return b
}

func (b *EventBus) Emit(ctx context.Context, trig domain.Trigger) error {
	select {
	case b.ch <- trig:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ctx.Err()
	}
}

func (b *EventBus) Channel() <-chan domain.Trigger {
	return b.ch
}
