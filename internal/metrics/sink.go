package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or
// propagate errors. If the metrics backend is unavailable, implementations
// log warnings and continue.
type Sink interface {
	// Watcher metrics
	WatchEventReceived()
	TriggerEmitted(kind string)

	// Dispatcher metrics
	TriggerIgnored(reason string)
	PipelineCompleted(kind, outcome string, duration time.Duration)
	EventsInFlightIncr()
	EventsInFlightDecr()

	// Pipeline step metrics
	StepCompleted(pipeline, step, outcome string, duration time.Duration)

	// EventBus metrics
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()

	// Reconciler metrics
	StaleTriggersFound(count int)
}

// Outcome constants for PipelineCompleted and StepCompleted.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)
