package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) WatchEventReceived()                                             {}
func (n *NoopSink) TriggerEmitted(kind string)                                      {}
func (n *NoopSink) TriggerIgnored(reason string)                                    {}
func (n *NoopSink) PipelineCompleted(kind, outcome string, d time.Duration)         {}
func (n *NoopSink) EventsInFlightIncr()                                             {}
func (n *NoopSink) EventsInFlightDecr()                                             {}
func (n *NoopSink) StepCompleted(pipeline, step, outcome string, d time.Duration)   {}
func (n *NoopSink) BufferSizeUpdate(size int)                                       {}
func (n *NoopSink) BufferCapacitySet(capacity int)                                  {}
func (n *NoopSink) EmitError()                                                      {}
func (n *NoopSink) StaleTriggersFound(count int)                                    {}
