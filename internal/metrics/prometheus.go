package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Watcher metrics
	watchEventsTotal   prometheus.Counter
	triggersTotal      *prometheus.CounterVec

	// Dispatcher metrics
	triggersIgnoredTotal *prometheus.CounterVec
	pipelineRunsTotal    *prometheus.CounterVec
	pipelineDuration     *prometheus.HistogramVec
	eventsInFlight       prometheus.Gauge

	// Pipeline step metrics
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	// EventBus metrics
	bufferSize      prometheus.Gauge
	bufferCapacity  prometheus.Gauge
	emitErrorsTotal prometheus.Counter

	// Reconciler metrics
	staleTriggers prometheus.Gauge
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initWatcherMetrics(reg)
	s.initDispatcherMetrics(reg)
	s.initStepMetrics(reg)
	s.initEventBusMetrics(reg)
	s.initReconcilerMetrics(reg)
	return s
}

func (s *PrometheusSink) initWatcherMetrics(reg prometheus.Registerer) {
	s.watchEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "domaind_watcher_events_total",
		Help: "Total number of filesystem create events observed.",
	})
	s.triggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domaind_triggers_total",
		Help: "Total number of triggers emitted onto the bus.",
	}, []string{"kind"})

	s.register(reg, s.watchEventsTotal, "domaind_watcher_events_total")
	s.register(reg, s.triggersTotal, "domaind_triggers_total")
}

func (s *PrometheusSink) initDispatcherMetrics(reg prometheus.Registerer) {
	s.triggersIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domaind_triggers_ignored_total",
		Help: "Total number of triggers ignored before dispatch.",
	}, []string{"reason"})
	s.pipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domaind_pipeline_runs_total",
		Help: "Total number of completed pipeline runs.",
	}, []string{"kind", "outcome"})
	s.pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domaind_pipeline_duration_seconds",
		Help:    "Duration of a full pipeline run, including external calls.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})
	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "domaind_dispatcher_events_in_flight",
		Help: "Number of triggers currently being processed (0 or 1).",
	})

	s.register(reg, s.triggersIgnoredTotal, "domaind_triggers_ignored_total")
	s.register(reg, s.pipelineRunsTotal, "domaind_pipeline_runs_total")
	s.register(reg, s.pipelineDuration, "domaind_pipeline_duration_seconds")
	s.register(reg, s.eventsInFlight, "domaind_dispatcher_events_in_flight")
}

func (s *PrometheusSink) initStepMetrics(reg prometheus.Registerer) {
	s.stepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domaind_pipeline_steps_total",
		Help: "Total number of completed pipeline steps.",
	}, []string{"pipeline", "step", "outcome"})
	s.stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domaind_pipeline_step_duration_seconds",
		Help:    "Duration of individual pipeline steps.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"pipeline", "step"})

	s.register(reg, s.stepsTotal, "domaind_pipeline_steps_total")
	s.register(reg, s.stepDuration, "domaind_pipeline_step_duration_seconds")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "domaind_eventbus_buffer_size",
		Help: "Current number of triggers in the event bus buffer.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "domaind_eventbus_buffer_capacity",
		Help: "Configured event bus buffer capacity.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "domaind_eventbus_emit_errors_total",
		Help: "Total number of emit errors (context cancelled on full buffer).",
	})

	s.register(reg, s.bufferSize, "domaind_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "domaind_eventbus_buffer_capacity")
	s.register(reg, s.emitErrorsTotal, "domaind_eventbus_emit_errors_total")
}

func (s *PrometheusSink) initReconcilerMetrics(reg prometheus.Registerer) {
	s.staleTriggers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "domaind_reconciler_stale_triggers",
		Help: "Number of stale markers found by the last reconciler scan.",
	})

	s.register(reg, s.staleTriggers, "domaind_reconciler_stale_triggers")
}

// register attempts to register a collector, logging any errors without
// propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Watcher metrics implementation

func (s *PrometheusSink) WatchEventReceived() {
	s.watchEventsTotal.Inc()
}

func (s *PrometheusSink) TriggerEmitted(kind string) {
	s.triggersTotal.WithLabelValues(kind).Inc()
}

// Dispatcher metrics implementation

func (s *PrometheusSink) TriggerIgnored(reason string) {
	s.triggersIgnoredTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) PipelineCompleted(kind, outcome string, duration time.Duration) {
	s.pipelineRunsTotal.WithLabelValues(kind, outcome).Inc()
	s.pipelineDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

// Pipeline step metrics implementation

func (s *PrometheusSink) StepCompleted(pipeline, step, outcome string, duration time.Duration) {
	s.stepsTotal.WithLabelValues(pipeline, step, outcome).Inc()
	s.stepDuration.WithLabelValues(pipeline, step).Observe(duration.Seconds())
}

// EventBus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

// Reconciler metrics implementation

func (s *PrometheusSink) StaleTriggersFound(count int) {
	s.staleTriggers.Set(float64(count))
}
