package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func getCounterVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_PipelineCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.PipelineCompleted("create", OutcomeSucceeded, 2*time.Second)
	sink.PipelineCompleted("create", OutcomeFailed, time.Second)
	sink.PipelineCompleted("remove", OutcomeSucceeded, time.Second)

	if got := getCounterVecValue(t, reg, "domaind_pipeline_runs_total",
		map[string]string{"kind": "create", "outcome": OutcomeSucceeded}); got != 1 {
		t.Errorf("create/succeeded = %v, want 1", got)
	}
	if got := getCounterVecValue(t, reg, "domaind_pipeline_runs_total",
		map[string]string{"kind": "create", "outcome": OutcomeFailed}); got != 1 {
		t.Errorf("create/failed = %v, want 1", got)
	}
}

func TestPrometheusSink_TriggerIgnored(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.TriggerIgnored("root_owned")
	sink.TriggerIgnored("root_owned")

	if got := getCounterVecValue(t, reg, "domaind_triggers_ignored_total",
		map[string]string{"reason": "root_owned"}); got != 2 {
		t.Errorf("ignored root_owned = %v, want 2", got)
	}
}

func TestPrometheusSink_EventsInFlight(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.EventsInFlightIncr()
	if got := getGaugeValue(t, reg, "domaind_dispatcher_events_in_flight"); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	sink.EventsInFlightDecr()
	if got := getGaugeValue(t, reg, "domaind_dispatcher_events_in_flight"); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestPrometheusSink_BufferGauges(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.BufferCapacitySet(100)
	sink.BufferSizeUpdate(7)

	if got := getGaugeValue(t, reg, "domaind_eventbus_buffer_capacity"); got != 100 {
		t.Errorf("capacity = %v, want 100", got)
	}
	if got := getGaugeValue(t, reg, "domaind_eventbus_buffer_size"); got != 7 {
		t.Errorf("size = %v, want 7", got)
	}
}

func TestPrometheusSink_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusSink(reg)
	// Second sink against the same registry logs registration errors but
	// must stay functional.
	sink := NewPrometheusSink(reg)
	sink.PipelineCompleted("create", OutcomeSucceeded, time.Second)
}
