// Package dispatcher consumes classified triggers from the event bus and
// runs the matching pipeline, strictly one trigger at a time. This single
// flight is the system's whole concurrency story: because only one pipeline
// executes at once, the shared zone/key/config directories never see
// concurrent writers and a service reload never races an in-flight write.
package dispatcher

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tildeverse/domaind/internal/domain"
	"github.com/tildeverse/domaind/internal/trigger"
)

// Pipelines runs the ordered step sequences for one domain.
type Pipelines interface {
	Provision(ctx context.Context, name string) (message string, err error)
	Decommission(ctx context.Context, name string) error
	Renew(ctx context.Context, name string) error
}

// StatusReporter writes exactly one outcome per run back to the marker.
type StatusReporter interface {
	Success(path, message string) error
	Failure(path string, runErr error) error
	Clear(path string) error
}

// AnalyticsSink records run outcomes as a best-effort side effect.
// Implementations handle their own errors; analytics never affects
// trigger processing.
type AnalyticsSink interface {
	Record(ctx context.Context, event domain.PipelineEvent)
}

// MetricsSink records dispatcher metrics. All methods are non-blocking and
// fire-and-forget.
type MetricsSink interface {
	TriggerIgnored(reason string)
	PipelineCompleted(kind, outcome string, duration time.Duration)
	EventsInFlightIncr()
	EventsInFlightDecr()
}

// Ignore reasons for the TriggerIgnored metric.
const (
	IgnoreReasonRootOwned = "root_owned"
	IgnoreReasonGone      = "marker_gone"
	IgnoreReasonStat      = "stat_error"
)

// DefaultDrainTimeout bounds processing of buffered triggers after the
// shutdown signal.
const DefaultDrainTimeout = 30 * time.Second

type Dispatcher struct {
	pipelines Pipelines
	reporter  StatusReporter
	analytics AnalyticsSink // optional, nil = disabled
	metrics   MetricsSink   // optional, nil = disabled

	drainTimeout time.Duration

	// ownerUID is swappable for tests.
	ownerUID func(path string) (int, error)

	clock func() time.Time
}

func New(pipelines Pipelines, reporter StatusReporter) *Dispatcher {
	return &Dispatcher{
		pipelines:    pipelines,
		reporter:     reporter,
		drainTimeout: DefaultDrainTimeout,
		ownerUID:     trigger.OwnerUID,
		clock:        time.Now,
	}
}

func (d *Dispatcher) WithAnalytics(sink AnalyticsSink) *Dispatcher {
	d.analytics = sink
	return d
}

// WithMetrics attaches a metrics sink to the dispatcher.
func (d *Dispatcher) WithMetrics(sink MetricsSink) *Dispatcher {
	d.metrics = sink
	return d
}

func (d *Dispatcher) WithDrainTimeout(t time.Duration) *Dispatcher {
	d.drainTimeout = t
	return d
}

// Run processes triggers from the channel until the context is cancelled.
// After cancellation, it drains remaining buffered triggers with a timeout.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan domain.Trigger) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ch)
			return
		case trig := <-ch:
			if err := d.Dispatch(ctx, trig); err != nil {
				log.Printf("dispatcher: error: %v", err)
			}
		}
	}
}

// drain processes triggers left in the channel buffer after the shutdown
// signal. Uses a background context since the main context is cancelled.
func (d *Dispatcher) drain(ch <-chan domain.Trigger) {
	drainCtx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("dispatcher: drain timeout, processed %d triggers", count)
			}
			return
		case trig, ok := <-ch:
			if !ok {
				log.Printf("dispatcher: drain complete, processed %d triggers", count)
				return
			}
			if err := d.Dispatch(drainCtx, trig); err != nil {
				log.Printf("dispatcher: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("dispatcher: drain complete, processed %d triggers", count)
			}
			return
		}
	}
}

// Dispatch guards and runs a single trigger to completion, including every
// external call, before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, trig domain.Trigger) error {
	if d.metrics != nil {
		d.metrics.EventsInFlightIncr()
		defer d.metrics.EventsInFlightDecr()
	}

	// Renew triggers are synthesized internally; they have no marker file to
	// guard or report into.
	if trig.Kind == domain.TriggerKindRenew {
		return d.dispatchRenew(ctx, trig)
	}

	if !d.guard(&trig) {
		return nil
	}

	started := d.clock()
	var runErr error

	switch trig.Kind {
	case domain.TriggerKindCreate:
		var msg string
		msg, runErr = d.pipelines.Provision(ctx, trig.Domain)
		if runErr == nil {
			if err := d.reporter.Success(trig.Path, msg); err != nil {
				log.Printf("dispatcher: run=%s domain=%s: %v", trig.RunID, trig.Domain, err)
			}
		}
	case domain.TriggerKindRemove:
		runErr = d.pipelines.Decommission(ctx, trig.Domain)
		if runErr == nil {
			if err := d.reporter.Clear(trig.Path); err != nil {
				log.Printf("dispatcher: run=%s domain=%s: %v", trig.RunID, trig.Domain, err)
			}
		}
	default:
		log.Printf("dispatcher: run=%s unknown trigger kind %q", trig.RunID, trig.Kind)
		return nil
	}

	if runErr != nil {
		log.Printf("dispatcher: run=%s domain=%s kind=%s failed: %v", trig.RunID, trig.Domain, trig.Kind, runErr)
		if err := d.reporter.Failure(trig.Path, runErr); err != nil {
			log.Printf("dispatcher: run=%s domain=%s: %v", trig.RunID, trig.Domain, err)
		}
	} else {
		log.Printf("dispatcher: run=%s domain=%s kind=%s succeeded", trig.RunID, trig.Domain, trig.Kind)
	}

	d.finish(ctx, trig, started, runErr)
	return nil
}

// guard inspects the marker's owner immediately before dispatch. Root-owned
// markers are silently ignored: not processed, not deleted, no status
// written. The debug log line is the only trace, so the behavior stays
// indistinguishable from "not a trigger" for the file's owner.
func (d *Dispatcher) guard(trig *domain.Trigger) bool {
	uid, err := d.ownerUID(trig.Path)
	if err != nil {
		reason := IgnoreReasonStat
		if os.IsNotExist(err) {
			// Marker vanished between the event and dispatch.
			reason = IgnoreReasonGone
		}
		log.Printf("dispatcher: run=%s ignoring %s: %v", trig.RunID, trig.Path, err)
		if d.metrics != nil {
			d.metrics.TriggerIgnored(reason)
		}
		return false
	}

	trig.OwnerUID = uid
	if uid == 0 {
		log.Printf("dispatcher: run=%s ignoring root-owned marker %s", trig.RunID, trig.Path)
		if d.metrics != nil {
			d.metrics.TriggerIgnored(IgnoreReasonRootOwned)
		}
		return false
	}
	return true
}

func (d *Dispatcher) dispatchRenew(ctx context.Context, trig domain.Trigger) error {
	started := d.clock()
	runErr := d.pipelines.Renew(ctx, trig.Domain)
	if runErr != nil {
		log.Printf("dispatcher: run=%s domain=%s renewal failed: %v", trig.RunID, trig.Domain, runErr)
	} else {
		log.Printf("dispatcher: run=%s domain=%s renewed", trig.RunID, trig.Domain)
	}
	d.finish(ctx, trig, started, runErr)
	return nil
}

// finish records metrics and analytics for a completed run.
func (d *Dispatcher) finish(ctx context.Context, trig domain.Trigger, started time.Time, runErr error) {
	duration := d.clock().Sub(started)

	outcome := domain.RunOutcomeSucceeded
	errText := ""
	if runErr != nil {
		outcome = domain.RunOutcomeFailed
		errText = runErr.Error()
	}

	if d.metrics != nil {
		d.metrics.PipelineCompleted(string(trig.Kind), string(outcome), duration)
	}
	if d.analytics != nil {
		d.analytics.Record(ctx, domain.PipelineEvent{
			RunID:      trig.RunID,
			Domain:     trig.Domain,
			Kind:       trig.Kind,
			Outcome:    outcome,
			Error:      errText,
			Duration:   duration,
			FinishedAt: d.clock().UTC(),
		})
	}
}
