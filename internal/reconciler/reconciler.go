// Package reconciler detects and emits stale trigger markers.
//
// The watcher only sees files created while the daemon runs. A marker
// created before startup, or during a watcher gap, would otherwise wait
// forever. The reconciler scans every user home for markers on startup and
// on an interval and re-emits them.
//
// Only empty markers are emitted: a processed marker either carries a
// status message (provision success or any failure) or is gone (removal
// success), so a non-empty marker is a finished run, not a pending request.
package reconciler

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tildeverse/domaind/internal/domain"
	"github.com/tildeverse/domaind/internal/trigger"
)

// EventEmitter delivers triggers to the dispatcher.
type EventEmitter interface {
	Emit(ctx context.Context, trig domain.Trigger) error
}

// MetricsSink records reconciler metrics. Methods are fire-and-forget.
type MetricsSink interface {
	StaleTriggersFound(count int)
}

// Config holds reconciler configuration.
type Config struct {
	// Interval is how often the scan runs. Default: 5 minutes.
	Interval time.Duration
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() Config {
	return Config{Interval: 5 * time.Minute}
}

type Reconciler struct {
	config  Config
	root    string
	emitter EventEmitter
	metrics MetricsSink
	clock   func() time.Time
}

func New(config Config, root string, emitter EventEmitter) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Reconciler{
		config:  config,
		root:    root,
		emitter: emitter,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the reconciler.
func (r *Reconciler) WithMetrics(sink MetricsSink) *Reconciler {
	r.metrics = sink
	return r
}

// Run scans immediately, then on every interval tick, until the context is
// cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	log.Printf("reconciler: started (interval=%s)", r.config.Interval)

	if err := r.Scan(ctx); err != nil {
		log.Printf("reconciler: scan error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("reconciler: stopped")
			return
		case <-ticker.C:
			if err := r.Scan(ctx); err != nil {
				log.Printf("reconciler: scan error: %v", err)
			}
		}
	}
}

// Scan walks every user home once and emits a trigger per pending marker.
func (r *Reconciler) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return err
	}

	found := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, kind := range []domain.TriggerKind{domain.TriggerKindCreate, domain.TriggerKindRemove} {
			path := trigger.MarkerPath(r.root, e.Name(), kind)
			if !pendingMarker(path) {
				continue
			}

			trig := domain.Trigger{
				RunID:    uuid.New(),
				Domain:   e.Name(),
				Kind:     kind,
				Path:     path,
				OwnerUID: -1,
				FiredAt:  r.clock().UTC(),
			}
			if err := r.emitter.Emit(ctx, trig); err != nil {
				return err
			}
			log.Printf("reconciler: run=%s domain=%s kind=%s (stale marker)", trig.RunID, trig.Domain, trig.Kind)
			found++
		}
	}

	if r.metrics != nil {
		r.metrics.StaleTriggersFound(found)
	}
	return nil
}

// pendingMarker reports whether path is an existing, still-empty marker.
func pendingMarker(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Size() == 0
}
