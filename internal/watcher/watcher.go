// Package watcher turns kernel filesystem events under the home directory
// root into classified triggers on the event bus.
//
// inotify watches are not recursive, so the watcher covers the root plus
// each first-level user directory, and adds a watch whenever a new user
// directory appears. Only create events matter; everything else under a
// home is ignored.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/tildeverse/domaind/internal/domain"
	"github.com/tildeverse/domaind/internal/trigger"
)

// EventEmitter delivers classified triggers to the dispatcher.
type EventEmitter interface {
	Emit(ctx context.Context, trig domain.Trigger) error
}

// MetricsSink records watcher metrics. Methods are fire-and-forget.
type MetricsSink interface {
	WatchEventReceived()
	TriggerEmitted(kind string)
}

type Watcher struct {
	root    string
	emitter EventEmitter
	metrics MetricsSink
	clock   func() time.Time
}

func New(root string, emitter EventEmitter) *Watcher {
	return &Watcher{
		root:    root,
		emitter: emitter,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the watcher.
func (w *Watcher) WithMetrics(sink MetricsSink) *Watcher {
	w.metrics = sink
	return w
}

// Run watches until the context is cancelled. Watch errors are logged and
// the loop keeps going; the reconciler covers anything a dropped event
// would have missed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	if err := w.watchUserDirs(fsw); err != nil {
		return err
	}

	log.Printf("watcher: started, root=%s", w.root)

	for {
		select {
		case <-ctx.Done():
			log.Println("watcher: stopped")
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher: event stream closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handleCreate(ctx, fsw, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher: error stream closed")
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// watchUserDirs adds a watch for every existing first-level directory.
func (w *Watcher) watchUserDirs(fsw *fsnotify.Watcher) error {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := fsw.Add(filepath.Join(w.root, e.Name())); err != nil {
			log.Printf("watcher: watch %s: %v", e.Name(), err)
		}
	}
	return nil
}

func (w *Watcher) handleCreate(ctx context.Context, fsw *fsnotify.Watcher, path string) {
	if w.metrics != nil {
		w.metrics.WatchEventReceived()
	}

	// A new directory directly under the root is a new user home.
	if filepath.Dir(path) == w.root {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			if err := fsw.Add(path); err != nil {
				log.Printf("watcher: watch %s: %v", path, err)
			}
		}
		return
	}

	name, kind, ok := trigger.Classify(w.root, path)
	if !ok {
		return
	}

	trig := domain.Trigger{
		RunID:    uuid.New(),
		Domain:   name,
		Kind:     kind,
		Path:     path,
		OwnerUID: -1,
		FiredAt:  w.clock().UTC(),
	}

	if err := w.emitter.Emit(ctx, trig); err != nil {
		log.Printf("watcher: emit %s: %v", path, err)
		return
	}
	log.Printf("watcher: run=%s domain=%s kind=%s", trig.RunID, trig.Domain, trig.Kind)
	if w.metrics != nil {
		w.metrics.TriggerEmitted(string(kind))
	}
}
