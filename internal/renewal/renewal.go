// Package renewal periodically re-issues certificates for every
// provisioned domain. Provisioned domains are discovered from the zone
// directory, keeping the filesystem the only state. Sweeps emit renew
// triggers onto the same bus as marker triggers, so renewals serialize with
// pipeline runs and never race a service reload.
package renewal

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tildeverse/domaind/internal/domain"
)

// EventEmitter delivers renew triggers to the dispatcher.
type EventEmitter interface {
	Emit(ctx context.Context, trig domain.Trigger) error
}

// ParseSchedule parses a standard 5-field cron expression, optionally
// evaluated in an IANA timezone.
func ParseSchedule(expression, timezone string) (cron.Schedule, error) {
	if timezone != "" {
		expression = "CRON_TZ=" + timezone + " " + expression
	}
	sched, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expression, err)
	}
	return sched, nil
}

type Sweeper struct {
	schedule cron.Schedule
	zoneDir  string
	emitter  EventEmitter
	clock    func() time.Time
}

func New(schedule cron.Schedule, zoneDir string, emitter EventEmitter) *Sweeper {
	return &Sweeper{
		schedule: schedule,
		zoneDir:  zoneDir,
		emitter:  emitter,
		clock:    time.Now,
	}
}

// Run fires sweeps on the schedule until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Println("renewal: started")

	for {
		now := s.clock()
		next := s.schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			log.Println("renewal: stopped")
			return
		case <-timer.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("renewal: sweep error: %v", err)
			}
		}
	}
}

// Sweep emits one renew trigger per provisioned domain.
func (s *Sweeper) Sweep(ctx context.Context) error {
	domains, err := s.provisionedDomains()
	if err != nil {
		return err
	}

	for _, name := range domains {
		trig := domain.Trigger{
			RunID:   uuid.New(),
			Domain:  name,
			Kind:    domain.TriggerKindRenew,
			FiredAt: s.clock().UTC(),
		}
		if err := s.emitter.Emit(ctx, trig); err != nil {
			return err
		}
	}

	log.Printf("renewal: sweep queued %d domains", len(domains))
	return nil
}

// provisionedDomains lists domains by their zone files: one zone file per
// provisioned domain is an invariant of the pipelines.
func (s *Sweeper) provisionedDomains() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.zoneDir, "*.zone"))
	if err != nil {
		return nil, fmt.Errorf("glob zone dir: %w", err)
	}

	domains := make([]string, 0, len(matches))
	for _, m := range matches {
		domains = append(domains, strings.TrimSuffix(filepath.Base(m), ".zone"))
	}
	return domains, nil
}
