// Package analytics records pipeline run outcomes in Redis as a best-effort
// side channel: daily per-kind/per-outcome counters and the last run per
// domain. Recording failures are logged and never affect trigger
// processing; a circuit breaker skips recording entirely while Redis is
// down.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tildeverse/domaind/internal/circuitbreaker"
	"github.com/tildeverse/domaind/internal/domain"
)

// breakerKey identifies the single Redis backend to the keyed breaker.
const breakerKey = "redis"

// recordTimeout bounds each write so a slow backend cannot stall the
// dispatcher between triggers.
const recordTimeout = 2 * time.Second

// counterRetention is the TTL on daily counters.
const counterRetention = 30 * 24 * time.Hour

type RedisSink struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	clock   func() time.Time
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{
		client: client,
		clock:  time.Now,
	}
}

// WithBreaker guards recording with a circuit breaker.
func (s *RedisSink) WithBreaker(cb *circuitbreaker.CircuitBreaker) *RedisSink {
	s.breaker = cb
	return s
}

// Record writes one pipeline event. Errors are swallowed after logging.
func (s *RedisSink) Record(ctx context.Context, event domain.PipelineEvent) {
	if s.breaker != nil {
		if err := s.breaker.Allow(breakerKey); err != nil {
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	err := s.write(ctx, event)
	if s.breaker != nil {
		if err != nil {
			s.breaker.RecordFailure(breakerKey)
		} else {
			s.breaker.RecordSuccess(breakerKey)
		}
	}
	if err != nil {
		log.Printf("analytics: record run=%s: %v", event.RunID, err)
	}
}

func (s *RedisSink) write(ctx context.Context, event domain.PipelineEvent) error {
	counter := counterKey(event.Kind, event.Outcome, event.FinishedAt)
	lastRun := fmt.Sprintf("domaind:last:%s", event.Domain)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, counter)
	pipe.Expire(ctx, counter, counterRetention)
	pipe.HSet(ctx, lastRun, map[string]any{
		"run_id":      event.RunID.String(),
		"kind":        string(event.Kind),
		"outcome":     string(event.Outcome),
		"error":       event.Error,
		"duration_ms": event.Duration.Milliseconds(),
		"finished_at": event.FinishedAt.Format(time.RFC3339),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func counterKey(kind domain.TriggerKind, outcome domain.RunOutcome, t time.Time) string {
	return fmt.Sprintf("domaind:runs:%s:%s:%s", kind, outcome, t.UTC().Format("20060102"))
}
