package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunOutcome string

const (
	RunOutcomeSucceeded RunOutcome = "succeeded"
	RunOutcomeFailed    RunOutcome = "failed"
)

// PipelineEvent records the outcome of one pipeline run, for the optional
// analytics sink. Analytics is a best-effort side channel and never affects
// trigger processing.
type PipelineEvent struct {
	RunID   uuid.UUID
	Domain  string
	Kind    TriggerKind
	Outcome RunOutcome
	Error   string // empty on success

	Duration   time.Duration
	FinishedAt time.Time
}
