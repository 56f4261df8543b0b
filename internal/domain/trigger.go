package domain

import (
	"time"

	"github.com/google/uuid"
)

type TriggerKind string

const (
	// TriggerKindCreate provisions a domain (~/.domain marker).
	TriggerKindCreate TriggerKind = "create"
	// TriggerKindRemove decommissions a domain (~/.remove-domain marker).
	TriggerKindRemove TriggerKind = "remove"
	// TriggerKindRenew re-issues a domain's certificate. Emitted internally
	// by the renewal sweeper, never backed by a marker file.
	TriggerKindRenew TriggerKind = "renew"
)

// Trigger is emitted when a marker file appears in a user's home directory
// (or synthesized by the renewal sweeper). Path is empty for renew triggers.
type Trigger struct {
	RunID  uuid.UUID
	Domain string
	Kind   TriggerKind

	// Path is the marker file that carried the request. The status of the
	// run is written back into it (or it is deleted on successful removal).
	Path string

	// OwnerUID is the uid owning the marker file, filled by the ownership
	// guard immediately before dispatch. -1 until then.
	OwnerUID int

	FiredAt time.Time
}
