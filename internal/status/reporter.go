// Package status writes pipeline outcomes back into the marker file that
// carried the request. The marker is the only feedback channel a user has:
// a success message, an "Error: ..." line, or (after a removal) absence of
// the file itself.
package status

import (
	"fmt"
	"os"
)

// Reporter renders exactly one outcome per pipeline run.
type Reporter struct{}

func NewReporter() Reporter {
	return Reporter{}
}

// Success overwrites the marker with a human-readable result message.
func (Reporter) Success(path, message string) error {
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return fmt.Errorf("write status to %s: %w", path, err)
	}
	return nil
}

// Failure overwrites the marker with the failing step's error text. The
// marker is kept so the user can inspect the error and retry by recreating
// the file.
func (Reporter) Failure(path string, runErr error) error {
	msg := fmt.Sprintf("Error: %v\n", runErr)
	if err := os.WriteFile(path, []byte(msg), 0o644); err != nil {
		return fmt.Errorf("write error status to %s: %w", path, err)
	}
	return nil
}

// Clear deletes the marker; absence is the success signal for a removal.
// A marker already gone counts as cleared.
func (Reporter) Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker %s: %w", path, err)
	}
	return nil
}
