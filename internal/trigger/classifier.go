// Package trigger classifies filesystem paths against the two marker-file
// shapes and inspects marker ownership.
//
// A marker is exactly <root>/<user>/.domain (provision) or
// <root>/<user>/.remove-domain (decommission). The <user> segment is the
// domain name; any other created path is not a trigger.
package trigger

import (
	"path/filepath"
	"strings"

	"github.com/tildeverse/domaind/internal/domain"
)

const (
	CreateMarker = ".domain"
	RemoveMarker = ".remove-domain"
)

// Classify matches a created path against the marker shapes. The returned
// bool reports whether path is a trigger at all.
func Classify(root, path string) (string, domain.TriggerKind, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", "", false
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	if len(segments) != 2 {
		return "", "", false
	}

	name := segments[0]
	if name == "" || name == "." || name == ".." {
		return "", "", false
	}

	switch segments[1] {
	case CreateMarker:
		return name, domain.TriggerKindCreate, true
	case RemoveMarker:
		return name, domain.TriggerKindRemove, true
	}
	return "", "", false
}

// MarkerPath returns the marker file path for a trigger kind under root.
func MarkerPath(root, user string, kind domain.TriggerKind) string {
	marker := CreateMarker
	if kind == domain.TriggerKindRemove {
		marker = RemoveMarker
	}
	return filepath.Join(root, user, marker)
}
