package trigger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tildeverse/domaind/internal/domain"
)

func TestClassify(t *testing.T) {
	root := "/home"

	tests := []struct {
		name       string
		path       string
		wantDomain string
		wantKind   domain.TriggerKind
		wantMatch  bool
	}{
		{
			name:       "create marker",
			path:       "/home/alice.example/.domain",
			wantDomain: "alice.example",
			wantKind:   domain.TriggerKindCreate,
			wantMatch:  true,
		},
		{
			name:       "remove marker",
			path:       "/home/bob.example/.remove-domain",
			wantDomain: "bob.example",
			wantKind:   domain.TriggerKindRemove,
			wantMatch:  true,
		},
		{
			name:      "other dotfile",
			path:      "/home/alice.example/.bashrc",
			wantMatch: false,
		},
		{
			name:      "marker too deep",
			path:      "/home/alice.example/projects/.domain",
			wantMatch: false,
		},
		{
			name:      "marker at root",
			path:      "/home/.domain",
			wantMatch: false,
		},
		{
			name:      "outside root",
			path:      "/tmp/alice.example/.domain",
			wantMatch: false,
		},
		{
			name:      "root itself",
			path:      "/home",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, kind, ok := Classify(root, tt.path)
			if ok != tt.wantMatch {
				t.Fatalf("Classify() match = %v, want %v", ok, tt.wantMatch)
			}
			if !ok {
				return
			}
			if name != tt.wantDomain {
				t.Errorf("domain = %q, want %q", name, tt.wantDomain)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

func TestMarkerPath(t *testing.T) {
	if got := MarkerPath("/home", "alice.example", domain.TriggerKindCreate); got != "/home/alice.example/.domain" {
		t.Errorf("MarkerPath(create) = %q", got)
	}
	if got := MarkerPath("/home", "alice.example", domain.TriggerKindRemove); got != "/home/alice.example/.remove-domain" {
		t.Errorf("MarkerPath(remove) = %q", got)
	}
}

func TestOwnerUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".domain")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	uid, err := OwnerUID(path)
	if err != nil {
		t.Fatalf("OwnerUID() error = %v", err)
	}
	if uid != os.Getuid() {
		t.Errorf("OwnerUID() = %d, want %d", uid, os.Getuid())
	}
}

func TestOwnerUID_MissingFile(t *testing.T) {
	_, err := OwnerUID(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("OwnerUID() error = nil, want error")
	}
}
