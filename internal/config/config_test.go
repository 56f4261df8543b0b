package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// pointEnvFileAway keeps Load from picking up a real /etc/domaind/env
// on the host running the tests.
func pointEnvFileAway(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "env"))
}

func TestLoad_Defaults(t *testing.T) {
	pointEnvFileAway(t)
	os.Unsetenv("WATCH_ROOT")
	os.Unsetenv("CERT_CMD")
	os.Unsetenv("NS_RELOAD_CMD")
	os.Unsetenv("DISPATCHER_DRAIN_TIMEOUT")
	os.Unsetenv("RECONCILE_INTERVAL")
	os.Unsetenv("RECONCILE_ENABLED")
	os.Unsetenv("METRICS_PORT")

	cfg := Load()

	if cfg.WatchRoot != "/home" {
		t.Errorf("WatchRoot: expected /home, got %q", cfg.WatchRoot)
	}
	if cfg.CertCmd != "tilde-cert" {
		t.Errorf("CertCmd: expected tilde-cert, got %q", cfg.CertCmd)
	}
	if cfg.NSReloadCmd != "systemctl restart coredns" {
		t.Errorf("NSReloadCmd: expected systemctl restart coredns, got %q", cfg.NSReloadCmd)
	}
	if cfg.DrainTimeout != 30*time.Second {
		t.Errorf("DrainTimeout: expected 30s, got %v", cfg.DrainTimeout)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Errorf("ReconcileInterval: expected 5m, got %v", cfg.ReconcileInterval)
	}
	if !cfg.ReconcileEnabled {
		t.Error("ReconcileEnabled: expected true by default")
	}
	if cfg.MetricsPort != "9090" {
		t.Errorf("MetricsPort: expected 9090, got %q", cfg.MetricsPort)
	}
	if cfg.RenewSchedule != "" {
		t.Errorf("RenewSchedule: expected empty, got %q", cfg.RenewSchedule)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	pointEnvFileAway(t)
	os.Setenv("WATCH_ROOT", "/srv/users")
	os.Setenv("NS", "ns1.tilde.example.")
	os.Setenv("DISPATCHER_DRAIN_TIMEOUT", "60s")
	os.Setenv("RECONCILE_ENABLED", "false")
	os.Setenv("RENEW_SCHEDULE", "0 3 * * *")
	defer func() {
		os.Unsetenv("WATCH_ROOT")
		os.Unsetenv("NS")
		os.Unsetenv("DISPATCHER_DRAIN_TIMEOUT")
		os.Unsetenv("RECONCILE_ENABLED")
		os.Unsetenv("RENEW_SCHEDULE")
	}()

	cfg := Load()

	if cfg.WatchRoot != "/srv/users" {
		t.Errorf("WatchRoot: expected /srv/users, got %q", cfg.WatchRoot)
	}
	if cfg.NS != "ns1.tilde.example." {
		t.Errorf("NS: expected ns1.tilde.example., got %q", cfg.NS)
	}
	if cfg.DrainTimeout != 60*time.Second {
		t.Errorf("DrainTimeout: expected 60s, got %v", cfg.DrainTimeout)
	}
	if cfg.ReconcileEnabled {
		t.Error("ReconcileEnabled: expected false")
	}
	if cfg.RenewSchedule != "0 3 * * *" {
		t.Errorf("RenewSchedule: expected 0 3 * * *, got %q", cfg.RenewSchedule)
	}
}

func TestLoad_EnvFileValues(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env")
	contents := "NS=ns1.tilde.example.\nA=192.0.2.10\nWATCH_ROOT=/srv/users\n"
	if err := os.WriteFile(envFile, []byte(contents), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	os.Unsetenv("NS")
	os.Unsetenv("A")
	os.Unsetenv("WATCH_ROOT")

	cfg := Load()

	if cfg.NS != "ns1.tilde.example." {
		t.Errorf("NS: expected ns1.tilde.example., got %q", cfg.NS)
	}
	if cfg.A != "192.0.2.10" {
		t.Errorf("A: expected 192.0.2.10, got %q", cfg.A)
	}
	if cfg.WatchRoot != "/srv/users" {
		t.Errorf("WatchRoot: expected /srv/users, got %q", cfg.WatchRoot)
	}
}

func TestLoad_ProcessEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env")
	if err := os.WriteFile(envFile, []byte("A=192.0.2.10\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("A", "198.51.100.7")

	cfg := Load()

	if cfg.A != "198.51.100.7" {
		t.Errorf("A: expected process env to win, got %q", cfg.A)
	}
}

func TestLoad_EventBusBufferSizeInvalidFallsBack(t *testing.T) {
	pointEnvFileAway(t)

	tests := []struct {
		name  string
		value string
	}{
		{"negative", "-1"},
		{"zero", "0"},
		{"non-numeric", "abc"},
		{"float", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EVENTBUS_BUFFER_SIZE", tt.value)

			cfg := Load()

			if cfg.EventBusBufferSize != 100 {
				t.Errorf("EventBusBufferSize: expected fallback to 100 for %q, got %d", tt.value, cfg.EventBusBufferSize)
			}
		})
	}
}

func TestMaskedJSON_MasksRedisUserinfo(t *testing.T) {
	pointEnvFileAway(t)
	t.Setenv("REDIS_ADDR", "user:secret@redis.internal:6379")

	cfg := Load()
	data, err := cfg.MaskedJSON()
	if err != nil {
		t.Fatalf("MaskedJSON failed: %v", err)
	}

	json := string(data)
	if containsString(json, "secret") {
		t.Error("MaskedJSON leaked redis credentials")
	}
	if !containsString(json, `"***@redis.internal:6379"`) {
		t.Errorf("MaskedJSON missing masked redis addr, got:\n%s", json)
	}
	if !containsString(json, `"drain_timeout"`) {
		t.Error("MaskedJSON missing drain_timeout field")
	}
}

func containsString(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
