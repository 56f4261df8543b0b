package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tildeverse/domaind/internal/tool"
)

func writeArtifacts(t *testing.T, cfg Config, name string) {
	t.Helper()
	arts := cfg.Layout.ForDomain(name)
	files := []string{arts.CertFile, arts.CertKeyFile, arts.ZoneFile, arts.CorefileFrag, arts.ProxyFrag}
	// Two key pairs: a re-provisioned domain can accumulate more than one.
	for _, tag := range []string{"12345", "54321"} {
		base := filepath.Join(cfg.Layout.KeyDir, "K"+name+".+013+"+tag)
		files = append(files, base+".key", base+".private")
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDecommission_RemovesAllArtifacts(t *testing.T) {
	cfg := testConfig(t)
	writeArtifacts(t, cfg, "bob.example")
	runner := newFakeRunner()
	p := New(cfg, runner)

	if err := p.Decommission(context.Background(), "bob.example"); err != nil {
		t.Fatalf("Decommission() error = %v", err)
	}

	arts := cfg.Layout.ForDomain("bob.example")
	for _, f := range []string{arts.CertFile, arts.CertKeyFile, arts.ZoneFile, arts.CorefileFrag, arts.ProxyFrag} {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("%s still on disk", f)
		}
	}
	matches, _ := filepath.Glob(arts.DNSSECKeyGlob)
	if len(matches) != 0 {
		t.Errorf("dnssec key files still on disk: %v", matches)
	}

	if !runner.invoked("restart-coredns") || !runner.invoked("reload-caddy") {
		t.Error("service reloads not invoked")
	}
}

func TestDecommission_SecondRunIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	writeArtifacts(t, cfg, "bob.example")
	runner := newFakeRunner()
	p := New(cfg, runner)

	if err := p.Decommission(context.Background(), "bob.example"); err != nil {
		t.Fatalf("first Decommission() error = %v", err)
	}
	if err := p.Decommission(context.Background(), "bob.example"); err != nil {
		t.Fatalf("second Decommission() error = %v, want nil (idempotent)", err)
	}
}

func TestDecommission_NeverProvisionedDomain(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	p := New(cfg, runner)

	if err := p.Decommission(context.Background(), "bob.example"); err != nil {
		t.Fatalf("Decommission() error = %v, want nil for absent artifacts", err)
	}
	if !runner.invoked("restart-coredns") || !runner.invoked("reload-caddy") {
		t.Error("service reloads skipped for never-provisioned domain")
	}
}

func TestDecommission_ReloadFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	runner.failures["restart-coredns"] = &tool.CommandError{
		Program: "restart-coredns", ExitCode: 1, Stderr: "unit not found",
	}
	p := New(cfg, runner)

	err := p.Decommission(context.Background(), "bob.example")
	if err == nil {
		t.Fatal("Decommission() error = nil, want reload failure")
	}
	if runner.invoked("reload-caddy") {
		t.Error("proxy reload ran after nameserver restart failed")
	}
}

func TestRenew_ReissuesCertAndReloadsProxy(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	p := New(cfg, runner)

	if err := p.Renew(context.Background(), "alice.example"); err != nil {
		t.Fatalf("Renew() error = %v", err)
	}

	certCalls := runner.invocations("tilde-cert")
	if len(certCalls) != 1 || certCalls[0].env[0] != "DOMAIN=alice.example" {
		t.Errorf("cert script calls = %v", certCalls)
	}
	if !runner.invoked("reload-caddy") {
		t.Error("proxy reload not invoked")
	}
	if runner.invoked("restart-coredns") {
		t.Error("nameserver restarted during renewal")
	}
}

func TestRenew_CertFailureSkipsReload(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	runner.failures["tilde-cert"] = &tool.CommandError{Program: "tilde-cert", ExitCode: 1, Stderr: "acme timeout"}
	p := New(cfg, runner)

	if err := p.Renew(context.Background(), "alice.example"); err == nil {
		t.Fatal("Renew() error = nil, want cert failure")
	}
	if runner.invoked("reload-caddy") {
		t.Error("proxy reloaded after failed reissue")
	}
}
