package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Decommission removes every artifact for name in fixed order, then reloads
// both services. Removal steps tolerate already-missing files, so running
// decommission twice (or for a domain that was never provisioned) is a
// no-op, not an error. Any other failure aborts the run.
func (p *Pipelines) Decommission(ctx context.Context, name string) error {
	arts := p.cfg.Layout.ForDomain(name)

	steps := []Step{
		{Name: "remove certificate", Policy: TolerateMissing, Run: removeFile(arts.CertFile)},
		{Name: "remove certificate key", Policy: TolerateMissing, Run: removeFile(arts.CertKeyFile)},
		{Name: "remove zone file", Policy: TolerateMissing, Run: removeFile(arts.ZoneFile)},
		{
			// The keygen tool names key files with a random numeric key tag
			// it never reports back, so key pairs are matched by glob. More
			// than one pair can exist after a re-provision.
			Name:   "remove dnssec keys",
			Policy: TolerateMissing,
			Run: func(ctx context.Context) error {
				return removeGlob(arts.DNSSECKeyGlob)
			},
		},
		{Name: "remove corefile fragment", Policy: TolerateMissing, Run: removeFile(arts.CorefileFrag)},
		{Name: "remove proxy config", Policy: TolerateMissing, Run: removeFile(arts.ProxyFrag)},
		{
			Name: "restart nameserver",
			Run: func(ctx context.Context) error {
				_, err := p.runner.Run(ctx, p.cfg.NSReloadCmd.Program, p.cfg.NSReloadCmd.Args, nil)
				return err
			},
		},
		{
			Name: "reload proxy",
			Run: func(ctx context.Context) error {
				_, err := p.runner.Run(ctx, p.cfg.ProxyReloadCmd.Program, p.cfg.ProxyReloadCmd.Args, nil)
				return err
			},
		},
	}

	return execute(ctx, "decommission", steps, p.metrics, p.clock)
}

func removeFile(path string) func(context.Context) error {
	return func(context.Context) error {
		return os.Remove(path)
	}
}

// removeGlob deletes every file matching pattern. A pattern with no matches
// is fine; a failed removal of an existing match is not.
func removeGlob(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
