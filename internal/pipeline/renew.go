package pipeline

import "context"

// Renew re-runs the certificate issuance script for an already-provisioned
// domain and reloads the proxy to pick up the new material. Zone data and
// config fragments are untouched: the issuance script writes the new cert
// and key over the fixed artifact locations the fragments already point at.
func (p *Pipelines) Renew(ctx context.Context, name string) error {
	steps := []Step{
		{
			Name: "reissue certificate",
			Run: func(ctx context.Context) error {
				_, err := p.runner.Run(ctx, p.cfg.CertCmd.Program, p.cfg.CertCmd.Args, p.domainEnv(name))
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

	return execute(ctx, "renew", steps, p.metrics, p.clock)
}
