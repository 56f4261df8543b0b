package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tildeverse/domaind/internal/tool"
	"github.com/tildeverse/domaind/internal/trigger"
	"github.com/tildeverse/domaind/internal/zone"
)

// provisionState carries values between provisioning steps: each value is
// produced by one step and consumed by a later one.
type provisionState struct {
	tlsa    string // TLSA record value from the TLSA script
	keyBase string // DNSSEC key base name from the keygen tool
	ds      string // DS record with the "<domain>. IN DS " prefix stripped
}

// Provision runs the full provisioning sequence for name and returns the
// success message to write into the marker file. Any step failure aborts
// the remaining steps; artifacts already written stay on disk.
func (p *Pipelines) Provision(ctx context.Context, name string) (string, error) {
	arts := p.cfg.Layout.ForDomain(name)
	st := &provisionState{}

	steps := []Step{
		{
			Name: "issue certificate",
			Run: func(ctx context.Context) error {
				_, err := p.runner.Run(ctx, p.cfg.CertCmd.Program, p.cfg.CertCmd.Args, p.domainEnv(name))
				return err
			},
		},
		{
			Name: "generate tlsa record",
			Run: func(ctx context.Context) error {
				out, err := tool.Output(ctx, p.runner, p.cfg.TLSACmd, nil, p.domainEnv(name))
				if err != nil {
					return err
				}
				if out == "" {
					return fmt.Errorf("%s produced no TLSA record", p.cfg.TLSACmd.Program)
				}
				st.tlsa = out
				return nil
			},
		},
		{
			Name: "write zone file",
			Run: func(ctx context.Context) error {
				data, err := zone.RenderZone(zone.ZoneData{
					Domain: name,
					NS:     p.cfg.NS,
					A:      p.cfg.A,
					AAAA:   p.cfg.AAAA,
					TLSA:   st.tlsa,
					Serial: zone.Serial(p.clock()),
				})
				if err != nil {
					return err
				}
				return os.WriteFile(arts.ZoneFile, []byte(data), 0o644)
			},
		},
		{
			Name: "generate dnssec key",
			Run: func(ctx context.Context) error {
				out, err := tool.Output(ctx, p.runner, p.cfg.KeygenCmd,
					[]string{"-a", dnssecAlgorithm, "-K", p.cfg.Layout.KeyDir, name}, nil)
				if err != nil {
					return err
				}
				if out == "" {
					return fmt.Errorf("%s produced no key name", p.cfg.KeygenCmd.Program)
				}
				st.keyBase = out
				return nil
			},
		},
		{
			Name: "write corefile fragment",
			Run: func(ctx context.Context) error {
				data, err := zone.RenderCorefile(zone.CorefileData{
					Domain:   name,
					ZoneFile: arts.ZoneFile,
					KeyFile:  filepath.Join(p.cfg.Layout.KeyDir, st.keyBase),
				})
				if err != nil {
					return err
				}
				return os.WriteFile(arts.CorefileFrag, []byte(data), 0o644)
			},
		},
		{
			Name: "derive ds record",
			Run: func(ctx context.Context) error {
				keyFile := filepath.Join(p.cfg.Layout.KeyDir, st.keyBase+".key")
				out, err := tool.Output(ctx, p.runner, p.cfg.DSFromKeyCmd, []string{"-2", keyFile}, nil)
				if err != nil {
					return err
				}
				// dnssec-dsfromkey prints "<domain>. IN DS <record>"; only
				// the record itself goes into the user-facing message.
				st.ds = strings.TrimPrefix(out, name+". IN DS ")
				return nil
			},
		},
		{
			Name: "write proxy config",
			Run: func(ctx context.Context) error {
				return p.writeProxyFragment(ctx, name, arts.ProxyFrag, arts.CertFile, arts.CertKeyFile)
			},
		},
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

	if err := execute(ctx, "provision", steps, p.metrics, p.clock); err != nil {
		return "", err
	}

	return p.successMessage(name, st), nil
}

// writeProxyFragment renders and writes the Caddy vhost, then validates it.
// An invalid fragment is deleted before the error surfaces so no orphaned
// config is left for the proxy to choke on.
func (p *Pipelines) writeProxyFragment(ctx context.Context, name, fragPath, certFile, keyFile string) error {
	data, err := zone.RenderProxy(zone.ProxyData{
		Domain:   name,
		DocRoot:  p.docRoot(name),
		CertFile: certFile,
		KeyFile:  keyFile,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(fragPath, []byte(data), 0o644); err != nil {
		return err
	}

	_, err = p.runner.Run(ctx, p.cfg.ProxyValidateCmd.Program,
		append(append([]string{}, p.cfg.ProxyValidateCmd.Args...), "validate", "--config", fragPath, "--adapter", "caddyfile"), nil)
	if err != nil {
		if rmErr := os.Remove(fragPath); rmErr != nil {
			return fmt.Errorf("%w (and removing invalid fragment failed: %v)", err, rmErr)
		}
		return err
	}
	return nil
}

func (p *Pipelines) successMessage(name string, st *provisionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your domain %s is live.\n\n", name)
	fmt.Fprintf(&b, "Delegate it to this server:\n")
	fmt.Fprintf(&b, "  NS:   %s\n", p.cfg.NS)
	fmt.Fprintf(&b, "  DS:   %s\n\n", st.ds)
	fmt.Fprintf(&b, "...or point it here directly:\n")
	fmt.Fprintf(&b, "  A:    %s\n", p.cfg.A)
	fmt.Fprintf(&b, "  AAAA: %s\n", p.cfg.AAAA)
	fmt.Fprintf(&b, "  TLSA: %s\n\n", st.tlsa)
	fmt.Fprintf(&b, "To remove the domain, create ~/%s.\n", trigger.RemoveMarker)
	return b.String()
}
