package pipeline

import (
	"path/filepath"
	"time"

	"github.com/tildeverse/domaind/internal/domain"
	"github.com/tildeverse/domaind/internal/tool"
)

// Config holds everything the pipelines need: record data for generated
// zones, artifact locations, and the external tool command lines.
type Config struct {
	// WatchRoot is the home directory root; a domain's document root is
	// <WatchRoot>/<domain>/public_html.
	WatchRoot string

	// Static record data from the platform environment file.
	NS   string
	A    string
	AAAA string

	Layout domain.Layout

	// External tool command lines. Cert and TLSA scripts receive the domain
	// via the DOMAIN environment variable; the rest take arguments.
	CertCmd          tool.Command
	TLSACmd          tool.Command
	KeygenCmd        tool.Command
	DSFromKeyCmd     tool.Command
	ProxyValidateCmd tool.Command
	NSReloadCmd      tool.Command
	ProxyReloadCmd   tool.Command
}

// dnssecAlgorithm is passed to the key generation tool and must agree with
// the algorithm tag in domain.Layout's key glob.
const dnssecAlgorithm = "ECDSAP256SHA256"

// Pipelines runs the provision and decommission sequences for one domain at
// a time. The dispatcher guarantees single flight, so shared directories
// never see concurrent writers.
type Pipelines struct {
	cfg     Config
	runner  tool.Runner
	metrics MetricsSink
	clock   func() time.Time
}

func New(cfg Config, runner tool.Runner) *Pipelines {
	return &Pipelines{
		cfg:    cfg,
		runner: runner,
		clock:  time.Now,
	}
}

// WithMetrics attaches a per-step metrics sink.
func (p *Pipelines) WithMetrics(sink MetricsSink) *Pipelines {
	p.metrics = sink
	return p
}

// WithClock overrides the clock used for zone serials and step timing.
func (p *Pipelines) WithClock(clock func() time.Time) *Pipelines {
	p.clock = clock
	return p
}

func (p *Pipelines) docRoot(name string) string {
	return filepath.Join(p.cfg.WatchRoot, name, "public_html")
}

func (p *Pipelines) domainEnv(name string) []string {
	return []string{"DOMAIN=" + name}
}
