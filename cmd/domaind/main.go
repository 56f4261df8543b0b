package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tildeverse/domaind/internal/analytics"
	"github.com/tildeverse/domaind/internal/circuitbreaker"
	"github.com/tildeverse/domaind/internal/config"
	"github.com/tildeverse/domaind/internal/dispatcher"
	"github.com/tildeverse/domaind/internal/domain"
	"github.com/tildeverse/domaind/internal/metrics"
	"github.com/tildeverse/domaind/internal/pipeline"
	"github.com/tildeverse/domaind/internal/reconciler"
	"github.com/tildeverse/domaind/internal/renewal"
	"github.com/tildeverse/domaind/internal/status"
	"github.com/tildeverse/domaind/internal/tool"
	"github.com/tildeverse/domaind/internal/transport/channel"
	"github.com/tildeverse/domaind/internal/watcher"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`domaind - pubnix per-user domain provisioner

Usage:
  domaind <command>

Commands:
  serve      Watch for marker files and run provisioning pipelines
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (credentials masked)
  version    Print version information

Environment Variables:
  ENV_FILE                  Flat KEY=VALUE file read first (default: "/etc/domaind/env");
                            process environment overrides it
  WATCH_ROOT                Directory of user homes to watch (default: "/home")
  NS                        Nameserver host for generated zones (required)
  A                         IPv4 address for generated zones (required)
  AAAA                      IPv6 address for generated zones (required)

  CERT_DIR                  Certificate directory (default: "/etc/domaind/certs")
  ZONE_DIR                  Zone file directory (default: "/etc/coredns/zones")
  KEY_DIR                   DNSSEC key directory (default: "/etc/coredns/keys")
  COREFILE_DIR              Corefile fragment directory (default: "/etc/coredns/Corefile.d")
  PROXY_DIR                 Proxy vhost fragment directory (default: "/etc/caddy/conf.d")

  CERT_CMD                  Certificate issuance command (default: "tilde-cert")
  TLSA_CMD                  TLSA record generation command (default: "tilde-tlsa")
  KEYGEN_CMD                DNSSEC key generation command (default: "dnssec-keygen")
  DSFROMKEY_CMD             DS record derivation command (default: "dnssec-dsfromkey")
  PROXY_VALIDATE_CMD        Proxy config validator (default: "caddy")
  NS_RELOAD_CMD             Nameserver reload command (default: "systemctl restart coredns")
  PROXY_RELOAD_CMD          Proxy reload command (default: "systemctl reload caddy")

  DISPATCHER_DRAIN_TIMEOUT  Trigger drain timeout on shutdown (default: "30s")
  EVENTBUS_BUFFER_SIZE      Trigger channel buffer size (default: "100")

  RECONCILE_ENABLED         Scan for markers missed while down (default: "true")
  RECONCILE_INTERVAL        How often to rescan (default: "5m")

  RENEW_SCHEDULE            Cron expression for certificate renewal sweeps (default: disabled)
  RENEW_TIMEZONE            Timezone for the renewal schedule (default: local)

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  REDIS_ADDR                Redis address for run analytics (optional)
  CIRCUIT_BREAKER_THRESHOLD Consecutive analytics failures before the
                            breaker opens; 0 disables it (default: "5")
  CIRCUIT_BREAKER_COOLDOWN  Breaker cooldown before retrying (default: "2m")`)
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		WatchRoot: cfg.WatchRoot,
		NS:        cfg.NS,
		A:         cfg.A,
		AAAA:      cfg.AAAA,
		Layout: domain.Layout{
			CertDir:     cfg.CertDir,
			ZoneDir:     cfg.ZoneDir,
			KeyDir:      cfg.KeyDir,
			CorefileDir: cfg.CorefileDir,
			ProxyDir:    cfg.ProxyDir,
		},
		CertCmd:          tool.ParseCommand(cfg.CertCmd),
		TLSACmd:          tool.ParseCommand(cfg.TLSACmd),
		KeygenCmd:        tool.ParseCommand(cfg.KeygenCmd),
		DSFromKeyCmd:     tool.ParseCommand(cfg.DSFromKeyCmd),
		ProxyValidateCmd: tool.ParseCommand(cfg.ProxyValidateCmd),
		NSReloadCmd:      tool.ParseCommand(cfg.NSReloadCmd),
		ProxyReloadCmd:   tool.ParseCommand(cfg.ProxyReloadCmd),
	}
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	if fi, err := os.Stat(cfg.WatchRoot); err != nil || !fi.IsDir() {
		fmt.Fprintf(os.Stderr, "watch root %s is not a directory: %v\n", cfg.WatchRoot, err)
		return exitRuntimeError
	}

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("domaind: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		// Start metrics HTTP server on separate port
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("domaind: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("domaind: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("domaind: METRICS_ENABLED not set; metrics disabled")
	}

	// Create event bus with optional metrics
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	pipes := pipeline.New(pipelineConfig(cfg), tool.NewExecRunner())
	if metricsSink != nil {
		pipes = pipes.WithMetrics(metricsSink)
	}

	disp := dispatcher.New(pipes, status.NewReporter()).
		WithDrainTimeout(cfg.DrainTimeout)
	if metricsSink != nil {
		disp = disp.WithMetrics(metricsSink)
	}

	// Wire analytics if Redis is configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		sink := analytics.NewRedisSink(redisClient)
		if cfg.CircuitBreakerThreshold > 0 {
			sink = sink.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
		}
		disp = disp.WithAnalytics(sink)
		log.Printf("domaind: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("domaind: REDIS_ADDR not set; analytics disabled")
	}

	watch := watcher.New(cfg.WatchRoot, bus)
	if metricsSink != nil {
		watch = watch.WithMetrics(metricsSink)
	}

	// Use separate contexts for the emitters and dispatcher to enable ordered shutdown.
	emitterCtx, cancelEmitters := context.WithCancel(context.Background())
	defer cancelEmitters()
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()

	var emitterWg sync.WaitGroup
	var dispatcherWg sync.WaitGroup

	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		disp.Run(dispatcherCtx, bus.Channel())
	}()

	emitterWg.Add(1)
	go func() {
		defer emitterWg.Done()
		if err := watch.Run(emitterCtx); err != nil && emitterCtx.Err() == nil {
			log.Printf("domaind: watcher error: %v", err)
		}
	}()

	// Start reconciler if enabled
	if cfg.ReconcileEnabled {
		recon := reconciler.New(
			reconciler.Config{Interval: cfg.ReconcileInterval},
			cfg.WatchRoot,
			bus,
		)
		if metricsSink != nil {
			recon = recon.WithMetrics(metricsSink)
		}
		emitterWg.Add(1)
		go func() {
			defer emitterWg.Done()
			recon.Run(emitterCtx)
		}()
		log.Printf("domaind: reconciler enabled (interval=%s)", cfg.ReconcileInterval)
	} else {
		log.Println("domaind: RECONCILE_ENABLED is false; reconciler disabled")
	}

	// Start renewal sweeper if scheduled
	if cfg.RenewSchedule != "" {
		schedule, err := renewal.ParseSchedule(cfg.RenewSchedule, cfg.RenewTimezone)
		if err != nil {
			// Validate() already checked the expression; this guards config drift.
			fmt.Fprintf(os.Stderr, "invalid RENEW_SCHEDULE: %v\n", err)
			return exitInvalidConfig
		}
		sweeper := renewal.New(schedule, cfg.ZoneDir, bus)
		emitterWg.Add(1)
		go func() {
			defer emitterWg.Done()
			sweeper.Run(emitterCtx)
		}()
		log.Printf("domaind: renewal sweeps enabled (schedule=%q)", cfg.RenewSchedule)
	} else {
		log.Println("domaind: RENEW_SCHEDULE not set; renewal sweeps disabled")
	}

	log.Printf("domaind: started (root=%s)", cfg.WatchRoot)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("domaind: received signal %v, shutting down", received)

	// Phase 1: Stop the emitters (no new triggers enter the bus)
	log.Println("domaind: stopping watcher, reconciler and sweeper...")
	cancelEmitters()
	emitterWg.Wait()
	log.Println("domaind: emitters stopped")

	// Phase 2: Stop dispatcher (will drain buffered triggers before returning)
	log.Println("domaind: stopping dispatcher (draining triggers)...")
	cancelDispatcher()
	dispatcherWg.Wait()
	log.Println("domaind: dispatcher stopped")

	// Phase 3: Stop metrics server if running
	if metricsServer != nil {
		log.Println("domaind: stopping metrics server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("domaind: metrics server shutdown error: %v", err)
		}
		log.Println("domaind: metrics server stopped")
	}

	log.Println("domaind: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("domaind version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
