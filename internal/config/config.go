package config

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

// DefaultEnvFile is read when ENV_FILE is not set. A missing default file
// is fine; an explicitly configured one that cannot be read is logged.
const DefaultEnvFile = "/etc/domaind/env"

// Config holds all configuration for the domaind daemon.
// Values come from the platform environment file and process environment
// variables (process env wins); see printUsage() for the full list.
type Config struct {
	EnvFile   string `json:"env_file"`
	WatchRoot string `json:"watch_root"`

	// Static record data used in generated zones and messages.
	NS   string `json:"ns"`
	A    string `json:"a"`
	AAAA string `json:"aaaa"`

	// Artifact directories.
	CertDir     string `json:"cert_dir"`
	ZoneDir     string `json:"zone_dir"`
	KeyDir      string `json:"key_dir"`
	CorefileDir string `json:"corefile_dir"`
	ProxyDir    string `json:"proxy_dir"`

	// External tool command lines (program plus fixed leading args).
	CertCmd          string `json:"cert_cmd"`
	TLSACmd          string `json:"tlsa_cmd"`
	KeygenCmd        string `json:"keygen_cmd"`
	DSFromKeyCmd     string `json:"dsfromkey_cmd"`
	ProxyValidateCmd string `json:"proxy_validate_cmd"`
	NSReloadCmd      string `json:"ns_reload_cmd"`
	ProxyReloadCmd   string `json:"proxy_reload_cmd"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	RedisAddr string `json:"redis_addr,omitempty"`

	EventBusBufferSize int `json:"eventbus_buffer_size"`

	DrainTimeout    time.Duration `json:"-"`
	DrainTimeoutStr string        `json:"drain_timeout"`

	ReconcileEnabled     bool          `json:"reconcile_enabled"`
	ReconcileInterval    time.Duration `json:"-"`
	ReconcileIntervalStr string        `json:"reconcile_interval"`

	// RenewSchedule is a standard cron expression; empty disables the
	// renewal sweep.
	RenewSchedule string `json:"renew_schedule,omitempty"`
	RenewTimezone string `json:"renew_timezone,omitempty"`

	// CircuitBreakerThreshold guards the analytics sink; 0 disables the
	// breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`
}

// Load reads configuration from the environment file and environment
// variables with defaults. Process environment overrides the file.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	fileVals, err := ParseEnvFile(envFile)
	if err != nil {
		if !os.IsNotExist(err) || os.Getenv("ENV_FILE") != "" {
			log.Printf("config: env file %s: %v", envFile, err)
		}
		fileVals = map[string]string{}
	}

	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileVals[key]
	}

	cfg := Config{
		EnvFile:   envFile,
		WatchRoot: get("WATCH_ROOT"),

		NS:   get("NS"),
		A:    get("A"),
		AAAA: get("AAAA"),

		CertDir:     get("CERT_DIR"),
		ZoneDir:     get("ZONE_DIR"),
		KeyDir:      get("KEY_DIR"),
		CorefileDir: get("COREFILE_DIR"),
		ProxyDir:    get("PROXY_DIR"),

		CertCmd:          get("CERT_CMD"),
		TLSACmd:          get("TLSA_CMD"),
		KeygenCmd:        get("KEYGEN_CMD"),
		DSFromKeyCmd:     get("DSFROMKEY_CMD"),
		ProxyValidateCmd: get("PROXY_VALIDATE_CMD"),
		NSReloadCmd:      get("NS_RELOAD_CMD"),
		ProxyReloadCmd:   get("PROXY_RELOAD_CMD"),

		MetricsEnabled: get("METRICS_ENABLED") == "true",
		MetricsPath:    get("METRICS_PATH"),
		MetricsPort:    get("METRICS_PORT"),

		RedisAddr: get("REDIS_ADDR"),

		DrainTimeoutStr:      get("DISPATCHER_DRAIN_TIMEOUT"),
		ReconcileEnabled:     get("RECONCILE_ENABLED") != "false",
		ReconcileIntervalStr: get("RECONCILE_INTERVAL"),

		RenewSchedule: get("RENEW_SCHEDULE"),
		RenewTimezone: get("RENEW_TIMEZONE"),

		CircuitBreakerCooldownStr: get("CIRCUIT_BREAKER_COOLDOWN"),
	}

	if bufStr := get("EVENTBUS_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.EventBusBufferSize = n
		} else {
			log.Printf("config: invalid EVENTBUS_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.EventBusBufferSize == 0 {
		cfg.EventBusBufferSize = 100
	}

	if cbThreshStr := get("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := parseInt(cbThreshStr); err == nil {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}
	if cfg.CircuitBreakerThreshold == 0 && get("CIRCUIT_BREAKER_THRESHOLD") == "" {
		cfg.CircuitBreakerThreshold = 5
	}

	if cfg.WatchRoot == "" {
		cfg.WatchRoot = "/home"
	}
	if cfg.CertDir == "" {
		cfg.CertDir = "/etc/domaind/certs"
	}
	if cfg.ZoneDir == "" {
		cfg.ZoneDir = "/etc/coredns/zones"
	}
	if cfg.KeyDir == "" {
		cfg.KeyDir = "/etc/coredns/keys"
	}
	if cfg.CorefileDir == "" {
		cfg.CorefileDir = "/etc/coredns/Corefile.d"
	}
	if cfg.ProxyDir == "" {
		cfg.ProxyDir = "/etc/caddy/conf.d"
	}
	if cfg.CertCmd == "" {
		cfg.CertCmd = "tilde-cert"
	}
	if cfg.TLSACmd == "" {
		cfg.TLSACmd = "tilde-tlsa"
	}
	if cfg.KeygenCmd == "" {
		cfg.KeygenCmd = "dnssec-keygen"
	}
	if cfg.DSFromKeyCmd == "" {
		cfg.DSFromKeyCmd = "dnssec-dsfromkey"
	}
	if cfg.ProxyValidateCmd == "" {
		cfg.ProxyValidateCmd = "caddy"
	}
	if cfg.NSReloadCmd == "" {
		cfg.NSReloadCmd = "systemctl restart coredns"
	}
	if cfg.ProxyReloadCmd == "" {
		cfg.ProxyReloadCmd = "systemctl reload caddy"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.DrainTimeoutStr == "" {
		cfg.DrainTimeoutStr = "30s"
	}
	if cfg.ReconcileIntervalStr == "" {
		cfg.ReconcileIntervalStr = "5m"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "2m"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.DrainTimeoutStr); err == nil {
		cfg.DrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.ReconcileIntervalStr); err == nil {
		cfg.ReconcileInterval = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}

	return cfg
}

// parseInt parses a string as an integer.
func parseInt(s string) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with credentials masked.
// Redis addresses may carry userinfo when pointed at a managed instance.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	if i := strings.LastIndex(c.RedisAddr, "@"); i >= 0 {
		masked.RedisAddr = "***@" + c.RedisAddr[i+1:]
	}
	return json.MarshalIndent(masked, "", "  ")
}
