package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tildeverse/domaind/internal/renewal"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// NS, A and AAAA are required: every generated zone embeds them.
	for _, req := range []struct{ field, value string }{
		{"NS", cfg.NS},
		{"A", cfg.A},
		{"AAAA", cfg.AAAA},
	} {
		if req.value == "" {
			errs = append(errs, ValidationError{
				Field:   req.field,
				Message: "required",
			})
		}
	}

	// Command lines must at least name a program.
	for _, cmd := range []struct{ field, value string }{
		{"CERT_CMD", cfg.CertCmd},
		{"TLSA_CMD", cfg.TLSACmd},
		{"KEYGEN_CMD", cfg.KeygenCmd},
		{"DSFROMKEY_CMD", cfg.DSFromKeyCmd},
		{"PROXY_VALIDATE_CMD", cfg.ProxyValidateCmd},
		{"NS_RELOAD_CMD", cfg.NSReloadCmd},
		{"PROXY_RELOAD_CMD", cfg.ProxyReloadCmd},
	} {
		if strings.TrimSpace(cmd.value) == "" {
			errs = append(errs, ValidationError{
				Field:   cmd.field,
				Message: "must name a program",
			})
		}
	}

	for _, dur := range []struct{ field, value string }{
		{"DISPATCHER_DRAIN_TIMEOUT", cfg.DrainTimeoutStr},
		{"RECONCILE_INTERVAL", cfg.ReconcileIntervalStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
	} {
		if dur.value == "" {
			continue
		}
		d, err := time.ParseDuration(dur.value)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   dur.field,
				Message: "must be positive",
			})
		}
	}

	if cfg.RenewSchedule != "" {
		if _, err := renewal.ParseSchedule(cfg.RenewSchedule, cfg.RenewTimezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   "RENEW_SCHEDULE",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
