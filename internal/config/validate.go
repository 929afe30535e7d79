package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates errors that must stop startup from values that
// were clamped to a safe range.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal error was found.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config. Out-of-range numbers are clamped in
// place and reported as warnings; values that cannot be repaired are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	c.RefreshIntervalMs = clamp(&r, "refresh_interval_ms", c.RefreshIntervalMs, 100, 60000)
	c.Collector.Workers = clamp(&r, "collector.workers", c.Collector.Workers, 1, 64)
	c.Collector.TimeoutMs = clamp(&r, "collector.timeout_ms", c.Collector.TimeoutMs, 100, 60000)

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			r.Fatals = append(r.Fatals, fmt.Errorf("metrics_addr %q is not host:port: %w", c.MetricsAddr, err))
		}
	}

	if c.LogFile != "" {
		if c.LogMaxSizeMB < 1 {
			r.Warnings = append(r.Warnings, fmt.Errorf("log_max_size_mb %d is below minimum 1, using 20", c.LogMaxSizeMB))
			c.LogMaxSizeMB = 20
		}
		if c.LogMaxBackups < 1 {
			r.Warnings = append(r.Warnings, fmt.Errorf("log_max_backups %d is below minimum 1, using 3", c.LogMaxBackups))
			c.LogMaxBackups = 3
		}
	}

	for _, err := range r.Warnings {
		slog.Warn("config validation", "error", err)
	}

	return r
}

func clamp(r *ValidationResult, key string, v, lo, hi int) int {
	switch {
	case v < lo:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d is below minimum %d, clamping", key, v, lo))
		return lo
	case v > hi:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d exceeds maximum %d, clamping", key, v, hi))
		return hi
	default:
		return v
	}
}
