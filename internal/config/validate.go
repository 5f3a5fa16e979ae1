package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind is custom")
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		add("gateway.tls", "certPath and keyPath are required when TLS is enabled")
	}

	// Telephony validation
	if cfg.Telephony.AuthToken == "" {
		add("telephony.authToken", "required to verify webhook signatures")
	}

	// Rate limit validation
	validBackends := []string{"memory", "redis"}
	if cfg.RateLimit.Backend != "" && !slices.Contains(validBackends, cfg.RateLimit.Backend) {
		add("rateLimit.backend", "must be one of %v, got %q", validBackends, cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Backend == "redis" && cfg.RateLimit.Redis.Addr == "" {
		add("rateLimit.redis.addr", "required when backend is redis")
	}
	if cfg.RateLimit.WindowSeconds < 0 {
		add("rateLimit.windowSeconds", "must be positive, got %d", cfg.RateLimit.WindowSeconds)
	}
	if cfg.RateLimit.MaxRequests < 0 {
		add("rateLimit.maxRequests", "must be positive, got %d", cfg.RateLimit.MaxRequests)
	}

	// IVR validation
	if cfg.IVR.MaxRetries < 0 {
		add("ivr.maxRetries", "must not be negative, got %d", cfg.IVR.MaxRetries)
	}

	// Flow validation
	for _, f := range []struct {
		path string
		val  float64
	}{
		{"flow.gatherBelow", cfg.Flow.GatherBelow},
		{"flow.confirmAt", cfg.Flow.ConfirmAt},
		{"flow.confirmMinimum", cfg.Flow.ConfirmMinimum},
	} {
		if f.val < 0 || f.val > 1 {
			add(f.path, "must be between 0 and 1, got %v", f.val)
		}
	}
	if cfg.Flow.GatherBelow > cfg.Flow.ConfirmAt {
		add("flow.gatherBelow", "must not exceed flow.confirmAt")
	}

	// Generative validation
	validProviders := []string{"claude", "gemini", "mock"}
	if cfg.Generative.Provider != "" && !slices.Contains(validProviders, cfg.Generative.Provider) {
		add("generative.provider", "must be one of %v, got %q", validProviders, cfg.Generative.Provider)
	}
	for i, fb := range cfg.Generative.Fallbacks {
		if !slices.Contains(validProviders, fb) {
			add(fmt.Sprintf("generative.fallbacks[%d]", i), "must be one of %v, got %q", validProviders, fb)
		}
	}
	if (cfg.Generative.Provider == "claude" || cfg.Generative.Provider == "gemini") && cfg.Generative.APIKey == "" {
		add("generative.apiKey", "required for provider %s", cfg.Generative.Provider)
	}

	// Store validation
	validDrivers := []string{"sqlite", "memory"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		add("store.driver", "must be one of %v, got %q", validDrivers, cfg.Store.Driver)
	}

	// Notify validation (only if configured)
	if cfg.Notify.Slack != nil {
		if cfg.Notify.Slack.Token == "" {
			add("notify.slack.token", "token is required")
		}
		if cfg.Notify.Slack.Channel == "" {
			add("notify.slack.channel", "channel is required")
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	return issues
}
