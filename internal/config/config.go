// Package config loads, defaults and validates the Switchboard configuration.
package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values shared by Defaults and applyDefaults.
const (
	DefaultPort           = 18790
	DefaultVoice          = "Polly.Joanna"
	DefaultLanguage       = "en-CA"
	DefaultBusinessName   = "Apex Business Systems"
	DefaultHumanNumber    = "+14319900222"
	DefaultWindowSeconds  = 60
	DefaultMaxRequests    = 10
	DefaultMaxLengthChars = 500
	DefaultMaxValueChars  = 100
	DefaultTimeoutMs      = 8000
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Window returns the rate limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// SweepInterval returns how often expired limiter entries are evicted.
func (c RateLimitConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

// Timeout returns the per-turn generation deadline.
func (c GenerativeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SessionIdle returns how long an unfinished IVR session is kept.
func (c IVRConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}
