package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Telephony.AuthToken = "tok"
	return cfg
}

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidateValid(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateMissingAuthToken(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "telephony.authToken", issues[0].Path)
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Port = 99999
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "gateway.port", issues[0].Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad bind", func(c *Config) { c.Gateway.Bind = "tailnet" }, "gateway.bind"},
		{"custom bind without host", func(c *Config) { c.Gateway.Bind = "custom" }, "gateway.customBindHost"},
		{"tls without cert", func(c *Config) { c.Gateway.TLS.Enabled = true }, "gateway.tls"},
		{"bad backend", func(c *Config) { c.RateLimit.Backend = "memcached" }, "rateLimit.backend"},
		{"redis without addr", func(c *Config) { c.RateLimit.Backend = "redis" }, "rateLimit.redis.addr"},
		{"negative window", func(c *Config) { c.RateLimit.WindowSeconds = -1 }, "rateLimit.windowSeconds"},
		{"negative retries", func(c *Config) { c.IVR.MaxRetries = -1 }, "ivr.maxRetries"},
		{"ratio above one", func(c *Config) { c.Flow.ConfirmMinimum = 1.5 }, "flow.confirmMinimum"},
		{"gather above confirm", func(c *Config) { c.Flow.GatherBelow = 0.9 }, "flow.gatherBelow"},
		{"bad provider", func(c *Config) { c.Generative.Provider = "ollama" }, "generative.provider"},
		{"bad fallback", func(c *Config) { c.Generative.Fallbacks = []string{"mock", "bard"} }, "generative.fallbacks[1]"},
		{"claude without key", func(c *Config) { c.Generative.Provider = "claude" }, "generative.apiKey"},
		{"bad store driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"slack without token", func(c *Config) { c.Notify.Slack = &SlackConfig{Channel: "#x"} }, "notify.slack.token"},
		{"slack without channel", func(c *Config) { c.Notify.Slack = &SlackConfig{Token: "x"} }, "notify.slack.channel"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Contains(t, issuePaths(Validate(&cfg)), tt.path)
		})
	}
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "gateway.port", Message: "bad"}
	assert.Equal(t, "gateway.port: bad", issue.String())
}
