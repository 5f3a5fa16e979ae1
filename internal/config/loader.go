package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Telephony.AuthToken = expandEnvVars(cfg.Telephony.AuthToken)
	cfg.Generative.APIKey = expandEnvVars(cfg.Generative.APIKey)
	cfg.RateLimit.Redis.Password = expandEnvVars(cfg.RateLimit.Redis.Password)
	if cfg.Notify.Slack != nil {
		cfg.Notify.Slack.Token = expandEnvVars(cfg.Notify.Slack.Token)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}

	if cfg.Telephony.Voice == "" {
		cfg.Telephony.Voice = DefaultVoice
	}
	if cfg.Telephony.Language == "" {
		cfg.Telephony.Language = DefaultLanguage
	}
	if cfg.Telephony.BusinessID == "" {
		cfg.Telephony.BusinessID = "default"
	}
	if cfg.Telephony.BusinessName == "" {
		cfg.Telephony.BusinessName = DefaultBusinessName
	}
	if cfg.Telephony.HumanNumber == "" {
		cfg.Telephony.HumanNumber = DefaultHumanNumber
	}
	// Sales and support fall back to the human line, as a single-number business would.
	if cfg.Telephony.SalesNumber == "" {
		cfg.Telephony.SalesNumber = cfg.Telephony.HumanNumber
	}
	if cfg.Telephony.SupportNumber == "" {
		cfg.Telephony.SupportNumber = cfg.Telephony.HumanNumber
	}

	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = DefaultWindowSeconds
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = DefaultMaxRequests
	}
	if cfg.RateLimit.SweepSeconds == 0 {
		cfg.RateLimit.SweepSeconds = cfg.RateLimit.WindowSeconds
	}
	if cfg.RateLimit.Redis.Prefix == "" {
		cfg.RateLimit.Redis.Prefix = "switchboard:rl:"
	}

	if cfg.IVR.MaxRetries == 0 {
		cfg.IVR.MaxRetries = 1
	}
	if cfg.IVR.GatherTimeoutSeconds == 0 {
		cfg.IVR.GatherTimeoutSeconds = 5
	}
	if cfg.IVR.SessionIdleMinutes == 0 {
		cfg.IVR.SessionIdleMinutes = 30
	}

	if cfg.Flow.GatherBelow == 0 {
		cfg.Flow.GatherBelow = 0.5
	}
	if cfg.Flow.ConfirmAt == 0 {
		cfg.Flow.ConfirmAt = 0.75
	}
	if cfg.Flow.ConfirmMinimum == 0 {
		cfg.Flow.ConfirmMinimum = cfg.Flow.ConfirmAt
	}

	if cfg.Templates.MaxLengthChars == 0 {
		cfg.Templates.MaxLengthChars = DefaultMaxLengthChars
	}
	if cfg.Templates.MaxValueChars == 0 {
		cfg.Templates.MaxValueChars = DefaultMaxValueChars
	}
	if cfg.Templates.MaxReplyChars == 0 {
		cfg.Templates.MaxReplyChars = cfg.Templates.MaxLengthChars
	}

	if cfg.Generative.Provider == "" {
		cfg.Generative.Provider = "mock"
	}
	if cfg.Generative.TimeoutMs == 0 {
		cfg.Generative.TimeoutMs = DefaultTimeoutMs
	}
	if cfg.Generative.MaxTokens == 0 {
		cfg.Generative.MaxTokens = 300
	}
	if cfg.Generative.HistoryTurns == 0 {
		cfg.Generative.HistoryTurns = 6
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "switchboard"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads SWITCHBOARD_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWITCHBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("SWITCHBOARD_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("SWITCHBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SWITCHBOARD_TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Telephony.AuthToken = v
	}
	if v := os.Getenv("SWITCHBOARD_REDIS_ADDR"); v != "" {
		cfg.RateLimit.Redis.Addr = v
	}
}
