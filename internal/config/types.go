package config

// Config is the root configuration for Switchboard.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway,omitempty"`
	Telephony  TelephonyConfig  `yaml:"telephony,omitempty"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit,omitempty"`
	IVR        IVRConfig        `yaml:"ivr,omitempty"`
	Flow       FlowConfig       `yaml:"flow,omitempty"`
	Templates  TemplatesConfig  `yaml:"templates,omitempty"`
	Generative GenerativeConfig `yaml:"generative,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Notify     NotifyConfig     `yaml:"notify,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// GatewayConfig controls the webhook HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	PublicBaseURL  string     `yaml:"publicBaseUrl,omitempty"` // used to rebuild the signed URL behind proxies
	TLS            GatewayTLS `yaml:"tls,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
	TrustProxy     bool       `yaml:"trustProxy,omitempty"` // honour X-Forwarded-For for the client address
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// TelephonyConfig holds the voice provider secret and the default business routing.
type TelephonyConfig struct {
	AuthToken     string `yaml:"authToken,omitempty"`
	Voice         string `yaml:"voice,omitempty"`
	Language      string `yaml:"language,omitempty"`
	BusinessID    string `yaml:"businessId,omitempty"`
	BusinessName  string `yaml:"businessName,omitempty"`
	SalesNumber   string `yaml:"salesNumber,omitempty"`
	SupportNumber string `yaml:"supportNumber,omitempty"`
	HumanNumber   string `yaml:"humanNumber,omitempty"`
}

// RateLimitConfig configures the per-identifier fixed window limiter.
type RateLimitConfig struct {
	Backend       string      `yaml:"backend,omitempty"` // "memory" | "redis"
	WindowSeconds int         `yaml:"windowSeconds,omitempty"`
	MaxRequests   int         `yaml:"maxRequests,omitempty"`
	SweepSeconds  int         `yaml:"sweepSeconds,omitempty"`
	Redis         RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig points the limiter at a shared counter store.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// IVRConfig tunes the menu state machine.
type IVRConfig struct {
	MaxRetries           int `yaml:"maxRetries,omitempty"`
	GatherTimeoutSeconds int `yaml:"gatherTimeoutSeconds,omitempty"`
	SessionIdleMinutes   int `yaml:"sessionIdleMinutes,omitempty"`
}

// FlowConfig holds the booking completion thresholds used by the flow manager.
type FlowConfig struct {
	GatherBelow    float64 `yaml:"gatherBelow,omitempty"`
	ConfirmAt      float64 `yaml:"confirmAt,omitempty"`
	ConfirmMinimum float64 `yaml:"confirmMinimum,omitempty"`
}

// TemplatesConfig bounds rendered text.
type TemplatesConfig struct {
	MaxLengthChars int `yaml:"maxLengthChars,omitempty"` // soft limit reported by validation
	MaxValueChars  int `yaml:"maxValueChars,omitempty"`
	MaxReplyChars  int `yaml:"maxReplyChars,omitempty"`
}

// GenerativeConfig selects the text-completion provider used per turn.
type GenerativeConfig struct {
	Provider     string   `yaml:"provider,omitempty"` // "claude" | "gemini" | "mock"
	APIKey       string   `yaml:"apiKey,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	Fallbacks    []string `yaml:"fallbacks,omitempty"`
	TimeoutMs    int      `yaml:"timeoutMs,omitempty"`
	MaxTokens    int      `yaml:"maxTokens,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	HistoryTurns int      `yaml:"historyTurns,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`
}

// NotifyConfig configures escalation notifications.
type NotifyConfig struct {
	Slack *SlackConfig `yaml:"slack,omitempty"`
}

// SlackConfig posts escalation notices to a channel.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
