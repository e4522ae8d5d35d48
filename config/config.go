package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration of the CLI and HTTP server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	TraceSink TraceSinkConfig `yaml:"trace_sink"`
	Store     StoreConfig     `yaml:"store"`
	Models    ModelsConfig    `yaml:"models"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AuthToken enables bearer authentication when set.
	AuthToken string `yaml:"auth_token"`
	// RateLimit is the per-client request rate in requests per second.
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxConcurrentRuns bounds asynchronous workflow runs.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
	// Backend is "slog" or "zap".
	Backend   string `yaml:"backend"`
	AddSource bool   `yaml:"add_source"`
}

// TracerConfig configures OpenTelemetry.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// TraceSinkConfig selects where agent trace records go. Every enabled sink
// receives every record.
type TraceSinkConfig struct {
	Log       bool   `yaml:"log"`
	RedisAddr string `yaml:"redis_addr"`
	// SQLiteDSN enables the SQL sink, e.g. "file:traces.db".
	SQLiteDSN string `yaml:"sqlite_dsn"`
	OTel      bool   `yaml:"otel"`
}

// StoreConfig configures the workflow result store.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// ModelsConfig holds provider credentials and call limits.
type ModelsConfig struct {
	DefaultModel    string `yaml:"default_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	BedrockRegion   string `yaml:"bedrock_region"`
	// RateLimit is shared by all agents, in requests per second. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// BreakerFailures opens a provider breaker after that many consecutive
	// failures. Zero disables the breaker.
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// SMTPConfig configures the email provider.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// CalendarConfig configures the calendar provider.
type CalendarConfig struct {
	// Token is a static OAuth access token. ClientID, ClientSecret and
	// RefreshToken take precedence and refresh access tokens as needed.
	Token        string `yaml:"token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	CalendarID   string `yaml:"calendar_id"`
	BaseURL      string `yaml:"base_url"`
}

// XConfig configures the social post provider.
type XConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BaseURL     string `yaml:"base_url"`
}

// ProvidersConfig configures the real tool backends. Unconfigured backends
// yield simulated outcomes.
type ProvidersConfig struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Calendar CalendarConfig `yaml:"calendar"`
	X        XConfig        `yaml:"x"`
	TimeZone string         `yaml:"time_zone"`
	// DefaultRecipient is announced to email and notifier agents.
	DefaultRecipient string `yaml:"default_recipient"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			RateLimit:         5,
			RateBurst:         10,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      10 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxConcurrentRuns: 4,
		},
		Logger: LoggerConfig{
			Level:   "info",
			Format:  "text",
			Backend: "slog",
		},
		Tracer: TracerConfig{
			Exporter: "stdout",
		},
		TraceSink: TraceSinkConfig{
			Log: true,
		},
		Store: StoreConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
		Models: ModelsConfig{
			DefaultModel:    "gemini/gemini-2.5-flash",
			BedrockRegion:   "us-east-1",
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Providers: ProvidersConfig{
			SMTP:     SMTPConfig{Port: 587},
			Calendar: CalendarConfig{CalendarID: "primary"},
			TimeZone: "America/New_York",
		},
	}
}

// Load reads a YAML config file on top of Defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the application configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return &ValidationError{Field: "store.redis_addr", Message: "required for the redis backend"}
		}
	default:
		return &ValidationError{Field: "store.backend", Message: fmt.Sprintf("unsupported backend %q", c.Store.Backend)}
	}

	switch c.Logger.Backend {
	case "slog", "zap":
	default:
		return &ValidationError{Field: "logger.backend", Message: fmt.Sprintf("unsupported backend %q", c.Logger.Backend)}
	}

	if c.Server.RateLimit < 0 || c.Models.RateLimit < 0 {
		return &ValidationError{Field: "rate_limit", Message: "must not be negative"}
	}

	if _, err := time.LoadLocation(c.Providers.TimeZone); err != nil {
		return &ValidationError{Field: "providers.time_zone", Message: err.Error()}
	}

	return nil
}

// ApplyEnvOverrides maps AGENTFACTORY_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	str("AGENTFACTORY_SERVER_ADDR", &cfg.Server.Addr)
	str("AGENTFACTORY_SERVER_AUTH_TOKEN", &cfg.Server.AuthToken)
	if v := os.Getenv("AGENTFACTORY_SERVER_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}

	str("AGENTFACTORY_LOGGER_LEVEL", &cfg.Logger.Level)
	str("AGENTFACTORY_LOGGER_FORMAT", &cfg.Logger.Format)
	str("AGENTFACTORY_LOGGER_BACKEND", &cfg.Logger.Backend)

	if v := os.Getenv("AGENTFACTORY_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	str("AGENTFACTORY_TRACER_EXPORTER", &cfg.Tracer.Exporter)

	str("AGENTFACTORY_TRACE_REDIS_ADDR", &cfg.TraceSink.RedisAddr)
	str("AGENTFACTORY_TRACE_SQLITE_DSN", &cfg.TraceSink.SQLiteDSN)

	str("AGENTFACTORY_STORE_BACKEND", &cfg.Store.Backend)
	str("AGENTFACTORY_STORE_REDIS_ADDR", &cfg.Store.RedisAddr)

	str("AGENTFACTORY_DEFAULT_MODEL", &cfg.Models.DefaultModel)
	str("OPENAI_API_KEY", &cfg.Models.OpenAIAPIKey)
	str("AGENTFACTORY_OPENAI_BASE_URL", &cfg.Models.OpenAIBaseURL)
	str("ANTHROPIC_API_KEY", &cfg.Models.AnthropicAPIKey)
	str("GEMINI_API_KEY", &cfg.Models.GeminiAPIKey)
	str("AGENTFACTORY_BEDROCK_REGION", &cfg.Models.BedrockRegion)
	if v := os.Getenv("AGENTFACTORY_MODELS_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Models.RateLimit = f
		}
	}

	str("AGENTFACTORY_SMTP_HOST", &cfg.Providers.SMTP.Host)
	if v := os.Getenv("AGENTFACTORY_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Providers.SMTP.Port = n
		}
	}
	str("AGENTFACTORY_SMTP_USERNAME", &cfg.Providers.SMTP.Username)
	str("AGENTFACTORY_SMTP_PASSWORD", &cfg.Providers.SMTP.Password)
	str("AGENTFACTORY_SMTP_FROM", &cfg.Providers.SMTP.From)
	str("AGENTFACTORY_CALENDAR_TOKEN", &cfg.Providers.Calendar.Token)
	str("AGENTFACTORY_CALENDAR_ID", &cfg.Providers.Calendar.CalendarID)
	str("AGENTFACTORY_CALENDAR_CLIENT_ID", &cfg.Providers.Calendar.ClientID)
	str("AGENTFACTORY_CALENDAR_CLIENT_SECRET", &cfg.Providers.Calendar.ClientSecret)
	str("AGENTFACTORY_CALENDAR_REFRESH_TOKEN", &cfg.Providers.Calendar.RefreshToken)
	str("AGENTFACTORY_X_BEARER_TOKEN", &cfg.Providers.X.BearerToken)
	str("AGENTFACTORY_TIME_ZONE", &cfg.Providers.TimeZone)
	str("AGENTFACTORY_DEFAULT_RECIPIENT", &cfg.Providers.DefaultRecipient)
}
