// Package config loads the healthbot configuration from defaults, an
// optional YAML file and environment variables.
//
// Every key can be overridden with a HEALTHBOT_ prefixed variable where dots
// become underscores (llm.model -> HEALTHBOT_LLM_MODEL). The variable names
// used by earlier deployments (POSTGRES_URL, OPENAI_API_KEY, TWILIO_* ...)
// are honoured as well.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/healthbot/store"
)

// EnvPrefix is the prefix of all healthbot environment variables.
const EnvPrefix = "HEALTHBOT"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  store.Config    `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Responder LLMConfig       `mapstructure:"responder"`
	Search    SearchConfig    `mapstructure:"search"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	// RateLimit is the sustained number of chat requests per second per user.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Backend string `mapstructure:"backend"`
}

// SessionConfig configures short-term memory.
type SessionConfig struct {
	Backend  string        `mapstructure:"backend"` // memory or redis
	RedisURL string        `mapstructure:"redis_url"`
	MaxTurns int           `mapstructure:"max_turns"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LLMConfig selects a model provider.
type LLMConfig struct {
	Provider    string   `mapstructure:"provider"` // openai, openrouter, anthropic or mock
	Model       string   `mapstructure:"model"`
	APIKey      string   `mapstructure:"api_key"`
	BaseURL     string   `mapstructure:"base_url"`
	Temperature *float64 `mapstructure:"temperature"`
}

// SearchConfig configures web search.
type SearchConfig struct {
	Provider   string `mapstructure:"provider"` // tavily or none
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// AlertConfig configures the emergency contact gateway.
type AlertConfig struct {
	Provider   string        `mapstructure:"provider"` // twilio or log
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	BaseURL    string        `mapstructure:"base_url"`
	From       string        `mapstructure:"from"`
	To         string        `mapstructure:"to"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
}

// AssistantConfig tunes the workflow.
type AssistantConfig struct {
	Region             string        `mapstructure:"region"`
	PromptsFile        string        `mapstructure:"prompts_file"`
	MemoryPairs        int           `mapstructure:"memory_pairs"`
	FrequencyWindow    time.Duration `mapstructure:"frequency_window"`
	FrequencyThreshold int           `mapstructure:"frequency_threshold"`
	EmergencyWindow    time.Duration `mapstructure:"emergency_window"`
	EmergencyThreshold int           `mapstructure:"emergency_threshold"`
	RiskThreshold      float64       `mapstructure:"risk_threshold"`
	MaxSteps           int           `mapstructure:"max_steps"`
	MaxModelCalls      int           `mapstructure:"max_model_calls"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// legacyEnv maps keys to the environment names used before the HEALTHBOT_
// prefix existed.
var legacyEnv = map[string]string{
	"database.dsn":      "POSTGRES_URL",
	"search.api_key":    "TAVILY_API_KEY",
	"alert.account_sid": "TWILIO_ACCOUNT_SID",
	"alert.auth_token":  "TWILIO_AUTH_TOKEN",
	"alert.from":        "TWILIO_WHATSAPP_FROM",
	"alert.to":          "EMERGENCY_CONTACT",
	"session.redis_url": "REDIS_URL",
}

// providerKeyEnv names the API key variable of each model provider. It is
// consulted when no key is configured explicitly.
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

// Load reads the configuration. An empty path searches ./healthbot.yaml and
// ./configs/healthbot.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("healthbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	resolveKey(v, &cfg.LLM, "llm")
	resolveKey(v, &cfg.Responder, "responder")

	if cfg.Database.Type == "" {
		cfg.Database.Type = inferDriver(cfg.Database.DSN)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.rate_burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.backend", "slog")

	v.SetDefault("database.type", "")
	v.SetDefault("database.dsn", "healthbot.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redis_url", "")
	v.SetDefault("session.max_turns", 20)
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("responder.provider", "")
	v.SetDefault("responder.model", "")
	v.SetDefault("responder.api_key", "")
	v.SetDefault("responder.base_url", "")

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.max_results", 1)

	v.SetDefault("alert.provider", "log")
	v.SetDefault("alert.account_sid", "")
	v.SetDefault("alert.auth_token", "")
	v.SetDefault("alert.base_url", "")
	v.SetDefault("alert.from", "")
	v.SetDefault("alert.to", "")
	v.SetDefault("alert.cooldown", 10*time.Minute)

	v.SetDefault("assistant.region", "India")
	v.SetDefault("assistant.prompts_file", "")
	v.SetDefault("assistant.memory_pairs", 5)
	v.SetDefault("assistant.frequency_window", 7*24*time.Hour)
	v.SetDefault("assistant.frequency_threshold", 3)
	v.SetDefault("assistant.emergency_window", 30*24*time.Hour)
	v.SetDefault("assistant.emergency_threshold", 3)
	v.SetDefault("assistant.risk_threshold", 0.85)
	v.SetDefault("assistant.max_steps", 25)
	v.SetDefault("assistant.max_model_calls", 12)
	v.SetDefault("assistant.timeout", 60*time.Second)
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server rate limit must not be negative"))
	}

	switch c.Database.Type {
	case "postgres", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.type %q: %w", c.Database.Type, store.ErrUnsupportedDriver))
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("session.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session.backend %q", c.Session.Backend))
	}

	errs = append(errs, c.LLM.validate("llm", false)...)
	errs = append(errs, c.Responder.validate("responder", true)...)

	switch c.Search.Provider {
	case "none":
	case "tavily":
		if c.Search.APIKey == "" {
			errs = append(errs, errors.New("search.api_key (TAVILY_API_KEY) is required for tavily"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search.provider %q", c.Search.Provider))
	}

	switch c.Alert.Provider {
	case "log":
	case "twilio":
		if c.Alert.AccountSID == "" || c.Alert.AuthToken == "" || c.Alert.From == "" || c.Alert.To == "" {
			errs = append(errs, errors.New("alert: twilio needs account_sid, auth_token, from and to"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown alert.provider %q", c.Alert.Provider))
	}

	if r := c.Assistant.RiskThreshold; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("assistant.risk_threshold %v must be in (0, 1]", r))
	}

	if c.Assistant.MaxSteps < 1 {
		errs = append(errs, errors.New("assistant.max_steps must be positive"))
	}

	return errors.Join(errs...)
}

func (l LLMConfig) validate(prefix string, optional bool) []error {
	if optional && l.Provider == "" {
		return nil
	}

	switch l.Provider {
	case "mock":
		return nil
	case "openai", "openrouter", "anthropic":
		if l.APIKey == "" {
			return []error{fmt.Errorf("%s.api_key (%s) is required for %s", prefix, providerKeyEnv[l.Provider], l.Provider)}
		}

		return nil
	default:
		return []error{fmt.Errorf("unknown %s.provider %q", prefix, l.Provider)}
	}
}

func resolveKey(v *viper.Viper, l *LLMConfig, prefix string) {
	if l.APIKey != "" {
		return
	}

	if env, ok := providerKeyEnv[l.Provider]; ok {
		key := prefix + ".provider_key"
		_ = v.BindEnv(key, env)
		l.APIKey = v.GetString(key)
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func inferDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}

	return "sqlite"
}
