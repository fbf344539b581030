// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the CHATBOT_ prefix (runtime override)
//  2. Config file (chatbot.yaml in the working directory or ~/.chatbot/)
//  3. Default values
//
// Sensitive values (API keys) are read from the environment only and are
// masked when the configuration is serialized.
package config

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider identifiers accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Defaults applied when neither file nor environment supplies a value.
const (
	DefaultHTTPAddr = ":8080"

	DefaultMaxTurns     = 50
	DefaultWindowTurns  = 10
	DefaultMaxSessions  = 10000
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultSweepEvery   = 5 * time.Minute
	DefaultTopK         = 5
	DefaultMinScore     = 0.5
	DefaultTokenBudget  = 6000
	DefaultMaxRetries   = 3
	DefaultEmbedDim     = 768
	DefaultGenTimeout   = 30 * time.Second
	DefaultReqTimeout   = 60 * time.Second
	DefaultMaxInFlight  = 64
	DefaultRateBurst    = 60
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultOpenAIEmbed  = "text-embedding-3-small"
	DefaultGeminiModel  = "gemini-2.5-flash"
	DefaultGeminiEmbed  = "gemini-embedding-001"
	DefaultSystemPrompt = "You are a helpful assistant. Answer using only the provided context passages. Cite nothing outside them."
)

// Config stores application configuration.
// SECURITY: API keys are masked in MarshalJSON; update it when adding secrets.
type Config struct {
	// Provider and model selection
	Provider      string `mapstructure:"provider" json:"provider"` // "openai" (default) or "gemini"
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedDim      int    `mapstructure:"embed_dim" json:"embed_dim"`
	OpenAIKey     string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE
	GeminiKey     string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	// HTTP boundary
	HTTPAddr    string   `mapstructure:"http_addr" json:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"` // empty = allow any origin
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Session store
	MaxTurns      int           `mapstructure:"max_turns" json:"max_turns"`
	WindowTurns   int           `mapstructure:"window_turns" json:"window_turns"`
	MaxSessions   int           `mapstructure:"max_sessions" json:"max_sessions"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval"`

	// Retrieval
	TopK     int     `mapstructure:"top_k" json:"top_k"`
	MinScore float64 `mapstructure:"min_score" json:"min_score"`

	// Prompt assembly
	SystemPrompt string `mapstructure:"system_prompt" json:"system_prompt"`
	TokenBudget  int    `mapstructure:"token_budget" json:"token_budget"`

	// Generation
	MaxRetries     int           `mapstructure:"max_retries" json:"max_retries"`
	GenTimeout     time.Duration `mapstructure:"gen_timeout" json:"gen_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	MaxInFlight    int           `mapstructure:"max_in_flight" json:"max_in_flight"`

	// Storage
	PostgresURL string `mapstructure:"postgres_url" json:"postgres_url"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load reads configuration from defaults, an optional config file, and the
// environment. Missing files are not an error; invalid files are.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("chatbot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.chatbot")

	v.SetEnvPrefix("CHATBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "")
	v.SetDefault("embedder_model", "")
	v.SetDefault("embed_dim", DefaultEmbedDim)
	v.SetDefault("openai_base_url", "")

	v.SetDefault("http_addr", DefaultHTTPAddr)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("rate_burst", DefaultRateBurst)
	v.SetDefault("trust_proxy", false)

	v.SetDefault("max_turns", DefaultMaxTurns)
	v.SetDefault("window_turns", DefaultWindowTurns)
	v.SetDefault("max_sessions", DefaultMaxSessions)
	v.SetDefault("idle_timeout", DefaultIdleTimeout)
	v.SetDefault("sweep_interval", DefaultSweepEvery)

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("min_score", DefaultMinScore)

	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("token_budget", DefaultTokenBudget)

	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("gen_timeout", DefaultGenTimeout)
	v.SetDefault("request_timeout", DefaultReqTimeout)
	v.SetDefault("max_in_flight", DefaultMaxInFlight)

	v.SetDefault("postgres_url", "postgres://localhost:5432/chatbot?sslmode=disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// ResolvedModel returns the completion model name, falling back to the
// provider default when unset.
func (c *Config) ResolvedModel() string {
	if c.ModelName != "" {
		return c.ModelName
	}
	if c.Provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

// ResolvedEmbedder returns the embedding model name, falling back to the
// provider default when unset.
func (c *Config) ResolvedEmbedder() string {
	if c.EmbedderModel != "" {
		return c.EmbedderModel
	}
	if c.Provider == ProviderGemini {
		return DefaultGeminiEmbed
	}
	return DefaultOpenAIEmbed
}

// MarshalJSON masks sensitive fields so configs can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.OpenAIKey != "" {
		masked.OpenAIKey = "***"
	}
	if masked.GeminiKey != "" {
		masked.GeminiKey = "***"
	}
	if masked.PostgresURL != "" {
		masked.PostgresURL = maskURL(masked.PostgresURL)
	}
	return json.Marshal(masked)
}

// maskURL hides the userinfo portion of a connection URL.
func maskURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}
