package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var ErrConfiguration = errors.New("configuration error")

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type PostgresConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	DB       string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"gte=1"`
	MinConns int32  `validate:"gte=0,ltefield=MaxConns"`
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type JWTConfig struct {
	SecretKey string        `validate:"required,min=16"`
	TokenTTL  time.Duration `validate:"gt=0"`
	// DevTokens exposes the token minting endpoint. Never enable in production.
	DevTokens bool
}

type RecommenderConfig struct {
	Provider          string        `validate:"oneof=gemini openrouter"`
	Model             string        `validate:"required"`
	GeminiAPIKey      string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string        `validate:"omitempty,url"`
	Timeout           time.Duration `validate:"gt=0"`
}

// Enabled reports whether the configured provider has credentials.
func (r RecommenderConfig) Enabled() bool {
	switch r.Provider {
	case ProviderGemini:
		return r.GeminiAPIKey != ""
	case ProviderOpenRouter:
		return r.OpenRouterAPIKey != ""
	}
	return false
}

type ObservabilityConfig struct {
	ServiceName  string `validate:"required"`
	OTELEndpoint string
	MetricsAddr  string `validate:"required"`
	PprofAddr    string
}

type Config struct {
	Repositories  RepositoriesConfig
	ServerPort    string `validate:"required,numeric"`
	LogLevel      string `validate:"oneof=debug info warn error"`
	JWT           JWTConfig
	Recommender   RecommenderConfig
	Observability ObservabilityConfig
	// SuggestionSeed fixes the random source used for exploration picks. Zero seeds from the clock.
	SuggestionSeed int64
	CacheTTL       time.Duration `validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8091")
	v.SetDefault("log_level", "info")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_db", "vellorun")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("postgres_max_conns", 30)
	v.SetDefault("postgres_min_conns", 5)

	v.SetDefault("jwt_secret_key", "")
	v.SetDefault("jwt_token_ttl", "24h")
	v.SetDefault("jwt_dev_tokens", false)

	v.SetDefault("recommender_provider", ProviderOpenRouter)
	v.SetDefault("recommender_model", "google/gemini-2.0-flash-001")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("openrouter_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("recommender_timeout", "15s")

	v.SetDefault("service_name", "vellorun-backend")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("metrics_addr", ":9092")
	v.SetDefault("pprof_addr", ":6060")

	v.SetDefault("suggestion_seed", 0)
	v.SetDefault("cache_ttl", "10m")
}

// Load resolves configuration from defaults, an optional config.yaml and
// the environment, in increasing order of precedence, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     v.GetString("postgres_host"),
				Port:     v.GetString("postgres_port"),
				DB:       v.GetString("postgres_db"),
				Username: v.GetString("postgres_user"),
				Password: v.GetString("postgres_password"),
				SSLMode:  v.GetString("postgres_sslmode"),
				MaxConns: v.GetInt32("postgres_max_conns"),
				MinConns: v.GetInt32("postgres_min_conns"),
			},
		},
		ServerPort: v.GetString("server_port"),
		LogLevel:   strings.ToLower(v.GetString("log_level")),
		JWT: JWTConfig{
			SecretKey: v.GetString("jwt_secret_key"),
			TokenTTL:  v.GetDuration("jwt_token_ttl"),
			DevTokens: v.GetBool("jwt_dev_tokens"),
		},
		Recommender: RecommenderConfig{
			Provider:          strings.ToLower(v.GetString("recommender_provider")),
			Model:             v.GetString("recommender_model"),
			GeminiAPIKey:      v.GetString("gemini_api_key"),
			OpenRouterAPIKey:  v.GetString("openrouter_api_key"),
			OpenRouterBaseURL: v.GetString("openrouter_base_url"),
			Timeout:           v.GetDuration("recommender_timeout"),
		},
		Observability: ObservabilityConfig{
			ServiceName:  v.GetString("service_name"),
			OTELEndpoint: v.GetString("otel_endpoint"),
			MetricsAddr:  v.GetString("metrics_addr"),
			PprofAddr:    v.GetString("pprof_addr"),
		},
		SuggestionSeed: v.GetInt64("suggestion_seed"),
		CacheTTL:       v.GetDuration("cache_ttl"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}
