package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "deskforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DESKFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "DESKFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "DESKFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "DESKFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "DESKFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "DESKFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "DESKFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setDuration(&cfg.NATS.SearchTimeout, "DESKFORGE_VECTOR_SEARCH_TIMEOUT")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "DESKFORGE_LLM_MODEL")
	setInt(&cfg.LiteLLM.MaxTokens, "DESKFORGE_LLM_MAX_TOKENS")
	setString(&cfg.Logging.Level, "DESKFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DESKFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "DESKFORGE_LOG_ASYNC")
	setInt(&cfg.Logging.Buffer, "DESKFORGE_LOG_BUFFER")
	setInt(&cfg.Logging.Workers, "DESKFORGE_LOG_WORKERS")
	setInt(&cfg.Breaker.MaxFailures, "DESKFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.ResetAfter, "DESKFORGE_BREAKER_RESET_AFTER")
	setDuration(&cfg.Breaker.CallTimeout, "DESKFORGE_BREAKER_CALL_TIMEOUT")
	setInt(&cfg.Breaker.MaxRequests, "DESKFORGE_BREAKER_MAX_REQUESTS")
	setDuration(&cfg.Breaker.RateWindow, "DESKFORGE_BREAKER_RATE_WINDOW")
	setFloat64(&cfg.Rate.RequestsPerSecond, "DESKFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "DESKFORGE_RATE_BURST")
	setInt(&cfg.Rate.MaxClients, "DESKFORGE_RATE_MAX_CLIENTS")
	setDuration(&cfg.Retriever.CacheTTL, "DESKFORGE_RETRIEVER_CACHE_TTL")
	setInt64(&cfg.Retriever.CacheSizeMB, "DESKFORGE_RETRIEVER_CACHE_SIZE_MB")
	setInt(&cfg.Retriever.TopK, "DESKFORGE_RETRIEVER_TOP_K")
	setDuration(&cfg.Retriever.SearchBudget, "DESKFORGE_RETRIEVER_SEARCH_BUDGET")
	setFloat64(&cfg.Router.ConfidenceThreshold, "DESKFORGE_ROUTER_CONFIDENCE")
	setBool(&cfg.Telemetry.Enabled, "DESKFORGE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "DESKFORGE_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Router.ConfidenceThreshold <= 0 || cfg.Router.ConfidenceThreshold > 1 {
		return errors.New("router.confidence_threshold must be in (0, 1]")
	}
	if cfg.Retriever.TopK < 1 {
		return errors.New("retriever.top_k must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
