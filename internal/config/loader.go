package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "mailwarden.yaml"

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
	setString(&cfg.Server.Port, "MAILWARDEN_PORT")
	setString(&cfg.Server.CORSOrigin, "MAILWARDEN_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "MAILWARDEN_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "MAILWARDEN_SHUTDOWN_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "MAILWARDEN_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "MAILWARDEN_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "MAILWARDEN_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "MAILWARDEN_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "MAILWARDEN_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Intake, "MAILWARDEN_NATS_INTAKE")
	setString(&cfg.Logging.Level, "MAILWARDEN_LOG_LEVEL")
	setString(&cfg.Logging.Service, "MAILWARDEN_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "MAILWARDEN_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "MAILWARDEN_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "MAILWARDEN_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "MAILWARDEN_RATE_RPS")
	setInt(&cfg.Rate.Burst, "MAILWARDEN_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "MAILWARDEN_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "MAILWARDEN_RATE_MAX_IDLE_TIME")

	// Narrative
	setString(&cfg.Narrative.Provider, "MAILWARDEN_NARRATIVE_PROVIDER")
	setString(&cfg.Narrative.Model, "MAILWARDEN_NARRATIVE_MODEL")
	setString(&cfg.Narrative.URL, "LITELLM_URL")
	if cfg.Narrative.Provider == ProviderAnthropic {
		setString(&cfg.Narrative.APIKey, "ANTHROPIC_API_KEY")
	} else {
		setString(&cfg.Narrative.APIKey, "LITELLM_MASTER_KEY")
	}
	setDuration(&cfg.Narrative.Timeout, "MAILWARDEN_NARRATIVE_TIMEOUT")
	setInt(&cfg.Narrative.MaxTokens, "MAILWARDEN_NARRATIVE_MAX_TOKENS")
	setFloat64(&cfg.Narrative.Temperature, "MAILWARDEN_NARRATIVE_TEMPERATURE")

	// Cache
	setInt(&cfg.Cache.L1MaxSizeMB, "MAILWARDEN_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "MAILWARDEN_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Bucket, "MAILWARDEN_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "MAILWARDEN_CACHE_L2_TTL")

	// OTel
	setBool(&cfg.OTel.Enabled, "MAILWARDEN_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "MAILWARDEN_OTEL_INSECURE")
	setFloat64(&cfg.OTel.SampleRate, "MAILWARDEN_OTEL_SAMPLE_RATE")

	// Alerts
	setDuration(&cfg.Alerts.Timeout, "MAILWARDEN_ALERT_TIMEOUT")
	setString(&cfg.Alerts.Slack.WebhookURL, "MAILWARDEN_SLACK_WEBHOOK_URL")
	setString(&cfg.Alerts.Discord.WebhookURL, "MAILWARDEN_DISCORD_WEBHOOK_URL")
	setString(&cfg.Alerts.Email.Host, "MAILWARDEN_SMTP_HOST")
	setInt(&cfg.Alerts.Email.Port, "MAILWARDEN_SMTP_PORT")
	setString(&cfg.Alerts.Email.From, "MAILWARDEN_SMTP_FROM")
	setString(&cfg.Alerts.Email.Username, "MAILWARDEN_SMTP_USERNAME")
	setString(&cfg.Alerts.Email.Password, "MAILWARDEN_SMTP_PASSWORD")

	// Coordination
	setString(&cfg.Coordination.Rules.Actions.QuarantineFolder, "MAILWARDEN_QUARANTINE_FOLDER")
	setStrings(&cfg.Coordination.Rules.Actions.AlertRecipients, "MAILWARDEN_ALERT_RECIPIENTS")
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
	switch cfg.Narrative.Provider {
	case ProviderLiteLLM:
		if cfg.Narrative.URL == "" {
			return errors.New("narrative.url is required for the litellm provider")
		}
	case ProviderAnthropic:
		if cfg.Narrative.APIKey == "" {
			return errors.New("narrative.api_key is required for the anthropic provider")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("narrative.provider %q must be litellm, anthropic or none", cfg.Narrative.Provider)
	}
	if cfg.Narrative.Timeout <= 0 {
		return errors.New("narrative.timeout must be > 0")
	}
	if cfg.Cache.L2Bucket == "" {
		return errors.New("cache.l2_bucket is required")
	}
	if cfg.Alerts.Email.Host != "" && cfg.Alerts.Email.From == "" {
		return errors.New("alerts.email.from is required when alerts.email.host is set")
	}
	if err := cfg.Coordination.Rules.Validate(); err != nil {
		return fmt.Errorf("coordination: %w", err)
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

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
