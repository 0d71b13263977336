package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take precedence
// over values from the config file and use the SCRAPER_ prefix with
// underscores for nesting (e.g., SCRAPER_DATABASE_URL, SCRAPER_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; absence is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so bind every key we consume explicitly.
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// configKeys lists every configuration key so env-only values can be bound.
var configKeys = []string{
	"server.port",
	"server.log_level",
	"database.url",
	"scraper.timeout_seconds",
	"scraper.user_agent",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.prompt_template_path",
	"llm.max_retries",
	"llm.retry_delay_seconds",
	"llm.timeout_seconds",
	"task.worker_count",
	"task.queue_size",
	"task.dispatch_interval_seconds",
	"task.dispatch_batch_size",
	"task.visibility_timeout_seconds",
	"task.claim_lease_seconds",
}

// setDefaults applies the documented defaults. The dispatch interval and
// batch size come from the original scraping worker's schedule; the
// visibility timeout and claim lease mirror its 5 minute hard task limit.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault(
		"scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.dispatch_interval_seconds", 10)
	v.SetDefault("task.dispatch_batch_size", 10)
	v.SetDefault("task.visibility_timeout_seconds", 300)
	v.SetDefault("task.claim_lease_seconds", 300)
}
