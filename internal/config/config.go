package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Scraper  ScraperConfig  `mapstructure:"scraper"  validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// ScraperConfig contains settings for the page fetcher.
type ScraperConfig struct {
	// TimeoutSeconds bounds a single page fetch, network I/O included.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`

	// UserAgent is sent with every fetch request. Some venue sites block
	// requests without a browser-looking user agent.
	UserAgent string `mapstructure:"user_agent"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// PromptTemplatePath optionally overrides the built-in extraction prompt.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`

	// MaxRetries is the number of retry attempts for transient API errors.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelaySeconds is the base delay for exponential backoff between retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`

	// TimeoutSeconds bounds a single extraction call end to end.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// TaskConfig contains the task lifecycle engine settings: dispatcher cadence,
// executor pool sizing and the redelivery/lease bounds.
type TaskConfig struct {
	// WorkerCount determines how many executor workers pull from the broker.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the broker's bounded queue capacity.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// DispatchIntervalSeconds is the dispatcher's fixed period.
	DispatchIntervalSeconds int `mapstructure:"dispatch_interval_seconds" validate:"required,gt=0"`

	// DispatchBatchSize bounds how many eligible tasks one cycle enqueues.
	DispatchBatchSize int `mapstructure:"dispatch_batch_size" validate:"required,gt=0"`

	// VisibilityTimeoutSeconds is how long the broker waits for an ack
	// before redelivering a message.
	VisibilityTimeoutSeconds int `mapstructure:"visibility_timeout_seconds" validate:"required,gt=0"`

	// ClaimLeaseSeconds is how long a processing claim is honored before the
	// task may be re-claimed by another worker (stale-lease recovery). Keep
	// this >= VisibilityTimeoutSeconds so a redelivered message can actually
	// re-claim the task it carries.
	ClaimLeaseSeconds int `mapstructure:"claim_lease_seconds" validate:"required,gt=0"`
}
