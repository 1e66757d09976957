package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Staff     StaffConfig     `mapstructure:"staff"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains settings for the operator trigger surface.
// Tokens carry a binary staff claim, nothing more.
type AuthConfig struct {
	TokenSecret        string `mapstructure:"token_secret" validate:"required,min=32"`
	TokenLifetimeHours int    `mapstructure:"token_lifetime_hours" validate:"gte=0"`
}

// LLMConfig contains all settings for the external extraction call.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name" validate:"required"`

	// PromptTemplatePath optionally overrides the built-in extraction
	// prompt template.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`

	// MaxRetries is the number of additional attempts after the first
	// failed call. Only transient failures are retried.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelaySeconds is the base delay for exponential backoff.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`

	// RequestTimeoutSeconds bounds a single extraction attempt.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// SchedulerConfig contains settings for the timed triggers.
type SchedulerConfig struct {
	// BatchInterval is the cadence of the periodic batch trigger.
	BatchInterval time.Duration `mapstructure:"batch_interval" validate:"required"`

	// ReportTime is the local wall-clock time ("HH:MM") of the daily
	// report trigger.
	ReportTime string `mapstructure:"report_time" validate:"required"`

	// Timezone is the IANA zone name used to interpret ReportTime.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// StaffConfig holds the static staff allow-lists. These are merged with the
// persisted staff_members table at query time.
type StaffConfig struct {
	Usernames []string `mapstructure:"usernames"`
	UserIDs   []int64  `mapstructure:"user_ids"`
}
