package config

import (
	"time"
)

// Config represents the complete configuration for parley
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configures the OpenRouter client
	API APIConfig `json:"api"`

	// Google configures the Gemini backend
	Google GoogleConfig `json:"google"`

	// Generation holds sampling and timeout settings for agent replies
	Generation GenerationConfig `json:"generation"`

	// Storage locates the local cache and the record store
	Storage StorageConfig `json:"storage"`

	// Knowledge selects how knowledge items reach the prompt
	Knowledge KnowledgeConfig `json:"knowledge"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// APIConfig holds OpenRouter settings
type APIConfig struct {
	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// APIKey for authentication (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty"`

	// SiteURL and SiteName are sent as ranking headers
	SiteURL  string `json:"site_url,omitempty" validate:"omitempty,url"`
	SiteName string `json:"site_name,omitempty"`

	// Timeout for API requests
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`

	// Retry for API request retries
	Retry RetryConfig `json:"retry,omitempty"`
}

// RetryConfig defines retry behavior for API requests
type RetryConfig struct {
	MaxRetries   int           `json:"max_retries" validate:"min=0,max=10"`
	InitialDelay time.Duration `json:"initial_delay" validate:"min=0"`
}

// GoogleConfig holds Gemini settings
type GoogleConfig struct {
	APIKey string `json:"api_key,omitempty"`
}

// GenerationConfig defines how agent replies are generated
type GenerationConfig struct {
	// Providers lists the backends built at startup
	Providers []string `json:"providers" validate:"dive,provider"`

	// Timeout bounds one agent reply
	Timeout time.Duration `json:"timeout" validate:"min=0"`

	Temperature float32 `json:"temperature" validate:"min=0,max=2"`
	TopP        float32 `json:"top_p" validate:"min=0,max=1"`
	TopK        int32   `json:"top_k" validate:"min=0"`

	// MaxTokens caps reply length; zero leaves it to the provider
	MaxTokens int32 `json:"max_tokens" validate:"min=0"`

	// Environment adds platform and date details to system prompts
	Environment bool `json:"environment"`
}

// StorageConfig locates persisted state
type StorageConfig struct {
	// CacheDir holds the local key-value cache
	CacheDir string `json:"cache_dir"`

	// Driver and DSN select the record store. An empty driver disables it.
	Driver string `json:"driver,omitempty" validate:"driver"`
	DSN    string `json:"dsn,omitempty"`

	// AutoMigrate creates the schema on open
	AutoMigrate bool `json:"auto_migrate"`

	// WriteTimeout bounds one record store write
	WriteTimeout time.Duration `json:"write_timeout" validate:"min=0"`
}

// KnowledgeConfig defines knowledge relevance
type KnowledgeConfig struct {
	// Policy is one of all, none, keyword, semantic
	Policy string `json:"policy" validate:"relevance_policy"`

	// TopK limits the items kept by ranking policies
	TopK int `json:"top_k" validate:"min=0"`

	// MaxBytes caps the file content read for one item
	MaxBytes int64 `json:"max_bytes" validate:"min=0"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`

	// File receives JSON logs when set
	File string `json:"file,omitempty"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
)
