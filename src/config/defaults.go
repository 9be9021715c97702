package config

import (
	"time"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	paths := GetDefaultStoragePaths()
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:  "https://openrouter.ai/api/v1",
			SiteName: "parley",
			Timeout:  60 * time.Second,
			Retry: RetryConfig{
				MaxRetries:   3,
				InitialDelay: 1 * time.Second,
			},
		},

		Generation: GenerationConfig{
			Providers:   []string{"google", "openrouter"},
			Timeout:     2 * time.Minute,
			Temperature: 0.7,
			TopP:        0.95,
			TopK:        64,
			Environment: true,
		},

		Storage: StorageConfig{
			CacheDir:     paths.CachePath,
			Driver:       "sqlite",
			DSN:          paths.DatabasePath,
			AutoMigrate:  true,
			WriteTimeout: 10 * time.Second,
		},

		Knowledge: KnowledgeConfig{
			Policy:   "all",
			TopK:     3,
			MaxBytes: 64 << 10,
		},

		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultLocalConfig returns a configuration without a record store
func DefaultLocalConfig() *Config {
	config := DefaultConfig()
	config.Storage.Driver = ""
	config.Storage.DSN = ""
	return config
}
