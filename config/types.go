package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Account AccountConfig `mapstructure:"account"`
	API     APIConfig     `mapstructure:"api"`
	Filters FilterConfig  `mapstructure:"filters"`
	CLI     CLIConfig     `mapstructure:"cli"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AccountConfig holds the account the client acts for and its API key pair
type AccountConfig struct {
	ID        string `mapstructure:"id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// APIConfig controls how requests reach the service
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	UserAgent string        `mapstructure:"user_agent"`
}

// FilterConfig maps filter names to expressions usable with --where
type FilterConfig map[string]string

// CLIConfig contains command line defaults
type CLIConfig struct {
	Output      string `mapstructure:"output"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
