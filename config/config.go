package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/s0up4200/vivialconnect/requestor"
)

// EnvPrefix prefixes every environment override, e.g.
// VIVIALCONNECT_ACCOUNT_API_KEY for account.api_key.
const EnvPrefix = "VIVIALCONNECT"

// placeholderKey is the api_key value shipped in the example config
const placeholderKey = "your-api-key-here"

// ErrNotFound is returned when an explicitly named config file is missing
var ErrNotFound = errors.New("config file not found")

// envKeys are bound explicitly so they unmarshal without a config file
var envKeys = []string{
	"account.id",
	"account.api_key",
	"account.api_secret",
	"api.base_url",
	"api.timeout",
	"api.verify_tls",
	"api.user_agent",
	"cli.output",
	"cli.concurrency",
	"logging.level",
	"logging.format",
	"logging.color",
}

// Load reads the configuration from the OS filesystem
func Load(configPath string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), configPath)
}

// LoadFs reads configuration from fs. Sources, lowest precedence first:
// defaults, the config file, a .env file next to it and the environment.
// Without configPath the file is optional and searched for as config.yaml
// in ., ~/.vivialconnect and /etc/vivialconnect.
func LoadFs(fs afero.Fs, configPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vivialconnect"))
		}
		v.AddConfigPath("/etc/vivialconnect/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// env only
		case configPath != "" && isNotExist(fs, configPath):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, configPath)
		default:
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	dotenvDir := "."
	if used := v.ConfigFileUsed(); used != "" {
		dotenvDir = filepath.Dir(used)
	}
	if err := loadDotenv(fs, filepath.Join(dotenvDir, ".env")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func isNotExist(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return errors.Is(err, os.ErrNotExist)
}

// loadDotenv exports the variables of a .env file that are unset or empty
// in the environment. A missing file is not an error.
func loadDotenv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}
	for k, val := range vars {
		if cur, set := os.LookupEnv(k); set && cur != "" {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return fmt.Errorf("error exporting %s: %w", k, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", requestor.DefaultBaseURL)
	v.SetDefault("api.timeout", requestor.DefaultTimeout)
	v.SetDefault("api.verify_tls", true)

	v.SetDefault("cli.output", "table")
	v.SetDefault("cli.concurrency", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Account),
		validation.Field(&c.API),
		validation.Field(&c.CLI),
		validation.Field(&c.Logging),
	)
}

func (a AccountConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required, is.Digit),
		validation.Field(&a.APIKey, validation.Required, validation.NotIn(placeholderKey).Error("must be set to a valid API key")),
		validation.Field(&a.APISecret, validation.Required),
	)
}

func (a APIConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, validation.Required, is.URL),
		validation.Field(&a.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c CLIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Output, validation.In("table", "json", "yaml")),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

// Credentials returns the account credentials for requestor.New
func (c *Config) Credentials() requestor.Credentials {
	return requestor.Credentials{
		APIKey:    c.Account.APIKey,
		APISecret: c.Account.APISecret,
		AccountID: c.Account.ID,
	}
}

// RequestorOptions translates the api section into requestor options
func (c *Config) RequestorOptions() []requestor.Option {
	opts := []requestor.Option{
		requestor.WithBaseURL(c.API.BaseURL),
	}
	if c.API.Timeout > 0 {
		opts = append(opts, requestor.WithTimeout(c.API.Timeout))
	}
	if !c.API.VerifyTLS {
		opts = append(opts, requestor.WithInsecureSkipVerify(true))
	}
	if c.API.UserAgent != "" {
		opts = append(opts, requestor.WithUserAgent(c.API.UserAgent))
	}
	return opts
}
