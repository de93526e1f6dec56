package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
)

const sampleConfig = `
account:
  id: "10001"
  api_key: file-key
  api_secret: file-secret
api:
  timeout: 5s
filters:
  failed: status == "failed"
logging:
  level: debug
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VIVIALCONNECT_ACCOUNT_ID",
		"VIVIALCONNECT_ACCOUNT_API_KEY",
		"VIVIALCONNECT_ACCOUNT_API_SECRET",
		"VIVIALCONNECT_API_BASE_URL",
		"VIVIALCONNECT_LOGGING_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/vc/config.yaml", []byte(sampleConfig), 0o600))

	cfg, err := LoadFs(fs, "/etc/vc/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "10001", cfg.Account.ID)
	assert.Equal(t, "file-key", cfg.Account.APIKey)
	assert.Equal(t, requestor.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.VerifyTLS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "table", cfg.CLI.Output)
	assert.Equal(t, `status == "failed"`, cfg.Filters["failed"])

	creds := cfg.Credentials()
	assert.Equal(t, requestor.Credentials{APIKey: "file-key", APISecret: "file-secret", AccountID: "10001"}, creds)
	assert.Len(t, cfg.RequestorOptions(), 2)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte(sampleConfig), 0o600))

	t.Setenv("VIVIALCONNECT_ACCOUNT_API_KEY", "env-key")
	t.Setenv("VIVIALCONNECT_API_BASE_URL", "https://staging.example.com/api/v1.0")

	cfg, err := LoadFs(fs, "/cfg/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Account.APIKey)
	assert.Equal(t, "file-secret", cfg.Account.APISecret)
	assert.Equal(t, "https://staging.example.com/api/v1.0", cfg.API.BaseURL)
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte("logging:\n  format: json\n"), 0o600))
	dotenv := "VIVIALCONNECT_ACCOUNT_ID=20002\nVIVIALCONNECT_ACCOUNT_API_KEY=dotenv-key\nVIVIALCONNECT_ACCOUNT_API_SECRET=dotenv-secret\n"
	require.NoError(t, afero.WriteFile(fs, "/cfg/.env", []byte(dotenv), 0o600))

	cfg, err := LoadFs(fs, "/cfg/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "20002", cfg.Account.ID)
	assert.Equal(t, "dotenv-secret", cfg.Account.APISecret)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := LoadFs(afero.NewMemMapFs(), "/nope/config.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Account: AccountConfig{ID: "10001", APIKey: "key", APISecret: "secret"},
			API:     APIConfig{BaseURL: requestor.DefaultBaseURL, Timeout: time.Second, VerifyTLS: true},
			CLI:     CLIConfig{Output: "table", Concurrency: 4},
			Logging: LoggingConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing account id", mutate: func(c *Config) { c.Account.ID = "" }, wantErr: "ID"},
		{name: "non numeric account id", mutate: func(c *Config) { c.Account.ID = "abc" }, wantErr: "ID"},
		{name: "placeholder key", mutate: func(c *Config) { c.Account.APIKey = placeholderKey }, wantErr: "valid API key"},
		{name: "missing secret", mutate: func(c *Config) { c.Account.APISecret = "" }, wantErr: "APISecret"},
		{name: "bad base url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, wantErr: "BaseURL"},
		{name: "bad output", mutate: func(c *Config) { c.CLI.Output = "xml" }, wantErr: "Output"},
		{name: "zero concurrency", mutate: func(c *Config) { c.CLI.Concurrency = 0 }, wantErr: "Concurrency"},
		{name: "negative concurrency", mutate: func(c *Config) { c.CLI.Concurrency = -2 }, wantErr: "Concurrency"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "Level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
