package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validYAML = `
name: "test-gateway"
host: "127.0.0.1"
port: 8080
log_level: "debug"
cors_origins:
  - "*"
gateway:
  base_url: "https://localhost:5000/v1/api"
  timeout: 10
  retries: 3
rate_limit:
  enabled: true
  requests_per_minute: 100
stream:
  update_interval_seconds: 5
  error_backoff_seconds: 10
`

// -----------------------------------------------------------------------------

func TestNewConfig_Valid(t *testing.T) {
	conf, err := NewConfig(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-gateway", conf.Name)
	assert.Equal(t, 8080, conf.Port)
	assert.Equal(t, "https://localhost:5000/v1/api", conf.Gateway.BaseURL)
	assert.Equal(t, 3, conf.Gateway.MaxRetries)
	assert.True(t, conf.RateLimit.Enabled)
	assert.Equal(t, 5, conf.Stream.UpdateIntervalSeconds)
}

func TestNewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewConfig_InvalidYAML(t *testing.T) {
	_, err := NewConfig(writeConfigFile(t, "name: [broken"))
	assert.Error(t, err)
}

func TestNewConfig_Defaults(t *testing.T) {
	minimal := `
name: "test-gateway"
host: "127.0.0.1"
port: 8080
gateway:
  base_url: "https://localhost:5000/v1/api"
`
	conf, err := NewConfig(writeConfigFile(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, 10, conf.Gateway.RequestTimeout)
	assert.Equal(t, 1, conf.Gateway.RetryDelaySeconds)
	assert.Equal(t, 100, conf.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, conf.Stream.UpdateIntervalSeconds)
	assert.Equal(t, 10, conf.Stream.ErrorBackoffSeconds)
	assert.Equal(t, "X-API-Key", conf.Security.APIKeyHeader)
}

func TestNewConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `
host: "127.0.0.1"
port: 8080
gateway:
  base_url: "https://localhost:5000/v1/api"
`},
		{"missing host", `
name: "x"
port: 8080
gateway:
  base_url: "https://localhost:5000/v1/api"
`},
		{"privileged port", `
name: "x"
host: "127.0.0.1"
port: 80
gateway:
  base_url: "https://localhost:5000/v1/api"
`},
		{"missing gateway url", `
name: "x"
host: "127.0.0.1"
port: 8080
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfigFile(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_API_KEY", "from-env")
	t.Setenv("GATEWAY_ACCOUNT_ID", "DU99999")

	conf, err := NewConfig(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", conf.Security.APIKey)
	assert.Equal(t, "DU99999", conf.Gateway.AccountID)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	conf, err := NewConfig(writeConfigFile(t, validYAML))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, conf.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, conf.Name, reloaded.Name)
	assert.Equal(t, conf.Gateway.BaseURL, reloaded.Gateway.BaseURL)
}
