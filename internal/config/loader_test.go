package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfigYAML = `
app:
  name: Inventory API
  version: 2.3.1
  debug: true
server:
  port: 8080
  api_prefix: /api/v2
database:
  host: db.internal
  port: 5433
  user: inventory
  password: ${TEST_DB_PASSWORD:-changeme}
  name: inventory
  max_conn_lifetime: 10m
redis:
  url: redis://cache:6379/0
health:
  probe_timeout: 2s
  parallel: false
  max_disk_percent: 90
logging:
  level: debug
  redact_headers:
    - X-Session-Token
  log_body_size: true
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sampleConfigYAML), 0o600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "Inventory API", cfg.App.Name)
	assert.Equal(t, "2.3.1", cfg.App.Version)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api/v2", cfg.Server.APIPrefix)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 10*time.Minute, cfg.Database.MaxConnLifetime.Duration())
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, 2*time.Second, cfg.Health.ProbeTimeout.Duration())
	assert.False(t, cfg.Health.RunParallel())
	assert.Equal(t, []string{"X-Session-Token"}, cfg.Logging.RedactHeaders)
	assert.True(t, cfg.Logging.LogBodySize)

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/", cfg.Health.DiskPath)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:  "empty document yields defaults",
			input: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name:  "partial override",
			input: "server:\n  port: 9000\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, DefaultAPIPrefix, cfg.Server.APIPrefix)
			},
		},
		{
			name:    "malformed yaml",
			input:   "server: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadConfigFromReader(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("APIBASE_TEST_HOST", "pg.example")
	t.Setenv("APIBASE_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "host: ${APIBASE_TEST_HOST}", want: "host: pg.example"},
		{name: "default used", input: "host: ${APIBASE_TEST_UNSET:-localhost}", want: "host: localhost"},
		{name: "set but empty beats default", input: "v: ${APIBASE_TEST_EMPTY:-x}", want: "v: "},
		{name: "unset without default", input: "v: ${APIBASE_TEST_UNSET}", want: "v: "},
		{name: "escaped dollar", input: "pw: $${NOT_A_VAR}", want: "pw: ${NOT_A_VAR}"},
		{name: "no pattern", input: "plain: text", want: "plain: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "from-env")

	cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
}
