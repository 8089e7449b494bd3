package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHistorydConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *HistorydConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  host: localhost
  port: 5432
  read_host: replica
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
  max_open_conns: 40
  conn_max_lifetime: "1h"
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_HISTORY"
  reconnect_wait: "5s"
journal:
  enabled: true
  pool_size: 8
  max_retry_elapsed: "30s"
history:
  delete_policy: with_message
  foreign_key: cascade
  table_suffix: _versions
`,
			validate: func(t *testing.T, cfg *HistorydConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "replica", cfg.Database.ReadHost)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 40, cfg.Database.MaxOpenConns)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_HISTORY", cfg.NATS.StreamName)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.True(t, cfg.Journal.Enabled)
				assert.Equal(t, 8, cfg.Journal.PoolSize)
				assert.Equal(t, 1000, cfg.Journal.QueueSize)
				assert.Equal(t, 30*time.Second, cfg.Journal.MaxRetryElapsed)
				assert.Equal(t, "with_message", cfg.History.DeletePolicy)
				assert.Equal(t, "cascade", cfg.History.ForeignKey)
				assert.Equal(t, "_versions", cfg.History.TableSuffix)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			validate: func(t *testing.T, cfg *HistorydConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "HISTORY", cfg.NATS.StreamName)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "ff-history", cfg.NATS.ConnectionName)
				assert.False(t, cfg.Journal.Enabled)
				assert.Equal(t, 4, cfg.Journal.PoolSize)
				assert.Equal(t, 5*time.Minute, cfg.Journal.MaxRetryElapsed)
				assert.Equal(t, "always", cfg.History.DeletePolicy)
				assert.Equal(t, "orphan", cfg.History.ForeignKey)
				assert.Equal(t, "_history", cfg.History.TableSuffix)
			},
		},
		{
			name:       "missing config file",
			configFile: "",
			validate: func(t *testing.T, cfg *HistorydConfig) {
				assert.Equal(t, 8080, cfg.Server.Port)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			var configFile string

			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			} else {
				configFile = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			cfg, err := LoadHistorydConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestDatabaseConfig_ReadDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "primary",
		Port:     5432,
		ReadHost: "replica",
		User:     "user",
		Password: "pass",
		DBName:   "db",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=replica port=5432 user=user password=pass dbname=db sslmode=disable", cfg.ReadDSN())

	cfg.ReadPort = 6432
	assert.Equal(t, "host=replica port=6432 user=user password=pass dbname=db sslmode=disable", cfg.ReadDSN())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// godotenv.Overload sets real environment variables; unset them afterwards
	envVars := map[string]string{
		"FF_HISTORY_DEBUG":                 "true",
		"FF_HISTORY_DATABASE_HOST":         "env-host",
		"FF_HISTORY_DATABASE_PORT":         "6543",
		"FF_HISTORY_JOURNAL_ENABLED":       "true",
		"FF_HISTORY_HISTORY_DELETE_POLICY": "never",
	}
	var envContent string
	for k, v := range envVars {
		envContent += k + "=" + v + "\n"
		t.Cleanup(func() { _ = os.Unsetenv(k) })
	}
	err = os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
journal:
  enabled: false
history:
  delete_policy: always
`
	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	cfg, err := LoadHistorydConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Environment variables from .env override the config file
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "never", cfg.History.DeletePolicy)
}
