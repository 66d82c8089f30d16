package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/tmp/sortir", Backend: BackendBadger},
		Gateway: GatewayConfig{
			BaseURL:           "https://api.sortir.example",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Payment: PaymentConfig{CheckoutURL: "https://pay.sortir.example/checkout"},
	}
}

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "STORAGE_BACKEND", "REDIS_ADDR", "GATEWAY_URL",
		"GATEWAY_TIMEOUT", "GATEWAY_RPS", "CHECKOUT_URL", "PUSH_URL", "API_PORT", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"environment", func(c *Config) { c.App.Environment = "qa" }, "invalid environment"},
		{"log level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }, "invalid storage backend"},
		{"redis addr", func(c *Config) { c.Storage.Backend = BackendRedis }, "REDIS_ADDR is required"},
		{"data path", func(c *Config) { c.Storage.DataPath = "" }, "data path cannot be empty"},
		{"gateway missing", func(c *Config) { c.Gateway.BaseURL = "" }, "GATEWAY_URL is required"},
		{"gateway scheme", func(c *Config) { c.Gateway.BaseURL = "ftp://api.example" }, "invalid gateway url"},
		{"gateway timeout", func(c *Config) { c.Gateway.Timeout = 0 }, "gateway timeout"},
		{"gateway rps", func(c *Config) { c.Gateway.RequestsPerSecond = 0 }, "gateway rps"},
		{"checkout missing", func(c *Config) { c.Payment.CheckoutURL = "" }, "CHECKOUT_URL is required"},
		{"push scheme", func(c *Config) { c.Push.URL = "https://push.example" }, "invalid push url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_PushOptional(t *testing.T) {
	cfg := validConfig()
	cfg.Push.URL = "wss://push.sortir.example/ws"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GATEWAY_URL", "https://env.example")
	t.Setenv("CHECKOUT_URL", "https://pay.example")
	t.Setenv("LOG_LEVEL", "warn")

	dir := t.TempDir()
	cfg, err := Load([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-path", dir,
		"-gateway-url", "https://flag.example/",
		"-storage-backend", "SQLite",
		"-gateway-timeout", "3s",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example", cfg.Gateway.BaseURL)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 5.0, cfg.Gateway.RequestsPerSecond)
	assert.Equal(t, "8686", cfg.API.Port)
	assert.Equal(t, dir, cfg.Storage.DataPath)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, []string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.API.AllowedOrigins)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-gateway-timeout", "soon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid gateway timeout")
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# local overrides
GATEWAY_URL="https://dotenv.example"
CHECKOUT_URL='https://pay.dotenv.example'
GATEWAY_RPS=2.5
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir})
	require.NoError(t, err)

	assert.Equal(t, "https://dotenv.example", cfg.Gateway.BaseURL)
	assert.Equal(t, "https://pay.dotenv.example", cfg.Payment.CheckoutURL)
	assert.Equal(t, 2.5, cfg.Gateway.RequestsPerSecond)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_SORTIR_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_SORTIR_KEY", "default"))
	assert.Equal(t, "env-value", getConfigValue("", "TEST_SORTIR_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "TEST_SORTIR_MISSING", "default"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID=1\nNOT A PAIR\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format at line 2")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_SORTIR_VAR", "original")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_SORTIR_VAR=new"), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original", os.Getenv("TEST_SORTIR_VAR"))
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/state", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "state"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("relative/state", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
