// Package config provides client core configuration with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the client core configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Gateway GatewayConfig
	Payment PaymentConfig
	Push    PushConfig
	API     APIConfig
	EnvFile string
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds the durable key/value medium configuration.
type StorageConfig struct {
	// DataPath is the directory holding the store and the device key.
	DataPath string
	// Backend selects the medium: badger (default), sqlite or redis.
	Backend string
	// RedisAddr is host:port or a redis:// URL, used by the redis backend.
	RedisAddr string
}

// GatewayConfig holds the remote reservation gateway configuration.
type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration // default: 10s
	// RequestsPerSecond bounds outbound calls (default: 5)
	RequestsPerSecond float64
}

// PaymentConfig holds the hosted checkout configuration.
type PaymentConfig struct {
	CheckoutURL string
}

// PushConfig holds the optional push channel configuration.
type PushConfig struct {
	// URL is the websocket endpoint. Empty disables the push channel.
	URL string
}

// APIConfig holds the local HTTP surface configuration.
type APIConfig struct {
	Port string
	// AllowedOrigins lists CORS origins. A single * wildcard per origin is allowed.
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("sortir", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for persisted state")
	backend := fs.String("storage-backend", "", "Storage backend (badger, sqlite, redis)")
	redisAddr := fs.String("redis-addr", "", "Redis address for the redis backend (default: localhost:6379)")

	gatewayURL := fs.String("gateway-url", "", "Remote gateway base URL")
	gatewayTimeout := fs.String("gateway-timeout", "", "Remote gateway timeout (default: 10s)")
	gatewayRPS := fs.String("gateway-rps", "", "Remote gateway requests per second (default: 5)")

	checkoutURL := fs.String("checkout-url", "", "Hosted checkout URL")
	pushURL := fs.String("push-url", "", "Push channel websocket URL")
	apiPort := fs.String("port", "", "Local API port (default: 8686)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated CORS origins")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath:  getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend:   strings.ToLower(getConfigValue(*backend, "STORAGE_BACKEND", BackendBadger)),
			RedisAddr: getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
		},
		Gateway: GatewayConfig{
			BaseURL: strings.TrimRight(getConfigValue(*gatewayURL, "GATEWAY_URL", ""), "/"),
		},
		Payment: PaymentConfig{
			CheckoutURL: getConfigValue(*checkoutURL, "CHECKOUT_URL", ""),
		},
		Push: PushConfig{
			URL: getConfigValue(*pushURL, "PUSH_URL", ""),
		},
		API: APIConfig{
			Port:           getConfigValue(*apiPort, "API_PORT", "8686"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "http://localhost:*,http://127.0.0.1:*")),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   0, // the change stream is long-lived
			IdleTimeout:    60 * time.Second,
		},
		EnvFile: *envFile,
	}

	timeoutStr := getConfigValue(*gatewayTimeout, "GATEWAY_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway timeout %q: %w", timeoutStr, err)
	}
	cfg.Gateway.Timeout = timeout

	rpsStr := getConfigValue(*gatewayRPS, "GATEWAY_RPS", "5")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway rps %q: %w", rpsStr, err)
	}
	cfg.Gateway.RequestsPerSecond = rps

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be badger, sqlite, or redis)", c.Storage.Backend)
	}
	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Gateway.BaseURL == "" {
		return errors.New("GATEWAY_URL is required")
	}
	if err := validateURL(c.Gateway.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("invalid gateway url: %w", err)
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("gateway timeout must be positive")
	}
	if c.Gateway.RequestsPerSecond <= 0 {
		return errors.New("gateway rps must be positive")
	}

	if c.Payment.CheckoutURL == "" {
		return errors.New("CHECKOUT_URL is required")
	}
	if err := validateURL(c.Payment.CheckoutURL, "http", "https"); err != nil {
		return fmt.Errorf("invalid checkout url: %w", err)
	}

	// Push is optional.
	if c.Push.URL != "" {
		if err := validateURL(c.Push.URL, "ws", "wss"); err != nil {
			return fmt.Errorf("invalid push url: %w", err)
		}
	}

	return nil
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%q must use one of %s", raw, strings.Join(schemes, ", "))
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults to ~/.sortir.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, ".sortir"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
