// Package config provides application configuration management with support for
// command-line flags, environment variables, a YAML file, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Day-fetch policies accepted by SyncConfig.DayFetchPolicy.
const (
	DayFetchProjection = "projection"
	DayFetchMerge      = "merge"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Sync   SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds backend API configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	DatabasePath   string        // SQLite file (default: ~/.daybook/daybook.db)
	AllowedOrigins []string      // CORS origins; empty disables CORS
	Metrics        bool          // Serve /metrics (default: true)
}

// SyncConfig holds configuration for the device-side sync client.
type SyncConfig struct {
	CachePath         string // Badger directory (default: ~/.daybook/cache)
	RemoteURL         string // Backend base URL
	UserID            string // Empty means anonymous
	ProbeInterval     time.Duration
	ProbeTimeout      time.Duration
	RequestTimeout    time.Duration
	RemoteRPS         float64
	RemoteBurst       int
	RefreshCoalescing bool
	DayFetchPolicy    string
}

// LoadConfig loads configuration for the process from os.Args.
func LoadConfig() (*Config, error) {
	cfg, _, err := Load(filepath.Base(os.Args[0]), os.Args[1:])
	return cfg, err
}

// Load parses args and returns the configuration plus the positional
// arguments left after the flags. Precedence, highest first:
// 1. Command-line flags.
// 2. Environment variables.
// 3. YAML config file (-config or DAYBOOK_CONFIG).
// 4. .env file.
// 5. Default values.
func Load(name string, args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	flags := map[string]*string{}
	define := func(flagName, usage string) {
		flags[flagName] = fs.String(flagName, "", usage)
	}

	configPath := fs.String("config", "", "Path to a YAML config file")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	define("env", "Environment (development, staging, production)")
	define("log-level", "Log level (debug, info, warn, error)")

	define("port", "Server port (default: 8080)")
	define("read-timeout", "HTTP read timeout (default: 15s)")
	define("write-timeout", "HTTP write timeout (default: 15s)")
	define("idle-timeout", "HTTP idle timeout (default: 60s)")
	define("db-path", "SQLite database path")
	define("cors-origins", "Comma-separated CORS origins")
	define("metrics", "Serve /metrics (default: true)")

	define("cache-path", "Local cache directory")
	define("remote-url", "Backend base URL")
	define("user-id", "User id to scope reads and writes; empty for anonymous")
	define("probe-interval", "Connectivity probe interval (default: 5m)")
	define("probe-timeout", "Connectivity probe timeout (default: 5s)")
	define("request-timeout", "Remote request timeout (default: 15s)")
	define("remote-rps", "Remote requests per second (default: 10)")
	define("remote-burst", "Remote request burst (default: 20)")
	define("refresh-coalescing", "Queue one follow-up refresh instead of dropping overlaps")
	define("day-fetch-policy", "projection or merge (default: projection)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	dotenv, err := loadEnvFile(*envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("DAYBOOK_CONFIG")
	}
	if path == "" {
		path = dotenv["DAYBOOK_CONFIG"]
	}
	file, err := loadYAMLFile(path)
	if err != nil {
		return nil, nil, err
	}

	l := &loader{flags: flags, file: file, dotenv: dotenv}

	cfg := &Config{
		App: AppConfig{
			Environment: l.str("env", "ENV", "app.environment", "development"),
		},
		Logger: LoggerConfig{
			Level: l.str("log-level", "LOG_LEVEL", "logger.level", "info"),
		},
		Server: ServerConfig{
			Port:           l.str("port", "SERVER_PORT", "server.port", "8080"),
			ReadTimeout:    l.duration("read-timeout", "SERVER_READ_TIMEOUT", "server.read_timeout", 15*time.Second),
			WriteTimeout:   l.duration("write-timeout", "SERVER_WRITE_TIMEOUT", "server.write_timeout", 15*time.Second),
			IdleTimeout:    l.duration("idle-timeout", "SERVER_IDLE_TIMEOUT", "server.idle_timeout", 60*time.Second),
			DatabasePath:   l.str("db-path", "DATABASE_PATH", "server.database_path", ""),
			AllowedOrigins: l.list("cors-origins", "CORS_ALLOWED_ORIGINS", "server.allowed_origins"),
			Metrics:        l.boolean("metrics", "METRICS_ENABLED", "server.metrics", true),
		},
		Sync: SyncConfig{
			CachePath:         l.str("cache-path", "SYNC_CACHE_PATH", "sync.cache_path", ""),
			RemoteURL:         l.str("remote-url", "SYNC_REMOTE_URL", "sync.remote_url", "http://localhost:8080"),
			UserID:            l.str("user-id", "SYNC_USER_ID", "sync.user_id", ""),
			ProbeInterval:     l.duration("probe-interval", "SYNC_PROBE_INTERVAL", "sync.probe_interval", 5*time.Minute),
			ProbeTimeout:      l.duration("probe-timeout", "SYNC_PROBE_TIMEOUT", "sync.probe_timeout", 5*time.Second),
			RequestTimeout:    l.duration("request-timeout", "SYNC_REQUEST_TIMEOUT", "sync.request_timeout", 15*time.Second),
			RemoteRPS:         l.float("remote-rps", "SYNC_REMOTE_RPS", "sync.remote_rps", 10),
			RemoteBurst:       l.integer("remote-burst", "SYNC_REMOTE_BURST", "sync.remote_burst", 20),
			RefreshCoalescing: l.boolean("refresh-coalescing", "SYNC_REFRESH_COALESCING", "sync.refresh_coalescing", false),
			DayFetchPolicy:    l.str("day-fetch-policy", "SYNC_DAY_FETCH_POLICY", "sync.day_fetch_policy", DayFetchProjection),
		},
	}
	if err := errors.Join(l.errs...); err != nil {
		return nil, nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

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

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	for name, d := range map[string]time.Duration{
		"read timeout":    c.Server.ReadTimeout,
		"write timeout":   c.Server.WriteTimeout,
		"idle timeout":    c.Server.IdleTimeout,
		"probe interval":  c.Sync.ProbeInterval,
		"probe timeout":   c.Sync.ProbeTimeout,
		"request timeout": c.Sync.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.Sync.RemoteURL != "" {
		u, err := url.Parse(c.Sync.RemoteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid remote url: %q (must be an absolute http or https url)", c.Sync.RemoteURL)
		}
	}

	if c.Sync.RemoteRPS <= 0 {
		return fmt.Errorf("remote rps must be positive, got %v", c.Sync.RemoteRPS)
	}
	if c.Sync.RemoteBurst < 1 {
		return fmt.Errorf("remote burst must be at least 1, got %d", c.Sync.RemoteBurst)
	}

	switch c.Sync.DayFetchPolicy {
	case DayFetchProjection, DayFetchMerge:
	default:
		return fmt.Errorf("invalid day fetch policy: %s (must be %s or %s)", c.Sync.DayFetchPolicy, DayFetchProjection, DayFetchMerge)
	}

	return nil
}

// expandPaths applies the ~/.daybook defaults and makes paths absolute.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	base := filepath.Join(homeDir, ".daybook")

	if c.Server.DatabasePath, err = expandPath(c.Server.DatabasePath, filepath.Join(base, "daybook.db")); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	if c.Sync.CachePath, err = expandPath(c.Sync.CachePath, filepath.Join(base, "cache")); err != nil {
		return fmt.Errorf("invalid cache path: %w", err)
	}
	return nil
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

// loader resolves one setting at a time across the layers and collects parse errors.
type loader struct {
	flags  map[string]*string
	file   map[string]string
	dotenv map[string]string
	errs   []error
}

// str returns the first non-empty value from flag, env var, YAML file, .env file, or default.
func (l *loader) str(flagName, envKey, yamlKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if v := l.flags[flagName]; v != nil && *v != "" {
		return *v
	}

	// Priority 2: Environment variable.
	if v := os.Getenv(envKey); v != "" {
		return v
	}

	// Priority 3: YAML file.
	if v := l.file[yamlKey]; v != "" {
		return v
	}

	// Priority 4: .env file.
	if v := l.dotenv[envKey]; v != "" {
		return v
	}

	return defaultValue
}

// boolean accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func (l *loader) boolean(flagName, envKey, yamlKey string, defaultValue bool) bool {
	v := l.str(flagName, envKey, yamlKey, "")
	if v == "" {
		return defaultValue
	}
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

func (l *loader) integer(flagName, envKey, yamlKey string, defaultValue int) int {
	v := l.str(flagName, envKey, yamlKey, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: %w", envKey, v, err))
		return defaultValue
	}
	return n
}

func (l *loader) float(flagName, envKey, yamlKey string, defaultValue float64) float64 {
	v := l.str(flagName, envKey, yamlKey, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: %w", envKey, v, err))
		return defaultValue
	}
	return f
}

func (l *loader) duration(flagName, envKey, yamlKey string, defaultValue time.Duration) time.Duration {
	v := l.str(flagName, envKey, yamlKey, "")
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: %w", envKey, v, err))
		return defaultValue
	}
	return d
}

// list splits a comma-separated value and drops blanks.
func (l *loader) list(flagName, envKey, yamlKey string) []string {
	var out []string
	for _, part := range strings.Split(l.str(flagName, envKey, yamlKey, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadYAMLFile reads a two-level YAML document into "section.key" strings.
// Sequences are joined with commas. An empty path yields no values.
func loadYAMLFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string)
	for section, values := range doc {
		for key, v := range values {
			out[section+"."+key] = yamlScalar(v)
		}
	}
	return out, nil
}

func yamlScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// loadEnvFile reads KEY=value lines (# for comments) from a .env file.
// Values are returned, not exported, so real environment variables and the
// YAML file both take precedence over them.
func loadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		values[key] = value
	}

	return values, scanner.Err()
}
