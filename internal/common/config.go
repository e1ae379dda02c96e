package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Auth        AuthConfig      `toml:"auth"`
	Executor    ExecutorConfig  `toml:"executor"`
	Fuzzer      FuzzerConfig    `toml:"fuzzer"`
	Cleanup     CleanupConfig   `toml:"cleanup"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path              string `toml:"path"`                // Database directory path
	ResetOnStartup    bool   `toml:"reset_on_startup"`    // Delete database on startup for clean test runs
	GCIntervalMinutes int    `toml:"gc_interval_minutes"` // Value log GC interval, 0 disables
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// AuthConfig controls bearer-token checks on write endpoints.
// Disabled by default so local use needs no credentials.
type AuthConfig struct {
	Enabled bool     `toml:"enabled"`
	Tokens  []string `toml:"tokens"`
}

// ExecutorConfig bounds job execution.
type ExecutorConfig struct {
	MaxConcurrentJobs    int     `toml:"max_concurrent_jobs"`     // Jobs running at once
	DispatchInterval     string  `toml:"dispatch_interval"`       // Safety poll interval for the dispatcher
	UserAgent            string  `toml:"user_agent"`              // Sent when a request omits User-Agent
	MaxResponseBytes     int64   `toml:"max_response_bytes"`      // Response body read cap
	MaxParallelRequests  int     `toml:"max_parallel_requests"`   // Fan-out bound within one parallel batch
	MaxRequestsPerSecond float64 `toml:"max_requests_per_second"` // Service-wide send rate for parallel batches, 0 disables
}

// FuzzerConfig bounds template expansion.
type FuzzerConfig struct {
	MaxRequestsPerRun int `toml:"max_requests_per_run"` // Cardinality guard for cluster bomb blowups
	HistoryPageLimit  int `toml:"history_page_limit"`   // Default page size for history listing
}

// CleanupConfig drives the scheduled removal of old terminal jobs.
type CleanupConfig struct {
	Enabled     bool    `toml:"enabled"`
	Schedule    string  `toml:"schedule"` // Cron schedule format (with seconds)
	MaxAgeHours float64 `toml:"max_age_hours"`
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	MinLevel         string   `toml:"min_level"`         // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ProgressThrottle string   `toml:"progress_throttle"` // Max rate for job_progress frames, e.g. "500ms"
	ExcludePatterns  []string `toml:"exclude_patterns"`  // Log message patterns to exclude from broadcasting
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in tento.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:              "./data",
				GCIntervalMinutes: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Auth: AuthConfig{
			Enabled: false,
			Tokens:  []string{},
		},
		Executor: ExecutorConfig{
			MaxConcurrentJobs:    5,
			DispatchInterval:     "2s",
			UserAgent:            "tento",
			MaxResponseBytes:     10 * 1024 * 1024, // 10MB
			MaxParallelRequests:  16,
			MaxRequestsPerSecond: 0, // unlimited
		},
		Fuzzer: FuzzerConfig{
			MaxRequestsPerRun: 100000,
			HistoryPageLimit:  50,
		},
		Cleanup: CleanupConfig{
			Enabled:     true,
			Schedule:    "0 0 * * * *", // Hourly (cron format with seconds)
			MaxAgeHours: 24,
		},
		WebSocket: WebSocketConfig{
			MinLevel:         "info",
			ProgressThrottle: "500ms",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files, later files
// overriding earlier ones. Priority: CLI flags > environment variables >
// last config file > ... > first config file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: TENTO_ENV, fallback: GO_ENV)
	if env := os.Getenv("TENTO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("TENTO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TENTO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("TENTO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if reset := os.Getenv("TENTO_BADGER_RESET_ON_STARTUP"); reset != "" {
		if r, err := strconv.ParseBool(reset); err == nil {
			config.Storage.Badger.ResetOnStartup = r
		}
	}

	// Logging configuration
	if level := os.Getenv("TENTO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("TENTO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("TENTO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Auth configuration
	if enabled := os.Getenv("TENTO_AUTH_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Auth.Enabled = e
		}
	}
	if tokens := os.Getenv("TENTO_AUTH_TOKENS"); tokens != "" {
		parsed := []string{}
		for _, tok := range strings.Split(tokens, ",") {
			if trimmed := strings.TrimSpace(tok); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) > 0 {
			config.Auth.Tokens = parsed
		}
	}

	// Executor configuration
	if maxJobs := os.Getenv("TENTO_EXECUTOR_MAX_CONCURRENT_JOBS"); maxJobs != "" {
		if mj, err := strconv.Atoi(maxJobs); err == nil && mj > 0 {
			config.Executor.MaxConcurrentJobs = mj
		}
	}
	if interval := os.Getenv("TENTO_EXECUTOR_DISPATCH_INTERVAL"); interval != "" {
		config.Executor.DispatchInterval = interval
	}
	if userAgent := os.Getenv("TENTO_EXECUTOR_USER_AGENT"); userAgent != "" {
		config.Executor.UserAgent = userAgent
	}
	if maxParallel := os.Getenv("TENTO_EXECUTOR_MAX_PARALLEL_REQUESTS"); maxParallel != "" {
		if mp, err := strconv.Atoi(maxParallel); err == nil && mp > 0 {
			config.Executor.MaxParallelRequests = mp
		}
	}
	if maxRate := os.Getenv("TENTO_EXECUTOR_MAX_REQUESTS_PER_SECOND"); maxRate != "" {
		if mr, err := strconv.ParseFloat(maxRate, 64); err == nil && mr >= 0 {
			config.Executor.MaxRequestsPerSecond = mr
		}
	}

	// Fuzzer configuration
	if maxReq := os.Getenv("TENTO_FUZZER_MAX_REQUESTS_PER_RUN"); maxReq != "" {
		if mr, err := strconv.Atoi(maxReq); err == nil && mr > 0 {
			config.Fuzzer.MaxRequestsPerRun = mr
		}
	}

	// Cleanup configuration
	if enabled := os.Getenv("TENTO_CLEANUP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cleanup.Enabled = e
		}
	}
	if schedule := os.Getenv("TENTO_CLEANUP_SCHEDULE"); schedule != "" {
		config.Cleanup.Schedule = schedule
	}
	if maxAge := os.Getenv("TENTO_CLEANUP_MAX_AGE_HOURS"); maxAge != "" {
		if ma, err := strconv.ParseFloat(maxAge, 64); err == nil && ma > 0 {
			config.Cleanup.MaxAgeHours = ma
		}
	}

	// WebSocket configuration
	if minLevel := os.Getenv("TENTO_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
	if throttle := os.Getenv("TENTO_WEBSOCKET_PROGRESS_THROTTLE"); throttle != "" {
		config.WebSocket.ProgressThrottle = throttle
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateCronSchedule validates a cron schedule expression in the
// 6-field (with seconds) format used by the scheduler.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
