package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	History  HistoryConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string
	MaxUploadBytes  int64
	MaxActiveRuns   int
	ShutdownTimeout time.Duration
}

// PipelineConfig holds processing configuration
type PipelineConfig struct {
	ScratchRoot string
	RulesPath   string
	KeepStaging bool
}

// HistoryConfig holds run-history store configuration
type HistoryConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// loadEnvFiles reads optional dotenv files before the environment is
// consulted. ENV_FILE overrides the default .env lookup.
func loadEnvFiles() {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
		return
	}
	_ = godotenv.Load(".env")
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	loadEnvFiles()
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 200)) << 20,
			MaxActiveRuns:   getEnvAsInt("MAX_ACTIVE_RUNS", 1),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			ScratchRoot: getEnv("SCRATCH_ROOT", os.TempDir()),
			RulesPath:   getEnv("RULES_PATH", ""),
			KeepStaging: getEnvAsBool("KEEP_STAGING", false),
		},
		History: HistoryConfig{
			DSN:             getEnv("HISTORY_DSN", ""),
			MaxConns:        getEnvAsInt32("HISTORY_MAX_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("HISTORY_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("HISTORY_DIAL_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.ScratchRoot == "" {
		return NewAppError(CodeConfig, "SCRATCH_ROOT is required", ErrInvalidInput)
	}
	if c.Server.MaxActiveRuns < 1 {
		return NewAppError(CodeConfig, "MAX_ACTIVE_RUNS must be at least 1", ErrInvalidInput)
	}
	return nil
}
