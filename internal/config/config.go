package config

import (
	"os"
	"strconv"
	"time"

	"datalens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Storage  StorageConfig  `validate:"required"`
	Profile  ProfileConfig
	Analysis AnalysisConfig
	Ops      OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string `validate:"required"`
	Host    string
	Port    int
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// StorageConfig holds blob store settings
type StorageConfig struct {
	BasePath    string
	MaxFileSize int64
	TempDir     string
}

// ProfileConfig tunes the profiling pipeline
type ProfileConfig struct {
	// RowSampleCap bounds how many parsed rows are held in memory.
	RowSampleCap int
	// DuplicateSampleCap bounds rows inspected by duplicate detection.
	DuplicateSampleCap int
	// CorrelationColumnCap bounds numeric columns in the matrix.
	CorrelationColumnCap int
	// CorrelationRowCap bounds rows sampled per column pair.
	CorrelationRowCap int
	// BatchSize is the column batch size for chunked statistics.
	BatchSize int
	// PoolWorkers sizes the shared batch pool; 0 disables it.
	PoolWorkers int
	// PoolCellLimit is the estimated cell-count ceiling above which
	// work stays on the sequential path.
	PoolCellLimit int
	// Timeout is the wall-clock guard for one profiling run.
	Timeout time.Duration
}

// AnalysisConfig holds remote pre-analysis service settings
type AnalysisConfig struct {
	Endpoint     string
	PollInterval time.Duration
	PollTimeout  time.Duration
	RetryCount   int
	RetryDelay   time.Duration
}

// OpsConfig holds the health/pprof listener settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.Server = ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}

	config.Storage = StorageConfig{
		BasePath:    getEnvOrDefault("STORAGE_PATH", "uploads/datasets"),
		MaxFileSize: int64(getEnvIntOrDefault("MAX_FILE_SIZE_MB", 50)) * 1024 * 1024,
		TempDir:     getEnvOrDefault("STORAGE_TEMP_DIR", os.TempDir()),
	}

	config.Profile = ProfileConfig{
		RowSampleCap:         getEnvIntOrDefault("PROFILE_ROW_SAMPLE_CAP", 10000),
		DuplicateSampleCap:   getEnvIntOrDefault("PROFILE_DUP_SAMPLE_CAP", 5000),
		CorrelationColumnCap: getEnvIntOrDefault("PROFILE_CORR_COLUMN_CAP", 20),
		CorrelationRowCap:    getEnvIntOrDefault("PROFILE_CORR_ROW_CAP", 1000),
		BatchSize:            getEnvIntOrDefault("PROFILE_BATCH_SIZE", 8),
		PoolWorkers:          getEnvIntOrDefault("PROFILE_POOL_WORKERS", 4),
		PoolCellLimit:        getEnvIntOrDefault("PROFILE_POOL_CELL_LIMIT", 2_000_000),
		Timeout:              getEnvDurationOrDefault("PROFILE_TIMEOUT", 60*time.Second),
	}

	config.Analysis = AnalysisConfig{
		Endpoint:     getEnvOrDefault("ANALYSIS_ENDPOINT", ""),
		PollInterval: getEnvDurationOrDefault("ANALYSIS_POLL_INTERVAL", 3*time.Second),
		PollTimeout:  getEnvDurationOrDefault("ANALYSIS_POLL_TIMEOUT", 5*time.Minute),
		RetryCount:   getEnvIntOrDefault("ANALYSIS_RETRY_COUNT", 3),
		RetryDelay:   getEnvDurationOrDefault("ANALYSIS_RETRY_DELAY", time.Second),
	}

	config.Ops = OpsConfig{
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		Host:    getEnvOrDefault("DB_HOST", ""),
		Port:    getEnvIntOrDefault("DB_PORT", 5432),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Storage.MaxFileSize <= 0 {
		return errors.ConfigInvalid("max file size must be positive")
	}
	if config.Profile.BatchSize < 1 {
		return errors.ConfigInvalid("profile batch size must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
