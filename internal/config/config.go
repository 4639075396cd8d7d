package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"allday/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Server     ServerConfig
	Simulation SimulationConfig
}

// DataConfig locates the input snapshot. Relative file names resolve
// against Dir; when Storage.Bucket is set they are object keys instead.
type DataConfig struct {
	Dir              string
	TransactionsFile string
	StatsFile        string
	ChallengesFile   string
	PackCatalogFile  string
	TablesFile       string // empty means the embedded defaults
}

// CacheConfig sizes the memoization layer
type CacheConfig struct {
	TTL  time.Duration
	Size int
}

// DatabaseConfig holds result-store settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL string
}

// StorageConfig holds optional S3 snapshot settings
type StorageConfig struct {
	Bucket string
	Region string
	Prefix string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// SimulationConfig controls sample bank generation
type SimulationConfig struct {
	BankSeed  int64 // zero means seed from the clock
	ExportDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:       loadDataConfig(),
		Cache:      loadCacheConfig(),
		Database:   DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Storage:    loadStorageConfig(),
		Server:     loadServerConfig(),
		Simulation: loadSimulationConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Path resolves a data file name against the data directory
func (c DataConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// UsesS3 reports whether the snapshot is read from object storage
func (c *Config) UsesS3() bool {
	return c.Storage.Bucket != ""
}

// Persists reports whether computed results are written to Postgres
func (c *Config) Persists() bool {
	return c.Database.URL != ""
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Dir:              getEnvOrDefault("DATA_DIR", "data"),
		TransactionsFile: getEnvOrDefault("TRANSACTIONS_FILE", "current_allday_data.csv"),
		StatsFile:        getEnvOrDefault("STATS_FILE", "weekly_data.csv"),
		ChallengesFile:   getEnvOrDefault("CHALLENGES_FILE", ""),
		PackCatalogFile:  getEnvOrDefault("PACK_CATALOG_FILE", ""),
		TablesFile:       getEnvOrDefault("TABLES_FILE", ""),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:  getEnvDurationOrDefault("CACHE_TTL", 24*time.Hour),
		Size: getEnvIntOrDefault("CACHE_SIZE", 16384),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket: os.Getenv("S3_BUCKET"),
		Region: getEnvOrDefault("S3_REGION", "us-east-1"),
		Prefix: os.Getenv("S3_PREFIX"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadSimulationConfig() SimulationConfig {
	return SimulationConfig{
		BankSeed:  int64(getEnvIntOrDefault("BANK_SEED", 0)),
		ExportDir: getEnvOrDefault("EXPORT_DIR", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Data.TransactionsFile == "" {
		return errors.ConfigInvalid("TRANSACTIONS_FILE is required")
	}
	if config.Cache.TTL <= 0 {
		return errors.ConfigInvalid("CACHE_TTL must be positive")
	}
	if config.Cache.Size <= 0 {
		return errors.ConfigInvalid("CACHE_SIZE must be positive")
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
