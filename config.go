package deskguard

import (
	"os"
	"strconv"
	"time"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	DatabaseURL string
	PolicyFile  string
	Log         LogConfig
	Views       ViewCounterConfig
	Pool        PoolConfig
}

// ConfigFromEnv reads DESKGUARD_* variables, applying defaults for unset ones.
func ConfigFromEnv() Config {
	pool := DefaultPoolConfig()
	return Config{
		DatabaseURL: getEnvOrDefault("DESKGUARD_DATABASE_URL", ""),
		PolicyFile:  getEnvOrDefault("DESKGUARD_POLICY_FILE", ""),
		Log: LogConfig{
			Level:  getEnvOrDefault("DESKGUARD_LOG_LEVEL", "info"),
			Format: getEnvOrDefault("DESKGUARD_LOG_FORMAT", "json"),
		},
		Views: ViewCounterConfig{
			Buffer:  getEnvIntOrDefault("DESKGUARD_VIEW_BUFFER", 1024),
			Workers: getEnvIntOrDefault("DESKGUARD_VIEW_WORKERS", 2),
		},
		Pool: PoolConfig{
			MaxOpenConnections:    getEnvIntOrDefault("DESKGUARD_DB_MAX_OPEN", pool.MaxOpenConnections),
			MaxIdleConnections:    getEnvIntOrDefault("DESKGUARD_DB_MAX_IDLE", pool.MaxIdleConnections),
			ConnectionMaxLifetime: getEnvDurationOrDefault("DESKGUARD_DB_MAX_LIFETIME", pool.ConnectionMaxLifetime),
			ConnectionMaxIdleTime: getEnvDurationOrDefault("DESKGUARD_DB_MAX_IDLE_TIME", pool.ConnectionMaxIdleTime),
		},
	}
}

// LoadPolicy returns the policy from PolicyFile, or DefaultRegistry when no
// file is configured.
func (c Config) LoadPolicy() (*Policy, error) {
	if c.PolicyFile == "" {
		return NewPolicy(DefaultRegistry()), nil
	}
	reg, err := LoadRegistryFile(c.PolicyFile)
	if err != nil {
		return nil, err
	}
	return NewPolicy(reg), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
