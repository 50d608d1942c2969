package testsupport

import (
	"os"
	"strconv"
	"testing"

	"calendarbot/internal/adapters/config"
)

// LoadRedisConfigFromEnv reads the Redis settings for integration tests.
// Tests are skipped in -short mode or when REDIS_HOST is unset.
func LoadRedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("integration environment missing, set REDIS_HOST to run")
	}

	return config.RedisConfig{
		Host:     os.Getenv("REDIS_HOST"),
		Port:     intValue("REDIS_PORT", 6379),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intValue("REDIS_TEST_DB", 1),
	}
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}

	return fallback
}
