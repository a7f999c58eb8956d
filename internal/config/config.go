package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	Avinode AvinodeConfig
	Breaker BreakerConfig

	CacheEnabled bool
	RedisHost    string
	RedisPort    string
	RedisTTL     time.Duration
}

// AvinodeConfig holds everything needed to talk to the marketplace API.
type AvinodeConfig struct {
	BaseURL        string
	BearerToken    string
	APIToken       string
	APIVersion     string
	Product        string
	RequestTimeout time.Duration
}

type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	ResetTimeout     time.Duration
}

func Load() Config {
	// Missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	return Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		Avinode: AvinodeConfig{
			BaseURL:        getEnv("AVINODE_BASE_URL", "https://sandbox.avinode.com/api"),
			BearerToken:    getEnv("AVINODE_BEARER_TOKEN", ""),
			APIToken:       getEnv("AVINODE_API_TOKEN", ""),
			APIVersion:     getEnv("AVINODE_API_VERSION", "v1"),
			Product:        getEnv("AVINODE_PRODUCT", "charterlink/1.0"),
			RequestTimeout: getEnvDuration("AVINODE_REQUEST_TIMEOUT", 30*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
			ResetTimeout:     getEnvDuration("BREAKER_RESET_TIMEOUT", 60*time.Second),
		},
		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisTTL:     getEnvDuration("REDIS_TTL", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
