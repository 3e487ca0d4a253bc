package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/driftmail/walletauth/service"
)

// Config holds the server configuration, loaded from environment
// variables with optional .env support.
type Config struct {
	Port     string
	RedisURL string
	AppName  string
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() *Config {
	// Missing .env is fine; real environments set variables directly
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "9000"),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AppName:  getEnv("APP_NAME", service.DefaultAppName),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
