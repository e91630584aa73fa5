package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv retrieves the value of the environment variable named by the key.
// If the variable is not present or its value is empty, Getenv returns the fallback string.
func Getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetenvInt parses an integer environment variable, falling back on absence or parse failure.
func GetenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		LogWarn("Ignoring malformed integer env var", map[string]interface{}{"key": key, "value": value})
		return fallback
	}
	return n
}

// GetenvBool accepts the usual strconv.ParseBool spellings.
func GetenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		LogWarn("Ignoring malformed boolean env var", map[string]interface{}{"key": key, "value": value})
		return fallback
	}
	return b
}

// GetenvDuration parses values such as "30s" or "24h".
func GetenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		LogWarn("Ignoring malformed duration env var", map[string]interface{}{"key": key, "value": value})
		return fallback
	}
	return d
}
