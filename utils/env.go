package utils

import (
	"log"
	"os"
	"strconv"
)

// Getenv returns the variable's value or the fallback when unset.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetenvInt64 parses an integer variable, falling back on absence or garbage.
func GetenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️  %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

// MustGetenv fails fast on missing required configuration.
func MustGetenv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return v
}
