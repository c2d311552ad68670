// Package config provides Redis configuration for the durable-timer
// facility and the Redis-backed store.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Workers  int
}

const (
	defaultHost    = "localhost"
	defaultPort    = 6379
	defaultDB      = 0
	defaultWorkers = 4
	minPort        = 1
	maxPort        = 65535
	minDB          = 0
	maxDB          = 15
	minWorkers     = 1
	maxWorkers     = 100
)

// NewRedisConfig builds a Redis configuration from environment variables.
// SENTINEL_REDIS_URL takes precedence; otherwise SENTINEL_REDIS_HOST,
// SENTINEL_REDIS_PORT, SENTINEL_REDIS_PASSWORD, SENTINEL_REDIS_DB and
// SENTINEL_REDIS_WORKERS are consulted individually.
func NewRedisConfig() (*RedisConfig, error) {
	cfg := &RedisConfig{
		Host:     getEnvOrDefault("SENTINEL_REDIS_HOST", defaultHost),
		Password: os.Getenv("SENTINEL_REDIS_PASSWORD"),
	}

	if redisURL := os.Getenv("SENTINEL_REDIS_URL"); redisURL != "" {
		return fromURL(cfg, redisURL)
	}

	port, err := validateRange("port", getEnvOrDefault("SENTINEL_REDIS_PORT", strconv.Itoa(defaultPort)), minPort, maxPort)
	if err != nil {
		return nil, err
	}

	cfg.Port = port

	db, err := validateRange("DB", getEnvOrDefault("SENTINEL_REDIS_DB", strconv.Itoa(defaultDB)), minDB, maxDB)
	if err != nil {
		return nil, err
	}

	cfg.DB = db

	workers, err := validateRange("workers", getEnvOrDefault("SENTINEL_REDIS_WORKERS", strconv.Itoa(defaultWorkers)), minWorkers, maxWorkers)
	if err != nil {
		return nil, err
	}

	cfg.Workers = workers

	return cfg, nil
}

func fromURL(cfg *RedisConfig, redisURL string) (*RedisConfig, error) {
	parsedURL, err := url.Parse(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	if host := parsedURL.Hostname(); host != "" {
		cfg.Host = host
	}

	cfg.Port = defaultPort

	if port := parsedURL.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port in Redis URL: %w", err)
		}

		cfg.Port = p
	}

	if password, ok := parsedURL.User.Password(); ok {
		cfg.Password = password
	}

	if path := strings.TrimPrefix(parsedURL.Path, "/"); path != "" {
		db, err := strconv.Atoi(path)
		if err != nil {
			return nil, fmt.Errorf("invalid database number in Redis URL: %w", err)
		}

		cfg.DB = db
	}

	cfg.Workers = defaultWorkers

	return cfg, nil
}

// GetRedisAddr returns the formatted Redis address.
func (c *RedisConfig) GetRedisAddr() string {
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s:%d", host, c.Port)
}

func validateRange(name, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}

	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}

	return v, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
