// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	App     AppConfig
	HR      HRConfig
	Holiday HolidayConfig
	Sync    SyncConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	DBPath      string
	CORSOrigins []string
}

// HRConfig describes how to reach the HR system.
type HRConfig struct {
	BaseURL          string
	ClockInVariable  string // URL variable of the clock-in/attendance list endpoints
	ApprovalVariable string // URL variable of the approval list endpoint
	Cookie           string
	Account          string // entity id the stored credentials and reports belong to
	Timeout          time.Duration
}

type HolidayConfig struct {
	URL string // per-year endpoint prefix, the year is appended
}

// SyncConfig controls the background month sync. Interval 0 disables it.
type SyncConfig struct {
	Interval time.Duration
}

// Load reads the given .env files (default ".env") and then the environment.
// Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DBPath:      getEnv("DB_PATH", "overtime.db"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS"),
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	config.HR = HRConfig{
		BaseURL:          strings.TrimRight(getEnv("HR_BASE_URL", "https://hr.quectel.com"), "/"),
		ClockInVariable:  getEnv("HR_CLOCK_IN_VARIABLE", ""),
		ApprovalVariable: getEnv("HR_APPROVAL_VARIABLE", ""),
		Cookie:           getEnv("HR_COOKIE", ""),
		Account:          getEnv("HR_ACCOUNT", "self"),
		Timeout:          timeout,
	}

	config.Holiday = HolidayConfig{
		URL: strings.TrimRight(getEnv("HOLIDAY_API_URL", "https://timor.tech/api/holiday/year"), "/"),
	}

	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	config.Sync = SyncConfig{Interval: interval}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.App.Port)
	}
	if _, err := logrus.ParseLevel(c.App.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.HR.BaseURL == "" {
		return fmt.Errorf("HR_BASE_URL is required")
	}
	if c.HR.Account == "" {
		return fmt.Errorf("HR_ACCOUNT is required")
	}
	if c.HR.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must not be negative")
	}
	return nil
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.App.Env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
