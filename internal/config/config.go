// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// Config holds application configuration
type Config struct {
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool
	// Defaults are the analytics settings used when a request does not override them
	Defaults domain.SettingsInput
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	d := domain.DefaultSettingsInput()
	cfg := &Config{
		Port:      getEnvAsInt("PORT", 8000),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Defaults: domain.SettingsInput{
			Frequency:        getEnv("RISK_FREQUENCY", d.Frequency),
			Window:           getEnvAsInt("RISK_WINDOW", d.Window),
			ConfidenceLevel:  getEnvAsFloat("RISK_CONFIDENCE", d.ConfidenceLevel),
			RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", d.RiskFreeRate),
			HighVolThreshold: getEnvAsFloat("RISK_HIGH_VOL", d.HighVolThreshold),
			LowVolThreshold:  getEnvAsFloat("RISK_LOW_VOL", d.LowVolThreshold),
			AllowShort:       getEnvAsBool("RISK_ALLOW_SHORT", d.AllowShort),
			SolverTolerance:  getEnvAsFloat("OPTIMIZER_TOLERANCE", d.SolverTolerance),
			MaxIterations:    getEnvAsInt("OPTIMIZER_MAX_ITERATIONS", d.MaxIterations),
			WeightTolerance:  getEnvAsFloat("WEIGHT_TOLERANCE", d.WeightTolerance),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the port and builds the default settings once so that a
// bad environment fails at startup rather than on the first request.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if _, err := domain.NewSettings(c.Defaults); err != nil {
		return fmt.Errorf("invalid analytics defaults: %w", err)
	}
	return nil
}

// Settings returns the validated default settings.
func (c *Config) Settings() (*domain.Settings, error) {
	return domain.NewSettings(c.Defaults)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
