// Package config loads narration and host settings from the environment.
// Command-line flags override these values.
package config

import (
	"errors"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// Narration settings
	Rate         float64
	Pitch        float64
	Voice        string
	AutoPageTurn bool
	AutoContinue bool

	// Speech engine settings
	PiperPath   string
	PiperModel  string
	AudioPlayer string

	// Logging settings
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Rate:         getEnvFloat("LECTOR_RATE", 1.0),
		Pitch:        getEnvFloat("LECTOR_PITCH", 1.0),
		Voice:        getEnvString("LECTOR_VOICE", ""),
		AutoPageTurn: getEnvBool("LECTOR_AUTO_TURN", true),
		AutoContinue: getEnvBool("LECTOR_AUTO_CONTINUE", true),

		PiperPath:   getEnvString("PIPER_PATH", "piper"),
		PiperModel:  getEnvString("PIPER_MODEL", ""),
		AudioPlayer: getEnvString("AUDIO_PLAYER", "aplay"),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
		LogFile:   getEnvString("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration values are within range.
func (c *Config) Validate() error {
	if c.Rate < 0.5 || c.Rate > 3.0 {
		return errors.New("LECTOR_RATE must be between 0.5 and 3.0")
	}
	if c.Pitch < 0.5 || c.Pitch > 2.0 {
		return errors.New("LECTOR_PITCH must be between 0.5 and 2.0")
	}
	if c.AutoContinue && !c.AutoPageTurn {
		return errors.New("LECTOR_AUTO_CONTINUE requires LECTOR_AUTO_TURN")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
