package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Recognized option sets. Voice and sample rate are configuration, not
// hard-coded synthesis constants.
var (
	// RecognizedSampleRates lists the sample rates the service accepts.
	RecognizedSampleRates = []int{16000, 22050, 44100, 48000}

	// RecognizedStorageBackends lists the durable snapshot backends.
	RecognizedStorageBackends = []string{"file", "sqlite"}

	// RecognizedAnalyzers lists the text analysis modes.
	RecognizedAnalyzers = []string{"kagome", "none"}
)

// Config holds all application configuration.
type Config struct {
	// HTTP settings
	HTTPPort    int
	BearerToken string

	// TTS settings
	PiperPath  string
	PiperModel string
	Voice      string
	SampleRate int

	// Analysis settings
	Analyzer string

	// Behavior settings
	MaxTextLength int

	// Storage settings
	StorageBackend string
	StoragePath    string

	// Logging settings
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		// HTTP settings
		HTTPPort:    getEnvInt("HTTP_PORT", 8080),
		BearerToken: os.Getenv("BEARER_TOKEN"),

		// TTS settings
		PiperPath:  getEnvString("PIPER_PATH", "piper"),
		PiperModel: getEnvString("PIPER_MODEL", ""),
		Voice:      getEnvString("VOICE", "default"),
		SampleRate: getEnvInt("SAMPLE_RATE", 22050),

		// Analysis settings
		Analyzer: getEnvString("ANALYZER", "kagome"),

		// Behavior settings
		MaxTextLength: getEnvInt("MAX_TEXT_LENGTH", 2000),

		// Storage settings
		StorageBackend: getEnvString("STORAGE_BACKEND", "file"),
		StoragePath:    getEnvString("STORAGE_PATH", ""),

		// Logging settings
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
	}

	if cfg.StoragePath == "" {
		switch cfg.StorageBackend {
		case "sqlite":
			cfg.StoragePath = "kikitori-history.db"
		default:
			cfg.StoragePath = "kikitori-history.json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if !containsInt(RecognizedSampleRates, c.SampleRate) {
		return fmt.Errorf("SAMPLE_RATE must be one of %v", RecognizedSampleRates)
	}

	if !containsString(RecognizedStorageBackends, c.StorageBackend) {
		return fmt.Errorf("STORAGE_BACKEND must be one of %v", RecognizedStorageBackends)
	}

	if !containsString(RecognizedAnalyzers, c.Analyzer) {
		return fmt.Errorf("ANALYZER must be one of %v", RecognizedAnalyzers)
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

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
