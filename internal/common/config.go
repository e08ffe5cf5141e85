package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	ML        MLConfig
	AI        AIConfig
	OCR       OCRConfig
	Duplicate DuplicateConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// MLConfig holds settings for the statistical fraud model service.
type MLConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AIConfig holds settings for the AI fraud detector.
type AIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract           string
	TesseractLang       string
	TessdataDir         string
	EnableTSVConfidence bool
}

// DuplicateConfig selects the duplicate-detection backend.
type DuplicateConfig struct {
	IndexPath string // sqlite file; empty -> conservative stub
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	CollectTimeout time.Duration // 0 = no cross-cutting timeout
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		ML: MLConfig{
			BaseURL: getEnv("ML_BASE_URL", "http://localhost:5000"),
			Timeout: getEnvAsDuration("ML_TIMEOUT", 15*time.Second),
		},
		AI: AIConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("AI_MODEL", "claude-sonnet-4-5-20250929"),
			MaxTokens: int64(getEnvAsInt("AI_MAX_TOKENS", 1024)),
			Timeout:   getEnvAsDuration("AI_TIMEOUT", 45*time.Second),
		},
		OCR: OCRConfig{
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:       getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
		},
		Duplicate: DuplicateConfig{
			IndexPath: getEnv("DUPLICATE_INDEX_PATH", ""),
		},
		Pipeline: PipelineConfig{
			CollectTimeout: getEnvAsDuration("COLLECT_TIMEOUT", 0),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.AI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.ML.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "ML_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}
