package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Queue    QueueConfig
	LogLevel slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// IsPostgres reports whether the DSN selects the pgx driver.
func (c DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://")
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string
	HTTPAddr       string // empty disables the HTTP API; set HTTP_ADDR=off
	AllowedOrigins []string
	MaxUploadBytes int64
}

// OCRConfig holds text-source configuration
type OCRConfig struct {
	TessdataDir  string
	Lang         string
	DPI          int
	ScanFallback bool // rasterize and OCR PDFs that carry no text layer
	Preprocess   bool // clean up images before tesseract
	MaxImageSide int
}

// QueueConfig sizes the batch worker pool
type QueueConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "file:invoices.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:       disabled(getEnv("HTTP_ADDR", ":8081")),
			AllowedOrigins: getEnvAsSlice("CORS_ORIGINS", []string{"*"}),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 16<<20)),
		},
		OCR: OCRConfig{
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			Lang:         getEnv("OCR_LANG", "eng"),
			DPI:          getEnvAsInt("OCR_DPI", 300),
			ScanFallback: getEnvAsBool("OCR_SCAN_FALLBACK", true),
			Preprocess:   getEnvAsBool("OCR_PREPROCESS", true),
			MaxImageSide: getEnvAsInt("OCR_MAX_IMAGE_SIDE", 2400),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 2*time.Minute),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
// disabled maps "off" to the empty string.
func disabled(v string) string {
	if strings.EqualFold(v, "off") {
		return ""
	}
	return v
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
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

// getEnvAsSlice splits a comma-separated value, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
