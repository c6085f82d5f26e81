// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Ingest  IngestConfig
	History HistoryConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxFileSize is the maximum allowed upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"SERVER_MAX_FILE_SIZE" default:"52428800"`
}

// IngestConfig holds contact-file processing settings.
type IngestConfig struct {
	// SampleRows bounds how many body rows content-based inference scores (default: 150)
	SampleRows int `env:"INGEST_SAMPLE_ROWS" default:"150"`

	// ChunkSize is the maximum data rows per output part (default: 5000)
	ChunkSize int `env:"INGEST_CHUNK_SIZE" default:"5000"`

	// RejectedChunkSize is the maximum rows per rejected-audit part (default: 5000)
	RejectedChunkSize int `env:"INGEST_REJECTED_CHUNK_SIZE" default:"5000"`

	// AllowLandline permits 10-digit landline numbers (default: false)
	AllowLandline bool `env:"INGEST_ALLOW_LANDLINE" default:"false"`

	// PhoneFormat is the output phone rendering: punctuated, digits or e164 (default: punctuated)
	PhoneFormat string `env:"INGEST_PHONE_FORMAT" default:"punctuated"`

	// ConfidenceThreshold is the phone-role confidence below which a
	// headerless run is flagged for review (default: 0.35)
	ConfidenceThreshold float64 `env:"INGEST_CONFIDENCE_THRESHOLD" default:"0.35"`

	// Workers is the number of parallel classification workers (default: 4)
	Workers int `env:"INGEST_WORKERS" default:"4"`

	// OutputDir is where the CLI writes exported parts (default: .)
	OutputDir string `env:"INGEST_OUTPUT_DIR" default:"."`
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	// Path is the SQLite database file; empty disables persistence.
	// Supports both HISTORY_PATH and HISTORY_DB env vars for compatibility.
	Path string `env:"HISTORY_PATH" envAlt:"HISTORY_DB" default:"fidelize.db"`

	// Recent is how many runs the history listing returns (default: 50)
	Recent int `env:"HISTORY_RECENT" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
