// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Notify   NotifyConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates the import tables if they do not exist (default: true)
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// ImportConfig holds the settings of the import and archive steps.
type ImportConfig struct {
	// SourceDir is the directory holding pending input files (default: files)
	SourceDir string `env:"IMPORT_SOURCE_DIR" default:"files"`

	// ArchiveDir receives source files after a fully successful import (default: imported-files)
	ArchiveDir string `env:"IMPORT_ARCHIVE_DIR" default:"imported-files"`

	// Extension filters the files considered as input and for archival (default: .csv)
	Extension string `env:"IMPORT_FILE_EXTENSION" default:".csv"`

	// ChunkSize is the number of records committed per transaction (default: 200)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" default:"200"`

	// Delimiter separates fields within a line (default: ;)
	Delimiter string `env:"IMPORT_DELIMITER" default:";"`

	// CommentPrefix marks lines that are skipped (default: --)
	CommentPrefix string `env:"IMPORT_COMMENT_PREFIX" default:"--"`

	// ArchiveEnabled runs the archive step after a successful import (default: true)
	ArchiveEnabled bool `env:"IMPORT_ARCHIVE_ENABLED" default:"true"`

	// WriteMode selects how a chunk is loaded: copy or insert (default: copy)
	WriteMode string `env:"IMPORT_WRITE_MODE" default:"copy"`

	// Fees is a comma-separated category=amount list used for the admin fee
	Fees []string `env:"IMPORT_FEES"`

	// DefaultFee applies to categories missing from Fees (default: 0.00)
	DefaultFee string `env:"IMPORT_FEE_DEFAULT" default:"0.00"`

	// Timeout bounds a whole run; checked between chunks (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// ScheduleInterval triggers periodic runs in the server; 0 disables (default: 0s)
	ScheduleInterval time.Duration `env:"IMPORT_SCHEDULE_INTERVAL" default:"0s"`
}

// ServerConfig holds HTTP settings for the operations server.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 because a triggered run answers only when it finishes (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys protects the run trigger; empty leaves it open
	APIKeys []string `env:"SERVER_API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are honored
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// NotifyConfig holds run notification settings.
type NotifyConfig struct {
	// KafkaBrokers is a comma-separated broker list; empty disables notifications
	KafkaBrokers []string `env:"NOTIFY_KAFKA_BROKERS"`

	// KafkaTopic receives one message per finished run (default: ticket-import-runs)
	KafkaTopic string `env:"NOTIFY_KAFKA_TOPIC" default:"ticket-import-runs"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
