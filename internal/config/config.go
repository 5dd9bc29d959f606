package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/clinicore/consultd/internal/logging"
)

// Config is the complete consultd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Temporal    TemporalConfig    `koanf:"temporal"`
	Transcriber TranscriberConfig `koanf:"transcriber"`
	Sweep       SweepConfig       `koanf:"sweep"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Logging     logging.Config    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"`
	RateBurst       int      `koanf:"rate_burst"`
}

// DatabaseConfig holds PostgreSQL connection settings. When Host is
// localhost and no password is set, an embedded server is started with
// its data under DataDir.
type DatabaseConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	User       string `koanf:"user"`
	Password   Secret `koanf:"password"`
	Name       string `koanf:"name"`
	DataDir    string `koanf:"data_dir"`
	LogQueries bool   `koanf:"log_queries"`
}

// TemporalConfig holds Temporal client settings shared by the API
// process and the worker.
type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// TranscriberConfig holds settings for the external speech-to-text
// service.
type TranscriberConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
}

// SweepConfig controls the stale-transcription sweeper.
type SweepConfig struct {
	Enabled    bool     `koanf:"enabled"`
	StaleAfter Duration `koanf:"stale_after"`
	Interval   Duration `koanf:"interval"`
}

// TelemetryConfig controls OpenTelemetry metrics export.
type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	Protocol       string `koanf:"protocol"`
	Insecure       bool   `koanf:"insecure"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// applyDefaults fills zero values with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 20
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 40
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "consultd"
	}
	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = "data/pg"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "127.0.0.1:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "consultd"
	}

	if cfg.Transcriber.BaseURL == "" {
		cfg.Transcriber.BaseURL = "http://localhost:9000"
	}
	if cfg.Transcriber.Model == "" {
		cfg.Transcriber.Model = "base"
	}
	if cfg.Transcriber.Timeout == 0 {
		cfg.Transcriber.Timeout = Duration(5 * time.Minute)
	}

	if cfg.Sweep.StaleAfter == 0 {
		cfg.Sweep.StaleAfter = Duration(10 * time.Minute)
	}
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = Duration(time.Minute)
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "consultd"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for inconsistent or unusable values.
func (c *Config) Validate() error {
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}
	if c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_burst cannot be negative")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal.task_queue cannot be empty")
	}
	if u, err := url.Parse(c.Transcriber.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("transcriber.base_url must be an absolute URL, got %q", c.Transcriber.BaseURL)
	}
	if c.Sweep.Enabled && c.Sweep.Interval.Duration() < time.Second {
		return fmt.Errorf("sweep.interval must be at least 1s, got %s", c.Sweep.Interval.Duration())
	}
	switch c.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
