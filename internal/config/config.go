// Package config loads and validates service configuration from environment
// variables and optional YAML config files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the bibliometrics service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Registries contains external registry client settings.
	Registries RegistriesConfig `mapstructure:"registries"`
	// Pipeline contains import and refresh workflow settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 25).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 5).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// RegistriesConfig holds external registry client settings.
type RegistriesConfig struct {
	// ContactEmail is included in the User-Agent sent to registries; polite
	// pools at Crossref and friends route identified traffic better.
	ContactEmail string `mapstructure:"contact_email"`
	// ORCID contains public ORCID API settings.
	ORCID RegistryConfig `mapstructure:"orcid"`
	// Crossref contains Crossref REST API settings.
	Crossref RegistryConfig `mapstructure:"crossref"`
	// SemanticScholar contains Semantic Scholar Graph API settings.
	SemanticScholar RegistryConfig `mapstructure:"semantic_scholar"`
	// OpenCitations contains OpenCitations COCI API settings.
	OpenCitations RegistryConfig `mapstructure:"opencitations"`
}

// RegistryConfig holds configuration for a single registry client.
type RegistryConfig struct {
	// BaseURL is the API base URL. Empty means the client default.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the API key (loaded from environment variables only, e.g.
	// PAPERTALKS_REGISTRIES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests.
	BurstSize int `mapstructure:"burst_size"`
}

// PipelineConfig holds import and refresh workflow settings.
type PipelineConfig struct {
	// EnrichBatchSize is the number of concurrent metadata lookups per chunk.
	EnrichBatchSize int `mapstructure:"enrich_batch_size"`
	// CitationBatchSize is the number of concurrent citation lookups per chunk.
	CitationBatchSize int `mapstructure:"citation_batch_size"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// UserAgent returns the User-Agent string sent to external registries.
func (c *RegistriesConfig) UserAgent() string {
	if c.ContactEmail == "" {
		return "PaperTalks/1.0"
	}
	return fmt.Sprintf("PaperTalks/1.0 (mailto:%s)", c.ContactEmail)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERTALKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bibliometrics-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Registries.SemanticScholar.APIKey = os.Getenv("PAPERTALKS_REGISTRIES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Registries.OpenCitations.APIKey = os.Getenv("PAPERTALKS_REGISTRIES_OPENCITATIONS_ACCESS_TOKEN")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "papertalks")
	v.SetDefault("database.name", "bibliometrics")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Registries
	v.SetDefault("registries.contact_email", "hello@papertalks.io")
	v.SetDefault("registries.orcid.timeout", "20s")
	v.SetDefault("registries.orcid.rate_limit", 8.0)
	v.SetDefault("registries.orcid.burst_size", 8)
	v.SetDefault("registries.crossref.timeout", "15s")
	v.SetDefault("registries.crossref.rate_limit", 10.0)
	v.SetDefault("registries.crossref.burst_size", 10)
	v.SetDefault("registries.semantic_scholar.timeout", "15s")
	v.SetDefault("registries.semantic_scholar.rate_limit", 10.0)
	v.SetDefault("registries.semantic_scholar.burst_size", 10)
	v.SetDefault("registries.opencitations.timeout", "15s")
	v.SetDefault("registries.opencitations.rate_limit", 5.0)
	v.SetDefault("registries.opencitations.burst_size", 5)

	// Pipeline
	v.SetDefault("pipeline.enrich_batch_size", 5)
	v.SetDefault("pipeline.citation_batch_size", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	for name, registry := range map[string]RegistryConfig{
		"orcid":            c.Registries.ORCID,
		"crossref":         c.Registries.Crossref,
		"semantic_scholar": c.Registries.SemanticScholar,
		"opencitations":    c.Registries.OpenCitations,
	} {
		if registry.RateLimit <= 0 {
			return fmt.Errorf("registry %s rate limit must be positive", name)
		}
		if registry.BurstSize <= 0 {
			return fmt.Errorf("registry %s burst size must be positive", name)
		}
	}

	if c.Pipeline.EnrichBatchSize <= 0 {
		return fmt.Errorf("pipeline enrich_batch_size must be positive")
	}
	if c.Pipeline.CitationBatchSize <= 0 {
		return fmt.Errorf("pipeline citation_batch_size must be positive")
	}

	return nil
}
