// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PipelineConfig holds the orchestrator's concurrency and retry settings.
type PipelineConfig struct {
	MaxConcurrent  int `mapstructure:"max_concurrent"`  // global ceiling on in-flight applications
	RetryAttempts  int `mapstructure:"retry_attempts"`  // transient-error budget per collaborator call
	RetryBackoff   int `mapstructure:"retry_backoff"`   // initial backoff, milliseconds
	PollInterval   int `mapstructure:"poll_interval"`   // milliseconds
	DedupTTL       int `mapstructure:"dedup_ttl"`       // milliseconds; content-hash cache expiry
	PresignedIDTTL int `mapstructure:"presigned_ttl"`   // milliseconds; download links in failure mails
}

// CollaboratorsConfig holds one endpoint block per external collaborator.
type CollaboratorsConfig struct {
	Poller      EndpointConfig `mapstructure:"poller"`
	ObjectStore EndpointConfig `mapstructure:"object_store"`
	Records     EndpointConfig `mapstructure:"records"`
	Validator   EndpointConfig `mapstructure:"validator"`
	Notifier    EndpointConfig `mapstructure:"notifier"`
}

type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig holds settings for the elasticsearch report indexer.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// NotificationConfig selects and parameterizes the notifier backend.
type NotificationConfig struct {
	// Backend is "http" (outgoing email service) or "aws" (SES/SNS).
	Backend string `mapstructure:"backend"`

	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
