// Package config provides unified configuration for the recyclematch service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RECYCLEMATCH_ prefix, plus the legacy
//     *_WEIGHT variables)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/ecoloop/recyclematch/pkg/matching"
)

// Config holds all configuration for the recyclematch service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Vector        VectorConfig        `yaml:"vector"`
	Matching      MatchingConfig      `yaml:"matching"`
	Records       RecordsConfig       `yaml:"records"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 60s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// EmbeddingConfig holds embedding provider settings. The configured dimension
// must equal the vector store's dimension; the pairing is verified at startup
// against the provider's probed dimension.
type EmbeddingConfig struct {
	EndpointURL       string        `yaml:"endpoint_url"`        // required
	Model             string        `yaml:"model"`               // optional, sent verbatim to the endpoint
	Dimension         int           `yaml:"dimension"`           // required
	Timeout           time.Duration `yaml:"timeout"`             // default: 30s
	ImageFetchTimeout time.Duration `yaml:"image_fetch_timeout"` // default: 10s
}

// VectorConfig holds vector store settings.
type VectorConfig struct {
	// IndexPath is where the binary index artifact lives; the metadata
	// sidecar is stored next to it. Empty means in-memory only.
	IndexPath string `yaml:"index_path"`

	// RecoverOnCorruption opts into discarding unreadable artifacts and
	// starting from an empty store. The data loss is logged at WARN; the
	// default is to fail startup instead.
	RecoverOnCorruption bool `yaml:"recover_on_corruption"`
}

// MatchingConfig holds matching engine settings.
type MatchingConfig struct {
	Weights   matching.Weights `yaml:"weights"`   // zero value means defaults
	Overfetch int              `yaml:"overfetch"` // default: 3
	TopK      int              `yaml:"top_k"`     // default: 10
	MaxTopK   int              `yaml:"max_top_k"` // default: 100
}

// RecordsConfig holds backing record store settings.
type RecordsConfig struct {
	Type       string         `yaml:"type"`        // "memory", "sqlite", or "postgres", default: "sqlite"
	SQLitePath string         `yaml:"sqlite_path"` // default: "recyclematch.db"
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// JWTConfig holds settings for HMAC-signed bearer token validation.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`      // optional, validated when set
	Audience   string `yaml:"audience"`    // optional, validated when set
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Debug   DebugConfig   `yaml:"debug"`
}

// DebugConfig holds category-based debug logging settings. The environment
// variables RECYCLEMATCH_DEBUG and RECYCLEMATCH_LOG_LEVEL take precedence
// over these values.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, e.g. "embedding,matching"
	Level      string `yaml:"level"`      // ERROR, WARN, INFO, DEBUG, or TRACE
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Timeout:           30 * time.Second,
			ImageFetchTimeout: 10 * time.Second,
		},
		Matching: MatchingConfig{
			Weights:   matching.DefaultWeights(),
			Overfetch: matching.DefaultOverfetch,
			TopK:      10,
			MaxTopK:   100,
		},
		Records: RecordsConfig{
			Type:       "sqlite",
			SQLitePath: "recyclematch.db",
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
