package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFile writes YAML content to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalYAML = `
embedding:
  endpoint_url: http://localhost:8089
  dimension: 64
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Embedding.ImageFetchTimeout != 10*time.Second {
		t.Errorf("ImageFetchTimeout = %v, want 10s", cfg.Embedding.ImageFetchTimeout)
	}
	if cfg.Matching.Overfetch != 3 {
		t.Errorf("Overfetch = %d, want 3", cfg.Matching.Overfetch)
	}
	if cfg.Matching.Weights.Material != 0.5 {
		t.Errorf("Material weight = %v, want 0.5", cfg.Matching.Weights.Material)
	}
	if cfg.Records.Type != "sqlite" || cfg.Records.SQLitePath != "recyclematch.db" {
		t.Errorf("Records = %+v, want sqlite defaults", cfg.Records)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("Auth.Type = %q, want none", cfg.Auth.Type)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Observability.Metrics)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
server:
  port: 9001
  shutdown_timeout: 25s
embedding:
  endpoint_url: http://embedder:8089
  model: clip-vit
  dimension: 512
vector:
  index_path: /var/lib/recyclematch/index.bin
  recover_on_corruption: true
matching:
  overfetch: 5
  weights:
    material: 0.6
    distance: 0.1
    capacity: 0.2
    sustainability: 0.1
records:
  type: memory
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 25*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 25s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Embedding.Model != "clip-vit" || cfg.Embedding.Dimension != 512 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if !cfg.Vector.RecoverOnCorruption {
		t.Error("RecoverOnCorruption = false, want true")
	}
	if cfg.Matching.Overfetch != 5 {
		t.Errorf("Overfetch = %d, want 5", cfg.Matching.Overfetch)
	}
	if cfg.Matching.Weights.Material != 0.6 {
		t.Errorf("Material weight = %v, want 0.6", cfg.Matching.Weights.Material)
	}
	if cfg.Records.Type != "memory" {
		t.Errorf("Records.Type = %q, want memory", cfg.Records.Type)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("RECYCLEMATCH_PORT", "7070")
	t.Setenv("RECYCLEMATCH_EMBEDDING_URL", "http://env-embedder:8089")
	t.Setenv("RECYCLEMATCH_EMBEDDING_DIM", "128")
	t.Setenv("RECYCLEMATCH_RECORDS", "memory")
	t.Setenv("RECYCLEMATCH_OVERFETCH", "7")

	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Embedding.EndpointURL != "http://env-embedder:8089" {
		t.Errorf("EndpointURL = %q", cfg.Embedding.EndpointURL)
	}
	if cfg.Embedding.Dimension != 128 {
		t.Errorf("Dimension = %d, want 128", cfg.Embedding.Dimension)
	}
	if cfg.Records.Type != "memory" {
		t.Errorf("Records.Type = %q, want memory", cfg.Records.Type)
	}
	if cfg.Matching.Overfetch != 7 {
		t.Errorf("Overfetch = %d, want 7", cfg.Matching.Overfetch)
	}
}

func TestLoadLegacyWeightVariables(t *testing.T) {
	t.Setenv("MATERIAL_WEIGHT", "0.7")
	t.Setenv("DISTANCE_WEIGHT", "0.15")
	t.Setenv("CAPACITY_WEIGHT", "0.1")
	t.Setenv("SUSTAIN_WEIGHT", "0.05")

	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	w := cfg.Matching.Weights
	if w.Material != 0.7 || w.Distance != 0.15 || w.Capacity != 0.1 || w.Sustainability != 0.05 {
		t.Errorf("Weights = %+v", w)
	}
}

func TestLoadFileReferences(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "jwt-secret")
	if err := os.WriteFile(secretPath, []byte("sekrit\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	cfg, err := Load(writeConfigFile(t, minimalYAML+`
auth:
  type: jwt
  jwt:
    secret_file: `+secretPath+`
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWT.Secret != "sekrit" {
		t.Errorf("JWT.Secret = %q, want sekrit (trimmed)", cfg.Auth.JWT.Secret)
	}
}

func TestLoadMissingSecretFile(t *testing.T) {
	_, err := Load(writeConfigFile(t, minimalYAML+`
auth:
  type: jwt
  jwt:
    secret_file: /nonexistent/secret
`))
	if err == nil {
		t.Fatal("expected error for missing secret file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.Embedding.EndpointURL = "http://localhost:8089"
		cfg.Embedding.Dimension = 64
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.Embedding.EndpointURL = "" }, "embedding.endpoint_url"},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero overfetch", func(c *Config) { c.Matching.Overfetch = 0 }, "matching.overfetch"},
		{"negative weight", func(c *Config) { c.Matching.Weights.Distance = -0.1 }, "weights"},
		{"max_top_k below top_k", func(c *Config) { c.Matching.MaxTopK = 5 }, "max_top_k"},
		{"unknown records type", func(c *Config) { c.Records.Type = "oracle" }, "records.type"},
		{"sqlite without path", func(c *Config) { c.Records.SQLitePath = "" }, "sqlite_path"},
		{"postgres without dsn", func(c *Config) { c.Records.Type = "postgres" }, "postgres.dsn"},
		{"unknown auth type", func(c *Config) { c.Auth.Type = "ldap" }, "auth.type"},
		{"apikey without keys", func(c *Config) { c.Auth.Type = "apikey" }, "api_keys"},
		{"jwt without secret", func(c *Config) { c.Auth.Type = "jwt" }, "jwt.secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
