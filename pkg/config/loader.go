package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RECYCLEMATCH_CONFIG env,
//     ./config.yaml, /etc/recyclematch/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// explicit argument, RECYCLEMATCH_CONFIG env var, ./config.yaml,
// /etc/recyclematch/config.yaml. Returns empty string if none is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("RECYCLEMATCH_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/recyclematch/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct. Fields
// not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. The legacy
// *_WEIGHT variables are honored for compatibility with earlier deployments
// of the matching engine.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECYCLEMATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RECYCLEMATCH_EMBEDDING_URL"); v != "" {
		cfg.Embedding.EndpointURL = v
	}
	if v := os.Getenv("RECYCLEMATCH_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RECYCLEMATCH_EMBEDDING_DIM"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = dim
		}
	}
	if v := os.Getenv("RECYCLEMATCH_INDEX_PATH"); v != "" {
		cfg.Vector.IndexPath = v
	}
	if v := os.Getenv("RECYCLEMATCH_RECORDS"); v != "" {
		cfg.Records.Type = v
	}
	if v := os.Getenv("RECYCLEMATCH_SQLITE_PATH"); v != "" {
		cfg.Records.SQLitePath = v
	}
	if v := os.Getenv("RECYCLEMATCH_POSTGRES_DSN"); v != "" {
		cfg.Records.Postgres.DSN = v
	}
	if v := os.Getenv("RECYCLEMATCH_OVERFETCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.Overfetch = n
		}
	}

	// Legacy weight variables.
	if v, ok := envFloat("MATERIAL_WEIGHT"); ok {
		cfg.Matching.Weights.Material = v
	}
	if v, ok := envFloat("DISTANCE_WEIGHT"); ok {
		cfg.Matching.Weights.Distance = v
	}
	if v, ok := envFloat("CAPACITY_WEIGHT"); ok {
		cfg.Matching.Weights.Capacity = v
	}
	if v, ok := envFloat("SUSTAIN_WEIGHT"); ok {
		cfg.Matching.Weights.Sustainability = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// resolveFileReferences reads the contents of any _file suffixed fields into
// their plain counterparts. The plain field wins when both are set.
func resolveFileReferences(cfg *Config) error {
	if cfg.Records.Postgres.DSN == "" && cfg.Records.Postgres.DSNFile != "" {
		v, err := readSecretFile(cfg.Records.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("records.postgres.dsn_file: %w", err)
		}
		cfg.Records.Postgres.DSN = v
	}
	if cfg.Auth.JWT.Secret == "" && cfg.Auth.JWT.SecretFile != "" {
		v, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = v
	}
	for i := range cfg.Auth.APIKeys {
		entry := &cfg.Auth.APIKeys[i]
		if entry.Key == "" && entry.KeyFile != "" {
			v, err := readSecretFile(entry.KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			entry.Key = v
		}
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
