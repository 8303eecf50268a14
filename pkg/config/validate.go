package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Embedding.EndpointURL == "" {
		errs = append(errs, fmt.Errorf("embedding.endpoint_url is required"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be > 0, got %d", c.Embedding.Dimension))
	}

	if c.Matching.Overfetch <= 0 {
		errs = append(errs, fmt.Errorf("matching.overfetch must be > 0, got %d", c.Matching.Overfetch))
	}
	if c.Matching.TopK <= 0 {
		errs = append(errs, fmt.Errorf("matching.top_k must be > 0, got %d", c.Matching.TopK))
	}
	if c.Matching.MaxTopK < c.Matching.TopK {
		errs = append(errs, fmt.Errorf("matching.max_top_k must be >= matching.top_k, got %d < %d", c.Matching.MaxTopK, c.Matching.TopK))
	}
	w := c.Matching.Weights
	if w.Material < 0 || w.Distance < 0 || w.Capacity < 0 || w.Sustainability < 0 {
		errs = append(errs, fmt.Errorf("matching.weights must be non-negative"))
	}

	switch c.Records.Type {
	case "memory", "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("records.type must be \"memory\", \"sqlite\", or \"postgres\", got %q", c.Records.Type))
	}
	if c.Records.Type == "sqlite" && c.Records.SQLitePath == "" {
		errs = append(errs, fmt.Errorf("records.sqlite_path is required when records.type is \"sqlite\""))
	}
	if c.Records.Type == "postgres" {
		if c.Records.Postgres.DSN == "" && c.Records.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("records.postgres.dsn or records.postgres.dsn_file is required when records.type is \"postgres\""))
		}
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	return errors.Join(errs...)
}
