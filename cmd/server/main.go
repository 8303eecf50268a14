// Command server runs the recyclematch matching service.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (-config flag, RECYCLEMATCH_CONFIG env, ./config.yaml, or
// /etc/recyclematch/config.yaml), then RECYCLEMATCH_* environment overrides.
// See pkg/config for the full reference.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecoloop/recyclematch/pkg/auth"
	"github.com/ecoloop/recyclematch/pkg/auth/apikey"
	authjwt "github.com/ecoloop/recyclematch/pkg/auth/jwt"
	"github.com/ecoloop/recyclematch/pkg/config"
	"github.com/ecoloop/recyclematch/pkg/debug"
	"github.com/ecoloop/recyclematch/pkg/embedding"
	"github.com/ecoloop/recyclematch/pkg/matching"
	"github.com/ecoloop/recyclematch/pkg/observability"
	"github.com/ecoloop/recyclematch/pkg/records"
	"github.com/ecoloop/recyclematch/pkg/records/memory"
	"github.com/ecoloop/recyclematch/pkg/records/postgres"
	"github.com/ecoloop/recyclematch/pkg/records/sqlite"
	"github.com/ecoloop/recyclematch/pkg/transport"
	transporthttp "github.com/ecoloop/recyclematch/pkg/transport/http"
	"github.com/ecoloop/recyclematch/pkg/vectorstore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init(cfg.Observability.Debug.Categories, cfg.Observability.Debug.Level)
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug categories enabled", "categories", cats)
	}

	// Embedding provider.
	provider, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL:           cfg.Embedding.EndpointURL,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout,
		ImageFetchTimeout: cfg.Embedding.ImageFetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	// Probe the provider's dimension and check it against the configured
	// store dimension. An unreachable endpoint at boot is tolerated; a
	// reachable endpoint with a different dimension is not.
	probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dims, err := provider.Dimensions(probeCtx)
	cancel()
	switch {
	case err != nil:
		slog.Warn("embedding dimension probe failed, trusting configured dimension",
			"dimension", cfg.Embedding.Dimension, "error", err)
	case dims != cfg.Embedding.Dimension:
		return fmt.Errorf("embedding endpoint produces %d-dimensional vectors, config says %d", dims, cfg.Embedding.Dimension)
	}

	// Vector store.
	vstore, err := openVectorStore(cfg)
	if err != nil {
		return err
	}
	observability.VectorStoreSize.Set(float64(vstore.Len()))
	slog.Info("vector store ready",
		"dimension", vstore.Dimension(),
		"records", vstore.Len(),
		"path", cfg.Vector.IndexPath,
	)

	// Backing record store.
	recStore, err := openRecordStore(cfg)
	if err != nil {
		return err
	}
	defer recStore.Close()

	// Matching engine.
	engine, err := matching.New(vstore, provider, matching.Config{
		Weights:   cfg.Matching.Weights,
		Overfetch: cfg.Matching.Overfetch,
	})
	if err != nil {
		return fmt.Errorf("creating matching engine: %w", err)
	}

	// HTTP adapter and middleware chain.
	adapter := transporthttp.NewAdapter(engine, recStore, transporthttp.Config{
		DefaultTopK: cfg.Matching.TopK,
		MaxTopK:     cfg.Matching.MaxTopK,
	})

	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	chain, err := buildAuthChain(cfg)
	if err != nil {
		return err
	}
	bypass := append([]string{}, auth.DefaultBypassEndpoints...)
	if cfg.Observability.Metrics.Enabled && cfg.Observability.Metrics.Path != "/metrics" {
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}

	var handler http.Handler = mux
	handler = auth.Middleware(chain, bypass)(handler)
	handler = transport.Logging(slog.Default())(handler)
	handler = transport.RequestID(handler)
	handler = transport.Recovery(handler)
	handler = observability.MetricsMiddleware(handler)

	srv := transporthttp.NewServer(handler,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	slog.Info("recyclematch starting",
		"port", cfg.Server.Port,
		"embedding_endpoint", cfg.Embedding.EndpointURL,
		"records", cfg.Records.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

// openVectorStore opens the persistent index, optionally discarding corrupt
// artifacts when recovery is enabled.
func openVectorStore(cfg *config.Config) (*vectorstore.Store, error) {
	vstore, err := vectorstore.Open(cfg.Embedding.Dimension, cfg.Vector.IndexPath)
	if err == nil {
		return vstore, nil
	}
	if !errors.Is(err, vectorstore.ErrCorrupt) || !cfg.Vector.RecoverOnCorruption {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	slog.Warn("vector store artifacts are corrupt, discarding and starting empty",
		"path", cfg.Vector.IndexPath, "error", err)
	if err := vectorstore.RemoveArtifacts(cfg.Vector.IndexPath); err != nil {
		return nil, fmt.Errorf("recovering vector store: %w", err)
	}
	vstore, err = vectorstore.Open(cfg.Embedding.Dimension, cfg.Vector.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("reopening vector store after recovery: %w", err)
	}
	return vstore, nil
}

// openRecordStore builds the configured backing record store.
func openRecordStore(cfg *config.Config) (records.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Records.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		store, err := sqlite.New(ctx, cfg.Records.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite record store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Records.Postgres.DSN,
			MaxConns:       cfg.Records.Postgres.MaxConns,
			MigrateOnStart: cfg.Records.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres record store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown records type %q", cfg.Records.Type)
	}
}

// buildAuthChain assembles the authenticator chain from configuration.
func buildAuthChain(cfg *config.Config) (*auth.Chain, error) {
	switch cfg.Auth.Type {
	case "none":
		return &auth.Chain{DefaultDecision: auth.Yes}, nil
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Subject: k.Subject})
		}
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		validator := authjwt.New(authjwt.Config{
			Secret:   cfg.Auth.JWT.Secret,
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
		})
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{validator},
			DefaultDecision: auth.No,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}
