// Command seed populates the vector store and the backing record store with
// demo recyclers and one sample listing, so a fresh deployment has something
// to match against. Profiles are embedded through the configured endpoint;
// point it at cmd/mock-embedder for a fully offline setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ecoloop/recyclematch/pkg/config"
	"github.com/ecoloop/recyclematch/pkg/embedding"
	"github.com/ecoloop/recyclematch/pkg/matching"
	"github.com/ecoloop/recyclematch/pkg/records"
	"github.com/ecoloop/recyclematch/pkg/records/memory"
	"github.com/ecoloop/recyclematch/pkg/records/postgres"
	"github.com/ecoloop/recyclematch/pkg/records/sqlite"
	"github.com/ecoloop/recyclematch/pkg/vectorstore"
)

// demoRecycler is one seeded facility profile.
type demoRecycler struct {
	id          string
	profile     string
	materials   []string
	goals       []string
	lat, lng    float64
	minCap      float64
	maxCap      float64
}

var demoRecyclers = []demoRecycler{
	{
		id:        "R001",
		profile:   "Recycler specializing in PET plastic bottles, high throughput, low contamination tolerance",
		materials: []string{"plastic", "PET"},
		goals:     []string{"plastic", "PET", "circularity", "low-emission logistics"},
		lat:       40.73061, lng: -73.935242,
		minCap: 500, maxCap: 5000,
	},
	{
		id:        "R002",
		profile:   "Facility for mixed paper and cardboard recycling, prefers local pickups",
		materials: []string{"paper", "cardboard"},
		goals:     []string{"paper", "cardboard", "local", "community"},
		lat:       40.650002, lng: -73.949997,
		minCap: 500, maxCap: 5000,
	},
	{
		id:        "R003",
		profile:   "E-waste recycler handling batteries and small electronics with strict compliance",
		materials: []string{"e-waste", "batteries", "electronics"},
		goals:     []string{"e-waste", "batteries", "safety", "compliance"},
		lat:       40.712776, lng: -74.005974,
		minCap: 500, maxCap: 5000,
	},
	{
		id:        "R004",
		profile:   "Glass recycler for clear and green bottles with washing capabilities",
		materials: []string{"glass"},
		goals:     []string{"glass", "washing", "closed-loop"},
		lat:       40.789142, lng: -73.134960,
		minCap: 500, maxCap: 5000,
	},
	{
		id:        "R005",
		profile:   "Metal scrap yard focusing on aluminum cans and light steel",
		materials: []string{"metal", "aluminum", "steel"},
		goals:     []string{"metal", "aluminum", "recovery"},
		lat:       40.8448, lng: -73.8648,
		minCap: 500, maxCap: 5000,
	},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	withListing := flag.Bool("listing", true, "also create a sample waste listing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL:           cfg.Embedding.EndpointURL,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout,
		ImageFetchTimeout: cfg.Embedding.ImageFetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	vstore, err := vectorstore.Open(cfg.Embedding.Dimension, cfg.Vector.IndexPath)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	recStore, err := openRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer recStore.Close()

	// Embed the profiles concurrently; the adds afterwards are sequential
	// because every Add rewrites the full index.
	vectors := make([][]float32, len(demoRecyclers))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range demoRecyclers {
		g.Go(func() error {
			vec, err := provider.Embed(gctx, rec.profile, "")
			if err != nil {
				return fmt.Errorf("embedding profile %s: %w", rec.id, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, rec := range demoRecyclers {
		capacity := rec.minCap + rand.Float64()*(rec.maxCap-rec.minCap)

		md := matching.RecyclerMetadata{
			Location:          matching.LatLng{Lat: rec.lat, Lng: rec.lng},
			Goals:             rec.goals,
			RemainingCapacity: capacity,
		}
		if err := md.Validate(); err != nil {
			return fmt.Errorf("recycler %s metadata: %w", rec.id, err)
		}
		if err := vstore.Add(rec.id, vectors[i], md.Map()); err != nil {
			return fmt.Errorf("adding recycler %s to vector store: %w", rec.id, err)
		}

		if err := recStore.SaveRecycler(ctx, &records.Recycler{
			ID:                rec.id,
			ProfileText:       rec.profile,
			AcceptedMaterials: rec.materials,
			Goals:             rec.goals,
			Capacity:          capacity,
			Lat:               rec.lat,
			Lng:               rec.lng,
		}); err != nil {
			return fmt.Errorf("saving recycler %s: %w", rec.id, err)
		}

		slog.Info("seeded recycler", "id", rec.id, "capacity", capacity)
	}

	if *withListing {
		listing := &records.Listing{
			ID:          uuid.NewString(),
			Description: "Around 120 kg of flattened cardboard boxes from a small warehouse",
			Quantity:    120,
			Lat:         40.7128,
			Lng:         -74.0060,
			Tags:        []string{"cardboard", "paper", "local"},
		}
		if err := recStore.SaveListing(ctx, listing); err != nil {
			return fmt.Errorf("saving sample listing: %w", err)
		}
		slog.Info("seeded sample listing", "id", listing.ID)
	}

	slog.Info("seeding complete",
		"recyclers", len(demoRecyclers),
		"index_records", vstore.Len(),
	)
	return nil
}

func openRecordStore(ctx context.Context, cfg *config.Config) (records.Store, error) {
	switch cfg.Records.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.Records.SQLitePath)
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Records.Postgres.DSN,
			MaxConns:       cfg.Records.Postgres.MaxConns,
			MigrateOnStart: cfg.Records.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown records type %q", cfg.Records.Type)
	}
}
