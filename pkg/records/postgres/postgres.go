// Package postgres provides a PostgreSQL implementation of records.Store.
// It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecoloop/recyclematch/pkg/records"
)

// Store is a PostgreSQL-backed records.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements records.Store at compile time.
var _ records.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration. If
// MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// GetListing retrieves a listing by id.
func (s *Store) GetListing(ctx context.Context, id string) (*records.Listing, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(description, ''), COALESCE(image_url, ''),
		       quantity, location_lat, location_lng, COALESCE(tags, '')
		FROM waste_listings WHERE id = $1
	`, id)

	var l records.Listing
	var tags string
	err := row.Scan(&l.ID, &l.Description, &l.ImageURL, &l.Quantity, &l.Lat, &l.Lng, &tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing: %w", err)
	}
	l.Tags = records.SplitTags(tags)
	return &l, nil
}

// SaveListing inserts or updates a listing.
func (s *Store) SaveListing(ctx context.Context, l *records.Listing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO waste_listings
			(id, description, image_url, quantity, location_lat, location_lng, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			quantity = EXCLUDED.quantity,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			tags = EXCLUDED.tags
	`, l.ID, l.Description, l.ImageURL, l.Quantity, l.Lat, l.Lng, records.JoinTags(l.Tags))
	if err != nil {
		return fmt.Errorf("saving listing: %w", err)
	}
	return nil
}

// GetRecycler retrieves a recycler by id.
func (s *Store) GetRecycler(ctx context.Context, id string) (*records.Recycler, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(profile_text, ''), COALESCE(accepted_materials, ''),
		       COALESCE(sustainability_goals, ''), capacity, location_lat, location_lng
		FROM recyclers WHERE id = $1
	`, id)

	return scanRecycler(row.Scan)
}

// SaveRecycler inserts or updates a recycler.
func (s *Store) SaveRecycler(ctx context.Context, r *records.Recycler) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recyclers
			(id, profile_text, accepted_materials, sustainability_goals,
			 capacity, location_lat, location_lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			profile_text = EXCLUDED.profile_text,
			accepted_materials = EXCLUDED.accepted_materials,
			sustainability_goals = EXCLUDED.sustainability_goals,
			capacity = EXCLUDED.capacity,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng
	`, r.ID, r.ProfileText, records.JoinTags(r.AcceptedMaterials), records.JoinTags(r.Goals),
		r.Capacity, r.Lat, r.Lng)
	if err != nil {
		return fmt.Errorf("saving recycler: %w", err)
	}
	return nil
}

// ListRecyclers returns all recycler records.
func (s *Store) ListRecyclers(ctx context.Context) ([]*records.Recycler, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(profile_text, ''), COALESCE(accepted_materials, ''),
		       COALESCE(sustainability_goals, ''), capacity, location_lat, location_lng
		FROM recyclers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying recyclers: %w", err)
	}
	defer rows.Close()

	var out []*records.Recycler
	for rows.Next() {
		r, err := scanRecycler(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecycler(scan func(...any) error) (*records.Recycler, error) {
	var r records.Recycler
	var materials, goals string
	err := scan(&r.ID, &r.ProfileText, &materials, &goals, &r.Capacity, &r.Lat, &r.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning recycler: %w", err)
	}
	r.AcceptedMaterials = records.SplitTags(materials)
	r.Goals = records.SplitTags(goals)
	return &r, nil
}
