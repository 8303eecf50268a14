// Package sqlite provides a SQLite-backed records.Store using the pure-Go
// modernc.org/sqlite driver. It is the default backing database for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecoloop/recyclematch/pkg/records"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed records.Store.
type Store struct {
	db *sql.DB
}

// Ensure Store implements records.Store at compile time.
var _ records.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS waste_listings (
	id TEXT PRIMARY KEY,
	description TEXT,
	image_url TEXT,
	quantity REAL DEFAULT 0.0,
	location_lat REAL DEFAULT 0.0,
	location_lng REAL DEFAULT 0.0,
	tags TEXT
);
CREATE TABLE IF NOT EXISTS recyclers (
	id TEXT PRIMARY KEY,
	profile_text TEXT,
	accepted_materials TEXT,
	sustainability_goals TEXT,
	capacity REAL DEFAULT 0.0,
	location_lat REAL DEFAULT 0.0,
	location_lng REAL DEFAULT 0.0
);
`

// New opens (creating if needed) the SQLite database at path and ensures the
// schema exists.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent readers from blocking on writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetListing retrieves a listing by id. Absent numeric columns default to 0
// and tag columns are comma-split.
func (s *Store) GetListing(ctx context.Context, id string) (*records.Listing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, image_url, quantity, location_lat, location_lng, tags
		FROM waste_listings WHERE id = ?
	`, id)

	var l records.Listing
	var description, imageURL, tags sql.NullString
	var quantity, lat, lng sql.NullFloat64

	err := row.Scan(&l.ID, &description, &imageURL, &quantity, &lat, &lng, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing: %w", err)
	}

	l.Description = description.String
	l.ImageURL = imageURL.String
	l.Quantity = quantity.Float64
	l.Lat = lat.Float64
	l.Lng = lng.Float64
	l.Tags = records.SplitTags(tags.String)
	return &l, nil
}

// SaveListing inserts or replaces a listing.
func (s *Store) SaveListing(ctx context.Context, l *records.Listing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO waste_listings
			(id, description, image_url, quantity, location_lat, location_lng, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.Description, l.ImageURL, l.Quantity, l.Lat, l.Lng, records.JoinTags(l.Tags))
	if err != nil {
		return fmt.Errorf("saving listing: %w", err)
	}
	return nil
}

// GetRecycler retrieves a recycler by id.
func (s *Store) GetRecycler(ctx context.Context, id string) (*records.Recycler, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile_text, accepted_materials, sustainability_goals,
		       capacity, location_lat, location_lng
		FROM recyclers WHERE id = ?
	`, id)
	return scanRecycler(row.Scan)
}

// SaveRecycler inserts or replaces a recycler.
func (s *Store) SaveRecycler(ctx context.Context, r *records.Recycler) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recyclers
			(id, profile_text, accepted_materials, sustainability_goals,
			 capacity, location_lat, location_lng)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ProfileText, records.JoinTags(r.AcceptedMaterials), records.JoinTags(r.Goals),
		r.Capacity, r.Lat, r.Lng)
	if err != nil {
		return fmt.Errorf("saving recycler: %w", err)
	}
	return nil
}

// ListRecyclers returns all recycler records.
func (s *Store) ListRecyclers(ctx context.Context) ([]*records.Recycler, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_text, accepted_materials, sustainability_goals,
		       capacity, location_lat, location_lng
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

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func scanRecycler(scan func(...any) error) (*records.Recycler, error) {
	var r records.Recycler
	var profile, materials, goals sql.NullString
	var capacity, lat, lng sql.NullFloat64

	err := scan(&r.ID, &profile, &materials, &goals, &capacity, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning recycler: %w", err)
	}

	r.ProfileText = profile.String
	r.AcceptedMaterials = records.SplitTags(materials.String)
	r.Goals = records.SplitTags(goals.String)
	r.Capacity = capacity.Float64
	r.Lat = lat.Float64
	r.Lng = lng.Float64
	return &r, nil
}
