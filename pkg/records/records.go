// Package records defines the backing listing and recycler records and the
// store interface over their relational persistence. The matching core only
// reads these records; writes exist for seeding and administration.
package records

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for record stores.
var (
	// ErrNotFound is returned when a referenced listing or recycler record
	// is absent. It is surfaced directly to the caller and never retried.
	ErrNotFound = errors.New("record not found")
)

// Listing is a waste-disposal listing as stored in the backing database.
type Listing struct {
	ID          string
	Description string
	ImageURL    string
	Quantity    float64
	Lat         float64
	Lng         float64
	Tags        []string
}

// Recycler is a recycler facility profile as stored in the backing database.
type Recycler struct {
	ID                string
	ProfileText       string
	AcceptedMaterials []string
	Goals             []string
	Capacity          float64
	Lat               float64
	Lng               float64
}

// Store provides access to listing and recycler records.
type Store interface {
	GetListing(ctx context.Context, id string) (*Listing, error)
	SaveListing(ctx context.Context, l *Listing) error

	GetRecycler(ctx context.Context, id string) (*Recycler, error)
	SaveRecycler(ctx context.Context, r *Recycler) error
	ListRecyclers(ctx context.Context) ([]*Recycler, error)

	Close() error
}

// SplitTags derives a tag list from a comma-separated column value: tokens
// are trimmed and empty ones discarded.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tags = append(tags, tok)
		}
	}
	return tags
}

// JoinTags is the inverse of SplitTags for persistence.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
