package embedding

import (
	"context"
	"errors"
)

// ErrNoInput is returned when neither the text nor the image produced an
// embedding; no meaningful vector search is possible without a query vector.
var ErrNoInput = errors.New("nothing to embed")

// Provider produces unit-length embedding vectors for waste listings.
type Provider interface {
	// Embed converts a text description and an optional image reference
	// into one unit vector. Image failures are recovered by falling back
	// to the text-only embedding; only the absence of any embeddable
	// content is an error.
	Embed(ctx context.Context, text, imageURL string) ([]float32, error)

	// Dimensions reports the provider's vector dimension, probing the
	// backing model on first use.
	Dimensions(ctx context.Context) (int, error)
}
