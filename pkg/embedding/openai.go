package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ecoloop/recyclematch/pkg/debug"
	"github.com/ecoloop/recyclematch/pkg/observability"
)

// DefaultImageFetchTimeout bounds the remote image download. A slow or
// unreachable image must never stall a match request beyond this.
const DefaultImageFetchTimeout = 10 * time.Second

// maxImageBytes caps how much image data is read from a remote URL.
const maxImageBytes = 10 << 20

// Client calls an OpenAI-compatible /v1/embeddings endpoint. Image inputs
// are downloaded and passed to the same endpoint as base64 data URIs, which
// multimodal embedding servers accept as input strings.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	imageClient *http.Client

	mu   sync.Mutex
	dims int
}

// ClientConfig holds settings for the embeddings client.
type ClientConfig struct {
	// BaseURL is the endpoint base, e.g. "http://localhost:8089". The
	// "/v1/embeddings" suffix is appended unless already present.
	BaseURL string

	// Model is the embedding model name sent with every request.
	Model string

	// Timeout bounds a single embeddings API call (default: 30s).
	Timeout time.Duration

	// ImageFetchTimeout bounds remote image downloads (default: 10s).
	ImageFetchTimeout time.Duration
}

// Ensure Client implements Provider at compile time.
var _ Provider = (*Client)(nil)

// NewClient creates an embeddings client for an OpenAI-compatible endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding endpoint URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ImageFetchTimeout == 0 {
		cfg.ImageFetchTimeout = DefaultImageFetchTimeout
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		imageClient: &http.Client{Timeout: cfg.ImageFetchTimeout},
	}, nil
}

// Embed produces one unit vector for the listing content. The text and the
// optional image are embedded separately; both vectors are normalized,
// averaged, and renormalized. A failed image fetch or image embedding is
// logged and recovered by returning the text-only vector.
func (c *Client) Embed(ctx context.Context, text, imageURL string) ([]float32, error) {
	var textVec, imageVec []float32

	if strings.TrimSpace(text) != "" {
		start := time.Now()
		vec, err := c.embedInput(ctx, text)
		observability.EmbeddingLatency.WithLabelValues("text").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.EmbeddingRequestsTotal.WithLabelValues("text", "error").Inc()
			if imageURL == "" {
				return nil, fmt.Errorf("embedding text: %w", err)
			}
			slog.Warn("text embedding failed, trying image only", "error", err)
		} else {
			observability.EmbeddingRequestsTotal.WithLabelValues("text", "ok").Inc()
			textVec = vec
		}
	}

	if imageURL != "" {
		start := time.Now()
		vec, err := c.embedImage(ctx, imageURL)
		observability.EmbeddingLatency.WithLabelValues("image").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.EmbeddingRequestsTotal.WithLabelValues("image", "error").Inc()
			// Fail soft: a missing image vector never aborts the match.
			slog.Warn("image embedding failed, continuing without image",
				"image_url", imageURL, "error", err)
		} else {
			observability.EmbeddingRequestsTotal.WithLabelValues("image", "ok").Inc()
			imageVec = vec
		}
	}

	switch {
	case textVec != nil && imageVec != nil:
		return combine(textVec, imageVec)
	case textVec != nil:
		return normalize(textVec), nil
	case imageVec != nil:
		return normalize(imageVec), nil
	default:
		return nil, ErrNoInput
	}
}

// Dimensions probes the endpoint once with a tiny input and caches the
// resulting vector dimension.
func (c *Client) Dimensions(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dims > 0 {
		return c.dims, nil
	}

	vec, err := c.embedInput(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	c.dims = len(vec)
	return c.dims, nil
}

// embeddingRequest is the JSON request body for the embeddings API.
type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingResponse is the JSON response from the embeddings API.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// embedInput sends a single input string to the embeddings endpoint.
func (c *Client) embedInput(ctx context.Context, input string) ([]float32, error) {
	endpoint := c.baseURL
	if !strings.HasSuffix(endpoint, "/v1/embeddings") {
		endpoint = strings.TrimRight(endpoint, "/") + "/v1/embeddings"
	}

	body, err := json.Marshal(embeddingRequest{Input: []string{input}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	debug.Log("embedding", "request", "url", endpoint, "model", c.model,
		"input", debug.Truncate(input, 80))
	if debug.TraceIsEnabled("embedding") {
		debug.Raw("embedding", string(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}
	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	debug.Log("embedding", "response", "dimension", len(embResp.Data[0].Embedding))
	return embResp.Data[0].Embedding, nil
}

// embedImage downloads the image and embeds it as a base64 data URI.
func (c *Client) embedImage(ctx context.Context, imageURL string) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating image request: %w", err)
	}

	resp, err := c.imageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image fetch returned empty body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return c.embedInput(ctx, dataURI)
}

// combine averages two normalized vectors and renormalizes the result.
func combine(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("text and image embeddings have different dimensions: %d vs %d", len(a), len(b))
	}
	na := normalize(a)
	nb := normalize(b)
	sum := make([]float32, len(na))
	for i := range na {
		sum[i] = na[i] + nb[i]
	}
	return normalize(sum), nil
}

// normalize returns an L2-normalized copy of v; a zero vector is returned
// unchanged.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
