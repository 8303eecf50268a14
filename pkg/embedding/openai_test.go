package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// newEmbeddingsServer serves /v1/embeddings, mapping each input to a vector
// via pick. It counts requests.
func newEmbeddingsServer(t *testing.T, pick func(input string) []float32) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Input) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		resp := map[string]any{
			"data": []map[string]any{
				{"embedding": pick(req.Input[0]), "index": 0},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: baseURL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbedTextOnly(t *testing.T) {
	srv, _ := newEmbeddingsServer(t, func(string) []float32 {
		return []float32{3, 4} // norm 5, client must normalize
	})
	c := newTestClient(t, srv.URL)

	vec, err := c.Embed(context.Background(), "plastic bottles", "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("len(vec) = %d, want 2", len(vec))
	}
	if n := vectorNorm(vec); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", n)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("vec = %v, want [0.6 0.8]", vec)
	}
}

func TestEmbedNoInput(t *testing.T) {
	srv, calls := newEmbeddingsServer(t, func(string) []float32 { return []float32{1} })
	c := newTestClient(t, srv.URL)

	_, err := c.Embed(context.Background(), "   ", "")
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
	if calls.Load() != 0 {
		t.Errorf("embeddings endpoint called %d times, want 0", calls.Load())
	}
}

func TestEmbedCombinesTextAndImage(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer imageSrv.Close()

	srv, _ := newEmbeddingsServer(t, func(input string) []float32 {
		if strings.HasPrefix(input, "data:") {
			return []float32{0, 2} // image direction
		}
		return []float32{2, 0} // text direction
	})
	c := newTestClient(t, srv.URL)

	vec, err := c.Embed(context.Background(), "red plastic crate", imageSrv.URL+"/crate.png")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	// Average of unit vectors (1,0) and (0,1), renormalized.
	want := float32(1 / math.Sqrt2)
	if math.Abs(float64(vec[0]-want)) > 1e-6 || math.Abs(float64(vec[1]-want)) > 1e-6 {
		t.Errorf("vec = %v, want [%v %v]", vec, want, want)
	}
}

func TestEmbedImageFetchFailsSoft(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer imageSrv.Close()

	srv, _ := newEmbeddingsServer(t, func(string) []float32 { return []float32{2, 0} })
	c := newTestClient(t, srv.URL)

	vec, err := c.Embed(context.Background(), "plastic crate", imageSrv.URL+"/gone.png")
	if err != nil {
		t.Fatalf("Embed should fall back to text only, got: %v", err)
	}
	if math.Abs(float64(vec[0])-1) > 1e-6 || math.Abs(float64(vec[1])) > 1e-6 {
		t.Errorf("vec = %v, want text-only [1 0]", vec)
	}
}

func TestEmbedTextFailureWithoutImageIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	if _, err := c.Embed(context.Background(), "plastic crate", ""); err == nil {
		t.Error("expected error when text embedding fails and no image exists")
	}
}

func TestDimensionsProbesOnceAndCaches(t *testing.T) {
	srv, calls := newEmbeddingsServer(t, func(string) []float32 {
		return make([]float32, 64)
	})
	c := newTestClient(t, srv.URL)

	for i := 0; i < 3; i++ {
		dims, err := c.Dimensions(context.Background())
		if err != nil {
			t.Fatalf("Dimensions call %d: %v", i, err)
		}
		if dims != 64 {
			t.Errorf("dims = %d, want 64", dims)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("embeddings endpoint called %d times, want 1", calls.Load())
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	got := normalize(zero)
	for i, v := range got {
		if v != 0 {
			t.Errorf("normalize(zero)[%d] = %v, want 0", i, v)
		}
	}
}

func TestCombineDimensionMismatch(t *testing.T) {
	if _, err := combine([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}
