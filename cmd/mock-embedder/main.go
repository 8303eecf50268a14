// Command mock-embedder runs a deterministic OpenAI-compatible embeddings
// server for development and integration testing. Identical inputs always
// produce identical unit vectors, so matches are reproducible across runs.
//
// Configuration:
//
//	MOCK_EMBEDDER_PORT - Listen port (default: 8089)
//	MOCK_EMBEDDER_DIM  - Vector dimension (default: 64)
package main

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

var dimension = 64

func main() {
	port := os.Getenv("MOCK_EMBEDDER_PORT")
	if port == "" {
		port = "8089"
	}
	if raw := os.Getenv("MOCK_EMBEDDER_DIM"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			slog.Error("invalid MOCK_EMBEDDER_DIM", "value", raw)
			os.Exit(1)
		}
		dimension = n
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", handleEmbeddings)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock embedder starting", "port", port, "dimension", dimension)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock embedder failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock embedder shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request/response types ---

type embeddingsRequest struct {
	Input any    `json:"input"` // string or []string
	Model string `json:"model"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingsResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

// --- Handler ---

func handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	inputs, ok := normalizeInputs(req.Input)
	if !ok || len(inputs) == 0 {
		http.Error(w, `{"error":{"message":"input must be a string or array of strings","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-embedder"
	}

	resp := embeddingsResponse{Object: "list", Model: model}
	for i, input := range inputs {
		resp.Data = append(resp.Data, embeddingData{
			Object:    "embedding",
			Embedding: deterministicVector(input),
			Index:     i,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func normalizeInputs(input any) ([]string, bool) {
	switch v := input.(type) {
	case string:
		return []string{v}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// deterministicVector derives a unit vector from the input text. The FNV
// hash seeds a PRNG so similar but non-identical inputs still get unrelated
// directions, which is what the matching tests expect.
func deterministicVector(input string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(input))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float64, dimension)
	var sum float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		sum += vec[i] * vec[i]
	}

	norm := math.Sqrt(sum)
	out := make([]float32, dimension)
	for i := range vec {
		out[i] = float32(vec[i] / norm)
	}
	return out
}
