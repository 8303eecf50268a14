// Package embedding defines the embedding provider contract and an
// OpenAI-compatible HTTP client implementation.
//
// A provider turns a listing's text description and optional image reference
// into a single unit-length vector of fixed dimension. The dimension is set
// by the configured model and must match the vector store's dimension; the
// pairing is verified once at startup, not at query time.
package embedding
