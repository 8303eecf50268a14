// Package vectorstore provides a durable, exact nearest-neighbor index of
// unit-normalized vectors with attached metadata.
//
// All stored vectors and queries are L2-normalized before comparison, so the
// inner product used for ranking is equivalent to cosine similarity. Search is
// an exact brute-force scan over all records; there is no approximate indexing.
//
// The store persists to two artifacts: a gob-encoded index file holding the
// vectors and internal ids, and a gzip-compressed JSON sidecar holding the
// full records including metadata. Every insert rewrites both artifacts
// synchronously before it is acknowledged.
package vectorstore
