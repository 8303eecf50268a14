// Package transport provides HTTP-level middleware and error serialization
// shared by the recyclematch endpoints: panic recovery, request ID
// propagation, structured request logging, and the JSON error writers.
package transport
