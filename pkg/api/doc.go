// Package api defines the wire types of the recyclematch HTTP API: the
// match response envelope and the structured error format shared by all
// endpoints.
package api
