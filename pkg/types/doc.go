// Package types defines the entity structs, the status vocabulary, backend
// configuration, and the standard error values shared by the TNR manager
// packages.
//
// The storage layer (internal/store) hydrates rows into these structs and
// the HTTP layer (internal/api) serializes them as JSON, so field tags here
// define the wire format.
package types
