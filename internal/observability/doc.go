// Package observability provides structured logging and Prometheus metrics
// for the to-do backend.
//
// This package implements:
//   - zap logger construction from level/format settings
//   - Prometheus collectors for authorization decisions, signing key set
//     fetches, key cache lookups, to-do operations and HTTP traffic
package observability
