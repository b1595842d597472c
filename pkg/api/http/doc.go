// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Full listings, trending assets, top gainers and losers
//   - Single asset lookup by upstream id
//   - Health checks
//   - Prometheus metrics
//
// Cross-origin requests are accepted from a single configured origin.
package http
