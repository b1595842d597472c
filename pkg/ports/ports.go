// Package ports defines the interfaces between the application layer and
// its adapters.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/cmcproxy/pkg/domain"
)

// SortDirection orders an upstream listings query
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListingsQuery selects a page of the upstream latest listings
type ListingsQuery struct {
	Start   int
	Limit   int
	Sort    string
	SortDir SortDirection
}

// ListingsFetcher retrieves listings snapshots from the market-data API
type ListingsFetcher interface {
	FetchListings(ctx context.Context, query ListingsQuery) (*domain.Listings, error)
}

// MetricsCollector records request metrics
type MetricsCollector interface {
	ObserveUpstreamRequest(endpoint string, status int, duration time.Duration, err error)
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)
	ObserveAssetsServed(route string, count int)
}

// HealthReporter receives the outcome of every upstream call
type HealthReporter interface {
	ReportUpstream(err error)
}
