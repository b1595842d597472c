package market

import (
	"context"
	"fmt"

	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/aescanero/cmcproxy/pkg/ports"
	"go.uber.org/zap"
)

const (
	// ListingsLimit is the snapshot size for full, trending and lookup views
	ListingsLimit = 100
	// TrendingSize caps the trending view
	TrendingSize = 10
	// MoversLimit caps the gainers and losers views
	MoversLimit = 3

	sortPercentChange24h = "percent_change_24h"
)

// Service builds listing views from upstream snapshots
type Service struct {
	fetcher ports.ListingsFetcher
	logo    domain.LogoTemplate
	logger  *zap.Logger
}

// NewService creates a new market service
func NewService(fetcher ports.ListingsFetcher, logo domain.LogoTemplate, logger *zap.Logger) *Service {
	if logo == "" {
		logo = domain.DefaultLogoTemplate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		logo:    logo,
		logger:  logger,
	}
}

// Listings returns the first page of listings with logos applied
func (s *Service) Listings(ctx context.Context) (*domain.Listings, error) {
	listings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return listings.WithLogos(s.logo), nil
}

// Trending returns the largest 24h gainers of the first page
func (s *Service) Trending(ctx context.Context) ([]domain.Asset, error) {
	listings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	trending := Take(SortByChange(listings.Assets, ports.SortDesc), TrendingSize)
	return AnnotateLogos(trending, s.logo), nil
}

// TopGainers returns the assets with the highest 24h change
func (s *Service) TopGainers(ctx context.Context) ([]domain.Mover, error) {
	return s.movers(ctx, ports.SortDesc)
}

// TopLosers returns the assets with the lowest 24h change
func (s *Service) TopLosers(ctx context.Context) ([]domain.Mover, error) {
	return s.movers(ctx, ports.SortAsc)
}

// ByID looks up a single asset in the first page. It returns
// domain.ErrNotFound when no asset matches.
func (s *Service) ByID(ctx context.Context, id string) (domain.Asset, error) {
	listings, err := s.snapshot(ctx)
	if err != nil {
		return domain.Asset{}, err
	}

	asset, ok := FindByID(listings.Assets, id)
	if !ok {
		s.logger.Debug("asset not in snapshot",
			zap.String("id", id),
			zap.Int("snapshot_size", len(listings.Assets)))
		return domain.Asset{}, fmt.Errorf("asset %q: %w", id, domain.ErrNotFound)
	}

	return asset.WithLogo(s.logo), nil
}

func (s *Service) snapshot(ctx context.Context) (*domain.Listings, error) {
	listings, err := s.fetcher.FetchListings(ctx, ports.ListingsQuery{
		Start: 1,
		Limit: ListingsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// movers asks the upstream for its own ordering and re-sorts locally so
// the result is ordered even when the upstream ignores the sort.
func (s *Service) movers(ctx context.Context, dir ports.SortDirection) ([]domain.Mover, error) {
	listings, err := s.fetcher.FetchListings(ctx, ports.ListingsQuery{
		Start:   1,
		Limit:   MoversLimit,
		Sort:    sortPercentChange24h,
		SortDir: dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s movers: %w", dir, err)
	}

	top := Take(SortByChange(listings.Assets, dir), MoversLimit)
	return ProjectMovers(top, s.logo), nil
}
