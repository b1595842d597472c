package market

import (
	"sort"

	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/aescanero/cmcproxy/pkg/ports"
)

// SortByChange returns a copy of assets ordered by 24h change in the given
// direction. Equal values keep their upstream order and assets without a
// value go last.
func SortByChange(assets []domain.Asset, dir ports.SortDirection) []domain.Asset {
	sorted := make([]domain.Asset, len(assets))
	copy(sorted, assets)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PercentChange24h, sorted[j].PercentChange24h
		if !a.Valid || !b.Valid {
			return a.Valid && !b.Valid
		}
		if dir == ports.SortAsc {
			return a.Decimal.LessThan(b.Decimal)
		}
		return a.Decimal.GreaterThan(b.Decimal)
	})

	return sorted
}

// Take returns at most n leading assets
func Take(assets []domain.Asset, n int) []domain.Asset {
	if n < 0 {
		n = 0
	}
	if len(assets) > n {
		return assets[:n]
	}
	return assets
}

// AnnotateLogos returns a copy of assets with logos applied
func AnnotateLogos(assets []domain.Asset, tmpl domain.LogoTemplate) []domain.Asset {
	annotated := make([]domain.Asset, len(assets))
	for i, asset := range assets {
		annotated[i] = asset.WithLogo(tmpl)
	}
	return annotated
}

// ProjectMovers maps assets to the compact mover shape
func ProjectMovers(assets []domain.Asset, tmpl domain.LogoTemplate) []domain.Mover {
	movers := make([]domain.Mover, len(assets))
	for i, asset := range assets {
		movers[i] = asset.Mover(tmpl)
	}
	return movers
}

// FindByID returns the first asset loosely matching id
func FindByID(assets []domain.Asset, id string) (domain.Asset, bool) {
	for _, asset := range assets {
		if asset.MatchesID(id) {
			return asset, true
		}
	}
	return domain.Asset{}, false
}
