// Package market implements the listing views served by the proxy.
//
// Each view fetches one listings snapshot from the upstream and applies a
// pure transform to it:
//   - Listings: the full snapshot with logos
//   - Trending: the ten largest 24h gainers of the first hundred assets
//   - TopGainers / TopLosers: the three extremes, projected to movers
//   - ByID: a single asset looked up in the snapshot
package market
