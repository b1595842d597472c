// Package coinmarketcap provides the upstream market-data client.
//
// Every request carries the API key header and convert=USD. Failures of any
// kind (transport, non-2xx status, unparseable body) surface as
// *domain.UpstreamError.
package coinmarketcap
