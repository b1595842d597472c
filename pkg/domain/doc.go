// Package domain holds the market-data types shared by the adapters, the
// application layer and the API.
//
// Asset records are kept as the raw upstream JSON so that every quote field
// survives the round trip untouched. Only the fields the proxy needs for
// sorting and matching are extracted.
package domain
