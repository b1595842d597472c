package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LogoIDPlaceholder is replaced by the asset id in a LogoTemplate
const LogoIDPlaceholder = "{id}"

// DefaultLogoTemplate points at the upstream's public 64x64 icon set
const DefaultLogoTemplate LogoTemplate = "https://s2.coinmarketcap.com/static/img/coins/64x64/{id}.png"

// Paths into an upstream asset record
const (
	pathID               = "id"
	pathName             = "name"
	pathSymbol           = "symbol"
	pathPercentChange24h = "quote.USD.percent_change_24h"
	pathLogo             = "logo"
	pathData             = "data"
)

// LogoTemplate renders a logo URL for an asset id
type LogoTemplate string

// URL returns the logo URL for id
func (t LogoTemplate) URL(id int64) string {
	return strings.ReplaceAll(string(t), LogoIDPlaceholder, strconv.FormatInt(id, 10))
}

// Valid reports whether the template embeds the id placeholder
func (t LogoTemplate) Valid() bool {
	return strings.Contains(string(t), LogoIDPlaceholder)
}

// Asset is one record of a listings snapshot.
//
// The upstream JSON is retained verbatim; MarshalJSON writes it back with the
// logo field set.
type Asset struct {
	ID     int64
	Name   string
	Symbol string

	// PercentChange24h is the USD 24h change, invalid when the upstream
	// sent null or omitted it.
	PercentChange24h decimal.NullDecimal

	id        decimal.Decimal
	changeRaw string
	logo      string
	raw       json.RawMessage
}

// ParseAsset extracts an Asset from one upstream record
func ParseAsset(raw []byte) (Asset, error) {
	if !gjson.ValidBytes(raw) {
		return Asset{}, errors.New("asset record is not valid JSON")
	}

	idResult := gjson.GetBytes(raw, pathID)
	if idResult.Type != gjson.Number {
		return Asset{}, fmt.Errorf("asset record has no numeric id: %q", idResult.Raw)
	}
	id, err := decimal.NewFromString(idResult.Raw)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset id %q: %w", idResult.Raw, err)
	}

	asset := Asset{
		ID:     id.IntPart(),
		Name:   gjson.GetBytes(raw, pathName).String(),
		Symbol: gjson.GetBytes(raw, pathSymbol).String(),
		id:     id,
		raw:    json.RawMessage(raw),
	}

	change := gjson.GetBytes(raw, pathPercentChange24h)
	if change.Type == gjson.Number {
		value, err := decimal.NewFromString(change.Raw)
		if err != nil {
			return Asset{}, fmt.Errorf("invalid percent_change_24h %q for asset %d: %w", change.Raw, asset.ID, err)
		}
		asset.PercentChange24h = decimal.NullDecimal{Decimal: value, Valid: true}
		asset.changeRaw = change.Raw
	}

	return asset, nil
}

// WithLogo returns a copy of the asset annotated with its logo URL
func (a Asset) WithLogo(tmpl LogoTemplate) Asset {
	a.logo = tmpl.URL(a.ID)
	return a
}

// Logo returns the annotated logo URL, empty until WithLogo is applied
func (a Asset) Logo() string {
	return a.logo
}

// Raw returns the upstream record as received
func (a Asset) Raw() json.RawMessage {
	return a.raw
}

// MatchesID reports whether id loosely equals the asset id: surrounding
// whitespace is ignored and any numerically equal decimal form matches.
func (a Asset) MatchesID(id string) bool {
	candidate, err := decimal.NewFromString(strings.TrimSpace(id))
	if err != nil {
		return false
	}
	return candidate.Equal(a.id)
}

// MarshalJSON writes the upstream record with the logo field applied
func (a Asset) MarshalJSON() ([]byte, error) {
	if a.logo == "" {
		return a.raw, nil
	}
	out, err := sjson.SetBytes(a.raw, pathLogo, a.logo)
	if err != nil {
		return nil, fmt.Errorf("failed to set logo on asset %d: %w", a.ID, err)
	}
	return out, nil
}

// Mover is the compact projection served for top gainers and losers
type Mover struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Symbol            string      `json:"symbol"`
	Logo              string      `json:"logo"`
	ChangePercent24Hr json.Number `json:"changePercent24Hr,omitempty"`
}

// Mover projects the asset, keeping the upstream's exact number text
func (a Asset) Mover(tmpl LogoTemplate) Mover {
	return Mover{
		ID:                a.ID,
		Name:              a.Name,
		Symbol:            a.Symbol,
		Logo:              tmpl.URL(a.ID),
		ChangePercent24Hr: json.Number(a.changeRaw),
	}
}

// Listings is one upstream listings snapshot
type Listings struct {
	Assets []Asset

	envelope json.RawMessage
}

// ParseListings parses a listings response body. A body without a data
// array or with an unparseable record is rejected.
func ParseListings(body []byte) (*Listings, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response body is not valid JSON")
	}

	data := gjson.GetBytes(body, pathData)
	if !data.IsArray() {
		return nil, errors.New("response has no data array")
	}

	listings := &Listings{
		Assets:   make([]Asset, 0, len(data.Array())),
		envelope: json.RawMessage(body),
	}

	var parseErr error
	data.ForEach(func(_, value gjson.Result) bool {
		asset, err := ParseAsset([]byte(value.Raw))
		if err != nil {
			parseErr = err
			return false
		}
		listings.Assets = append(listings.Assets, asset)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return listings, nil
}

// WithLogos returns a copy of the snapshot with every asset annotated
func (l *Listings) WithLogos(tmpl LogoTemplate) *Listings {
	assets := make([]Asset, len(l.Assets))
	for i, asset := range l.Assets {
		assets[i] = asset.WithLogo(tmpl)
	}
	return &Listings{
		Assets:   assets,
		envelope: l.envelope,
	}
}

// MarshalJSON writes the upstream envelope with its data array replaced by
// the snapshot's assets.
func (l *Listings) MarshalJSON() ([]byte, error) {
	assets := l.Assets
	if assets == nil {
		assets = []Asset{}
	}
	data, err := json.Marshal(assets)
	if err != nil {
		return nil, err
	}
	if len(l.envelope) == 0 {
		return sjson.SetRawBytes([]byte(`{}`), pathData, data)
	}
	return sjson.SetRawBytes(l.envelope, pathData, data)
}
