package domain

import "context"

// EquityProvider supplies equity quotes and company profiles.
// Quote and profile are two independent upstream calls: a profile failure must
// not abort the price update for the holding.
type EquityProvider interface {
	// GetQuote returns the current price and previous close for a symbol.
	GetQuote(ctx context.Context, symbol string) (current float64, previousClose float64, err error)
	// GetProfile returns the company display name for a symbol.
	GetProfile(ctx context.Context, symbol string) (displayName string, err error)
}

// CryptoProvider supplies crypto spot prices and the asset catalog.
type CryptoProvider interface {
	// GetSpot returns price, 24h change percent and display name for a canonical id.
	GetSpot(ctx context.Context, id string) (*Quote, error)
	// ListAssets returns the full id/symbol/name catalog.
	ListAssets(ctx context.Context) ([]CryptoAsset, error)
}

// CryptoAsset is one entry of the provider's asset catalog.
type CryptoAsset struct {
	ID          string `json:"id" msgpack:"id"`
	Symbol      string `json:"symbol" msgpack:"symbol"`
	DisplayName string `json:"name" msgpack:"name"`
}

// ReferenceResolver maps human identifiers (symbols) to canonical provider ids.
type ReferenceResolver interface {
	Resolve(ctx context.Context, symbolOrID string) (string, error)
	IsStale() bool
}

// HoldingReader provides read access to holdings for the sync drivers.
type HoldingReader interface {
	GetByOwner(ownerID string) ([]Holding, error)
	GetByID(id string) (*Holding, error)
	ListOwners() ([]string, error)
}

// PriceWriter persists engine-owned price fields for a single holding.
// Each holding's write is independent; one failure must not block others.
type PriceWriter interface {
	UpdatePrices(id string, update PriceUpdate) error
}

// PriceUpdate is the explicit optional-field update structure for engine
// writes. Only fields actually fetched in the pass are populated; the
// persistence layer applies exactly the non-nil fields.
type PriceUpdate struct {
	CurrentPrice     *float64
	LastKnownPrice   *float64
	PriceSource      *string
	DisplayName      *string
	DayChangePercent *float64 // Present means "set", including to a value
	ClearDayChange   bool     // True clears day_change_percent to NULL
}
