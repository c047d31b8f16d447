// Package domain contains the core business entities and contracts.
// This package is pure - no infrastructure dependencies allowed.
package domain

import "time"

// AssetClass identifies which provider family a holding belongs to.
type AssetClass string

const (
	// AssetClassEquity - priced via the equity quote/profile provider
	AssetClassEquity AssetClass = "equity"
	// AssetClassCrypto - priced via the crypto spot provider
	AssetClassCrypto AssetClass = "crypto"
)

// Valid reports whether the asset class is one of the known values.
func (a AssetClass) Valid() bool {
	return a == AssetClassEquity || a == AssetClassCrypto
}

// Holding is a user's recorded position in one equity or cryptocurrency asset.
//
// Ownership of fields is split: quantity, cost basis, symbol and display name
// are mutated by the owner; current/last-known price, source, day change and
// the update timestamp are mutated only by the sync engine.
type Holding struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	AssetClass       AssetClass `json:"asset_class"`
	Symbol           string     `json:"symbol"` // Provider symbol (equity) or symbol/id (crypto)
	Quantity         float64    `json:"quantity"`
	CostBasisPrice   float64    `json:"cost_basis_price"`
	CurrentPrice     float64    `json:"current_price"`
	LastKnownPrice   float64    `json:"last_known_price"`
	PriceSource      string     `json:"price_source"`
	DisplayName      *string    `json:"display_name,omitempty"`
	DayChangePercent *float64   `json:"day_change_percent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUpdatedAt    time.Time  `json:"last_updated_at"`
}

// MarketValue returns quantity x current price.
func (h *Holding) MarketValue() float64 {
	return h.Quantity * h.CurrentPrice
}

// Quote is the normalized result returned by the price provider adapter
// for both asset classes.
type Quote struct {
	Price            float64
	DayChangePercent *float64 // nil when previous close is unavailable or zero
	DisplayName      *string  // nil when the profile/metadata lookup failed
	Source           string   // Provider identifier, e.g. "finnhub", "coingecko"
}

// PortfolioSnapshot is a dated total-valuation record for one owner.
// Snapshots are created at most once per (owner, date) and never mutated.
type PortfolioSnapshot struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Date       string    `json:"date"` // Calendar day, YYYY-MM-DD
	TotalValue float64   `json:"total_value"`
	CreatedAt  time.Time `json:"created_at"`
}

// PriceDirection is the transient movement indicator for one pass.
// Valid only until the next pass; never persisted.
type PriceDirection string

const (
	DirectionUp   PriceDirection = "up"
	DirectionDown PriceDirection = "down"
	DirectionNone PriceDirection = "none"
)

// HoldingSync is the per-holding outcome of one sync pass.
// Err is a value, never an exception crossing holding boundaries: a failed
// holding keeps its prior price and reports DirectionNone.
type HoldingSync struct {
	HoldingID        string         `json:"holding_id"`
	Price            float64        `json:"price"`
	DayChangePercent *float64       `json:"day_change_percent,omitempty"`
	DisplayName      *string        `json:"display_name,omitempty"`
	Source           string         `json:"source"`
	Direction        PriceDirection `json:"direction"`
	Alert            bool           `json:"alert"`
	Persisted        bool           `json:"persisted"`
	Err              error          `json:"-"`
}

// Failed reports whether this holding's fetch failed in the pass.
func (s *HoldingSync) Failed() bool {
	return s.Err != nil
}
