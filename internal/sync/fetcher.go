// Package sync implements the price synchronization engine: fetching fresh
// quotes, reconciling them against stored holdings, and persisting material
// changes.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/clients/finnhub"
	"github.com/foliowatch/foliowatch/internal/domain"
)

// Fetcher normalizes both provider families into a single quote shape.
type Fetcher struct {
	equity   domain.EquityProvider
	crypto   domain.CryptoProvider
	resolver domain.ReferenceResolver
	timeout  time.Duration
	log      zerolog.Logger
}

// NewFetcher creates a new fetcher. The equity provider may be nil when no
// API key is configured; equity holdings then fail with a provider error and
// crypto holdings keep working.
func NewFetcher(equity domain.EquityProvider, crypto domain.CryptoProvider, resolver domain.ReferenceResolver, timeout time.Duration, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		equity:   equity,
		crypto:   crypto,
		resolver: resolver,
		timeout:  timeout,
		log:      log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch returns a fresh quote for one holding. Every upstream call gets its
// own timeout so one slow provider cannot stall the whole pass.
func (f *Fetcher) Fetch(ctx context.Context, h *domain.Holding) (*domain.Quote, error) {
	switch h.AssetClass {
	case domain.AssetClassEquity:
		return f.fetchEquity(ctx, h.Symbol)
	case domain.AssetClassCrypto:
		return f.fetchCrypto(ctx, h.Symbol)
	default:
		return nil, fmt.Errorf("unknown asset class %q for holding %s", h.AssetClass, h.ID)
	}
}

func (f *Fetcher) fetchEquity(ctx context.Context, symbol string) (*domain.Quote, error) {
	if f.equity == nil {
		return nil, fmt.Errorf("equity quote %s: %w", symbol, domain.ErrProviderUnavailable)
	}

	qctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	current, previousClose, err := f.equity.GetQuote(qctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("equity quote %s: %w", symbol, err)
	}

	quote := &domain.Quote{Price: current, Source: finnhub.Source}

	// Day change is derivable only from a usable previous close
	if previousClose > 0 {
		pct := (current - previousClose) / previousClose * 100
		quote.DayChangePercent = &pct
	}

	// The profile lookup is best effort; a failure costs only the name
	pctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	name, err := f.equity.GetProfile(pctx, symbol)
	if err != nil {
		f.log.Debug().Err(err).Str("symbol", symbol).Msg("Profile lookup failed, keeping stored display name")
	} else if name != "" {
		quote.DisplayName = &name
	}

	return quote, nil
}

func (f *Fetcher) fetchCrypto(ctx context.Context, symbol string) (*domain.Quote, error) {
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	id, err := f.resolver.Resolve(rctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrReferenceResolution, symbol, err)
	}

	sctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	quote, err := f.crypto.GetSpot(sctx, id)
	if err != nil {
		return nil, fmt.Errorf("crypto spot %s: %w", id, err)
	}

	return quote, nil
}
