// Package coingecko provides crypto spot prices and the asset catalog from coingecko.com.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Source is the provider identifier recorded on holdings priced by this client.
const Source = "coingecko"

// defaultRateLimit stays well under the public API allowance of 10-30 calls/minute.
const defaultRateLimit = rate.Limit(0.15)

// Client for the CoinGecko REST API.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(defaultRateLimit, 5),
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// marketEntry mirrors one /coins/markets entry.
type marketEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CurrentPrice  *float64 `json:"current_price"`
	PriceChange24 *float64 `json:"price_change_percentage_24h"`
}

// GetSpot fetches price, 24h change percent and display name for a canonical id.
// Uses /coins/markets so a single upstream call carries all three fields.
func (c *Client) GetSpot(ctx context.Context, id string) (*domain.Quote, error) {
	params := url.Values{
		"ids":         {id},
		"vs_currency": {"usd"},
	}

	var result []marketEntry
	if err := c.get(ctx, "/coins/markets", params, &result); err != nil {
		return nil, err
	}

	if len(result) == 0 || result[0].CurrentPrice == nil {
		return nil, fmt.Errorf("no spot data for id %s", id)
	}

	entry := result[0]

	c.log.Debug().
		Str("id", id).
		Float64("price", *entry.CurrentPrice).
		Msg("Fetched spot price")

	quote := &domain.Quote{
		Price:            *entry.CurrentPrice,
		DayChangePercent: entry.PriceChange24,
		Source:           Source,
	}
	if entry.Name != "" {
		quote.DisplayName = &entry.Name
	}

	return quote, nil
}

// ListAssets fetches the full id/symbol/name catalog.
// The response is large (tens of thousands of entries); callers are expected to
// cache it, this client does not.
func (c *Client) ListAssets(ctx context.Context) ([]domain.CryptoAsset, error) {
	var assets []domain.CryptoAsset
	if err := c.get(ctx, "/coins/list", url.Values{}, &assets); err != nil {
		return nil, err
	}

	c.log.Info().Int("count", len(assets)).Msg("Fetched asset catalog")

	return assets, nil
}

// get performs a rate-limited GET against the CoinGecko API and decodes the body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
