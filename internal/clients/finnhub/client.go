// Package finnhub provides equity quote and company profile fetching from finnhub.io.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Source is the provider identifier recorded on holdings priced by this client.
const Source = "finnhub"

// defaultRateLimit matches the free-tier quota of 60 calls/minute.
const defaultRateLimit = rate.Limit(1)

// Client for the Finnhub REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new Finnhub client.
// The per-request timeout is enforced by the caller's context; the http.Client
// timeout is a backstop for callers that pass context.Background().
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(defaultRateLimit, 10),
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// quoteResponse mirrors the /quote payload. c = current price, pc = previous close.
type quoteResponse struct {
	Current       float64 `json:"c"`
	PreviousClose float64 `json:"pc"`
}

// profileResponse mirrors the /stock/profile2 payload.
type profileResponse struct {
	Name string `json:"name"`
}

// GetQuote fetches the current price and previous close for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (float64, float64, error) {
	var result quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &result); err != nil {
		return 0, 0, err
	}

	// Finnhub returns zeros (not an error status) for unknown symbols
	if result.Current == 0 && result.PreviousClose == 0 {
		return 0, 0, fmt.Errorf("no quote data for symbol %s", symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("current", result.Current).
		Float64("previous_close", result.PreviousClose).
		Msg("Fetched quote")

	return result.Current, result.PreviousClose, nil
}

// GetProfile fetches the company display name for a symbol.
func (c *Client) GetProfile(ctx context.Context, symbol string) (string, error) {
	var result profileResponse
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &result); err != nil {
		return "", err
	}

	if result.Name == "" {
		return "", fmt.Errorf("no profile data for symbol %s", symbol)
	}

	return result.Name, nil
}

// get performs a rate-limited GET against the Finnhub API and decodes the body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Finnhub-Token", c.apiKey)

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
