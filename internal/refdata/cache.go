// Package refdata provides the TTL-cached mapping from human identifiers to
// canonical provider ids for crypto assets.
package refdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/foliowatch/foliowatch/internal/clientdata"
	"github.com/foliowatch/foliowatch/internal/domain"
)

// storeTable is the clientdata table holding the persisted catalog.
const storeTable = "coingecko_assets"

// storeKey is the single row key for the catalog blob.
const storeKey = "catalog"

// AssetLister is the upstream source of the full asset catalog.
type AssetLister interface {
	ListAssets(ctx context.Context) ([]domain.CryptoAsset, error)
}

// persistedCatalog is the msgpack blob written to clientdata. Carrying the
// fetch timestamp inside the blob lets a restart restore both the list and
// its age, so a stale persisted copy still serves as the fallback tier.
type persistedCatalog struct {
	FetchedAt int64                `msgpack:"fetched_at"`
	Assets    []domain.CryptoAsset `msgpack:"assets"`
}

// Cache resolves symbols to canonical ids with a TTL-bound catalog and
// single-flight refresh. It is an explicit dependency of the sync engine,
// never a package-level singleton.
//
// Refresh behavior: the first caller inside a stale window performs the
// upstream fetch; concurrent callers share that flight's outcome. On refresh
// failure the previous catalog (possibly stale) is retained; with no catalog
// at all, inputs pass through unresolved and the caller proceeds best-effort.
type Cache struct {
	lister AssetLister
	store  *clientdata.Repository // Optional persistent warm copy
	ttl    time.Duration
	log    zerolog.Logger

	flight singleflight.Group

	mu          sync.RWMutex
	bySymbol    map[string]string // lowercase symbol -> canonical id (first catalog entry wins)
	byID        map[string]bool
	fetchedAt   time.Time
	lastAttempt time.Time
}

// retryBackoff is the minimum gap between refresh attempts after a failure.
// The next scheduled sync pass is the retry mechanism, not the next Resolve.
const retryBackoff = 30 * time.Second

// New creates a reference data cache. store may be nil to disable persistence.
func New(lister AssetLister, store *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *Cache {
	c := &Cache{
		lister: lister,
		store:  store,
		ttl:    ttl,
		log:    log.With().Str("component", "refdata_cache").Logger(),
	}
	c.loadPersisted()
	return c
}

// IsStale reports whether the catalog is absent or older than the TTL.
func (c *Cache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staleLocked()
}

func (c *Cache) staleLocked() bool {
	return c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= c.ttl
}

// Resolve maps a symbol or display id to a canonical provider id.
//
// A stale catalog triggers at most one upstream refresh regardless of how many
// concurrent callers arrive. Unknown inputs are returned unchanged: either the
// caller already holds a canonical id, or the downstream spot fetch will fail
// for this holding alone.
func (c *Cache) Resolve(ctx context.Context, symbolOrID string) (string, error) {
	if c.IsStale() {
		// Single-flight: concurrent resolvers share one refresh attempt.
		_, err, _ := c.flight.Do("refresh", func() (interface{}, error) {
			// Re-check under the flight - a just-finished refresh may have
			// satisfied us already, or a failed one may have happened moments
			// ago (one attempt per window, later passes retry).
			c.mu.RLock()
			fresh := !c.staleLocked()
			attempted := time.Since(c.lastAttempt) < retryBackoff
			c.mu.RUnlock()
			if fresh || attempted {
				return nil, nil
			}

			c.mu.Lock()
			c.lastAttempt = time.Now()
			c.mu.Unlock()

			return nil, c.refresh(ctx)
		})
		if err != nil {
			c.mu.RLock()
			hasCatalog := len(c.bySymbol) > 0
			c.mu.RUnlock()

			if hasCatalog {
				c.log.Warn().Err(err).Msg("Catalog refresh failed, using previous catalog")
			} else {
				c.log.Warn().Err(err).Str("input", symbolOrID).Msg("Catalog refresh failed with no fallback, passing input through")
				return symbolOrID, nil
			}
		}
	}

	return c.lookup(symbolOrID), nil
}

// lookup finds the canonical id for an input, or returns the input unchanged.
func (c *Cache) lookup(symbolOrID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(symbolOrID))

	// Already a canonical id
	if c.byID[key] {
		return key
	}

	if id, ok := c.bySymbol[key]; ok {
		return id
	}

	return symbolOrID
}

// refresh fetches the full catalog and replaces the in-memory maps.
func (c *Cache) refresh(ctx context.Context) error {
	assets, err := c.lister.ListAssets(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	c.install(assets, now)
	c.persist(assets, now)

	c.log.Info().Int("count", len(assets)).Msg("Catalog refreshed")
	return nil
}

// install replaces the lookup maps with a new catalog.
func (c *Cache) install(assets []domain.CryptoAsset, fetchedAt time.Time) {
	bySymbol := make(map[string]string, len(assets))
	byID := make(map[string]bool, len(assets))

	for _, asset := range assets {
		byID[asset.ID] = true

		symbol := strings.ToLower(asset.Symbol)
		// First catalog entry wins for duplicate symbols
		if _, exists := bySymbol[symbol]; !exists {
			bySymbol[symbol] = asset.ID
		}
	}

	c.mu.Lock()
	c.bySymbol = bySymbol
	c.byID = byID
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}

// persist writes the catalog to the clientdata store for warm restarts.
func (c *Cache) persist(assets []domain.CryptoAsset, fetchedAt time.Time) {
	if c.store == nil {
		return
	}

	blob, err := msgpack.Marshal(persistedCatalog{
		FetchedAt: fetchedAt.Unix(),
		Assets:    assets,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode catalog for persistence")
		return
	}

	if err := c.store.Store(storeTable, storeKey, blob, clientdata.TTLAssetCatalog); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist catalog")
	}
}

// loadPersisted restores the catalog from the clientdata store, including a
// stale copy - it then serves as the refresh-failure fallback tier.
func (c *Cache) loadPersisted() {
	if c.store == nil {
		return
	}

	blob, err := c.store.Get(storeTable, storeKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to load persisted catalog")
		return
	}
	if blob == nil {
		return
	}

	var persisted persistedCatalog
	if err := msgpack.Unmarshal(blob, &persisted); err != nil {
		c.log.Warn().Err(err).Msg("Failed to decode persisted catalog")
		return
	}

	c.install(persisted.Assets, time.Unix(persisted.FetchedAt, 0))
	c.log.Info().
		Int("count", len(persisted.Assets)).
		Time("fetched_at", time.Unix(persisted.FetchedAt, 0)).
		Msg("Restored persisted catalog")
}
