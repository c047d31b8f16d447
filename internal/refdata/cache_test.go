package refdata

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/clientdata"
	"github.com/foliowatch/foliowatch/internal/domain"
)

// fakeLister counts upstream calls and can be switched to failure mode.
type fakeLister struct {
	calls  atomic.Int64
	fail   atomic.Bool
	delay  time.Duration
	assets []domain.CryptoAsset
}

func (f *fakeLister) ListAssets(ctx context.Context) ([]domain.CryptoAsset, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return nil, errors.New("upstream down")
	}
	return f.assets, nil
}

func testAssets() []domain.CryptoAsset {
	return []domain.CryptoAsset{
		{ID: "bitcoin", Symbol: "btc", DisplayName: "Bitcoin"},
		{ID: "ethereum", Symbol: "eth", DisplayName: "Ethereum"},
		{ID: "batcoin", Symbol: "btc", DisplayName: "Batcoin"}, // duplicate symbol
	}
}

func TestResolve_SymbolToID(t *testing.T) {
	lister := &fakeLister{assets: testAssets()}
	cache := New(lister, nil, time.Hour, zerolog.Nop())

	id, err := cache.Resolve(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", id) // first catalog entry wins for duplicate symbols

	id, err = cache.Resolve(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", id)

	// Only the first resolve should have refreshed
	assert.Equal(t, int64(1), lister.calls.Load())
	assert.False(t, cache.IsStale())
}

func TestResolve_CanonicalIDPassthrough(t *testing.T) {
	lister := &fakeLister{assets: testAssets()}
	cache := New(lister, nil, time.Hour, zerolog.Nop())

	id, err := cache.Resolve(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", id)
}

func TestResolve_UnknownInputPassthrough(t *testing.T) {
	lister := &fakeLister{assets: testAssets()}
	cache := New(lister, nil, time.Hour, zerolog.Nop())

	id, err := cache.Resolve(context.Background(), "not-a-coin")
	require.NoError(t, err)
	assert.Equal(t, "not-a-coin", id)
}

func TestResolve_SingleFlight(t *testing.T) {
	lister := &fakeLister{assets: testAssets(), delay: 50 * time.Millisecond}
	cache := New(lister, nil, time.Hour, zerolog.Nop())

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id, err := cache.Resolve(context.Background(), "btc")
			assert.NoError(t, err)
			assert.Equal(t, "bitcoin", id)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), lister.calls.Load())
}

func TestResolve_StaleFallbackOnRefreshFailure(t *testing.T) {
	lister := &fakeLister{assets: testAssets()}
	cache := New(lister, nil, 50*time.Millisecond, zerolog.Nop())

	_, err := cache.Resolve(context.Background(), "btc")
	require.NoError(t, err)

	// Let the catalog go stale, then break the upstream
	time.Sleep(60 * time.Millisecond)
	lister.fail.Store(true)
	assert.True(t, cache.IsStale())

	// Resolution still works from the previous (stale) catalog
	id, err := cache.Resolve(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", id)
	assert.Equal(t, int64(2), lister.calls.Load())

	// A failed attempt is not retried on the very next resolve
	id, err = cache.Resolve(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", id)
	assert.Equal(t, int64(2), lister.calls.Load())
}

func TestResolve_NoCatalogAtAll(t *testing.T) {
	lister := &fakeLister{assets: testAssets()}
	lister.fail.Store(true)
	cache := New(lister, nil, time.Hour, zerolog.Nop())

	// Refresh fails and there is nothing to fall back to: raw passthrough
	id, err := cache.Resolve(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "btc", id)
}

func TestPersistedCatalogWarmStart(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE coingecko_assets (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	store := clientdata.NewRepository(db)

	// First cache populates and persists the catalog
	lister := &fakeLister{assets: testAssets()}
	cache := New(lister, store, time.Hour, zerolog.Nop())
	_, err = cache.Resolve(context.Background(), "btc")
	require.NoError(t, err)
	require.Equal(t, int64(1), lister.calls.Load())

	// Second cache restores from the store and never calls upstream
	brokenLister := &fakeLister{}
	brokenLister.fail.Store(true)
	restored := New(brokenLister, store, time.Hour, zerolog.Nop())

	assert.False(t, restored.IsStale())

	id, err := restored.Resolve(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", id)
	assert.Equal(t, int64(0), brokenLister.calls.Load())
}
