package session

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/domain"
	"github.com/foliowatch/foliowatch/internal/feedback"
	"github.com/foliowatch/foliowatch/internal/modules/snapshots"
	syncengine "github.com/foliowatch/foliowatch/internal/sync"
)

// fakeStore serves one equity holding and accepts writes.
type fakeStore struct {
	holding domain.Holding
	writes  atomic.Int64
}

func (s *fakeStore) GetByOwner(ownerID string) ([]domain.Holding, error) {
	if ownerID != s.holding.OwnerID {
		return nil, nil
	}
	return []domain.Holding{s.holding}, nil
}

func (s *fakeStore) GetByID(id string) (*domain.Holding, error) {
	copied := s.holding
	return &copied, nil
}

func (s *fakeStore) ListOwners() ([]string, error) {
	return []string{s.holding.OwnerID}, nil
}

func (s *fakeStore) UpdatePrices(id string, update domain.PriceUpdate) error {
	s.writes.Add(1)
	return nil
}

// fakeEquity returns a rising price on every call. When block is set, calls
// wait until it is closed or the quote context is cancelled.
type fakeEquity struct {
	calls   atomic.Int64
	block   chan struct{}
	started chan struct{} // closed on first GetQuote entry
	once    sync.Once
}

func (f *fakeEquity) GetQuote(ctx context.Context, symbol string) (float64, float64, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	n := float64(f.calls.Add(1))
	return 100 + n, 100, nil
}

func (f *fakeEquity) GetProfile(ctx context.Context, symbol string) (string, error) {
	return "Apple Inc", nil
}

type fakeCrypto struct{}

func (fakeCrypto) GetSpot(ctx context.Context, id string) (*domain.Quote, error) { return nil, nil }
func (fakeCrypto) ListAssets(ctx context.Context) ([]domain.CryptoAsset, error)  { return nil, nil }

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, s string) (string, error) { return s, nil }
func (fakeResolver) IsStale() bool                                         { return false }

type fixedThreshold float64

func (f fixedThreshold) AlertThreshold(ownerID string) float64 { return float64(f) }

func setupPoller(t *testing.T, interval time.Duration) (*Poller, *fakeStore, *feedback.StateManager, *fakeEquity) {
	store := &fakeStore{holding: domain.Holding{
		ID:           "h-1",
		OwnerID:      "user-1",
		AssetClass:   domain.AssetClassEquity,
		Symbol:       "AAPL",
		Quantity:     1,
		CurrentPrice: 100,
	}}

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE portfolio_snapshots (
		id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, snapshot_date TEXT NOT NULL,
		total_value REAL NOT NULL, created_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	snapRepo := snapshots.NewRepository(db, zerolog.Nop())
	snapSvc := snapshots.NewService(snapRepo, store, zerolog.Nop())

	equity := &fakeEquity{}
	fetcher := syncengine.NewFetcher(equity, fakeCrypto{}, fakeResolver{}, time.Second, zerolog.Nop())
	engine := syncengine.NewEngine(store, store, fetcher, fixedThreshold(5),
		syncengine.Tolerances{Price: 0.001, Pct: 0.01}, 2, zerolog.Nop())

	fb := feedback.NewStateManager(zerolog.Nop())
	return NewPoller("user-1", engine, snapSvc, fb, interval, zerolog.Nop()), store, fb, equity
}

func TestPoller_FirstPassIsImmediate(t *testing.T) {
	poller, store, fb, _ := setupPoller(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)

	select {
	case update := <-poller.Updates():
		assert.Equal(t, "user-1", update.OwnerID)
		assert.Equal(t, domain.DirectionUp, update.Directions["h-1"])
	case <-time.After(2 * time.Second):
		t.Fatal("no update before the first interval elapsed")
	}

	assert.GreaterOrEqual(t, store.writes.Load(), int64(1))
	_, ok := fb.Get("user-1")
	assert.True(t, ok)

	cancel()
}

func TestPoller_TicksRepeatedly(t *testing.T) {
	poller, store, _, _ := setupPoller(t, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)

	seen := 0
	deadline := time.After(2 * time.Second)
	for seen < 3 {
		select {
		case _, ok := <-poller.Updates():
			if !ok {
				t.Fatal("updates channel closed early")
			}
			seen++
		case <-deadline:
			t.Fatalf("only %d updates before deadline", seen)
		}
	}

	cancel()
	assert.GreaterOrEqual(t, store.writes.Load(), int64(3))
}

func TestPoller_CancelMidFetchDoesNotAbortPass(t *testing.T) {
	poller, store, fb, equity := setupPoller(t, time.Hour)
	equity.block = make(chan struct{})
	equity.started = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	// The session goes away while the first pass is mid-fetch
	<-equity.started
	cancel()
	close(equity.block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on context cancel")
	}

	// The in-flight pass still ran to completion and persisted its write
	assert.Equal(t, int64(1), store.writes.Load())
	result, ok := fb.Get("user-1")
	require.True(t, ok)
	assert.Empty(t, result.Failures)
	assert.Equal(t, domain.DirectionUp, result.Directions["h-1"])
}

func TestPoller_StopsOnCancel(t *testing.T) {
	poller, _, _, _ := setupPoller(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	<-poller.Updates()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
