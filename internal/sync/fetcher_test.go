package sync

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/domain"
)

func TestFetch_EquityDerivesDayChange(t *testing.T) {
	equity := &fakeEquity{
		quotes:   map[string][2]float64{"AAPL": {102, 100}},
		profiles: map[string]string{"AAPL": "Apple Inc"},
	}
	f := NewFetcher(equity, &fakeCrypto{}, &fakeResolver{}, time.Second, zerolog.Nop())

	q, err := f.Fetch(context.Background(), &domain.Holding{AssetClass: domain.AssetClassEquity, Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 102.0, q.Price)
	require.NotNil(t, q.DayChangePercent)
	assert.InDelta(t, 2.0, *q.DayChangePercent, 1e-9)
	require.NotNil(t, q.DisplayName)
	assert.Equal(t, "Apple Inc", *q.DisplayName)
}

func TestFetch_EquityZeroPreviousCloseOmitsDayChange(t *testing.T) {
	// Fresh listings report a zero previous close; deriving a change from it
	// would divide by zero
	equity := &fakeEquity{quotes: map[string][2]float64{"IPO": {42, 0}}}
	f := NewFetcher(equity, &fakeCrypto{}, &fakeResolver{}, time.Second, zerolog.Nop())

	q, err := f.Fetch(context.Background(), &domain.Holding{AssetClass: domain.AssetClassEquity, Symbol: "IPO"})
	require.NoError(t, err)
	assert.Equal(t, 42.0, q.Price)
	assert.Nil(t, q.DayChangePercent)
	assert.Nil(t, q.DisplayName) // profile lookup failed, best effort only
}

func TestFetch_UnknownAssetClass(t *testing.T) {
	f := NewFetcher(&fakeEquity{}, &fakeCrypto{}, &fakeResolver{}, time.Second, zerolog.Nop())

	_, err := f.Fetch(context.Background(), &domain.Holding{ID: "h-1", AssetClass: "bond", Symbol: "X"})
	assert.Error(t, err)
}
