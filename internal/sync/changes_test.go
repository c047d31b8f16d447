package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/domain"
)

var testTol = Tolerances{Price: 0.001, Pct: 0.01}

func ptr[T any](v T) *T { return &v }

func storedHolding() *domain.Holding {
	return &domain.Holding{
		ID:               "h-1",
		CurrentPrice:     100.0,
		LastKnownPrice:   99.0,
		PriceSource:      "finnhub",
		DisplayName:      ptr("Apple Inc"),
		DayChangePercent: ptr(1.5),
	}
}

func TestReconcile_PriceExactlyAtToleranceIsSuppressed(t *testing.T) {
	// Binary-exact values so the boundary comparison is deterministic:
	// a delta of exactly the tolerance must not trigger a write
	h := storedHolding()
	q := &domain.Quote{Price: 100.5, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, Tolerances{Price: 0.5, Pct: 0.01})
	assert.Nil(t, update)
	assert.Equal(t, domain.DirectionNone, direction)
}

func TestReconcile_PriceWithinToleranceIsSuppressed(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0005, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	assert.Nil(t, update)
	assert.Equal(t, domain.DirectionNone, direction)
}

func TestReconcile_PriceAboveToleranceWrites(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.002, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	assert.Equal(t, domain.DirectionUp, direction)
	require.NotNil(t, update.CurrentPrice)
	assert.Equal(t, 100.002, *update.CurrentPrice)

	// The pre-pass current price rotates into last known
	require.NotNil(t, update.LastKnownPrice)
	assert.Equal(t, 100.0, *update.LastKnownPrice)
	require.NotNil(t, update.PriceSource)
	assert.Equal(t, "finnhub", *update.PriceSource)

	// Immaterial fields stay out of the write
	assert.Nil(t, update.DayChangePercent)
	assert.Nil(t, update.DisplayName)
}

func TestReconcile_PriceDropGivesDirectionDown(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 98.5, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	assert.Equal(t, domain.DirectionDown, direction)
}

func TestReconcile_DayChangeExactlyAtToleranceIsSuppressed(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(1.75), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, _ := Reconcile(h, q, Tolerances{Price: 0.001, Pct: 0.25})
	assert.Nil(t, update)
}

func TestReconcile_DayChangeAboveToleranceWrites(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(1.52), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	require.NotNil(t, update.DayChangePercent)
	assert.Equal(t, 1.52, *update.DayChangePercent)

	// Day-change movement alone is not a price movement
	assert.Equal(t, domain.DirectionNone, direction)
	assert.Nil(t, update.CurrentPrice)
	assert.Nil(t, update.LastKnownPrice)
}

func TestReconcile_DayChangeAppears(t *testing.T) {
	h := storedHolding()
	h.DayChangePercent = nil
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(0.0), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	// Even a zero day change is a presence transition worth writing
	update, _ := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	require.NotNil(t, update.DayChangePercent)
	assert.Equal(t, 0.0, *update.DayChangePercent)
	assert.False(t, update.ClearDayChange)
}

func TestReconcile_DayChangeDisappearsClearsStoredValue(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, _ := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	assert.Nil(t, update.DayChangePercent)
	assert.True(t, update.ClearDayChange)
}

func TestReconcile_DisplayNameChange(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc."), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	require.NotNil(t, update)
	require.NotNil(t, update.DisplayName)
	assert.Equal(t, "Apple Inc.", *update.DisplayName)
	assert.Equal(t, domain.DirectionNone, direction)
	assert.Nil(t, update.CurrentPrice)
}

func TestReconcile_MissingDisplayNameIsNotAChange(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(1.5), Source: "finnhub"}

	// Profile lookup failed: the stored name must survive untouched
	update, _ := Reconcile(h, q, testTol)
	assert.Nil(t, update)
}

func TestReconcile_NothingChanged(t *testing.T) {
	h := storedHolding()
	q := &domain.Quote{Price: 100.0, DayChangePercent: ptr(1.5), DisplayName: ptr("Apple Inc"), Source: "finnhub"}

	update, direction := Reconcile(h, q, testTol)
	assert.Nil(t, update)
	assert.Equal(t, domain.DirectionNone, direction)
}
