package feedback

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/domain"
)

func TestPublishAndGet(t *testing.T) {
	sm := NewStateManager(zerolog.Nop())

	_, ok := sm.Get("user-1")
	assert.False(t, ok)

	pct := 1.2
	name := "Apple Inc"
	sm.Publish("user-1", []domain.HoldingSync{
		{HoldingID: "h-1", Price: 172, DayChangePercent: &pct, DisplayName: &name, Direction: domain.DirectionUp, Alert: true},
		{HoldingID: "h-2", Price: 50, Direction: domain.DirectionNone, Err: errors.New("rate limited")},
	})

	fb, ok := sm.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionUp, fb.Directions["h-1"])
	assert.True(t, fb.Alerts["h-1"])
	assert.Equal(t, 172.0, fb.Prices["h-1"])
	assert.Equal(t, 1.2, fb.DayChanges["h-1"])
	assert.Equal(t, "Apple Inc", fb.DisplayNames["h-1"])
	assert.Equal(t, "rate limited", fb.Failures["h-2"])
	assert.NotContains(t, fb.Failures, "h-1")
}

func TestPublishCarriesSuppressedValues(t *testing.T) {
	sm := NewStateManager(zerolog.Nop())

	// A within-tolerance price is not persisted, but the pass view still
	// reports it so display surfaces show the freshest number
	sm.Publish("user-1", []domain.HoldingSync{
		{HoldingID: "h-1", Price: 100.0005, Direction: domain.DirectionNone, Persisted: false},
	})

	fb, ok := sm.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, 100.0005, fb.Prices["h-1"])
	assert.NotContains(t, fb.DayChanges, "h-1") // unknown, not zero
	assert.NotContains(t, fb.DisplayNames, "h-1")
}

func TestPublishReplacesPreviousPass(t *testing.T) {
	sm := NewStateManager(zerolog.Nop())

	sm.Publish("user-1", []domain.HoldingSync{
		{HoldingID: "h-1", Direction: domain.DirectionUp},
		{HoldingID: "h-2", Direction: domain.DirectionDown},
	})
	// h-2 was deleted between passes; its feedback must not linger
	sm.Publish("user-1", []domain.HoldingSync{
		{HoldingID: "h-1", Direction: domain.DirectionNone},
	})

	fb, ok := sm.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionNone, fb.Directions["h-1"])
	assert.NotContains(t, fb.Directions, "h-2")
}

func TestForget(t *testing.T) {
	sm := NewStateManager(zerolog.Nop())

	sm.Publish("user-1", nil)
	sm.Forget("user-1")

	_, ok := sm.Get("user-1")
	assert.False(t, ok)
}
