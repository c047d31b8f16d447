package sync

import (
	"math"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Tolerances define the write suppression bands. A delta must strictly
// exceed the tolerance to count as a change.
type Tolerances struct {
	Price float64 // Absolute price delta in currency units
	Pct   float64 // Absolute day-change delta in percentage points
}

// Reconcile compares a fresh quote against the stored holding and returns
// the update to persist plus the movement direction for this pass.
// A nil update means nothing material changed and no write should happen.
//
// Only fields that materially changed are populated, so an immaterial price
// wiggle never piggybacks onto a display-name write.
func Reconcile(h *domain.Holding, q *domain.Quote, tol Tolerances) (*domain.PriceUpdate, domain.PriceDirection) {
	update := &domain.PriceUpdate{}
	material := false
	direction := domain.DirectionNone

	if math.Abs(q.Price-h.CurrentPrice) > tol.Price {
		price := q.Price
		lastKnown := h.CurrentPrice
		source := q.Source
		update.CurrentPrice = &price
		update.LastKnownPrice = &lastKnown
		update.PriceSource = &source
		material = true

		if q.Price > h.CurrentPrice {
			direction = domain.DirectionUp
		} else {
			direction = domain.DirectionDown
		}
	}

	if dayChangeMaterial(h.DayChangePercent, q.DayChangePercent, tol.Pct) {
		if q.DayChangePercent != nil {
			pct := *q.DayChangePercent
			update.DayChangePercent = &pct
		} else {
			// The provider no longer reports a day change; a stale stored
			// value must not survive
			update.ClearDayChange = true
		}
		material = true
	}

	if q.DisplayName != nil && (h.DisplayName == nil || *h.DisplayName != *q.DisplayName) {
		name := *q.DisplayName
		update.DisplayName = &name
		material = true
	}

	if !material {
		return nil, domain.DirectionNone
	}
	return update, direction
}

// dayChangeMaterial applies the tolerance band to the day-change field.
// Presence transitions (nil to value, value to nil) are always material.
func dayChangeMaterial(old, fresh *float64, tol float64) bool {
	switch {
	case old == nil && fresh == nil:
		return false
	case old == nil || fresh == nil:
		return true
	default:
		return math.Abs(*fresh-*old) > tol
	}
}
