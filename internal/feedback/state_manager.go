// Package feedback holds the transient per-owner outcome of the most recent
// sync pass, for UI surfaces (movement arrows, alert badges).
package feedback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// OwnerFeedback is the published view of one owner's latest pass.
// Everything here is valid only until the next pass replaces it. Prices,
// day changes and display names carry the freshest fetched values even when
// they were suppressed as immaterial, so display surfaces always show the
// per-pass view rather than the stored one.
type OwnerFeedback struct {
	OwnerID      string                           `json:"owner_id"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	Directions   map[string]domain.PriceDirection `json:"directions"`    // holding id -> movement
	Alerts       map[string]bool                  `json:"alerts"`        // holding id -> threshold crossed
	Prices       map[string]float64               `json:"prices"`        // holding id -> freshest price
	DayChanges   map[string]float64               `json:"day_changes"`   // holding id -> fresh day change; absent when unknown
	DisplayNames map[string]string                `json:"display_names"` // holding id -> effective display name
	Failures     map[string]string                `json:"failures"`      // holding id -> fetch/persist error
}

// StateManager is the thread-safe store of latest pass feedback per owner.
// Each pass fully replaces the owner's entry; feedback never accumulates.
type StateManager struct {
	mu     sync.RWMutex
	owners map[string]OwnerFeedback
	log    zerolog.Logger
}

// NewStateManager creates a new feedback state manager
func NewStateManager(log zerolog.Logger) *StateManager {
	return &StateManager{
		owners: make(map[string]OwnerFeedback),
		log:    log.With().Str("component", "feedback").Logger(),
	}
}

// Publish replaces an owner's feedback with the outcome of a finished pass.
func (sm *StateManager) Publish(ownerID string, holdings []domain.HoldingSync) {
	fb := OwnerFeedback{
		OwnerID:      ownerID,
		UpdatedAt:    time.Now(),
		Directions:   make(map[string]domain.PriceDirection, len(holdings)),
		Alerts:       make(map[string]bool, len(holdings)),
		Prices:       make(map[string]float64, len(holdings)),
		DayChanges:   make(map[string]float64),
		DisplayNames: make(map[string]string),
		Failures:     make(map[string]string),
	}
	for i := range holdings {
		hs := &holdings[i]
		fb.Directions[hs.HoldingID] = hs.Direction
		fb.Alerts[hs.HoldingID] = hs.Alert
		fb.Prices[hs.HoldingID] = hs.Price
		if hs.DayChangePercent != nil {
			fb.DayChanges[hs.HoldingID] = *hs.DayChangePercent
		}
		if hs.DisplayName != nil {
			fb.DisplayNames[hs.HoldingID] = *hs.DisplayName
		}
		if hs.Err != nil {
			fb.Failures[hs.HoldingID] = hs.Err.Error()
		}
	}

	sm.mu.Lock()
	sm.owners[ownerID] = fb
	sm.mu.Unlock()

	sm.log.Debug().
		Str("owner_id", ownerID).
		Int("holdings", len(holdings)).
		Int("failures", len(fb.Failures)).
		Msg("Pass feedback published")
}

// Get returns the owner's latest feedback and whether any pass has published.
func (sm *StateManager) Get(ownerID string) (OwnerFeedback, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	fb, ok := sm.owners[ownerID]
	return fb, ok
}

// Forget drops an owner's feedback, for cleanup when sessions end.
func (sm *StateManager) Forget(ownerID string) {
	sm.mu.Lock()
	delete(sm.owners, ownerID)
	sm.mu.Unlock()
}
