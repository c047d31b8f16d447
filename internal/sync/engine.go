package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// ErrPassInProgress is returned when a pass is requested for an owner whose
// previous pass has not finished. Overlapping triggers coalesce to a skip.
var ErrPassInProgress = errors.New("sync pass already in progress")

// State is the lifecycle phase of an owner's running pass.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching_batch"
	StateReconciling State = "reconciling"
	StatePersisting  State = "persisting"
)

// ThresholdSource resolves the effective alert threshold for an owner.
type ThresholdSource interface {
	AlertThreshold(ownerID string) float64
}

// PassResult is the outcome of one sync pass over an owner's holdings.
type PassResult struct {
	OwnerID   string               `json:"owner_id"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
	Holdings  []domain.HoldingSync `json:"holdings"`
}

// Failures counts holdings whose fetch or persist failed in this pass.
func (r *PassResult) Failures() int {
	n := 0
	for i := range r.Holdings {
		if r.Holdings[i].Failed() {
			n++
		}
	}
	return n
}

// Engine runs sync passes: fetch fresh quotes for all of an owner's holdings,
// reconcile them against stored values, and persist only material changes.
//
// Passes are serialized per owner. Holdings within a pass are independent:
// one failed fetch or write never blocks the others.
type Engine struct {
	holdings      domain.HoldingReader
	writer        domain.PriceWriter
	fetcher       *Fetcher
	thresholds    ThresholdSource
	tol           Tolerances
	maxConcurrent int
	log           zerolog.Logger

	mu     stdsync.Mutex
	passes map[string]State
}

// NewEngine creates a new sync engine
func NewEngine(
	holdings domain.HoldingReader,
	writer domain.PriceWriter,
	fetcher *Fetcher,
	thresholds ThresholdSource,
	tol Tolerances,
	maxConcurrent int,
	log zerolog.Logger,
) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Engine{
		holdings:      holdings,
		writer:        writer,
		fetcher:       fetcher,
		thresholds:    thresholds,
		tol:           tol,
		maxConcurrent: maxConcurrent,
		log:           log.With().Str("component", "sync_engine").Logger(),
		passes:        make(map[string]State),
	}
}

// State returns the phase of the owner's pass, StateIdle when none is running.
func (e *Engine) State(ownerID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.passes[ownerID]; ok {
		return s
	}
	return StateIdle
}

func (e *Engine) begin(ownerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.passes[ownerID]; running {
		return false
	}
	e.passes[ownerID] = StateFetching
	return true
}

func (e *Engine) setState(ownerID string, s State) {
	e.mu.Lock()
	e.passes[ownerID] = s
	e.mu.Unlock()
}

func (e *Engine) end(ownerID string) {
	e.mu.Lock()
	delete(e.passes, ownerID)
	e.mu.Unlock()
}

// RunPass synchronizes all of an owner's holdings once.
// Returns ErrPassInProgress when the owner's previous pass is still running;
// callers treat that as a no-op, not a failure.
func (e *Engine) RunPass(ctx context.Context, ownerID string) (*PassResult, error) {
	if !e.begin(ownerID) {
		return nil, ErrPassInProgress
	}
	defer e.end(ownerID)

	result := &PassResult{OwnerID: ownerID, StartedAt: time.Now()}

	holdings, err := e.holdings.GetByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings for pass: %w", err)
	}
	if len(holdings) == 0 {
		result.Duration = time.Since(result.StartedAt)
		return result, nil
	}

	// Phase 1: fetch all quotes with bounded fan-out. Failures are recorded
	// per holding, never propagated out of the group.
	quotes := make([]*domain.Quote, len(holdings))
	fetchErrs := make([]error, len(holdings))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i := range holdings {
		i := i
		g.Go(func() error {
			quotes[i], fetchErrs[i] = e.fetcher.Fetch(ctx, &holdings[i])
			return nil
		})
	}
	_ = g.Wait() // goroutines always return nil; failures live in fetchErrs

	// Phase 2: reconcile fresh quotes against stored values
	e.setState(ownerID, StateReconciling)
	threshold := e.thresholds.AlertThreshold(ownerID)

	updates := make([]*domain.PriceUpdate, len(holdings))
	result.Holdings = make([]domain.HoldingSync, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		hs := domain.HoldingSync{HoldingID: h.ID, Direction: domain.DirectionNone}

		if fetchErrs[i] != nil {
			// Keep the prior view of a failed holding
			hs.Price = h.CurrentPrice
			hs.DayChangePercent = h.DayChangePercent
			hs.DisplayName = h.DisplayName
			hs.Source = h.PriceSource
			hs.Err = fetchErrs[i]
			hs.Alert = ShouldAlert(h.DayChangePercent, threshold)
			e.log.Warn().
				Err(fetchErrs[i]).
				Str("holding_id", h.ID).
				Str("symbol", h.Symbol).
				Msg("Fetch failed, holding keeps prior price")
		} else {
			q := quotes[i]
			updates[i], hs.Direction = Reconcile(h, q, e.tol)
			hs.Price = q.Price
			hs.DayChangePercent = q.DayChangePercent
			hs.DisplayName = effectiveName(h, q)
			hs.Source = q.Source
			hs.Alert = ShouldAlert(q.DayChangePercent, threshold)
		}

		result.Holdings[i] = hs
	}

	// Phase 3: persist material changes, one holding at a time
	e.setState(ownerID, StatePersisting)
	for i := range holdings {
		if updates[i] == nil {
			continue
		}
		if err := e.writer.UpdatePrices(holdings[i].ID, *updates[i]); err != nil {
			result.Holdings[i].Err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
			result.Holdings[i].Direction = domain.DirectionNone
			e.log.Error().
				Err(err).
				Str("holding_id", holdings[i].ID).
				Msg("Failed to persist price update")
			continue
		}
		result.Holdings[i].Persisted = true
	}

	result.Duration = time.Since(result.StartedAt)
	e.log.Info().
		Str("owner_id", ownerID).
		Int("holdings", len(holdings)).
		Int("failures", result.Failures()).
		Dur("duration", result.Duration).
		Msg("Sync pass complete")

	return result, nil
}

// RefreshOne fetches and reconciles a single holding outside the pass cycle.
// Used by the manual refresh endpoint; the fetch error surfaces inline.
func (e *Engine) RefreshOne(ctx context.Context, ownerID, holdingID string) (*domain.HoldingSync, error) {
	h, err := e.holdings.GetByID(holdingID)
	if err != nil {
		return nil, err
	}
	if h == nil || h.OwnerID != ownerID {
		return nil, nil
	}

	q, err := e.fetcher.Fetch(ctx, h)
	if err != nil {
		return nil, err
	}

	threshold := e.thresholds.AlertThreshold(ownerID)
	hs := &domain.HoldingSync{
		HoldingID:        h.ID,
		Price:            q.Price,
		DayChangePercent: q.DayChangePercent,
		DisplayName:      effectiveName(h, q),
		Source:           q.Source,
		Alert:            ShouldAlert(q.DayChangePercent, threshold),
		Direction:        domain.DirectionNone,
	}

	update, direction := Reconcile(h, q, e.tol)
	hs.Direction = direction
	if update == nil {
		return hs, nil
	}

	if err := e.writer.UpdatePrices(h.ID, *update); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	hs.Persisted = true
	return hs, nil
}

// effectiveName prefers the freshly fetched display name, falling back to
// the stored one when the profile lookup gave nothing.
func effectiveName(h *domain.Holding, q *domain.Quote) *string {
	if q.DisplayName != nil {
		return q.DisplayName
	}
	return h.DisplayName
}
