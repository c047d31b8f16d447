// Package session implements the per-session sync driver: a short-interval
// poller that runs while an owner has an active client connection.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/feedback"
	"github.com/foliowatch/foliowatch/internal/modules/snapshots"
	"github.com/foliowatch/foliowatch/internal/sync"
)

// Poller drives frequent sync passes for one owner while their session is
// open. It shares the engine with the centralized driver; the engine's
// per-owner serialization turns overlapping triggers into skips.
type Poller struct {
	ownerID   string
	engine    *sync.Engine
	snapshots *snapshots.Service
	feedback  *feedback.StateManager
	interval  time.Duration
	log       zerolog.Logger

	updates chan feedback.OwnerFeedback
}

// NewPoller creates a poller for one owner's session.
func NewPoller(
	ownerID string,
	engine *sync.Engine,
	snapshotSvc *snapshots.Service,
	fb *feedback.StateManager,
	interval time.Duration,
	log zerolog.Logger,
) *Poller {
	return &Poller{
		ownerID:   ownerID,
		engine:    engine,
		snapshots: snapshotSvc,
		feedback:  fb,
		interval:  interval,
		log:       log.With().Str("component", "session_poller").Str("owner_id", ownerID).Logger(),
		updates:   make(chan feedback.OwnerFeedback, 1),
	}
}

// Updates delivers the owner's feedback after each tick. The channel holds
// one pending update; a slow consumer sees only the latest state.
func (p *Poller) Updates() <-chan feedback.OwnerFeedback {
	return p.updates
}

// Run executes the poll loop until the context is cancelled. The first pass
// runs immediately so a fresh session never waits a full interval.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("Session poller started")
	defer p.log.Info().Msg("Session poller stopped")
	defer close(p.updates)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	// The session context stops future ticks; a started pass always runs
	// to completion even when the client disconnects mid-fetch
	result, err := p.engine.RunPass(context.WithoutCancel(ctx), p.ownerID)
	switch {
	case errors.Is(err, sync.ErrPassInProgress):
		// The centralized driver or another session owns this tick
		p.log.Debug().Msg("Pass already running, tick skipped")
	case err != nil:
		p.log.Error().Err(err).Msg("Session pass failed")
		return
	default:
		p.feedback.Publish(p.ownerID, result.Holdings)
		if _, err := p.snapshots.MaybeSnapshotToday(p.ownerID); err != nil {
			p.log.Error().Err(err).Msg("Snapshot failed")
		}
	}

	fb, ok := p.feedback.Get(p.ownerID)
	if !ok {
		return
	}

	// Replace any undelivered update with the latest one
	select {
	case p.updates <- fb:
	default:
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- fb:
		default:
		}
	}
}
