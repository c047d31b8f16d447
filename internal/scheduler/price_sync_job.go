package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
	"github.com/foliowatch/foliowatch/internal/feedback"
	"github.com/foliowatch/foliowatch/internal/modules/snapshots"
	"github.com/foliowatch/foliowatch/internal/sync"
)

// PriceSyncJob is the centralized driver: every tick it runs a sync pass for
// every owner with holdings and records the daily snapshot. Owners are
// independent; one owner's failure never blocks the rest.
type PriceSyncJob struct {
	engine    *sync.Engine
	holdings  domain.HoldingReader
	snapshots *snapshots.Service
	feedback  *feedback.StateManager
	log       zerolog.Logger
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(
	engine *sync.Engine,
	holdings domain.HoldingReader,
	snapshotSvc *snapshots.Service,
	fb *feedback.StateManager,
	log zerolog.Logger,
) *PriceSyncJob {
	return &PriceSyncJob{
		engine:    engine,
		holdings:  holdings,
		snapshots: snapshotSvc,
		feedback:  fb,
		log:       log.With().Str("job", "price_sync").Logger(),
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run synchronizes all owners once.
func (j *PriceSyncJob) Run() error {
	owners, err := j.holdings.ListOwners()
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	ctx := context.Background()
	failed := 0
	for _, owner := range owners {
		if err := j.syncOwner(ctx, owner); err != nil {
			failed++
			j.log.Error().Err(err).Str("owner_id", owner).Msg("Owner sync failed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d owners failed to sync", failed, len(owners))
	}
	return nil
}

func (j *PriceSyncJob) syncOwner(ctx context.Context, ownerID string) error {
	result, err := j.engine.RunPass(ctx, ownerID)
	if errors.Is(err, sync.ErrPassInProgress) {
		// A session poller got there first; its pass covers this tick
		j.log.Debug().Str("owner_id", ownerID).Msg("Pass already running, skipping owner")
		return nil
	}
	if err != nil {
		return err
	}

	j.feedback.Publish(ownerID, result.Holdings)

	if _, err := j.snapshots.MaybeSnapshotToday(ownerID); err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	return nil
}
