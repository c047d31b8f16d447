package snapshots

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Service values portfolios and records one snapshot per owner per day.
type Service struct {
	repo     *Repository
	holdings domain.HoldingReader
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new snapshot service
func NewService(repo *Repository, holdings domain.HoldingReader, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		holdings: holdings,
		now:      time.Now,
		log:      log.With().Str("service", "snapshots").Logger(),
	}
}

// MaybeSnapshotToday records a snapshot of the owner's current portfolio
// value, unless one already exists for today. Holdings are read, never
// mutated. The check and the insert are not atomic; a concurrent driver can
// produce a duplicate row, which readers collapse to the first created one.
func (s *Service) MaybeSnapshotToday(ownerID string) (*domain.PortfolioSnapshot, error) {
	date := s.now().Format("2006-01-02")

	existing, err := s.repo.GetByOwnerAndDate(ownerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing snapshot: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	holdings, err := s.holdings.GetByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings for valuation: %w", err)
	}

	total := 0.0
	for _, h := range holdings {
		total += h.MarketValue()
	}

	snapshot := &domain.PortfolioSnapshot{
		OwnerID:    ownerID,
		Date:       date,
		TotalValue: total,
	}
	if err := s.repo.Create(snapshot); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("owner_id", ownerID).
		Str("date", date).
		Float64("total_value", total).
		Msg("Portfolio snapshot recorded")

	return snapshot, nil
}

// List returns an owner's snapshot history ordered by date.
func (s *Service) List(ownerID string) ([]domain.PortfolioSnapshot, error) {
	return s.repo.ListByOwner(ownerID)
}
