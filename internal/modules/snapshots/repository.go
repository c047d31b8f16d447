// Package snapshots provides portfolio valuation snapshots and the
// once-per-day snapshot invariant.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Repository handles portfolio snapshot database operations.
// Snapshots are append-only: there is no update or delete path.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Create inserts a new snapshot row.
func (r *Repository) Create(s *domain.PortfolioSnapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (id, owner_id, snapshot_date, total_value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.OwnerID, s.Date, s.TotalValue, s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

// GetByOwnerAndDate returns the snapshot for (owner, date), or nil.
// If a benign race between the two sync drivers ever produced duplicates,
// the earliest created row wins.
func (r *Repository) GetByOwnerAndDate(ownerID, date string) (*domain.PortfolioSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, snapshot_date, total_value, created_at
		FROM portfolio_snapshots
		WHERE owner_id = ? AND snapshot_date = ?
		ORDER BY created_at
		LIMIT 1
	`, ownerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // No snapshot for this date
	}

	s, err := scanSnapshot(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return &s, nil
}

// ListByOwner returns an owner's snapshots ordered by date, de-duplicated by
// date at read time (first created row per date wins).
func (r *Repository) ListByOwner(ownerID string) ([]domain.PortfolioSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, snapshot_date, total_value, created_at
		FROM portfolio_snapshots
		WHERE owner_id = ?
		ORDER BY snapshot_date, created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []domain.PortfolioSnapshot
	seen := make(map[string]bool)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if seen[s.Date] {
			continue // Benign duplicate from a driver race
		}
		seen[s.Date] = true
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return result, nil
}

// scanSnapshot reads one snapshot row.
func scanSnapshot(rows *sql.Rows) (domain.PortfolioSnapshot, error) {
	var s domain.PortfolioSnapshot
	var createdAt int64

	if err := rows.Scan(&s.ID, &s.OwnerID, &s.Date, &s.TotalValue, &createdAt); err != nil {
		return s, err
	}

	s.CreatedAt = time.Unix(createdAt, 0)
	return s, nil
}
