// Package holdings provides storage and owner-facing operations for tracked positions.
package holdings

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Repository handles holding database operations.
//
// Field ownership is enforced at this boundary: Update touches only the
// owner-mutable columns, UpdatePrices only the engine-owned price columns.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

const holdingColumns = `id, owner_id, asset_class, symbol, quantity, cost_basis_price,
	current_price, last_known_price, price_source, display_name, day_change_percent,
	created_at, last_updated_at`

// Create inserts a new holding. A missing id is generated.
func (r *Repository) Create(h *domain.Holding) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now()
	h.CreatedAt = now
	h.LastUpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.OwnerID, string(h.AssetClass), h.Symbol, h.Quantity, h.CostBasisPrice,
		h.CurrentPrice, h.LastKnownPrice, h.PriceSource, h.DisplayName, h.DayChangePercent,
		now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}

	return nil
}

// GetByID returns a holding by id, or nil if not found.
func (r *Repository) GetByID(id string) (*domain.Holding, error) {
	rows, err := r.db.Query(`SELECT `+holdingColumns+` FROM holdings WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // Holding not found
	}

	h, err := scanHolding(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}

	return &h, nil
}

// GetByOwner returns all holdings for one owner.
func (r *Repository) GetByOwner(ownerID string) ([]domain.Holding, error) {
	rows, err := r.db.Query(`SELECT `+holdingColumns+` FROM holdings WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var result []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		result = append(result, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return result, nil
}

// ListOwners returns the distinct owner ids with at least one holding.
// Used by the centralized sync driver to iterate all owners.
func (r *Repository) ListOwners() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT owner_id FROM holdings ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

// Update persists the owner-mutable fields of a holding.
func (r *Repository) Update(h *domain.Holding) error {
	result, err := r.db.Exec(`
		UPDATE holdings
		SET symbol = ?, quantity = ?, cost_basis_price = ?, display_name = ?, last_updated_at = ?
		WHERE id = ?
	`, h.Symbol, h.Quantity, h.CostBasisPrice, h.DisplayName, time.Now().Unix(), h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding %s: %w", h.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("holding %s not found", h.ID)
	}

	return nil
}

// Delete removes a holding.
func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", id, err)
	}
	return nil
}

// UpdatePrices applies an engine write to a single holding. Only the fields
// actually populated in the update are touched; the statement is built from
// the typed optional-field struct, never from a dynamic payload.
func (r *Repository) UpdatePrices(id string, update domain.PriceUpdate) error {
	var sets []string
	var args []interface{}

	if update.CurrentPrice != nil {
		sets = append(sets, "current_price = ?")
		args = append(args, *update.CurrentPrice)
	}
	if update.LastKnownPrice != nil {
		sets = append(sets, "last_known_price = ?")
		args = append(args, *update.LastKnownPrice)
	}
	if update.PriceSource != nil {
		sets = append(sets, "price_source = ?")
		args = append(args, *update.PriceSource)
	}
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.DayChangePercent != nil {
		sets = append(sets, "day_change_percent = ?")
		args = append(args, *update.DayChangePercent)
	} else if update.ClearDayChange {
		sets = append(sets, "day_change_percent = NULL")
	}

	if len(sets) == 0 {
		return nil // Nothing fetched, nothing to write
	}

	sets = append(sets, "last_updated_at = ?")
	args = append(args, time.Now().Unix())
	args = append(args, id)

	query := "UPDATE holdings SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update prices for holding %s: %w", id, err)
	}

	return nil
}

// scanHolding reads one holding row.
func scanHolding(rows *sql.Rows) (domain.Holding, error) {
	var h domain.Holding
	var assetClass string
	var displayName sql.NullString
	var dayChange sql.NullFloat64
	var createdAt, lastUpdatedAt int64

	err := rows.Scan(
		&h.ID, &h.OwnerID, &assetClass, &h.Symbol, &h.Quantity, &h.CostBasisPrice,
		&h.CurrentPrice, &h.LastKnownPrice, &h.PriceSource, &displayName, &dayChange,
		&createdAt, &lastUpdatedAt,
	)
	if err != nil {
		return h, err
	}

	h.AssetClass = domain.AssetClass(assetClass)
	if displayName.Valid {
		h.DisplayName = &displayName.String
	}
	if dayChange.Valid {
		h.DayChangePercent = &dayChange.Float64
	}
	h.CreatedAt = time.Unix(createdAt, 0)
	h.LastUpdatedAt = time.Unix(lastUpdatedAt, 0)

	return h, nil
}
