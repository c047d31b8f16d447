// Package settings provides per-owner key-value configuration.
// Settings are stored as strings and converted to appropriate types
// (float, bool) when retrieved. Values set here take precedence over the
// process-level defaults from the environment.
package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// AlertThresholdKey holds the per-owner day-change alert threshold in percent.
const AlertThresholdKey = "alert_threshold_percent"

// Repository handles settings database operations.
// All reads and writes are scoped to one owner.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new settings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "settings").Logger(),
	}
}

// Get retrieves a setting value for an owner.
// Returns nil if the setting doesn't exist (not an error).
func (r *Repository) Get(ownerID, key string) (*string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE owner_id = ? AND key = ?", ownerID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return &value, nil
}

// Set stores a setting value for an owner, inserting or updating as needed.
func (r *Repository) Set(ownerID, key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, ownerID, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves all of an owner's settings as a map.
func (r *Repository) GetAll(ownerID string) (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM settings WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan setting row")
			continue
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return result, nil
}

// GetFloat retrieves a setting as float64.
// Returns defaultValue if the setting doesn't exist or parsing fails.
func (r *Repository) GetFloat(ownerID, key string, defaultValue float64) (float64, error) {
	value, err := r.Get(ownerID, key)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}

	floatVal, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("key", key).
			Str("value", *value).
			Msg("Failed to parse float setting")
		return defaultValue, nil
	}

	return floatVal, nil
}

// SetFloat stores a float64 setting.
func (r *Repository) SetFloat(ownerID, key string, value float64) error {
	return r.Set(ownerID, key, strconv.FormatFloat(value, 'f', -1, 64))
}

// GetBool retrieves a setting as boolean.
// Recognizes "true", "1", "yes" and "on"; everything else is false.
func (r *Repository) GetBool(ownerID, key string, defaultValue bool) (bool, error) {
	value, err := r.Get(ownerID, key)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}

	switch *value {
	case "true", "1", "yes", "on":
		return true, nil
	}
	return false, nil
}

// Delete removes a setting. Idempotent.
func (r *Repository) Delete(ownerID, key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE owner_id = ? AND key = ?", ownerID, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
