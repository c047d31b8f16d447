package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLAssetCatalog - the symbol-to-id catalog rarely changes
	TTLAssetCatalog = 24 * time.Hour
)
