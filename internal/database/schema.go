package database

// Schema is the single source of truth for the foliowatch database layout.
// Embedded in the binary so migrations work regardless of working directory.
//
// portfolio_snapshots intentionally has NO unique index on (owner_id, snapshot_date):
// the once-per-day invariant is enforced by check-then-act in the snapshot service,
// and a duplicate created by a race between the two sync drivers is tolerated
// (readers take the first row per date).
const Schema = `
CREATE TABLE IF NOT EXISTS holdings (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    asset_class TEXT NOT NULL CHECK (asset_class IN ('equity', 'crypto')),
    symbol TEXT NOT NULL,
    quantity REAL NOT NULL CHECK (quantity > 0),
    cost_basis_price REAL NOT NULL CHECK (cost_basis_price > 0),
    current_price REAL NOT NULL DEFAULT 0,
    last_known_price REAL NOT NULL DEFAULT 0,
    price_source TEXT NOT NULL DEFAULT '',
    display_name TEXT,
    day_change_percent REAL,
    created_at INTEGER NOT NULL,
    last_updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_holdings_owner ON holdings(owner_id);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    snapshot_date TEXT NOT NULL,
    total_value REAL NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_owner_date ON portfolio_snapshots(owner_id, snapshot_date);

CREATE TABLE IF NOT EXISTS settings (
    owner_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (owner_id, key)
);

CREATE TABLE IF NOT EXISTS coingecko_assets (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coingecko_assets_expires ON coingecko_assets(expires_at);
`
