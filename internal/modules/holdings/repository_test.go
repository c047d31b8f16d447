package holdings

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliowatch/foliowatch/internal/domain"
)

const testSchema = `
CREATE TABLE holdings (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    asset_class TEXT NOT NULL,
    symbol TEXT NOT NULL,
    quantity REAL NOT NULL,
    cost_basis_price REAL NOT NULL,
    current_price REAL NOT NULL DEFAULT 0,
    last_known_price REAL NOT NULL DEFAULT 0,
    price_source TEXT NOT NULL DEFAULT '',
    display_name TEXT,
    day_change_percent REAL,
    created_at INTEGER NOT NULL,
    last_updated_at INTEGER NOT NULL
);
`

func setupRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop())
}

func makeHolding(owner, symbol string) *domain.Holding {
	return &domain.Holding{
		OwnerID:        owner,
		AssetClass:     domain.AssetClassEquity,
		Symbol:         symbol,
		Quantity:       5,
		CostBasisPrice: 150,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := setupRepo(t)

	h := makeHolding("user-1", "AAPL")
	require.NoError(t, repo.Create(h))
	assert.NotEmpty(t, h.ID)

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, domain.AssetClassEquity, got.AssetClass)
	assert.Nil(t, got.DisplayName)
	assert.Nil(t, got.DayChangePercent)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByOwner(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Create(makeHolding("user-1", "AAPL")))
	require.NoError(t, repo.Create(makeHolding("user-1", "MSFT")))
	require.NoError(t, repo.Create(makeHolding("user-2", "GOOG")))

	got, err := repo.GetByOwner("user-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListOwners(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Create(makeHolding("user-b", "AAPL")))
	require.NoError(t, repo.Create(makeHolding("user-a", "MSFT")))
	require.NoError(t, repo.Create(makeHolding("user-a", "GOOG")))

	owners, err := repo.ListOwners()
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a", "user-b"}, owners)
}

func TestUpdatePrices_PartialFields(t *testing.T) {
	repo := setupRepo(t)

	h := makeHolding("user-1", "AAPL")
	require.NoError(t, repo.Create(h))

	price := 172.0
	lastKnown := 170.0
	source := "finnhub"
	pct := 1.18
	err := repo.UpdatePrices(h.ID, domain.PriceUpdate{
		CurrentPrice:     &price,
		LastKnownPrice:   &lastKnown,
		PriceSource:      &source,
		DayChangePercent: &pct,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.Equal(t, 172.0, got.CurrentPrice)
	assert.Equal(t, 170.0, got.LastKnownPrice)
	assert.Equal(t, "finnhub", got.PriceSource)
	require.NotNil(t, got.DayChangePercent)
	assert.Equal(t, 1.18, *got.DayChangePercent)

	// A later update touching only the price leaves the rest alone
	newPrice := 173.5
	require.NoError(t, repo.UpdatePrices(h.ID, domain.PriceUpdate{CurrentPrice: &newPrice}))

	got, err = repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.Equal(t, 173.5, got.CurrentPrice)
	assert.Equal(t, 170.0, got.LastKnownPrice)
	require.NotNil(t, got.DayChangePercent)
}

func TestUpdatePrices_ClearDayChange(t *testing.T) {
	repo := setupRepo(t)

	h := makeHolding("user-1", "AAPL")
	require.NoError(t, repo.Create(h))

	pct := 2.5
	require.NoError(t, repo.UpdatePrices(h.ID, domain.PriceUpdate{DayChangePercent: &pct}))

	require.NoError(t, repo.UpdatePrices(h.ID, domain.PriceUpdate{ClearDayChange: true}))

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DayChangePercent)
}

func TestUpdatePrices_Empty(t *testing.T) {
	repo := setupRepo(t)

	h := makeHolding("user-1", "AAPL")
	require.NoError(t, repo.Create(h))

	// Nothing fetched, nothing written - no error either
	require.NoError(t, repo.UpdatePrices(h.ID, domain.PriceUpdate{}))
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)

	h := makeHolding("user-1", "AAPL")
	require.NoError(t, repo.Create(h))
	require.NoError(t, repo.Delete(h.ID))

	got, err := repo.GetByID(h.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
