package api

import (
	"sync"
	"testing"
	"time"

	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestStore_PortfoliosNewestFirst(t *testing.T) {
	store := NewStore("pw")
	clock := mustTime(t, "2025-01-01T00:00:00Z")
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	uid := store.AddUser("a@example.com", "pw")

	for _, name := range []string{"first", "second", "third"} {
		_, err := store.CreatePortfolio(uid, models.PortfolioDraft{Name: name})
		require.NoError(t, err)
	}

	list := store.ListPortfolios(uid)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "first", list[2].Name)
}

func TestStore_PortfolioNameBounds(t *testing.T) {
	store := NewStore("pw")
	uid := store.AddUser("a@example.com", "pw")

	_, err := store.CreatePortfolio(uid, models.PortfolioDraft{Name: "   "})
	require.Error(t, err)
	status, detail := statusOf(err)
	assert.Equal(t, 422, status)
	assert.Equal(t, "name must be 1-64 characters", detail)
}

func TestStore_BalanceFallsBackToLinear(t *testing.T) {
	store := NewStore("pw")
	uid := store.AddUser("a@example.com", "pw")
	store.SetTicker(types.CategoryLinear, models.Quote{Symbol: "XYZUSDT", LastPrice: decimal.RequireFromString("3.333")})

	p, _ := store.CreatePortfolio(uid, models.PortfolioDraft{Name: "P"})
	asset, _ := store.CreateAsset(uid, p.ID, models.AssetDraft{Symbol: "xyz"})
	_, err := store.CreateTransaction(uid, p.ID, models.TransactionBody{
		AssetID: asset.ID, Type: types.TxTransferIn, Quantity: decimal.NewFromInt(3), At: time.Now(),
	})
	require.NoError(t, err)

	got, _ := store.GetPortfolio(uid, p.ID)
	assert.Equal(t, "10", got.BalanceUSD.String())
}

func TestStore_UnknownErrorIsInternal(t *testing.T) {
	status, detail := statusOf(assert.AnError)
	assert.Equal(t, 500, status)
	assert.Equal(t, "Internal server error", detail)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store := NewStore("pw")
	uid := store.AddUser("a@example.com", "pw")
	p, _ := store.CreatePortfolio(uid, models.PortfolioDraft{Name: "P"})
	asset, _ := store.CreateAsset(uid, p.ID, models.AssetDraft{Symbol: "BTC"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateTransaction(uid, p.ID, models.TransactionBody{
				AssetID: asset.ID, Type: types.TxTransferIn, Quantity: decimal.NewFromInt(1), At: time.Now(),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	txs, err := store.ListTransactions(uid, p.ID, "")
	require.NoError(t, err)
	assert.Len(t, txs, 50)
}
