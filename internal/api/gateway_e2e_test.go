package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledger-sync/internal/api"
	"github.com/ledger-sync/internal/gateway"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/service"
	"github.com/ledger-sync/internal/session"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	store   *api.Store
	svc     *service.LedgerService
	expired chan struct{}
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := logging.NewLogger(logging.LevelError, logging.FormatJSON)
	logger.SetOutput(&bytes.Buffer{})

	store := api.NewStore("pw")
	srv := httptest.NewServer(api.NewServer(&api.ServerConfig{Version: "e2e"}, store, logger).Handler())
	t.Cleanup(srv.Close)

	expired := make(chan struct{}, 1)
	sess := session.NewContext(session.NewMemoryHolder(""), func() {
		select {
		case expired <- struct{}{}:
		default:
		}
	})
	client, err := gateway.NewClient(&gateway.ClientConfig{BaseURL: srv.URL + "/api", Session: sess, Logger: logger})
	require.NoError(t, err)

	return &stack{
		store:   store,
		svc:     service.NewLedgerService(client, sess, types.CategorySpot, logger),
		expired: expired,
	}
}

func TestLedgerAgainstStubGateway(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newStack(t)
	st.store.AddUser("ana@example.com", "pw-123456")
	st.store.SetTicker(types.CategorySpot, models.Quote{Symbol: "BTCUSDT", LastPrice: decimal.NewFromInt(50)})

	err := st.svc.Login(ctx, "ana@example.com", "wrong")
	require.Error(t, err)
	assert.False(t, st.svc.Session().Authenticated())

	require.NoError(t, st.svc.Login(ctx, "ana@example.com", "pw-123456"))

	p, err := st.svc.CreatePortfolio(ctx, models.PortfolioDraft{Name: "Main"})
	require.NoError(t, err)
	require.NoError(t, st.svc.SelectPortfolio(ctx, p.ID))

	asset, err := st.svc.AddAsset(ctx, p.ID, models.AssetDraft{Symbol: "btc"})
	require.NoError(t, err)
	assert.Equal(t, "BTC", asset.Symbol)
	require.NoError(t, st.svc.SelectAsset(ctx, asset.ID))

	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	buy, err := st.svc.AddTransaction(ctx, p.ID, asset.ID, models.TransactionDraft{Type: types.TxBuy, Quantity: "1.0", PriceUSD: "100", At: at})
	require.NoError(t, err)
	_, err = st.svc.AddTransaction(ctx, p.ID, asset.ID, models.TransactionDraft{Type: types.TxSell, Quantity: "0.4", PriceUSD: "120", At: at.Add(time.Hour)})
	require.NoError(t, err)
	_, err = st.svc.AddTransaction(ctx, p.ID, asset.ID, models.TransactionDraft{Type: types.TxTransferIn, Quantity: "0.2", At: at.Add(2 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, st.svc.WaitForQuote(ctx))
	h, ok := st.svc.ActiveHolding()
	require.True(t, ok)
	assert.Equal(t, "0.8", h.NetQuantity.String())
	require.True(t, h.HasValue)
	assert.Equal(t, "40", h.Value.String())

	// the cache must agree with a fresh load from the gateway
	cached, _ := st.svc.Cache().Transactions(asset.ID)
	require.NoError(t, st.svc.ReloadTransactions(ctx, asset.ID))
	reloaded, _ := st.svc.Cache().Transactions(asset.ID)
	assert.ElementsMatch(t, idsOf(cached), idsOf(reloaded))

	_, err = st.svc.UpdateTransaction(ctx, p.ID, buy.ID, models.TransactionDraft{AssetID: asset.ID, Type: types.TxBuy, Quantity: "2", PriceUSD: "100", At: at})
	require.NoError(t, err)
	require.NoError(t, st.svc.DeleteTransaction(ctx, p.ID, buy.ID))

	h, _ = st.svc.ActiveHolding()
	assert.Equal(t, "-0.2", h.NetQuantity.String())

	remote, err := st.svc.ListPortfolios(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "-10", remote[0].BalanceUSD.String())
}

func TestLedgerAgainstStubGateway_ExpiredSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newStack(t)
	st.store.AddUser("bo@example.com", "pw-123456")
	require.NoError(t, st.svc.Login(ctx, "bo@example.com", "pw-123456"))

	p, err := st.svc.CreatePortfolio(ctx, models.PortfolioDraft{Name: "Main"})
	require.NoError(t, err)

	st.store.RevokeToken(st.svc.Session().Token())

	_, err = st.svc.AddAsset(ctx, p.ID, models.AssetDraft{Symbol: "ETH"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrReauthRequired))
	assert.False(t, st.svc.Session().Authenticated())

	select {
	case <-st.expired:
	case <-ctx.Done():
		t.Fatal("session expiry was not signalled")
	}
}

func idsOf(txs []models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}
