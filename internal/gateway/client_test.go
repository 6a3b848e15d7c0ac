package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/session"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&ClientConfig{
		BaseURL: srv.URL + "/api/",
		Session: session.NewContext(session.NewMemoryHolder(token), nil),
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	assert.Error(t, err)
}

func TestCall_AttachesBearerAndHeaders(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}, "tok-123")

	_, err := client.ListPortfolios(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/api/v1/portfolios", got.URL.Path)
	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.NotEmpty(t, got.Header.Get(RequestIDHeader))
}

func TestCall_NoBearerWithoutSession(t *testing.T) {
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}, "")

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Empty(t, auth)
}

func TestCall_NoContentIsEmptySuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/portfolios/p%201/transactions/t-1", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}, "tok")

	err := client.DeleteTransaction(context.Background(), "p 1", "t-1")
	assert.NoError(t, err)
}

func TestCall_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"detail string", http.StatusNotFound, `{"detail":"Portfolio not found"}`, "Portfolio not found"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","quantity"],"msg":"value is not a valid decimal","type":"type_error"}]}`, "value is not a valid decimal"},
		{"nested error", http.StatusConflict, `{"error":{"code":"CONFLICT","message":"Asset with this symbol already exists"}}`, "Asset with this symbol already exists"},
		{"plain text falls back", http.StatusBadGateway, `upstream exploded`, "502 Bad Gateway"},
		{"empty body falls back", http.StatusUnauthorized, ``, "401 Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, "tok")

			_, err := client.GetPortfolio(context.Background(), "p-1")
			require.Error(t, err)
			assert.Equal(t, tt.status, errors.StatusCode(err))
			assert.Equal(t, tt.message, errors.UserMessage(err))
			assert.Equal(t, tt.status == http.StatusUnauthorized, errors.IsAuthExpired(err))
		})
	}
}

func TestCall_DecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":`)
	}, "tok")

	_, err := client.GetPortfolio(context.Background(), "p-1")
	require.Error(t, err)
	cat := errors.Categorize(err)
	require.NotNil(t, cat)
	assert.Equal(t, errors.CategoryDecode, cat.Category)
}

func TestCall_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(&ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ListPortfolios(context.Background())
	require.Error(t, err)
	cat := errors.Categorize(err)
	require.NotNil(t, cat)
	assert.Equal(t, errors.CategoryNetwork, cat.Category)
	assert.Equal(t, 0, cat.StatusCode)
}

func TestCall_RateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(&ClientConfig{
		BaseURL:        srv.URL,
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
	})
	require.NoError(t, err)

	_, err = client.Health(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Health(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNetwork, errors.Categorize(err).Category)
}

func TestCreateTransaction_SendsDecimalStrings(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"t-9","asset_id":"a-1","type":"buy","quantity":"1.5","price_usd":"100","fee_usd":null,"at":"2025-03-01T00:00:00Z","note":null,"tx_hash":null}`)
	}, "tok")

	price := decimal.RequireFromString("100")
	tx, err := client.CreateTransaction(context.Background(), "p-1", models.TransactionBody{
		AssetID:  "a-1",
		Type:     types.TxBuy,
		Quantity: decimal.RequireFromString("1.5"),
		PriceUSD: &price,
		At:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "1.5", body["quantity"])
	assert.Equal(t, "100", body["price_usd"])
	assert.Equal(t, "t-9", tx.ID)
	assert.True(t, tx.Quantity.Equal(decimal.RequireFromString("1.5")))
}

func TestGetTicker_QueryAndDecode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/market/bybit/ticker/BTC", r.URL.Path)
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		_, _ = io.WriteString(w, `{"category":"spot","symbol":"BTCUSDT","lastPrice":"50","price24hPcnt":"0.01","turnover24h":"1000","volume24h":"20","prevPrice24h":"49","highPrice24h":"51","lowPrice24h":"48","bid1Price":"49.9"}`)
	}, "")

	q, err := client.GetTicker(context.Background(), "BTC", types.CategorySpot)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.True(t, q.LastPrice.Equal(decimal.NewFromInt(50)))
}

func TestListTransactions_AssetFilter(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `[]`)
	}, "tok")

	txs, err := client.ListTransactions(context.Background(), "p-1", "a-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, "asset_id=a-1", query)

	_, err = client.ListTransactions(context.Background(), "p-1", "")
	require.NoError(t, err)
	assert.Empty(t, query)
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "nope", extractErrorMessage([]byte(`{"message":" nope "}`)))
	assert.Equal(t, "", extractErrorMessage([]byte(`{"detail":""}`)))
	assert.Equal(t, "", extractErrorMessage([]byte(`not json`)))
	assert.Equal(t, "", extractErrorMessage([]byte(`{"detail":42}`)))
}
