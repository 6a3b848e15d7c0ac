package service

import (
	"strings"
	"testing"
	"time"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateAssetDraft(t *testing.T) {
	tests := []struct {
		name    string
		draft   models.AssetDraft
		wantErr string
	}{
		{"too short", models.AssetDraft{Symbol: "b"}, "Symbol must be 2-16 characters"},
		{"short after trim", models.AssetDraft{Symbol: "  b  "}, "Symbol must be 2-16 characters"},
		{"too long", models.AssetDraft{Symbol: strings.Repeat("X", 17)}, "Symbol must be 2-16 characters"},
		{"long display name", models.AssetDraft{Symbol: "BTC", DisplayName: strPtr(strings.Repeat("n", 33))}, "Display name must be at most 32 characters"},
		{"long emoji", models.AssetDraft{Symbol: "BTC", Emoji: strPtr("123456789")}, "Emoji must be at most 8 characters"},
		{"valid", models.AssetDraft{Symbol: "btc", DisplayName: strPtr("Bitcoin"), Emoji: strPtr("🟠")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateAssetDraft(tt.draft)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				assert.Equal(t, tt.wantErr, errors.UserMessage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "BTC", got.Symbol)
		})
	}
}

func TestValidateAssetDraft_EmptyOptionalsDropped(t *testing.T) {
	got, err := validateAssetDraft(models.AssetDraft{Symbol: "eth", DisplayName: strPtr(" "), Emoji: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, got.DisplayName)
	assert.Nil(t, got.Emoji)
}

func TestValidateTransactionDraft(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		draft   models.TransactionDraft
		wantErr string
	}{
		{"missing asset", models.TransactionDraft{Type: types.TxBuy, Quantity: "1", PriceUSD: "1"}, "Asset is required"},
		{"unknown type", models.TransactionDraft{AssetID: "a", Type: "gift", Quantity: "1"}, "Type must be buy, sell, transfer_in or transfer_out"},
		{"quantity not a number", models.TransactionDraft{AssetID: "a", Type: types.TxBuy, Quantity: "abc", PriceUSD: "1"}, "Quantity must be a number"},
		{"quantity NaN", models.TransactionDraft{AssetID: "a", Type: types.TxBuy, Quantity: "NaN", PriceUSD: "1"}, "Quantity must be a number"},
		{"quantity zero", models.TransactionDraft{AssetID: "a", Type: types.TxSell, Quantity: "0", PriceUSD: "1"}, "Quantity must be > 0"},
		{"quantity negative", models.TransactionDraft{AssetID: "a", Type: types.TxTransferIn, Quantity: "-1"}, "Quantity must be > 0"},
		{"buy without price", models.TransactionDraft{AssetID: "a", Type: types.TxBuy, Quantity: "1"}, "Price must be > 0"},
		{"sell zero price", models.TransactionDraft{AssetID: "a", Type: types.TxSell, Quantity: "1", PriceUSD: "0"}, "Price must be > 0"},
		{"price not a number", models.TransactionDraft{AssetID: "a", Type: types.TxSell, Quantity: "1", PriceUSD: "1e"}, "Price must be a number"},
		{"negative fee", models.TransactionDraft{AssetID: "a", Type: types.TxBuy, Quantity: "1", PriceUSD: "1", FeeUSD: "-0.01"}, "Fee must be >= 0"},
		{"long note", models.TransactionDraft{AssetID: "a", Type: types.TxTransferIn, Quantity: "1", Note: strings.Repeat("n", 141)}, "Note must be at most 140 characters"},
		{"long hash", models.TransactionDraft{AssetID: "a", Type: types.TxTransferIn, Quantity: "1", TxHash: strings.Repeat("h", 129)}, "Transaction hash must be at most 128 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateTransactionDraft(tt.draft, now)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, tt.wantErr, errors.UserMessage(err))
		})
	}
}

func TestValidateTransactionDraft_Body(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	body, err := validateTransactionDraft(models.TransactionDraft{
		AssetID:  " a1 ",
		Type:     types.TxBuy,
		Quantity: " 0.00000001 ",
		PriceUSD: "65000.5",
		FeeUSD:   "0",
		Note:     "  first  ",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "a1", body.AssetID)
	assert.True(t, body.Quantity.Equal(decimal.New(1, -8)))
	require.NotNil(t, body.PriceUSD)
	assert.Equal(t, "65000.5", body.PriceUSD.String())
	require.NotNil(t, body.FeeUSD)
	assert.True(t, body.FeeUSD.IsZero())
	require.NotNil(t, body.Note)
	assert.Equal(t, "first", *body.Note)
	assert.Nil(t, body.TxHash)
	assert.Equal(t, now, body.At)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	body, err = validateTransactionDraft(models.TransactionDraft{
		AssetID: "a1", Type: types.TxTransferIn, Quantity: "2", PriceUSD: "abc", At: at,
	}, now)
	require.NoError(t, err)
	assert.Nil(t, body.PriceUSD)
	assert.Equal(t, time.UTC, body.At.Location())
	assert.True(t, body.At.Equal(at))
}

func TestValidatePortfolioName(t *testing.T) {
	_, err := validatePortfolioName("")
	assert.Error(t, err)
	_, err = validatePortfolioName(strings.Repeat("p", 65))
	assert.Error(t, err)

	name, err := validatePortfolioName("  Main ")
	require.NoError(t, err)
	assert.Equal(t, "Main", name)
}

func TestValidateExternalKeys(t *testing.T) {
	_, err := validateExternalKeys(models.ExternalKeys{APIKey: "12345", APISecret: "123456"})
	assert.Equal(t, "API key must be 6-128 characters", errors.UserMessage(err))

	_, err = validateExternalKeys(models.ExternalKeys{APIKey: "123456", APISecret: strings.Repeat("s", 257)})
	assert.Equal(t, "API secret must be 6-256 characters", errors.UserMessage(err))

	keys, err := validateExternalKeys(models.ExternalKeys{APIKey: " 123456 ", APISecret: "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "123456", keys.APIKey)
}
