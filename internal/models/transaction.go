package models

import (
	"time"

	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction represents one ledger entry for an asset.
// Quantity and prices are exact decimals and travel as strings on the wire.
type Transaction struct {
	ID       string           `json:"id"`
	AssetID  string           `json:"asset_id"`
	Type     types.TxType     `json:"type"`
	Quantity decimal.Decimal  `json:"quantity"`
	PriceUSD *decimal.Decimal `json:"price_usd"`
	FeeUSD   *decimal.Decimal `json:"fee_usd"`
	At       time.Time        `json:"at"`
	Note     *string          `json:"note"`
	TxHash   *string          `json:"tx_hash"`
}

// TransactionDraft is what a user submits for a new or edited transaction.
// Numeric fields are raw user text; validation turns them into a TransactionBody.
type TransactionDraft struct {
	AssetID  string
	Type     types.TxType
	Quantity string
	PriceUSD string
	FeeUSD   string
	At       time.Time
	Note     string
	TxHash   string
}

// TransactionBody is the validated wire body for creating or updating a transaction
type TransactionBody struct {
	AssetID  string           `json:"asset_id"`
	Type     types.TxType     `json:"type"`
	Quantity decimal.Decimal  `json:"quantity"`
	PriceUSD *decimal.Decimal `json:"price_usd,omitempty"`
	FeeUSD   *decimal.Decimal `json:"fee_usd,omitempty"`
	At       time.Time        `json:"at"`
	Note     *string          `json:"note,omitempty"`
	TxHash   *string          `json:"tx_hash,omitempty"`
}
