// Package models provides the entities cached and exchanged by the ledger engine.
package models

import (
	"time"

	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

// Portfolio represents a portfolio as returned by the gateway.
// Balances are computed server-side and are read-only to the engine.
type Portfolio struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Emoji      *string             `json:"emoji"`
	BalanceUSD decimal.Decimal     `json:"balance_usd"`
	PnlDayUSD  decimal.Decimal     `json:"pnl_day_usd"`
	Kind       types.PortfolioKind `json:"kind"`
	Visibility *types.Visibility   `json:"visibility"` // personal portfolios only
	CreatedAt  *time.Time          `json:"created_at,omitempty"`
}

// PortfolioDraft is the body for creating a portfolio
type PortfolioDraft struct {
	Name       string           `json:"name"`
	Emoji      *string          `json:"emoji,omitempty"`
	Visibility types.Visibility `json:"visibility"`
}

// PortfolioPatch is the body for updating a portfolio; nil fields are left untouched
type PortfolioPatch struct {
	Name       *string           `json:"name,omitempty"`
	Emoji      *string           `json:"emoji,omitempty"`
	Visibility *types.Visibility `json:"visibility,omitempty"`
}

// CloneRequest is the body for cloning another user's public portfolio
type CloneRequest struct {
	SourceID string `json:"source_id"`
}

// ExternalKeys are third-party read credentials submitted for a one-time balance pull.
// They are sent in a single request and never stored.
type ExternalKeys struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}
