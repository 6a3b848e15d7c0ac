// Package types provides common type definitions for the portfolio ledger engine.
package types

// TxType represents the kind of ledger operation recorded against an asset
type TxType string

const (
	// TxBuy represents a purchase priced in the quote currency
	TxBuy TxType = "buy"
	// TxSell represents a sale priced in the quote currency
	TxSell TxType = "sell"
	// TxTransferIn represents units moved into the portfolio without a trade
	TxTransferIn TxType = "transfer_in"
	// TxTransferOut represents units moved out of the portfolio without a trade
	TxTransferOut TxType = "transfer_out"
)

// Valid reports whether t is one of the known transaction types
func (t TxType) Valid() bool {
	switch t {
	case TxBuy, TxSell, TxTransferIn, TxTransferOut:
		return true
	default:
		return false
	}
}

// Priced reports whether transactions of this type carry a unit price.
// Only trades are priced; transfers never carry a valuation.
func (t TxType) Priced() bool {
	return t == TxBuy || t == TxSell
}

// Inflow reports whether the type increases the held quantity
func (t TxType) Inflow() bool {
	return t == TxBuy || t == TxTransferIn
}

// ParseTxType parses a transaction type, accepting the wire spelling only
func ParseTxType(s string) (TxType, bool) {
	t := TxType(s)
	return t, t.Valid()
}

// Visibility represents who can see a personal portfolio
type Visibility string

const (
	// VisibilityPublic portfolios can be cloned by other users
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate portfolios are visible to the owner only
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// PortfolioKind distinguishes portfolios owned by the user from cloned ones
type PortfolioKind string

const (
	// KindPersonal is a portfolio created by the user
	KindPersonal PortfolioKind = "personal"
	// KindSubscribed is a portfolio cloned from another user's public portfolio
	KindSubscribed PortfolioKind = "subscribed"
)

// QuoteCategory is the market segment a quote is looked up in
type QuoteCategory string

const (
	// CategorySpot is the spot market
	CategorySpot QuoteCategory = "spot"
	// CategoryLinear is the USDT-margined perpetual market
	CategoryLinear QuoteCategory = "linear"
)
