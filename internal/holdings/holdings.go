// Package holdings derives positions and approximate valuation from cached
// ledgers. Everything here is pure.
package holdings

import (
	"github.com/ledger-sync/internal/models"
	"github.com/shopspring/decimal"
)

// Holding is the derived view of one asset
type Holding struct {
	Asset       models.Asset
	Icon        string
	NetQuantity decimal.Decimal
	// Value is meaningful only when HasValue is set
	Value    decimal.Decimal
	HasValue bool
	TxCount  int
}

// Signed returns the quantity of tx with the sign of its effect on the position
func Signed(tx models.Transaction) decimal.Decimal {
	if tx.Type.Inflow() {
		return tx.Quantity
	}
	return tx.Quantity.Neg()
}

// NetQuantity sums the signed quantities of txs. Order does not matter.
func NetQuantity(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(Signed(tx))
	}
	return total
}

// ApproxValue multiplies qty by the quote's last price.
// It returns false when there is no quote or the price is not positive.
func ApproxValue(qty decimal.Decimal, quote *models.Quote) (decimal.Decimal, bool) {
	if quote == nil || !quote.LastPrice.IsPositive() {
		return decimal.Zero, false
	}
	return qty.Mul(quote.LastPrice), true
}

// Summarize derives the holding of asset from its ledger and an optional quote
func Summarize(asset models.Asset, txs []models.Transaction, quote *models.Quote) Holding {
	net := NetQuantity(txs)
	value, ok := ApproxValue(net, quote)
	return Holding{
		Asset:       asset,
		Icon:        Icon(asset.Emoji, asset.Symbol),
		NetQuantity: net,
		Value:       value,
		HasValue:    ok,
		TxCount:     len(txs),
	}
}
