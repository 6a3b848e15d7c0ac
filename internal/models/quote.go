package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a market snapshot used only for display valuation.
// Field names follow the gateway's ticker payload.
type Quote struct {
	Category     string          `json:"category"`
	Symbol       string          `json:"symbol"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
	PrevPrice24h decimal.Decimal `json:"prevPrice24h"`
	Price24hPcnt decimal.Decimal `json:"price24hPcnt"`
	HighPrice24h decimal.Decimal `json:"highPrice24h"`
	LowPrice24h  decimal.Decimal `json:"lowPrice24h"`
	Turnover24h  decimal.Decimal `json:"turnover24h"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	FetchedAt    time.Time       `json:"-"`
}
