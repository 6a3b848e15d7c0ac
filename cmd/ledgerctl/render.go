package main

import (
	"fmt"
	"strings"

	"github.com/ledger-sync/internal/holdings"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

// cell escapes text for a markdown table cell
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return cell(*s)
}

func portfoliosMarkdown(list []models.Portfolio, currency string) string {
	var b strings.Builder
	b.WriteString("# Portfolios\n\n")
	if len(list) == 0 {
		b.WriteString("No portfolios yet.\n")
		return b.String()
	}
	b.WriteString("| | Name | Kind | Visibility | Balance | 24h P/L | ID |\n")
	b.WriteString("|---|---|---|---|---:|---:|---|\n")
	for _, p := range list {
		vis := ""
		if p.Kind == types.KindPersonal && p.Visibility != nil {
			vis = string(*p.Visibility)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | `%s` |\n",
			optional(p.Emoji), cell(p.Name), p.Kind, vis,
			holdings.FormatValue(p.BalanceUSD, true, currency),
			holdings.FormatValue(p.PnlDayUSD, true, currency),
			p.ID)
	}
	return b.String()
}

func assetsMarkdown(assets []models.Asset, active string) string {
	var b strings.Builder
	b.WriteString("# Assets\n\n")
	if len(assets) == 0 {
		b.WriteString("No assets yet.\n")
		return b.String()
	}
	b.WriteString("| | Symbol | Name | ID |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, a := range assets {
		marker := ""
		if a.ID == active {
			marker = " *"
		}
		fmt.Fprintf(&b, "| %s | %s%s | %s | `%s` |\n",
			cell(holdings.Icon(a.Emoji, a.Symbol)), cell(a.Symbol), marker, cell(a.Label()), a.ID)
	}
	return b.String()
}

func holdingsMarkdown(rows []holdings.Holding, currency string) string {
	var b strings.Builder
	b.WriteString("# Holdings\n\n")
	if len(rows) == 0 {
		b.WriteString("No assets yet.\n")
		return b.String()
	}
	b.WriteString("| | Asset | Quantity | Value | Transactions |\n")
	b.WriteString("|---|---|---:|---:|---:|\n")
	for _, h := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
			cell(h.Icon), cell(h.Asset.Label()),
			holdings.FormatQuantity(h.NetQuantity),
			holdings.FormatValue(h.Value, h.HasValue, currency),
			h.TxCount)
	}
	return b.String()
}

func transactionsMarkdown(asset models.Asset, txs []models.Transaction, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s transactions\n\n", cell(asset.Label()))
	if len(txs) == 0 {
		b.WriteString("No transactions yet.\n")
		return b.String()
	}
	b.WriteString("| Date | Type | Quantity | Price | Fee | Note | ID |\n")
	b.WriteString("|---|---|---:|---:|---:|---|---|\n")
	for _, tx := range txs {
		price, fee := "", ""
		if tx.PriceUSD != nil {
			price = holdings.FormatValue(*tx.PriceUSD, true, currency)
		}
		if tx.FeeUSD != nil {
			fee = holdings.FormatValue(*tx.FeeUSD, true, currency)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | `%s` |\n",
			tx.At.Format("2006-01-02 15:04"), tx.Type,
			holdings.FormatQuantity(tx.Quantity), price, fee, optional(tx.Note), tx.ID)
	}
	return b.String()
}
