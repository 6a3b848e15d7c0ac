package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	lerrors "github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/holdings"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

const quoteWait = 5 * time.Second

// openPortfolio resolves and selects the portfolio, loading its assets
func openPortfolio(ctx context.Context, a *app, id string) (string, error) {
	pid, err := resolvePortfolio(ctx, a, id)
	if err != nil {
		return "", err
	}
	if err := a.svc.SelectPortfolio(ctx, pid); err != nil {
		return "", err
	}
	return pid, nil
}

// findAsset matches ref against asset ids, then symbols
func findAsset(assets []models.Asset, ref string) (models.Asset, error) {
	for _, asset := range assets {
		if asset.ID == ref {
			return asset, nil
		}
	}
	for _, asset := range assets {
		if strings.EqualFold(asset.Symbol, ref) {
			return asset, nil
		}
	}
	return models.Asset{}, lerrors.NewValidationError("asset", fmt.Sprintf("No asset %q in this portfolio", ref))
}

// parseAt accepts RFC 3339 timestamps or plain dates; empty means now
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, lerrors.NewValidationError("at", "Date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

type assetsCmd struct {
	portfolio string
}

func (*assetsCmd) Name() string     { return "assets" }
func (*assetsCmd) Synopsis() string { return "list the assets of a portfolio" }
func (*assetsCmd) Usage() string    { return "ledgerctl assets [-p <portfolio>]\n" }

func (c *assetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
}

func (c *assetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		if _, err := openPortfolio(ctx, a, c.portfolio); err != nil {
			return report(err)
		}
		a.printMarkdown(assetsMarkdown(a.svc.Cache().Assets(), ""))
		return subcommands.ExitSuccess
	})
}

type addAssetCmd struct {
	portfolio string
	symbol    string
	name      string
	emoji     string
}

func (*addAssetCmd) Name() string     { return "add-asset" }
func (*addAssetCmd) Synopsis() string { return "add an asset to a portfolio" }
func (*addAssetCmd) Usage() string {
	return "ledgerctl add-asset [-p <portfolio>] -symbol <SYM> [-name <display name>] [-emoji <e>]\n"
}

func (c *addAssetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol, e.g. BTC")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.emoji, "emoji", "", "Emoji")
}

func (c *addAssetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := openPortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}
		draft := models.AssetDraft{Symbol: c.symbol, DisplayName: &c.name, Emoji: &c.emoji}
		asset, err := a.svc.AddAsset(ctx, pid, draft)
		if err != nil {
			return report(err)
		}
		a.printMarkdown(assetsMarkdown(a.svc.Cache().Assets(), asset.ID))
		return subcommands.ExitSuccess
	})
}

type holdingsCmd struct {
	portfolio string
	asset     string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "show net quantity and approximate value per asset" }
func (*holdingsCmd) Usage() string {
	return `ledgerctl holdings [-p <portfolio>] [-a <asset id or symbol>]

  With -a, the asset's transactions are listed as well.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
	f.StringVar(&c.asset, "a", "", "Only this asset")
}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		if _, err := openPortfolio(ctx, a, c.portfolio); err != nil {
			return report(err)
		}

		assets := a.svc.Cache().Assets()
		if c.asset != "" {
			asset, err := findAsset(assets, c.asset)
			if err != nil {
				return report(err)
			}
			assets = []models.Asset{asset}
		}

		rows := make([]holdings.Holding, 0, len(assets))
		for _, asset := range assets {
			h, err := c.holding(ctx, a, asset)
			if err != nil {
				return report(err)
			}
			rows = append(rows, h)
		}

		md := holdingsMarkdown(rows, a.cfg.Quote.Currency)
		if c.asset != "" && len(assets) == 1 {
			txs, _ := a.svc.Cache().Transactions(assets[0].ID)
			md += "\n" + transactionsMarkdown(assets[0], txs, a.cfg.Quote.Currency)
		}
		a.printMarkdown(md)
		return subcommands.ExitSuccess
	})
}

// holding selects asset so its ledger and quote load, then summarizes it
func (c *holdingsCmd) holding(ctx context.Context, a *app, asset models.Asset) (holdings.Holding, error) {
	if err := a.svc.SelectAsset(ctx, asset.ID); err != nil {
		return holdings.Holding{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, quoteWait)
	defer cancel()
	if err := a.svc.WaitForQuote(waitCtx); err != nil {
		a.logger.WithField("symbol", asset.Symbol).Warn("Quote did not arrive in time")
	}
	if state := a.svc.QuoteState(); state.Err != "" {
		a.logger.WithFields(map[string]interface{}{"symbol": asset.Symbol, "reason": state.Err}).Warn("Quote unavailable")
	}

	h, _ := a.svc.Holding(asset.ID)
	return h, nil
}

// txFlags are shared by add-tx and edit-tx
type txFlags struct {
	portfolio string
	asset     string
	typ       string
	quantity  string
	price     string
	fee       string
	at        string
	note      string
	hash      string
}

func (t *txFlags) register(f *flag.FlagSet) {
	f.StringVar(&t.portfolio, "p", "", "Portfolio id")
	f.StringVar(&t.asset, "a", "", "Asset id or symbol")
	f.StringVar(&t.typ, "type", "buy", "buy, sell, transfer_in or transfer_out")
	f.StringVar(&t.quantity, "qty", "", "Quantity")
	f.StringVar(&t.price, "price", "", "Unit price in USD (buy and sell only)")
	f.StringVar(&t.fee, "fee", "", "Fee in USD")
	f.StringVar(&t.at, "at", "", "Date, YYYY-MM-DD or RFC 3339 (default now)")
	f.StringVar(&t.note, "note", "", "Free-form note")
	f.StringVar(&t.hash, "hash", "", "On-chain transaction hash")
}

func (t *txFlags) draft(assetID string) (models.TransactionDraft, error) {
	at, err := parseAt(t.at)
	if err != nil {
		return models.TransactionDraft{}, err
	}
	typ, _ := types.ParseTxType(t.typ)
	return models.TransactionDraft{
		AssetID:  assetID,
		Type:     typ,
		Quantity: t.quantity,
		PriceUSD: t.price,
		FeeUSD:   t.fee,
		At:       at,
		Note:     t.note,
		TxHash:   t.hash,
	}, nil
}

type addTxCmd struct {
	txFlags
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a transaction" }
func (*addTxCmd) Usage() string {
	return "ledgerctl add-tx [-p <portfolio>] -a <asset> -type buy -qty 1.5 -price 100 [-fee 1] [-at 2025-01-02] [-note ...]\n"
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *addTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireFlag("a", c.asset) {
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := openPortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}
		asset, err := findAsset(a.svc.Cache().Assets(), c.asset)
		if err != nil {
			return report(err)
		}
		draft, err := c.draft(asset.ID)
		if err != nil {
			return report(err)
		}
		if err := a.svc.SelectAsset(ctx, asset.ID); err != nil {
			return report(err)
		}
		tx, err := a.svc.AddTransaction(ctx, pid, asset.ID, draft)
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(a.out, "Recorded %s %s %s (%s)\n", tx.Type, holdings.FormatQuantity(tx.Quantity), asset.Symbol, tx.ID)
		return subcommands.ExitSuccess
	})
}

type editTxCmd struct {
	txFlags
	id string
}

func (*editTxCmd) Name() string     { return "edit-tx" }
func (*editTxCmd) Synopsis() string { return "replace a transaction" }
func (*editTxCmd) Usage() string {
	return `ledgerctl edit-tx [-p <portfolio>] -id <tx> [-a <asset>] -type ... -qty ...

  Every field is replaced. Without -a the transaction stays on its current asset.
`
}

func (c *editTxCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.id, "id", "", "Transaction id")
}

func (c *editTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireFlag("id", c.id) {
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := openPortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}

		assetID := ""
		if c.asset != "" {
			asset, err := findAsset(a.svc.Cache().Assets(), c.asset)
			if err != nil {
				return report(err)
			}
			assetID = asset.ID
		} else if assetID, err = locateTransaction(ctx, a, c.id); err != nil {
			return report(err)
		}

		draft, err := c.draft(assetID)
		if err != nil {
			return report(err)
		}
		tx, err := a.svc.UpdateTransaction(ctx, pid, c.id, draft)
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(a.out, "Updated %s\n", tx.ID)
		return subcommands.ExitSuccess
	})
}

// locateTransaction loads ledgers until it finds the asset owning txID
func locateTransaction(ctx context.Context, a *app, txID string) (string, error) {
	for _, asset := range a.svc.Cache().Assets() {
		if err := a.svc.ReloadTransactions(ctx, asset.ID); err != nil {
			return "", err
		}
		if _, owner, ok := a.svc.Cache().FindTransaction(txID); ok {
			return owner, nil
		}
	}
	return "", lerrors.NewValidationError("transaction", fmt.Sprintf("No transaction %q in this portfolio", txID))
}

type rmTxCmd struct {
	portfolio string
	id        string
}

func (*rmTxCmd) Name() string     { return "rm-tx" }
func (*rmTxCmd) Synopsis() string { return "delete a transaction" }
func (*rmTxCmd) Usage() string    { return "ledgerctl rm-tx [-p <portfolio>] -id <tx>\n" }

func (c *rmTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
	f.StringVar(&c.id, "id", "", "Transaction id")
}

func (c *rmTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireFlag("id", c.id) {
		return subcommands.ExitUsageError
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := resolvePortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}
		if err := a.svc.DeleteTransaction(ctx, pid, c.id); err != nil {
			return report(err)
		}
		fmt.Fprintf(a.out, "Deleted %s\n", c.id)
		return subcommands.ExitSuccess
	})
}
