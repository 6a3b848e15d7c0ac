package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

// fakeGateway is an in-memory gateway. fail makes the named operation return
// an error; hooks run at the start of the named operation, outside the lock.
type fakeGateway struct {
	mu         sync.Mutex
	portfolios map[string]*models.Portfolio
	assets     map[string][]models.Asset
	txs        map[string][]models.Transaction
	prices     map[string]string
	nextID     int
	calls      []string
	fail       map[string]error
	hooks      map[string]func(args ...string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		portfolios: map[string]*models.Portfolio{},
		assets:     map[string][]models.Asset{},
		txs:        map[string][]models.Transaction{},
		prices:     map[string]string{},
		fail:       map[string]error{},
		hooks:      map[string]func(args ...string){},
	}
}

func (f *fakeGateway) enter(op string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	hook := f.hooks[op]
	f.mu.Unlock()

	if hook != nil {
		hook(args...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeGateway) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeGateway) setHook(op string, fn func(args ...string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeGateway) seedPortfolio(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vis := types.VisibilityPrivate
	f.portfolios[id] = &models.Portfolio{ID: id, Name: name, Kind: types.KindPersonal, Visibility: &vis}
}

func (f *fakeGateway) seedAsset(portfolioID, id, symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[portfolioID] = append([]models.Asset{{ID: id, Symbol: symbol}}, f.assets[portfolioID]...)
}

func (f *fakeGateway) seedTx(portfolioID string, tx models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[portfolioID] = append([]models.Transaction{tx}, f.txs[portfolioID]...)
}

func (f *fakeGateway) Login(ctx context.Context, creds models.Credentials) (*models.TokenResponse, error) {
	if err := f.enter("Login"); err != nil {
		return nil, err
	}
	return &models.TokenResponse{AccessToken: "token-for-" + creds.Email, TokenType: "bearer", ExpiresIn: 3600}, nil
}

func (f *fakeGateway) Me(ctx context.Context) (*models.Me, error) {
	if err := f.enter("Me"); err != nil {
		return nil, err
	}
	return &models.Me{ID: "u-1", Email: "user@example.com"}, nil
}

func (f *fakeGateway) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	if err := f.enter("ListPortfolios"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Portfolio
	for _, p := range f.portfolios {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeGateway) CreatePortfolio(ctx context.Context, draft models.PortfolioDraft) (*models.Portfolio, error) {
	if err := f.enter("CreatePortfolio"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	vis := draft.Visibility
	p := &models.Portfolio{ID: f.id("p"), Name: draft.Name, Emoji: draft.Emoji, Kind: types.KindPersonal, Visibility: &vis}
	f.portfolios[p.ID] = p
	out := *p
	return &out, nil
}

func (f *fakeGateway) GetPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	if err := f.enter("GetPortfolio", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.portfolios[portfolioID]
	if !ok {
		return nil, errors.NewGatewayError(http.StatusNotFound, "Portfolio not found")
	}
	out := *p
	return &out, nil
}

func (f *fakeGateway) UpdatePortfolio(ctx context.Context, portfolioID string, patch models.PortfolioPatch) (*models.Portfolio, error) {
	if err := f.enter("UpdatePortfolio", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.portfolios[portfolioID]
	if !ok {
		return nil, errors.NewGatewayError(http.StatusNotFound, "Portfolio not found")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Emoji != nil {
		p.Emoji = patch.Emoji
	}
	if patch.Visibility != nil {
		v := *patch.Visibility
		p.Visibility = &v
	}
	out := *p
	return &out, nil
}

func (f *fakeGateway) DeletePortfolio(ctx context.Context, portfolioID string) error {
	if err := f.enter("DeletePortfolio", portfolioID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.portfolios, portfolioID)
	return nil
}

func (f *fakeGateway) ClonePortfolio(ctx context.Context, sourceID string) (*models.Portfolio, error) {
	if err := f.enter("ClonePortfolio", sourceID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.portfolios[sourceID]
	if !ok {
		return nil, errors.NewGatewayError(http.StatusNotFound, "Portfolio not found")
	}
	p := &models.Portfolio{ID: f.id("p"), Name: src.Name, Kind: types.KindSubscribed}
	f.portfolios[p.ID] = p
	out := *p
	return &out, nil
}

// ImportBybitKeys creates a USDT asset with one transfer_in, like the real import
func (f *fakeGateway) ImportBybitKeys(ctx context.Context, portfolioID string, keys models.ExternalKeys) (*models.Portfolio, error) {
	if err := f.enter("ImportBybitKeys", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	assetID := f.id("a")
	f.assets[portfolioID] = append([]models.Asset{{ID: assetID, Symbol: "USDT"}}, f.assets[portfolioID]...)
	f.txs[portfolioID] = append([]models.Transaction{{
		ID: f.id("t"), AssetID: assetID, Type: types.TxTransferIn,
		Quantity: decimal.NewFromInt(100), At: time.Now().UTC(),
	}}, f.txs[portfolioID]...)
	out := *f.portfolios[portfolioID]
	return &out, nil
}

func (f *fakeGateway) ListAssets(ctx context.Context, portfolioID string) ([]models.Asset, error) {
	if err := f.enter("ListAssets", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Asset(nil), f.assets[portfolioID]...), nil
}

func (f *fakeGateway) CreateAsset(ctx context.Context, portfolioID string, draft models.AssetDraft) (*models.Asset, error) {
	if err := f.enter("CreateAsset", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := models.Asset{ID: f.id("a"), Symbol: draft.Symbol, DisplayName: draft.DisplayName, Emoji: draft.Emoji}
	f.assets[portfolioID] = append([]models.Asset{a}, f.assets[portfolioID]...)
	return &a, nil
}

func (f *fakeGateway) ListTransactions(ctx context.Context, portfolioID, assetID string) ([]models.Transaction, error) {
	if err := f.enter("ListTransactions", portfolioID, assetID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, tx := range f.txs[portfolioID] {
		if assetID == "" || tx.AssetID == assetID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func bodyToTx(id string, body models.TransactionBody) models.Transaction {
	return models.Transaction{
		ID: id, AssetID: body.AssetID, Type: body.Type, Quantity: body.Quantity,
		PriceUSD: body.PriceUSD, FeeUSD: body.FeeUSD, At: body.At, Note: body.Note, TxHash: body.TxHash,
	}
}

func (f *fakeGateway) CreateTransaction(ctx context.Context, portfolioID string, body models.TransactionBody) (*models.Transaction, error) {
	if err := f.enter("CreateTransaction", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := bodyToTx(f.id("t"), body)
	f.txs[portfolioID] = append([]models.Transaction{tx}, f.txs[portfolioID]...)
	return &tx, nil
}

func (f *fakeGateway) UpdateTransaction(ctx context.Context, portfolioID, txID string, body models.TransactionBody) (*models.Transaction, error) {
	if err := f.enter("UpdateTransaction", portfolioID, txID, body.Quantity.String()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, tx := range f.txs[portfolioID] {
		if tx.ID == txID {
			updated := bodyToTx(txID, body)
			f.txs[portfolioID][i] = updated
			return &updated, nil
		}
	}
	return nil, errors.NewGatewayError(http.StatusNotFound, "Transaction not found")
}

func (f *fakeGateway) DeleteTransaction(ctx context.Context, portfolioID, txID string) error {
	if err := f.enter("DeleteTransaction", portfolioID, txID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.txs[portfolioID]
	for i, tx := range list {
		if tx.ID == txID {
			f.txs[portfolioID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return errors.NewGatewayError(http.StatusNotFound, "Transaction not found")
}

func (f *fakeGateway) GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error) {
	if err := f.enter("GetTicker", symbol); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[symbol]
	if !ok {
		return nil, errors.NewGatewayError(http.StatusNotFound, "Ticker not found")
	}
	return &models.Quote{Symbol: symbol, Category: string(category), LastPrice: decimal.RequireFromString(price)}, nil
}
