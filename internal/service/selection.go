package service

import (
	"context"
	"strings"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/holdings"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/quote"
	"github.com/ledger-sync/internal/scope"
	"github.com/ledger-sync/internal/types"
)

// LoadState reports in-flight loads and the last error of each.
// A failed load keeps whatever was cached before it.
type LoadState struct {
	PortfolioLoading    bool
	AssetsLoading       bool
	TransactionsLoading bool
	PortfolioErr        string
	AssetsErr           string
	TransactionsErr     string
}

// LoadState returns a snapshot of the load state
func (s *LedgerService) LoadState() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

func (s *LedgerService) updateLoad(fn func(l *LoadState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.load)
}

// ListPortfolios lists the user's portfolios
func (s *LedgerService) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	list, err := s.gateway.ListPortfolios(ctx)
	if err != nil {
		return nil, s.handleErr("list_portfolios", err)
	}
	return list, nil
}

// CreatePortfolio creates a personal portfolio
func (s *LedgerService) CreatePortfolio(ctx context.Context, draft models.PortfolioDraft) (*models.Portfolio, error) {
	name, err := validatePortfolioName(draft.Name)
	if err != nil {
		return nil, s.handleErr("create_portfolio", err)
	}
	draft.Name = name
	if draft.Emoji, err = validateEmoji(draft.Emoji); err != nil {
		return nil, s.handleErr("create_portfolio", err)
	}
	if draft.Visibility == "" {
		draft.Visibility = types.VisibilityPrivate
	}
	if !draft.Visibility.Valid() {
		return nil, s.handleErr("create_portfolio", errors.NewValidationError("visibility", "Visibility must be public or private"))
	}

	p, err := s.gateway.CreatePortfolio(ctx, draft)
	if err != nil {
		return nil, s.handleErr("create_portfolio", err)
	}
	return p, nil
}

// ClonePortfolio copies another user's public portfolio
func (s *LedgerService) ClonePortfolio(ctx context.Context, sourceID string) (*models.Portfolio, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, s.handleErr("clone_portfolio", errors.NewValidationError("source_id", "Portfolio ID is required"))
	}

	p, err := s.gateway.ClonePortfolio(ctx, sourceID)
	if err != nil {
		return nil, s.handleErr("clone_portfolio", err)
	}
	return p, nil
}

// DeletePortfolio deletes a portfolio, dropping the cache if it was the active one
func (s *LedgerService) DeletePortfolio(ctx context.Context, portfolioID string) error {
	if err := s.gateway.DeletePortfolio(ctx, portfolioID); err != nil {
		return s.handleErr("delete_portfolio", err)
	}
	if s.cache.PortfolioID() == portfolioID {
		s.DeselectPortfolio()
	}
	return nil
}

// SelectPortfolio loads a portfolio's detail and asset list into the cache.
// If another selection starts before this one resolves, this one's results
// are dropped and nil is returned.
func (s *LedgerService) SelectPortfolio(ctx context.Context, portfolioID string) error {
	tok := s.beginLoad(scopePortfolio)
	defer s.scopes.End(tok)
	s.cancelLoad(scopeAssets)
	s.cancelLoad(scopeTransactions)

	logger := s.logger.WithField("portfolioId", portfolioID)

	p, err := s.gateway.GetPortfolio(ctx, portfolioID)
	if !tok.Active() {
		logger.Debug("Dropping stale portfolio load")
		s.endLoad(tok, nil)
		return nil
	}
	if err != nil {
		s.endLoad(tok, func(l *LoadState) { l.PortfolioErr = errors.UserMessage(err) })
		return s.handleErr("select_portfolio", err)
	}

	switching := s.cache.PortfolioID() != portfolioID
	if switching {
		s.quotes.Clear()
	}
	s.cache.SetPortfolio(*p)
	s.endLoad(tok, func(l *LoadState) {
		if switching {
			l.AssetsErr = ""
			l.TransactionsErr = ""
		}
	})

	return s.loadAssets(ctx, portfolioID, tok)
}

// DeselectPortfolio clears the cache and the quote and drops pending loads
func (s *LedgerService) DeselectPortfolio() {
	s.updateLoad(func(l *LoadState) {
		s.scopes.CancelAll()
		*l = LoadState{}
	})
	s.guard.reset()
	s.quotes.Clear()
	s.cache.Clear()
}

// ReloadAssets re-reads the active portfolio's asset list
func (s *LedgerService) ReloadAssets(ctx context.Context) error {
	portfolioID := s.cache.PortfolioID()
	if portfolioID == "" {
		return s.handleErr("reload_assets", errNoPortfolio())
	}
	return s.loadAssets(ctx, portfolioID, nil)
}

// loadAssets reads the asset list under its own scope token. parent, when set,
// must also still be active for the result to apply.
func (s *LedgerService) loadAssets(ctx context.Context, portfolioID string, parent *scope.Token) error {
	tok := s.beginLoad(scopeAssets)
	defer s.scopes.End(tok)

	assets, err := s.gateway.ListAssets(ctx, portfolioID)
	if !tok.Active() || (parent != nil && !parent.Active()) || s.cache.PortfolioID() != portfolioID {
		s.logger.WithField("portfolioId", portfolioID).Debug("Dropping stale asset load")
		s.endLoad(tok, nil)
		return nil
	}
	if err != nil {
		s.endLoad(tok, func(l *LoadState) { l.AssetsErr = errors.UserMessage(err) })
		return s.handleErr("load_assets", err)
	}

	activeBefore := s.cache.ActiveAsset()
	s.cache.SetAssets(assets)
	if activeBefore != "" && s.cache.ActiveAsset() == "" {
		s.quotes.Clear()
	}
	s.endLoad(tok, nil)
	return nil
}

// SelectAsset makes assetID active, loads its ledger and refreshes its quote
func (s *LedgerService) SelectAsset(ctx context.Context, assetID string) error {
	asset, ok := s.cache.Asset(assetID)
	if !ok {
		return s.handleErr("select_asset", errUnknownAsset())
	}

	s.cache.SetActiveAsset(assetID)
	s.refreshQuote(ctx, asset.Symbol)
	return s.ReloadTransactions(ctx, assetID)
}

// DeselectAsset clears the asset selection and its quote
func (s *LedgerService) DeselectAsset() {
	s.cancelLoad(scopeTransactions)
	s.cache.SetActiveAsset("")
	s.quotes.Clear()
}

// ReloadTransactions re-reads the ledger of assetID, which must be listed in
// the active portfolio
func (s *LedgerService) ReloadTransactions(ctx context.Context, assetID string) error {
	portfolioID := s.cache.PortfolioID()
	if portfolioID == "" {
		return s.handleErr("reload_transactions", errNoPortfolio())
	}
	if _, ok := s.cache.Asset(assetID); !ok {
		return s.handleErr("reload_transactions", errUnknownAsset())
	}

	tok := s.beginLoad(scopeTransactions)
	defer s.scopes.End(tok)

	txs, err := s.gateway.ListTransactions(ctx, portfolioID, assetID)
	_, listed := s.cache.Asset(assetID)
	if !tok.Active() || s.cache.PortfolioID() != portfolioID || !listed {
		s.logger.WithFields(map[string]interface{}{
			"portfolioId": portfolioID,
			"assetId":     assetID,
		}).Debug("Dropping stale transaction load")
		s.endLoad(tok, nil)
		return nil
	}
	if err != nil {
		s.endLoad(tok, func(l *LoadState) { l.TransactionsErr = errors.UserMessage(err) })
		return s.handleErr("load_transactions", err)
	}

	s.cache.SetTransactions(assetID, txs)
	s.endLoad(tok, nil)
	s.ledgerChanged(assetID)
	return nil
}

// beginLoad issues a token for key and marks its load as pending
func (s *LedgerService) beginLoad(key string) *scope.Token {
	var tok *scope.Token
	s.updateLoad(func(l *LoadState) {
		tok = s.scopes.Begin(key)
		l.setLoading(key, true)
	})
	return tok
}

// endLoad clears the pending flag of tok's load unless a newer load for the
// same key has taken over. fn runs under the same lock.
func (s *LedgerService) endLoad(tok *scope.Token, fn func(l *LoadState)) {
	s.updateLoad(func(l *LoadState) {
		if !s.scopes.Superseded(tok) {
			l.setLoading(tok.Key(), false)
		}
		if fn != nil {
			fn(l)
		}
	})
}

// cancelLoad drops the in-flight load for key, if any
func (s *LedgerService) cancelLoad(key string) {
	s.updateLoad(func(l *LoadState) {
		s.scopes.Cancel(key)
		l.setLoading(key, false)
	})
}

// setLoading flips the pending flag for a scope key. Starting a load clears
// its previous error.
func (l *LoadState) setLoading(key string, on bool) {
	switch key {
	case scopePortfolio:
		l.PortfolioLoading = on
		if on {
			l.PortfolioErr = ""
		}
	case scopeAssets:
		l.AssetsLoading = on
		if on {
			l.AssetsErr = ""
		}
	case scopeTransactions:
		l.TransactionsLoading = on
		if on {
			l.TransactionsErr = ""
		}
	}
}

// QuoteState returns the quote of the active asset
func (s *LedgerService) QuoteState() quote.State {
	return s.quotes.State()
}

// WaitForQuote blocks until the most recently started quote fetch resolved
func (s *LedgerService) WaitForQuote(ctx context.Context) error {
	s.mu.Lock()
	done := s.quoteDone
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Holding derives the holding of a cached asset. The quote is only used when
// assetID is the active asset. The second value is false when the asset or its
// ledger is not cached.
func (s *LedgerService) Holding(assetID string) (holdings.Holding, bool) {
	asset, ok := s.cache.Asset(assetID)
	if !ok {
		return holdings.Holding{}, false
	}
	txs, ok := s.cache.Transactions(assetID)
	if !ok {
		return holdings.Holding{}, false
	}

	var q *models.Quote
	if s.cache.ActiveAsset() == assetID {
		state := s.quotes.State()
		if state.Symbol == strings.ToUpper(asset.Symbol) {
			q = state.Quote
		}
	}
	return holdings.Summarize(asset, txs, q), true
}

// ActiveHolding derives the holding of the active asset
func (s *LedgerService) ActiveHolding() (holdings.Holding, bool) {
	return s.Holding(s.cache.ActiveAsset())
}

func (s *LedgerService) refreshQuote(ctx context.Context, symbol string) {
	// the fetch outlives the call that triggered it
	done := s.quotes.Select(context.WithoutCancel(ctx), symbol)
	s.mu.Lock()
	s.quoteDone = done
	s.mu.Unlock()
}

func (s *LedgerService) quoteChanged(quote.State) {
	s.notifyHolding(s.cache.ActiveAsset())
}

func (s *LedgerService) ledgerChanged(assetID string) {
	if assetID == s.cache.ActiveAsset() {
		s.notifyHolding(assetID)
	}
}

func (s *LedgerService) notifyHolding(assetID string) {
	s.mu.Lock()
	fn := s.onHolding
	s.mu.Unlock()
	if fn == nil || assetID == "" {
		return
	}
	if h, ok := s.Holding(assetID); ok {
		fn(h)
	}
}

func errNoPortfolio() error {
	return errors.NewValidationError("portfolio_id", "No portfolio selected")
}

func errUnknownAsset() error {
	return errors.NewValidationError("asset_id", "Unknown asset")
}
