package service

import (
	"context"
	"strings"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

// AddAsset creates an asset. On success it is prepended to the cache and made
// active when portfolioID is the active portfolio.
func (s *LedgerService) AddAsset(ctx context.Context, portfolioID string, draft models.AssetDraft) (*models.Asset, error) {
	draft, err := validateAssetDraft(draft)
	if err != nil {
		return nil, s.handleErr("add_asset", err)
	}

	asset, err := s.gateway.CreateAsset(ctx, portfolioID, draft)
	if err != nil {
		return nil, s.handleErr("add_asset", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"portfolioId": portfolioID,
		"assetId":     asset.ID,
		"symbol":      asset.Symbol,
	}).Info("Asset created")

	if s.cache.PortfolioID() == portfolioID {
		s.cache.UpsertAsset(*asset)
		s.cancelLoad(scopeTransactions)
		s.cache.SetTransactions(asset.ID, nil)
		s.cache.SetActiveAsset(asset.ID)
		s.refreshQuote(ctx, asset.Symbol)
	}
	return asset, nil
}

// AddTransaction records a transaction for assetID. Nothing is cached until the
// gateway returned the created transaction.
func (s *LedgerService) AddTransaction(ctx context.Context, portfolioID, assetID string, draft models.TransactionDraft) (*models.Transaction, error) {
	draft.AssetID = assetID
	body, err := validateTransactionDraft(draft, s.now())
	if err != nil {
		return nil, s.handleErr("add_transaction", err)
	}

	tx, err := s.gateway.CreateTransaction(ctx, portfolioID, body)
	if err != nil {
		return nil, s.handleErr("add_transaction", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"portfolioId":   portfolioID,
		"assetId":       assetID,
		"transactionId": tx.ID,
		"type":          tx.Type,
	}).Info("Transaction created")

	s.applyTransaction(portfolioID, assetID, *tx)
	return tx, nil
}

// UpdateTransaction replaces a transaction. On success the cached entry is
// replaced in place; a response overtaken by a later edit of the same
// transaction is not applied.
func (s *LedgerService) UpdateTransaction(ctx context.Context, portfolioID, txID string, draft models.TransactionDraft) (*models.Transaction, error) {
	if draft.AssetID == "" {
		if _, owner, ok := s.cache.FindTransaction(txID); ok {
			draft.AssetID = owner
		}
	}
	body, err := validateTransactionDraft(draft, s.now())
	if err != nil {
		return nil, s.handleErr("update_transaction", err)
	}

	version := s.guard.issue(txID)
	tx, err := s.gateway.UpdateTransaction(ctx, portfolioID, txID, body)
	if err != nil {
		return nil, s.handleErr("update_transaction", err)
	}

	logger := s.logger.WithFields(map[string]interface{}{
		"portfolioId":   portfolioID,
		"transactionId": txID,
		"version":       version,
	})
	if !s.guard.isLatest(txID, version) {
		logger.Debug("Discarding superseded transaction update")
		return tx, nil
	}
	logger.Info("Transaction updated")

	s.applyTransaction(portfolioID, body.AssetID, *tx)
	return tx, nil
}

// DeleteTransaction deletes a transaction and, once confirmed, drops it from the cache
func (s *LedgerService) DeleteTransaction(ctx context.Context, portfolioID, txID string) error {
	version := s.guard.issue(txID)
	if err := s.gateway.DeleteTransaction(ctx, portfolioID, txID); err != nil {
		return s.handleErr("delete_transaction", err)
	}
	s.guard.forget(txID)

	s.logger.WithFields(map[string]interface{}{
		"portfolioId":   portfolioID,
		"transactionId": txID,
		"version":       version,
	}).Info("Transaction deleted")

	if s.cache.PortfolioID() != portfolioID {
		return nil
	}
	if _, owner, ok := s.cache.FindTransaction(txID); ok {
		s.cache.RemoveTransaction(owner, txID)
		s.ledgerChanged(owner)
	}
	return nil
}

// applyTransaction caches a confirmed transaction if its ledger is loaded.
// Unloaded ledgers pick it up on their next load.
func (s *LedgerService) applyTransaction(portfolioID, assetID string, tx models.Transaction) {
	if s.cache.PortfolioID() != portfolioID {
		return
	}
	if tx.AssetID != "" {
		assetID = tx.AssetID
	}

	if s.cache.Loaded(assetID) {
		s.cache.UpsertTransaction(assetID, tx)
	} else if _, owner, ok := s.cache.FindTransaction(tx.ID); ok {
		// moved to an asset whose ledger is not loaded
		s.cache.RemoveTransaction(owner, tx.ID)
		s.ledgerChanged(owner)
	}
	s.ledgerChanged(assetID)
}

// ImportExternalKeys submits read-only exchange keys for a one-time balance
// pull. The keys go out in this request only. On success the asset list and
// the active asset's ledger are reloaded, since the import may have created both.
func (s *LedgerService) ImportExternalKeys(ctx context.Context, portfolioID string, keys models.ExternalKeys) (*models.Portfolio, error) {
	keys, err := validateExternalKeys(keys)
	if err != nil {
		return nil, s.handleErr("import_external_keys", err)
	}

	p, err := s.gateway.ImportBybitKeys(ctx, portfolioID, keys)
	if err != nil {
		return nil, s.handleErr("import_external_keys", err)
	}
	s.logger.WithField("portfolioId", portfolioID).Info("External import completed")

	if s.cache.PortfolioID() != portfolioID {
		return p, nil
	}
	s.cache.SetPortfolio(*p)

	// reload failures are recorded in LoadState; only an expired session is reported
	if err := s.ReloadAssets(ctx); err != nil && isReauth(err) {
		return p, err
	}
	if active := s.cache.ActiveAsset(); active != "" {
		if err := s.ReloadTransactions(ctx, active); err != nil && isReauth(err) {
			return p, err
		}
	}
	return p, nil
}

// UpdatePortfolioVisibility changes who can see a personal portfolio
func (s *LedgerService) UpdatePortfolioVisibility(ctx context.Context, portfolioID string, visibility types.Visibility) error {
	if err := validateVisibility(visibility); err != nil {
		return s.handleErr("update_visibility", err)
	}
	if p, ok := s.cache.Portfolio(); ok && p.ID == portfolioID && p.Kind == types.KindSubscribed {
		return s.handleErr("update_visibility", errors.NewValidationError("visibility", "Only personal portfolios have a visibility"))
	}

	updated, err := s.gateway.UpdatePortfolio(ctx, portfolioID, models.PortfolioPatch{Visibility: &visibility})
	if err != nil {
		return s.handleErr("update_visibility", err)
	}

	v := visibility
	if updated != nil && updated.Visibility != nil {
		v = *updated.Visibility
	}
	s.cache.UpdatePortfolio(portfolioID, func(p *models.Portfolio) { p.Visibility = &v })
	return nil
}

// UpdatePortfolio renames a portfolio or changes its emoji. Nil fields are left as they are.
func (s *LedgerService) UpdatePortfolio(ctx context.Context, portfolioID string, name, emoji *string) (*models.Portfolio, error) {
	var patch models.PortfolioPatch
	if name != nil {
		n, err := validatePortfolioName(*name)
		if err != nil {
			return nil, s.handleErr("update_portfolio", err)
		}
		patch.Name = &n
	}
	if emoji != nil {
		e := strings.TrimSpace(*emoji)
		if _, err := validateEmoji(&e); err != nil {
			return nil, s.handleErr("update_portfolio", err)
		}
		patch.Emoji = &e
	}
	if patch.Name == nil && patch.Emoji == nil {
		return nil, s.handleErr("update_portfolio", errors.NewValidationError("portfolio", "Nothing to update"))
	}

	updated, err := s.gateway.UpdatePortfolio(ctx, portfolioID, patch)
	if err != nil {
		return nil, s.handleErr("update_portfolio", err)
	}
	s.cache.UpdatePortfolio(portfolioID, func(p *models.Portfolio) { *p = *updated })
	return updated, nil
}
