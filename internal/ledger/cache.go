// Package ledger holds the in-memory copy of the active portfolio's assets and
// their transaction histories.
package ledger

import (
	"sync"

	"github.com/ledger-sync/internal/models"
)

// Cache owns the asset list and per-asset transaction lists for one portfolio.
// All methods are synchronous and perform no I/O. Slices handed in are copied,
// and slices handed out are copies.
type Cache struct {
	mu sync.RWMutex

	portfolio *models.Portfolio
	assets    []models.Asset

	// transactionsByAsset only has entries for assets whose ledger was loaded
	transactionsByAsset map[string][]models.Transaction
	// owner maps transaction id to the asset it is cached under
	owner map[string]string

	activeAssetID string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		transactionsByAsset: make(map[string][]models.Transaction),
		owner:               make(map[string]string),
	}
}

// SetPortfolio replaces the active portfolio detail. Switching to a different
// portfolio id drops every cached asset and transaction.
func (c *Cache) SetPortfolio(p models.Portfolio) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.portfolio != nil && c.portfolio.ID != p.ID {
		c.resetLocked()
	}
	c.portfolio = &p
}

// Portfolio returns a copy of the active portfolio detail
func (c *Cache) Portfolio() (models.Portfolio, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.portfolio == nil {
		return models.Portfolio{}, false
	}
	return *c.portfolio, true
}

// PortfolioID returns the active portfolio id, or ""
func (c *Cache) PortfolioID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.portfolio == nil {
		return ""
	}
	return c.portfolio.ID
}

// UpdatePortfolio applies fn to the active portfolio if its id matches.
// It reports whether anything was applied.
func (c *Cache) UpdatePortfolio(portfolioID string, fn func(p *models.Portfolio)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.portfolio == nil || c.portfolio.ID != portfolioID {
		return false
	}
	fn(c.portfolio)
	return true
}

// SetAssets replaces the asset list. Ledgers of assets no longer listed are dropped.
func (c *Cache) SetAssets(assets []models.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.assets = append([]models.Asset(nil), assets...)

	listed := make(map[string]bool, len(assets))
	for _, a := range assets {
		listed[a.ID] = true
	}
	for assetID := range c.transactionsByAsset {
		if !listed[assetID] {
			c.dropLedgerLocked(assetID)
		}
	}
	if c.activeAssetID != "" && !listed[c.activeAssetID] {
		c.activeAssetID = ""
	}
}

// UpsertAsset replaces the asset with the same id in place, or prepends it
func (c *Cache) UpsertAsset(asset models.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.assets {
		if c.assets[i].ID == asset.ID {
			c.assets[i] = asset
			return
		}
	}
	c.assets = append([]models.Asset{asset}, c.assets...)
}

// Assets returns a copy of the asset list
func (c *Cache) Assets() []models.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]models.Asset(nil), c.assets...)
}

// Asset looks up a cached asset by id
func (c *Cache) Asset(assetID string) (models.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, a := range c.assets {
		if a.ID == assetID {
			return a, true
		}
	}
	return models.Asset{}, false
}

// SetActiveAsset points the selection at assetID; "" clears it
func (c *Cache) SetActiveAsset(assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeAssetID = assetID
}

// ActiveAsset returns the selected asset id, or ""
func (c *Cache) ActiveAsset() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeAssetID
}

// SetTransactions replaces the ledger of assetID. Any of the given transactions
// cached under another asset are moved here.
func (c *Cache) SetTransactions(assetID string, txs []models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLedgerLocked(assetID)
	list := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		c.detachLocked(tx.ID, assetID)
		tx.AssetID = assetID
		list = append(list, tx)
		c.owner[tx.ID] = assetID
	}
	c.transactionsByAsset[assetID] = list
}

// UpsertTransaction replaces the transaction with the same id in place, or
// prepends it. A transaction previously cached under a different asset is
// removed from there first.
func (c *Cache) UpsertTransaction(assetID string, tx models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked(tx.ID, assetID)
	tx.AssetID = assetID

	list := c.transactionsByAsset[assetID]
	for i := range list {
		if list[i].ID == tx.ID {
			list[i] = tx
			return
		}
	}

	updated := make([]models.Transaction, 0, len(list)+1)
	updated = append(updated, tx)
	updated = append(updated, list...)
	c.transactionsByAsset[assetID] = updated
	c.owner[tx.ID] = assetID
}

// RemoveTransaction deletes txID from the ledger of assetID.
// It reports whether the transaction was present.
func (c *Cache) RemoveTransaction(assetID, txID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.transactionsByAsset[assetID]
	for i := range list {
		if list[i].ID == txID {
			updated := make([]models.Transaction, 0, len(list)-1)
			updated = append(updated, list[:i]...)
			updated = append(updated, list[i+1:]...)
			c.transactionsByAsset[assetID] = updated
			delete(c.owner, txID)
			return true
		}
	}
	return false
}

// Transactions returns a copy of the ledger of assetID.
// The second value is false when that ledger has not been loaded.
func (c *Cache) Transactions(assetID string) ([]models.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.transactionsByAsset[assetID]
	if !ok {
		return nil, false
	}
	return append([]models.Transaction(nil), list...), true
}

// Loaded reports whether the ledger of assetID has been loaded
func (c *Cache) Loaded(assetID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.transactionsByAsset[assetID]
	return ok
}

// FindTransaction returns the cached transaction and the asset it lives under
func (c *Cache) FindTransaction(txID string) (models.Transaction, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	assetID, ok := c.owner[txID]
	if !ok {
		return models.Transaction{}, "", false
	}
	for _, tx := range c.transactionsByAsset[assetID] {
		if tx.ID == txID {
			return tx, assetID, true
		}
	}
	return models.Transaction{}, "", false
}

// Clear drops everything, including the active portfolio and asset
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.portfolio = nil
	c.resetLocked()
}

func (c *Cache) resetLocked() {
	c.assets = nil
	c.transactionsByAsset = make(map[string][]models.Transaction)
	c.owner = make(map[string]string)
	c.activeAssetID = ""
}

func (c *Cache) dropLedgerLocked(assetID string) {
	for _, tx := range c.transactionsByAsset[assetID] {
		if c.owner[tx.ID] == assetID {
			delete(c.owner, tx.ID)
		}
	}
	delete(c.transactionsByAsset, assetID)
}

// detachLocked removes txID from whichever asset other than keep holds it
func (c *Cache) detachLocked(txID, keep string) {
	prev, ok := c.owner[txID]
	if !ok || prev == keep {
		return
	}
	list := c.transactionsByAsset[prev]
	for i := range list {
		if list[i].ID == txID {
			updated := make([]models.Transaction, 0, len(list)-1)
			updated = append(updated, list[:i]...)
			updated = append(updated, list[i+1:]...)
			c.transactionsByAsset[prev] = updated
			break
		}
	}
	delete(c.owner, txID)
}
