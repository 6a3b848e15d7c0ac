package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

func portfolioPath(portfolioID string) string {
	return "/v1/portfolios/" + url.PathEscape(portfolioID)
}

// Health checks gateway liveness
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.Call(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Auth

// Register asks the gateway to create an account; the password is delivered out of band
func (c *Client) Register(ctx context.Context, email string) error {
	return c.Call(ctx, http.MethodPost, "/v1/auth/register", map[string]string{"email": email}, nil)
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.TokenResponse, error) {
	var out models.TokenResponse
	if err := c.Call(ctx, http.MethodPost, "/v1/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated user
func (c *Client) Me(ctx context.Context) (*models.Me, error) {
	var out models.Me
	if err := c.Call(ctx, http.MethodGet, "/v1/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolios

func (c *Client) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	var out []models.Portfolio
	if err := c.Call(ctx, http.MethodGet, "/v1/portfolios", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePortfolio(ctx context.Context, draft models.PortfolioDraft) (*models.Portfolio, error) {
	var out models.Portfolio
	if err := c.Call(ctx, http.MethodPost, "/v1/portfolios", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	var out models.Portfolio
	if err := c.Call(ctx, http.MethodGet, portfolioPath(portfolioID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePortfolio(ctx context.Context, portfolioID string, patch models.PortfolioPatch) (*models.Portfolio, error) {
	var out models.Portfolio
	if err := c.Call(ctx, http.MethodPut, portfolioPath(portfolioID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePortfolio(ctx context.Context, portfolioID string) error {
	return c.Call(ctx, http.MethodDelete, portfolioPath(portfolioID), nil, nil)
}

// ClonePortfolio copies another user's public portfolio into a new subscribed one
func (c *Client) ClonePortfolio(ctx context.Context, sourceID string) (*models.Portfolio, error) {
	var out models.Portfolio
	if err := c.Call(ctx, http.MethodPost, "/v1/portfolios/import", models.CloneRequest{SourceID: sourceID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportBybitKeys submits read-only exchange keys for a one-time balance pull
func (c *Client) ImportBybitKeys(ctx context.Context, portfolioID string, keys models.ExternalKeys) (*models.Portfolio, error) {
	var out models.Portfolio
	if err := c.Call(ctx, http.MethodPost, portfolioPath(portfolioID)+"/import/bybit", keys, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Assets

func (c *Client) ListAssets(ctx context.Context, portfolioID string) ([]models.Asset, error) {
	var out []models.Asset
	if err := c.Call(ctx, http.MethodGet, portfolioPath(portfolioID)+"/assets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAsset(ctx context.Context, portfolioID string, draft models.AssetDraft) (*models.Asset, error) {
	var out models.Asset
	if err := c.Call(ctx, http.MethodPost, portfolioPath(portfolioID)+"/assets", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions

// ListTransactions lists a portfolio's transactions, most recent first.
// An empty assetID lists every asset's transactions.
func (c *Client) ListTransactions(ctx context.Context, portfolioID, assetID string) ([]models.Transaction, error) {
	path := portfolioPath(portfolioID) + "/transactions"
	if assetID != "" {
		path += "?" + url.Values{"asset_id": {assetID}}.Encode()
	}

	var out []models.Transaction
	if err := c.Call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, portfolioID string, body models.TransactionBody) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.Call(ctx, http.MethodPost, portfolioPath(portfolioID)+"/transactions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, portfolioID, txID string, body models.TransactionBody) (*models.Transaction, error) {
	var out models.Transaction
	path := portfolioPath(portfolioID) + "/transactions/" + url.PathEscape(txID)
	if err := c.Call(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, portfolioID, txID string) error {
	path := portfolioPath(portfolioID) + "/transactions/" + url.PathEscape(txID)
	return c.Call(ctx, http.MethodDelete, path, nil, nil)
}

// Market

// GetTicker fetches the latest quote for symbol in the given market category
func (c *Client) GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error) {
	path := "/v1/market/bybit/ticker/" + url.PathEscape(symbol) + "?" + url.Values{"category": {string(category)}}.Encode()

	var out models.Quote
	if err := c.Call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
