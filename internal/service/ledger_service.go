// Package service implements the ledger sync controller: selection and loading
// of portfolios, assets and ledgers, and confirmed mutations against the gateway.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/holdings"
	"github.com/ledger-sync/internal/ledger"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/quote"
	"github.com/ledger-sync/internal/scope"
	"github.com/ledger-sync/internal/session"
	"github.com/ledger-sync/internal/types"
)

// ErrReauthRequired is returned (wrapped) when the gateway rejected the session.
// The session has already been cleared when a caller sees it.
var ErrReauthRequired = stderrors.New("session expired, sign in again")

// Gateway is the subset of the gateway client the service depends on
type Gateway interface {
	Login(ctx context.Context, creds models.Credentials) (*models.TokenResponse, error)
	Me(ctx context.Context) (*models.Me, error)

	ListPortfolios(ctx context.Context) ([]models.Portfolio, error)
	CreatePortfolio(ctx context.Context, draft models.PortfolioDraft) (*models.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolioID string, patch models.PortfolioPatch) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID string) error
	ClonePortfolio(ctx context.Context, sourceID string) (*models.Portfolio, error)
	ImportBybitKeys(ctx context.Context, portfolioID string, keys models.ExternalKeys) (*models.Portfolio, error)

	ListAssets(ctx context.Context, portfolioID string) ([]models.Asset, error)
	CreateAsset(ctx context.Context, portfolioID string, draft models.AssetDraft) (*models.Asset, error)

	ListTransactions(ctx context.Context, portfolioID, assetID string) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, portfolioID string, body models.TransactionBody) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, portfolioID, txID string, body models.TransactionBody) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, portfolioID, txID string) error

	GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error)
}

// scope keys for navigation-triggered loads
const (
	scopePortfolio    = "portfolio"
	scopeAssets       = "assets"
	scopeTransactions = "transactions"
)

// LedgerService keeps the ledger cache in step with the gateway.
// Mutations commit to the cache only after the gateway confirmed them.
type LedgerService struct {
	gateway Gateway
	session *session.Context
	cache   *ledger.Cache
	quotes  *quote.Refresher
	scopes  *scope.Tracker
	guard   *versionGuard
	logger  *logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	load      LoadState
	quoteDone <-chan struct{}
	onHolding func(holdings.Holding)
}

// NewLedgerService creates a service on top of gateway.
// sess must be the same session context the gateway client authenticates with.
func NewLedgerService(gateway Gateway, sess *session.Context, category types.QuoteCategory, logger *logging.Logger) *LedgerService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("component", "ledger_service")

	s := &LedgerService{
		gateway: gateway,
		session: sess,
		cache:   ledger.NewCache(),
		scopes:  scope.NewTracker(),
		guard:   newVersionGuard(),
		logger:  logger,
		now:     time.Now,
	}
	s.quotes = quote.NewRefresher(authAwareTicker{s}, category, logger)
	s.quotes.OnChange(s.quoteChanged)
	return s
}

// Cache exposes the ledger cache for read access
func (s *LedgerService) Cache() *ledger.Cache {
	return s.cache
}

// Session returns the session context the service clears on expiry
func (s *LedgerService) Session() *session.Context {
	return s.session
}

// OnHoldingChange registers fn to receive the active asset's holding whenever
// its ledger or quote changes
func (s *LedgerService) OnHoldingChange(fn func(holdings.Holding)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHolding = fn
}

// Login exchanges credentials for a token and stores it in the session
func (s *LedgerService) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.NewValidationError("credentials", "Email and password are required")
	}

	resp, err := s.gateway.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		// a rejected login is not an expired session
		s.logger.WithError(err).Warn("Login failed")
		return err
	}
	if s.session != nil && s.session.Holder != nil {
		s.session.Holder.SetToken(resp.AccessToken)
	}
	s.logger.Info("Logged in")
	return nil
}

// Logout clears the session and everything cached for it
func (s *LedgerService) Logout() {
	if s.session != nil && s.session.Holder != nil {
		s.session.Holder.Clear()
	}
	s.DeselectPortfolio()
}

// Me returns the authenticated user
func (s *LedgerService) Me(ctx context.Context) (*models.Me, error) {
	me, err := s.gateway.Me(ctx)
	if err != nil {
		return nil, s.handleErr("me", err)
	}
	return me, nil
}

// handleErr applies the failure policy shared by every operation: a 401 clears
// the session and becomes ErrReauthRequired, anything else is returned as is.
func (s *LedgerService) handleErr(op string, err error) error {
	if err == nil {
		return nil
	}

	logger := s.logger.WithField("operation", op).WithError(err)
	if errors.IsAuthExpired(err) {
		logger.Warn("Session rejected by gateway, clearing credential")
		s.session.Expire()
		return fmt.Errorf("%w: %w", ErrReauthRequired, err)
	}

	if errors.IsValidation(err) {
		logger.Debug("Rejected by validation")
	} else {
		logger.Warn("Operation failed")
	}
	return err
}

// authAwareTicker routes quote failures through the service's auth policy
type authAwareTicker struct {
	s *LedgerService
}

func (a authAwareTicker) GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error) {
	q, err := a.s.gateway.GetTicker(ctx, symbol, category)
	if err != nil && errors.IsAuthExpired(err) {
		return nil, a.s.handleErr("quote", err)
	}
	return q, err
}

// Result is the discriminated outcome of an operation, ready for inline display
type Result struct {
	OK             bool
	Message        string
	ReauthRequired bool
}

// Outcome maps an operation's error to a Result
func Outcome(err error) Result {
	if err == nil {
		return Result{OK: true}
	}
	if stderrors.Is(err, ErrReauthRequired) {
		return Result{Message: ErrReauthRequired.Error(), ReauthRequired: true}
	}
	return Result{Message: errors.UserMessage(err)}
}

func isReauth(err error) bool {
	return stderrors.Is(err, ErrReauthRequired)
}
