package api

import (
	stderrors "errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

// StoreError is a failure the handlers turn into a {"detail": ...} response
type StoreError struct {
	Status int
	Detail string
}

func (e *StoreError) Error() string { return e.Detail }

func storeErr(status int, detail string) *StoreError {
	return &StoreError{Status: status, Detail: detail}
}

var (
	errPortfolioNotFound   = storeErr(http.StatusNotFound, "Portfolio not found")
	errAssetNotFound       = storeErr(http.StatusNotFound, "Asset not found")
	errTransactionNotFound = storeErr(http.StatusNotFound, "Transaction not found")
	errInvalidCredentials  = storeErr(http.StatusUnauthorized, "Invalid credentials")
)

// stablecoins are skipped by exchange imports
var stablecoins = map[string]bool{"USDT": true, "USDC": true, "DAI": true}

// minImportValue is the smallest USD value an imported balance must have
var minImportValue = decimal.RequireFromString("0.5")

type user struct {
	id       string
	email    string
	password string
}

type portfolioRecord struct {
	userID    string
	portfolio models.Portfolio
	assets    []models.Asset
	txs       []models.Transaction
}

// Store is the stub gateway's in-memory state. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	defaultPassword string
	users           map[string]*user // by email
	tokens          map[string]string
	portfolios      map[string]*portfolioRecord
	tickers         map[types.QuoteCategory]map[string]models.Quote
	external        map[string]decimal.Decimal
	now             func() time.Time
}

// NewStore creates an empty store. Registered users get defaultPassword.
func NewStore(defaultPassword string) *Store {
	return &Store{
		defaultPassword: defaultPassword,
		users:           make(map[string]*user),
		tokens:          make(map[string]string),
		portfolios:      make(map[string]*portfolioRecord),
		tickers:         make(map[types.QuoteCategory]map[string]models.Quote),
		external:        make(map[string]decimal.Decimal),
		now:             time.Now,
	}
}

// AddUser creates or replaces a user and returns its id
func (s *Store) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	u := &user{id: uuid.NewString(), email: email, password: password}
	s.users[email] = u
	return u.id
}

// SetTicker publishes a quote. The symbol is the full pair, e.g. BTCUSDT.
func (s *Store) SetTicker(category types.QuoteCategory, q models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tickers[category] == nil {
		s.tickers[category] = make(map[string]models.Quote)
	}
	q.Category = string(category)
	q.Symbol = strings.ToUpper(q.Symbol)
	s.tickers[category][q.Symbol] = q
}

// SetExternalBalances sets the coin balances an exchange import will find
func (s *Store) SetExternalBalances(balances map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.external = make(map[string]decimal.Decimal, len(balances))
	for coin, qty := range balances {
		s.external[strings.ToUpper(coin)] = qty
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Auth

func (s *Store) Register(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return storeErr(http.StatusUnprocessableEntity, "Invalid email")
	}
	if _, ok := s.users[email]; ok {
		return storeErr(http.StatusConflict, "User already exists")
	}
	s.users[email] = &user{id: uuid.NewString(), email: email, password: s.defaultPassword}
	return nil
}

func (s *Store) Login(email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[normalizeEmail(email)]
	if !ok || u.password != password {
		return "", errInvalidCredentials
	}
	token := uuid.NewString()
	s.tokens[token] = u.id
	return token, nil
}

// IssueToken creates a token for userID without a password check
func (s *Store) IssueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

// RevokeToken invalidates token; later requests with it get a 401
func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Authenticate resolves a bearer token to a user id
func (s *Store) Authenticate(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	return id, ok
}

func (s *Store) Me(userID string) (*models.Me, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.id == userID {
			return &models.Me{ID: u.id, Email: u.email}, nil
		}
	}
	return nil, storeErr(http.StatusUnauthorized, "Not authenticated")
}

// Portfolios

func (s *Store) owned(userID, portfolioID string) (*portfolioRecord, error) {
	rec, ok := s.portfolios[portfolioID]
	if !ok || rec.userID != userID {
		return nil, errPortfolioNotFound
	}
	return rec, nil
}

func (s *Store) ListPortfolios(userID string) []models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Portfolio{}
	for _, rec := range s.portfolios {
		if rec.userID == userID {
			out = append(out, rec.portfolio)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(*out[j].CreatedAt)
	})
	return out
}

func (s *Store) CreatePortfolio(userID string, draft models.PortfolioDraft) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(draft.Name)
	if n := len([]rune(name)); n < 1 || n > 64 {
		return nil, storeErr(http.StatusUnprocessableEntity, "name must be 1-64 characters")
	}
	vis := draft.Visibility
	if vis == "" {
		vis = types.VisibilityPrivate
	}
	if !vis.Valid() {
		return nil, storeErr(http.StatusUnprocessableEntity, "visibility must be public or private")
	}

	created := s.now().UTC()
	p := models.Portfolio{
		ID:         uuid.NewString(),
		Name:       name,
		Emoji:      trimmedOrNil(draft.Emoji),
		BalanceUSD: decimal.Zero,
		PnlDayUSD:  decimal.Zero,
		Kind:       types.KindPersonal,
		Visibility: &vis,
		CreatedAt:  &created,
	}
	s.portfolios[p.ID] = &portfolioRecord{userID: userID, portfolio: p}
	return &p, nil
}

func (s *Store) GetPortfolio(userID, portfolioID string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	p := rec.portfolio
	return &p, nil
}

func (s *Store) UpdatePortfolio(userID, portfolioID string, patch models.PortfolioPatch) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if n := len([]rune(name)); n < 1 || n > 64 {
			return nil, storeErr(http.StatusUnprocessableEntity, "name must be 1-64 characters")
		}
		rec.portfolio.Name = name
	}
	if patch.Emoji != nil {
		rec.portfolio.Emoji = trimmedOrNil(patch.Emoji)
	}
	if patch.Visibility != nil {
		if rec.portfolio.Kind == types.KindSubscribed {
			return nil, storeErr(http.StatusBadRequest, "Only personal portfolios have a visibility")
		}
		if !patch.Visibility.Valid() {
			return nil, storeErr(http.StatusUnprocessableEntity, "visibility must be public or private")
		}
		v := *patch.Visibility
		rec.portfolio.Visibility = &v
	}
	p := rec.portfolio
	return &p, nil
}

func (s *Store) DeletePortfolio(userID, portfolioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(userID, portfolioID); err != nil {
		return err
	}
	delete(s.portfolios, portfolioID)
	return nil
}

// ClonePortfolio copies a public portfolio, with its assets and transactions,
// into a new subscribed portfolio of userID
func (s *Store) ClonePortfolio(userID, sourceID string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.portfolios[sourceID]
	if !ok {
		return nil, storeErr(http.StatusNotFound, "Source portfolio not found")
	}
	if src.portfolio.Visibility == nil || *src.portfolio.Visibility != types.VisibilityPublic {
		return nil, storeErr(http.StatusForbidden, "Source portfolio is private")
	}

	created := s.now().UTC()
	private := types.VisibilityPrivate
	clone := &portfolioRecord{userID: userID, portfolio: src.portfolio}
	clone.portfolio.ID = uuid.NewString()
	clone.portfolio.Kind = types.KindSubscribed
	clone.portfolio.Visibility = &private
	clone.portfolio.CreatedAt = &created

	assetIDs := make(map[string]string, len(src.assets))
	for _, a := range src.assets {
		na := a
		na.ID = uuid.NewString()
		assetIDs[a.ID] = na.ID
		clone.assets = append(clone.assets, na)
	}
	for _, tx := range src.txs {
		nt := tx
		nt.ID = uuid.NewString()
		nt.AssetID = assetIDs[tx.AssetID]
		clone.txs = append(clone.txs, nt)
	}

	s.portfolios[clone.portfolio.ID] = clone
	p := clone.portfolio
	return &p, nil
}

// ImportExternal adds a transfer_in for every configured exchange balance worth
// at least minImportValue, creating assets as needed. The keys are only checked
// for shape; nothing about them is kept.
func (s *Store) ImportExternal(userID, portfolioID string, keys models.ExternalKeys) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(keys.APIKey); n < 6 || n > 128 {
		return nil, storeErr(http.StatusUnprocessableEntity, "api_key must be 6-128 characters")
	}
	if n := len(keys.APISecret); n < 6 || n > 256 {
		return nil, storeErr(http.StatusUnprocessableEntity, "api_secret must be 6-256 characters")
	}

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := "Imported from Bybit"
	for coin, qty := range s.external {
		if stablecoins[coin] {
			continue
		}
		q, ok := s.tickerLocked(types.CategorySpot, coin+"USDT")
		if !ok || !q.LastPrice.IsPositive() || qty.Mul(q.LastPrice).LessThan(minImportValue) {
			continue
		}

		asset := s.assetBySymbolLocked(rec, coin)
		if asset == nil {
			name := coin
			rec.assets = append(rec.assets, models.Asset{ID: uuid.NewString(), Symbol: coin, DisplayName: &name})
			asset = &rec.assets[len(rec.assets)-1]
		}
		rec.txs = append(rec.txs, models.Transaction{
			ID:       uuid.NewString(),
			AssetID:  asset.ID,
			Type:     types.TxTransferIn,
			Quantity: qty,
			At:       now,
			Note:     &note,
		})
	}

	s.recalcLocked(rec)
	p := rec.portfolio
	return &p, nil
}

// Assets

func (s *Store) assetBySymbolLocked(rec *portfolioRecord, symbol string) *models.Asset {
	for i := range rec.assets {
		if strings.EqualFold(rec.assets[i].Symbol, symbol) {
			return &rec.assets[i]
		}
	}
	return nil
}

func (s *Store) ListAssets(userID, portfolioID string) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	out := append([]models.Asset{}, rec.assets...)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Store) CreateAsset(userID, portfolioID string, draft models.AssetDraft) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(draft.Symbol))
	if symbol == "" {
		return nil, storeErr(http.StatusBadRequest, "symbol is required")
	}
	if n := len([]rune(symbol)); n < 2 || n > 16 {
		return nil, storeErr(http.StatusUnprocessableEntity, "symbol must be 2-16 characters")
	}
	if s.assetBySymbolLocked(rec, symbol) != nil {
		return nil, storeErr(http.StatusConflict, "Asset with this symbol already exists")
	}

	display := symbol
	if draft.DisplayName != nil && strings.TrimSpace(*draft.DisplayName) != "" {
		display = strings.TrimSpace(*draft.DisplayName)
	}
	a := models.Asset{ID: uuid.NewString(), Symbol: symbol, DisplayName: &display, Emoji: trimmedOrNil(draft.Emoji)}
	rec.assets = append(rec.assets, a)
	return &a, nil
}

// Transactions

func (s *Store) ListTransactions(userID, portfolioID, assetID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if assetID != "" && !hasAsset(rec, assetID) {
		return nil, errAssetNotFound
	}

	out := []models.Transaction{}
	for _, tx := range rec.txs {
		if assetID == "" || tx.AssetID == assetID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out, nil
}

func (s *Store) CreateTransaction(userID, portfolioID string, body models.TransactionBody) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	tx, err := checkTransactionBody(rec, body)
	if err != nil {
		return nil, err
	}
	tx.ID = uuid.NewString()
	rec.txs = append(rec.txs, tx)
	s.recalcLocked(rec)
	return &tx, nil
}

func (s *Store) UpdateTransaction(userID, portfolioID, txID string, body models.TransactionBody) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	idx := indexOfTx(rec, txID)
	if idx < 0 {
		return nil, errTransactionNotFound
	}
	tx, err := checkTransactionBody(rec, body)
	if err != nil {
		return nil, err
	}
	tx.ID = txID
	rec.txs[idx] = tx
	s.recalcLocked(rec)
	return &tx, nil
}

func (s *Store) DeleteTransaction(userID, portfolioID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.owned(userID, portfolioID)
	if err != nil {
		return err
	}
	idx := indexOfTx(rec, txID)
	if idx < 0 {
		return errTransactionNotFound
	}
	rec.txs = append(rec.txs[:idx], rec.txs[idx+1:]...)
	s.recalcLocked(rec)
	return nil
}

func hasAsset(rec *portfolioRecord, assetID string) bool {
	for _, a := range rec.assets {
		if a.ID == assetID {
			return true
		}
	}
	return false
}

func indexOfTx(rec *portfolioRecord, txID string) int {
	for i, tx := range rec.txs {
		if tx.ID == txID {
			return i
		}
	}
	return -1
}

func checkTransactionBody(rec *portfolioRecord, body models.TransactionBody) (models.Transaction, error) {
	if !hasAsset(rec, body.AssetID) {
		return models.Transaction{}, errAssetNotFound
	}
	if !body.Type.Valid() {
		return models.Transaction{}, storeErr(http.StatusUnprocessableEntity, "type must be buy, sell, transfer_in or transfer_out")
	}
	if !body.Quantity.IsPositive() {
		return models.Transaction{}, storeErr(http.StatusBadRequest, "quantity must be > 0")
	}
	if body.Type.Priced() && body.PriceUSD == nil {
		return models.Transaction{}, storeErr(http.StatusBadRequest, "price_usd is required for buy/sell")
	}
	at := body.At
	if at.IsZero() {
		return models.Transaction{}, storeErr(http.StatusUnprocessableEntity, "at is required")
	}
	return models.Transaction{
		AssetID:  body.AssetID,
		Type:     body.Type,
		Quantity: body.Quantity,
		PriceUSD: body.PriceUSD,
		FeeUSD:   body.FeeUSD,
		At:       at.UTC(),
		Note:     body.Note,
		TxHash:   body.TxHash,
	}, nil
}

// recalcLocked recomputes the server-side balance and daily P/L from positions
// and the spot (falling back to linear) tickers
func (s *Store) recalcLocked(rec *portfolioRecord) {
	positions := make(map[string]decimal.Decimal)
	for _, tx := range rec.txs {
		if tx.Type.Inflow() {
			positions[tx.AssetID] = positions[tx.AssetID].Add(tx.Quantity)
		} else {
			positions[tx.AssetID] = positions[tx.AssetID].Sub(tx.Quantity)
		}
	}

	balance, pnl := decimal.Zero, decimal.Zero
	for _, a := range rec.assets {
		qty := positions[a.ID]
		if qty.IsZero() {
			continue
		}
		q, ok := s.resolveTickerLocked(types.CategorySpot, strings.ToUpper(a.Symbol)+"USDT", true)
		if !ok {
			continue
		}
		value := qty.Mul(q.LastPrice)
		balance = balance.Add(value)
		pnl = pnl.Add(value.Mul(q.Price24hPcnt))
	}
	rec.portfolio.BalanceUSD = balance.Round(2)
	rec.portfolio.PnlDayUSD = pnl.Round(2)
}

// Market

func (s *Store) tickerLocked(category types.QuoteCategory, symbol string) (models.Quote, bool) {
	q, ok := s.tickers[category][symbol]
	return q, ok
}

func (s *Store) resolveTickerLocked(category types.QuoteCategory, symbol string, fallbackLinear bool) (models.Quote, bool) {
	if q, ok := s.tickerLocked(category, symbol); ok {
		return q, true
	}
	if fallbackLinear && category != types.CategoryLinear {
		return s.tickerLocked(types.CategoryLinear, symbol)
	}
	return models.Quote{}, false
}

// Ticker looks up base+quote in category, falling back to the linear market
func (s *Store) Ticker(base, quote string, category types.QuoteCategory, fallbackLinear bool) (*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || len(base) > 16 {
		return nil, storeErr(http.StatusBadRequest, "Invalid base symbol")
	}
	symbol := base + quote

	q, ok := s.resolveTickerLocked(category, symbol, fallbackLinear)
	if !ok {
		return nil, storeErr(http.StatusNotFound, "Ticker not found for "+symbol)
	}
	return &q, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// statusOf maps an error to the response status and detail
func statusOf(err error) (int, string) {
	var se *StoreError
	if stderrors.As(err, &se) {
		return se.Status, se.Detail
	}
	return http.StatusInternalServerError, "Internal server error"
}
