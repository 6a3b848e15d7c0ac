// Package quote keeps the market quote of the selected asset fresh.
package quote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

// TickerFetcher looks up a quote snapshot
type TickerFetcher interface {
	GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error)
}

// State is what the refresher currently exposes for display
type State struct {
	Symbol  string
	Quote   *models.Quote
	Loading bool
	Err     string
}

// Refresher fetches the quote for the selected symbol. Only the most recent
// selection may change state: results of earlier fetches are dropped when
// they resolve.
type Refresher struct {
	fetcher  TickerFetcher
	category types.QuoteCategory
	logger   *logging.Logger
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	state      State
	onChange   func(State)
}

// NewRefresher creates a refresher looking quotes up in category
func NewRefresher(fetcher TickerFetcher, category types.QuoteCategory, logger *logging.Logger) *Refresher {
	if category == "" {
		category = types.CategorySpot
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Refresher{
		fetcher:  fetcher,
		category: category,
		logger:   logger.WithField("component", "quote"),
		now:      time.Now,
	}
}

// OnChange registers fn to be called with every state change.
// fn runs outside the refresher's lock and may call back into it.
func (r *Refresher) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// State returns a snapshot of the current state
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Select starts fetching the quote for symbol and supersedes any fetch in
// flight. The returned channel is closed once this fetch has resolved, whether
// or not its result was applied. An empty symbol behaves like Clear.
func (r *Refresher) Select(ctx context.Context, symbol string) <-chan struct{} {
	done := make(chan struct{})

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		r.Clear()
		close(done)
		return done
	}

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.state = State{Symbol: symbol, Loading: true}
	snapshot, notify := r.snapshotLocked(), r.onChange
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}

	go func() {
		defer close(done)
		r.fetch(ctx, gen, symbol)
	}()

	return done
}

// Clear drops the current quote and invalidates any fetch in flight
func (r *Refresher) Clear() {
	r.mu.Lock()
	r.generation++
	r.state = State{}
	snapshot, notify := r.snapshotLocked(), r.onChange
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (r *Refresher) fetch(ctx context.Context, gen uint64, symbol string) {
	quote, err := r.fetcher.GetTicker(ctx, symbol, r.category)

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		r.logger.WithFields(map[string]interface{}{
			"symbol":     symbol,
			"generation": gen,
		}).Debug("Discarding superseded quote")
		return
	}

	next := State{Symbol: symbol}
	if err != nil {
		next.Err = errors.UserMessage(err)
		r.logger.WithError(err).WithField("symbol", symbol).Warn("Quote fetch failed")
	} else {
		q := *quote
		if q.FetchedAt.IsZero() {
			q.FetchedAt = r.now()
		}
		next.Quote = &q
	}
	r.state = next
	snapshot, notify := r.snapshotLocked(), r.onChange
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (r *Refresher) snapshotLocked() State {
	s := r.state
	if s.Quote != nil {
		q := *s.Quote
		s.Quote = &q
	}
	return s
}
