package quote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher resolves each symbol's fetch only when its gate is released
type gatedFetcher struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	prices map[string]string
	fail   map[string]error
	calls  []string
	cats   []types.QuoteCategory
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:  map[string]chan struct{}{},
		prices: map[string]string{},
		fail:   map[string]error{},
	}
}

func (f *gatedFetcher) gate(symbol string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[symbol]
	if !ok {
		g = make(chan struct{})
		f.gates[symbol] = g
	}
	return g
}

func (f *gatedFetcher) GetTicker(ctx context.Context, symbol string, category types.QuoteCategory) (*models.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.cats = append(f.cats, category)
	f.mu.Unlock()

	<-f.gate(symbol)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return &models.Quote{Symbol: symbol, LastPrice: decimal.RequireFromString(f.prices[symbol])}, nil
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not resolve")
	}
}

func TestSelect_LastSelectionWins(t *testing.T) {
	f := newGatedFetcher()
	f.prices["AAA"] = "1"
	f.prices["BBB"] = "2"
	r := NewRefresher(f, "", nil)

	doneA := r.Select(context.Background(), "aaa")
	doneB := r.Select(context.Background(), "bbb")

	close(f.gate("BBB"))
	waitDone(t, doneB)

	close(f.gate("AAA"))
	waitDone(t, doneA)

	state := r.State()
	require.NotNil(t, state.Quote)
	assert.Equal(t, "BBB", state.Symbol)
	assert.Equal(t, "BBB", state.Quote.Symbol)
	assert.False(t, state.Loading)
	assert.False(t, state.Quote.FetchedAt.IsZero())
	assert.Equal(t, []types.QuoteCategory{types.CategorySpot, types.CategorySpot}, f.cats)
}

func TestSelect_LoadingUntilResolved(t *testing.T) {
	f := newGatedFetcher()
	f.prices["BTC"] = "50"
	r := NewRefresher(f, types.CategoryLinear, nil)

	done := r.Select(context.Background(), "BTC")
	state := r.State()
	assert.True(t, state.Loading)
	assert.Nil(t, state.Quote)

	close(f.gate("BTC"))
	waitDone(t, done)

	state = r.State()
	assert.False(t, state.Loading)
	require.NotNil(t, state.Quote)
	assert.True(t, state.Quote.LastPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, []types.QuoteCategory{types.CategoryLinear}, f.cats)
}

func TestSelect_FailureRecordsMessage(t *testing.T) {
	f := newGatedFetcher()
	f.fail["BTC"] = fmt.Errorf("ticker unavailable")
	r := NewRefresher(f, types.CategorySpot, nil)

	done := r.Select(context.Background(), "BTC")
	close(f.gate("BTC"))
	waitDone(t, done)

	state := r.State()
	assert.Nil(t, state.Quote)
	assert.False(t, state.Loading)
	assert.Equal(t, "ticker unavailable", state.Err)
}

func TestClear_DiscardsInFlight(t *testing.T) {
	f := newGatedFetcher()
	f.prices["BTC"] = "50"
	r := NewRefresher(f, types.CategorySpot, nil)

	done := r.Select(context.Background(), "BTC")
	r.Clear()
	close(f.gate("BTC"))
	waitDone(t, done)

	assert.Equal(t, State{}, r.State())
}

func TestSelect_EmptySymbolClears(t *testing.T) {
	r := NewRefresher(newGatedFetcher(), types.CategorySpot, nil)
	waitDone(t, r.Select(context.Background(), "  "))
	assert.Equal(t, State{}, r.State())
}

func TestOnChange_ReportsTransitions(t *testing.T) {
	f := newGatedFetcher()
	f.prices["ETH"] = "3000"
	r := NewRefresher(f, types.CategorySpot, nil)

	var mu sync.Mutex
	var seen []State
	r.OnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	done := r.Select(context.Background(), "ETH")
	close(f.gate("ETH"))
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	require.NotNil(t, seen[1].Quote)
}

func TestState_ReturnsCopy(t *testing.T) {
	f := newGatedFetcher()
	f.prices["ETH"] = "3000"
	r := NewRefresher(f, types.CategorySpot, nil)

	done := r.Select(context.Background(), "ETH")
	close(f.gate("ETH"))
	waitDone(t, done)

	s := r.State()
	s.Quote.LastPrice = decimal.Zero
	assert.True(t, r.State().Quote.LastPrice.Equal(decimal.NewFromInt(3000)))
}
