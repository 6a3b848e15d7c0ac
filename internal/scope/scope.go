// Package scope tracks loads started by navigation so that a result arriving
// after the user has moved on is dropped instead of applied.
package scope

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Token marks one load. Cancelling it stops its result from being applied;
// the underlying request is left to finish.
type Token struct {
	id        string
	key       string
	cancelled atomic.Bool
}

// ID returns the token's unique id
func (t *Token) ID() string { return t.id }

// Key returns the scope key the token was issued for
func (t *Token) Key() string { return t.key }

// Active reports whether the load's result may still be applied
func (t *Token) Active() bool {
	return t != nil && !t.cancelled.Load()
}

func (t *Token) cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Tracker keeps at most one live token per key
type Tracker struct {
	mu      sync.Mutex
	current map[string]*Token
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]*Token)}
}

// Begin issues a new token for key, cancelling the previous one
func (tr *Tracker) Begin(key string) *Token {
	tok := &Token{id: uuid.NewString(), key: key}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.current[key].cancel()
	tr.current[key] = tok
	return tok
}

// End retires tok once its load has been applied. A token that has already
// been superseded is ignored.
func (tr *Tracker) End(tok *Token) {
	if tok == nil {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.current[tok.key] == tok {
		delete(tr.current, tok.key)
	}
}

// Cancel cancels the live token for key, if any
func (tr *Tracker) Cancel(key string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.current[key].cancel()
	delete(tr.current, key)
}

// CancelAll cancels every live token
func (tr *Tracker) CancelAll() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for key, tok := range tr.current {
		tok.cancel()
		delete(tr.current, key)
	}
}

// Pending reports whether a load is in flight for key
func (tr *Tracker) Pending(key string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.current[key].Active()
}

// Superseded reports whether a newer load than tok is in flight for tok's key
func (tr *Tracker) Superseded(tok *Token) bool {
	if tok == nil {
		return false
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	cur := tr.current[tok.key]
	return cur != nil && cur != tok && cur.Active()
}
