// Package session holds the bearer credential used to authenticate gateway calls.
package session

import (
	"sync"
)

// Holder stores, retrieves and clears a bearer credential
type Holder interface {
	Token() string
	SetToken(token string)
	Clear()
}

// MemoryHolder keeps the credential for the lifetime of the process only
type MemoryHolder struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryHolder creates a holder seeded with token (may be empty)
func NewMemoryHolder(token string) *MemoryHolder {
	return &MemoryHolder{token: token}
}

func (h *MemoryHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *MemoryHolder) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *MemoryHolder) Clear() {
	h.SetToken("")
}

// Context is the explicit session handed to the request client.
// OnExpired is invoked after the holder is cleared because the gateway rejected
// the credential; callers use it to redirect to an unauthenticated state.
type Context struct {
	Holder    Holder
	OnExpired func()
}

// NewContext creates a session context around holder
func NewContext(holder Holder, onExpired func()) *Context {
	return &Context{Holder: holder, OnExpired: onExpired}
}

// Token returns the current credential, or "" when there is none
func (c *Context) Token() string {
	if c == nil || c.Holder == nil {
		return ""
	}
	return c.Holder.Token()
}

// Authenticated reports whether a credential is present
func (c *Context) Authenticated() bool {
	return c.Token() != ""
}

// Expire clears the credential and notifies the owner
func (c *Context) Expire() {
	if c == nil {
		return
	}
	if c.Holder != nil {
		c.Holder.Clear()
	}
	if c.OnExpired != nil {
		c.OnExpired()
	}
}
