package service

import "sync"

// versionGuard issues a monotonic version per transaction id. A response is
// applied only if its request still holds the latest version for that id.
type versionGuard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newVersionGuard() *versionGuard {
	return &versionGuard{latest: make(map[string]uint64)}
}

func (g *versionGuard) issue(id string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[id]++
	return g.latest[id]
}

func (g *versionGuard) isLatest(id string, version uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[id] == version
}

// forget drops id once it no longer exists; a response still in flight for it
// is then never the latest
func (g *versionGuard) forget(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.latest, id)
}

func (g *versionGuard) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest = make(map[string]uint64)
}
