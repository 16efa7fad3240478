package ui

import (
	"sync"
	"time"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/internal/view"
)

// clientState is everything the UI keeps for one browser: its session and
// the view models bound to it.
type clientState struct {
	sess      *session.Session
	login     *view.Login
	dashboard *view.Dashboard
	admin     *view.Admin
	expiresAt time.Time
}

// viewCache holds client state by browser session ID.
type viewCache struct {
	mu      sync.Mutex
	entries map[string]*clientState
}

func newViewCache() *viewCache {
	return &viewCache{entries: make(map[string]*clientState)}
}

func (c *viewCache) get(id string) (*clientState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.entries[id]
	return st, ok
}

// putIfAbsent stores st unless another request got there first, and
// returns whichever is cached.
func (c *viewCache) putIfAbsent(id string, st *clientState) *clientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[id]; ok {
		return existing
	}
	c.entries[id] = st
	return st
}

func (c *viewCache) drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// prune drops entries that expired before now and returns how many.
func (c *viewCache) prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, st := range c.entries {
		if now.After(st.expiresAt) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

func (c *viewCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
