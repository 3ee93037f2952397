package release

import (
	"path/filepath"
	"sync"
)

// Gate serializes pipeline runs that share a working path.
type Gate struct {
	mu    sync.Mutex
	locks map[string]*gateLock
}

type gateLock struct {
	mu   sync.Mutex
	refs int
}

func NewGate() *Gate {
	return &Gate{locks: make(map[string]*gateLock)}
}

// Lock blocks until no other run holds key and returns the matching unlock.
func (g *Gate) Lock(key string) func() {
	key = filepath.Clean(key)

	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = new(gateLock)
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		defer g.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, key)
		}
	}
}
