// Package ports allocates host ports for plugin containers from a configured
// range, seeded at startup from the ports recorded in the persistent store
// plus the host ports of orphaned containers adopted during reconciliation,
// then kept in memory for the life of the process. Ports published by other
// containers on the daemon are not consulted. Grounded in the general
// seed-from-storage-then-serve-from-memory shape the teacher uses for its
// connection tracker, adapted to a simple free-set allocator.
package ports

import (
	"sync"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
)

// Allocator hands out host ports from [start, end], tracking what is in use.
type Allocator struct {
	mu    sync.Mutex
	start int
	end   int
	used  map[int]bool
}

// New creates an allocator over the inclusive range [start, end] pre-seeded
// with the ports already recorded as in-use.
func New(start, end int, seedUsed []int) *Allocator {
	used := make(map[int]bool, len(seedUsed))
	for _, p := range seedUsed {
		used[p] = true
	}
	return &Allocator{start: start, end: end, used: used}
}

// Allocate reserves and returns the lowest free port in range, or a
// NoPortAvailable error when the range is exhausted.
func (a *Allocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for p := a.start; p <= a.end; p++ {
		if !a.used[p] {
			a.used[p] = true
			return p, nil
		}
	}
	return 0, apperrors.NoPortAvailable()
}

// Reserve marks a specific port as in-use, used when adopting an orphaned
// container whose host port binding was already assigned outside this process.
func (a *Allocator) Reserve(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used[port] = true
}

// Release returns a port to the free pool, used on uninstall.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.used, port)
}

// InUse reports whether a port is currently allocated.
func (a *Allocator) InUse(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[port]
}

// Available returns the count of free ports remaining in range.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	free := 0
	for p := a.start; p <= a.end; p++ {
		if !a.used[p] {
			free++
		}
	}
	return free
}
