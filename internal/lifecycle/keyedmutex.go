package lifecycle

import "sync"

// keyedMutex serializes operations per pluginKey (§5: "at most one lifecycle
// operation may be in flight for a given pluginKey"), using TryLock so a
// conflicting caller fails fast with Busy instead of queueing.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lockFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// TryLock attempts to acquire the mutex for key, returning false if another
// operation already holds it.
func (k *keyedMutex) TryLock(key string) bool {
	return k.lockFor(key).TryLock()
}

// Unlock releases the mutex for key.
func (k *keyedMutex) Unlock(key string) {
	k.lockFor(key).Unlock()
}
