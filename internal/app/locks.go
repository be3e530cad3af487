package app

import (
	"sort"
	"sync"

	"github.com/mvelabs/boardroom/internal/domain"
)

// entityLock is one keyed mutex plus the number of holders and waiters.
type entityLock struct {
	mu   sync.Mutex
	refs int
}

// entityLocks serializes writes per entity id. Two concurrent dispatches
// touching the same projection queue behind one mutex; the store's version
// check stays as the backstop for writers outside this process. Entries
// are refcounted and evicted on the last release, so the map only holds
// ids under active dispatch.
type entityLocks struct {
	mu sync.Mutex
	m  map[string]*entityLock
}

func newEntityLocks() *entityLocks {
	return &entityLocks{m: make(map[string]*entityLock)}
}

// acquire registers interest in the key before blocking, so a concurrent
// release cannot evict an entry somebody is waiting on.
func (l *entityLocks) acquire(key string) *entityLock {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entityLock{}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return e
}

func (l *entityLocks) release(key string, e *entityLock) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, key)
	}
	l.mu.Unlock()
}

// lockTargets acquires the mutex of every target in sorted key order, so
// two dispatches sharing targets can never deadlock. The returned func
// releases in reverse order.
func (l *entityLocks) lockTargets(targets map[domain.EntityKind]string) func() {
	keys := make([]string, 0, len(targets))
	for kind, id := range targets {
		keys = append(keys, string(kind)+"/"+id)
	}
	sort.Strings(keys)

	held := make([]*entityLock, 0, len(keys))
	for _, k := range keys {
		held = append(held, l.acquire(k))
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(keys[i], held[i])
		}
	}
}
