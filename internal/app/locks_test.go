package app

import (
	"sync"
	"testing"

	"github.com/mvelabs/boardroom/internal/domain"
)

func lockedKeys(l *entityLocks) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func TestEntityLocks_EvictsOnRelease(t *testing.T) {
	l := newEntityLocks()

	unlock := l.lockTargets(map[domain.EntityKind]string{
		domain.KindBillboard: "bb-1",
		domain.KindTenant:    "tn-1",
	})
	if got := lockedKeys(l); got != 2 {
		t.Errorf("held keys = %d, want 2", got)
	}

	unlock()
	if got := lockedKeys(l); got != 0 {
		t.Errorf("held keys after release = %d, want 0", got)
	}
}

func TestEntityLocks_SerializesContendedKey(t *testing.T) {
	l := newEntityLocks()
	targets := map[domain.EntityKind]string{domain.KindPayment: "pay-1"}

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lockTargets(targets)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	// Waiters keep the entry alive; the last release drops it.
	if got := lockedKeys(l); got != 0 {
		t.Errorf("held keys after contention = %d, want 0", got)
	}
}
