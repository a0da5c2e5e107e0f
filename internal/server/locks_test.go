package server

import (
	"sync"
	"testing"
)

func TestSessionLocks_SerializeSameIDAndRelease(t *testing.T) {
	locks := newSessionLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("a")
			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if overlap {
		t.Fatal("two holders of the same session lock ran together")
	}
	if got := locks.held(); got != 0 {
		t.Fatalf("expected released entries to be dropped, %d left", got)
	}

	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	if got := locks.held(); got != 2 {
		t.Fatalf("expected independent ids to lock separately, held %d", got)
	}
	unlockA()
	unlockB()
}
