package server

import "sync"

// sessionLocks serializes requests that share a session id so a load,
// transition and save run as one unit.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until sid is free and returns the matching unlock.
func (l *sessionLocks) lock(sid string) func() {
	l.mu.Lock()
	entry, ok := l.locks[sid]
	if !ok {
		entry = &sessionLock{}
		l.locks[sid] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sid)
		}
		l.mu.Unlock()
	}
}

// held reports how many session ids currently have waiters or holders.
func (l *sessionLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
