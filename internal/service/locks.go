package service

import "sync"

// SessionLocks hands out one mutex per game session. Every state-mutating
// path (start, move, leave, forced skip) must hold the session's lock so
// board mutation, tick increment and turn advancement commit as a unit.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (that *SessionLocks) Get(gameID string) *sync.Mutex {
	that.mu.Lock()
	defer that.mu.Unlock()

	lock, ok := that.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		that.locks[gameID] = lock
	}

	return lock
}

// Forget drops the lock for a deleted session.
func (that *SessionLocks) Forget(gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.locks, gameID)
}
