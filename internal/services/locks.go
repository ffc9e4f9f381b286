package services

import "sync"

// UserLocks serializes all mutation of a user's reputation row and request
// handling. One mutex per user id; records for different users are
// independent, so a global lock is deliberately avoided.
type UserLocks struct {
	mu sync.Mutex
	m  map[uint64]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{m: make(map[uint64]*sync.Mutex)}
}

// lock acquires the user's mutex and returns its unlock function.
func (l *UserLocks) lock(userID uint64) func() {
	l.mu.Lock()
	um, ok := l.m[userID]
	if !ok {
		um = &sync.Mutex{}
		l.m[userID] = um
	}
	l.mu.Unlock()
	um.Lock()
	return um.Unlock
}
