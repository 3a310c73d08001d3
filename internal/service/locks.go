package service

import "sync"

// AccountLocks serializes mutating operations per account. Operations on
// different accounts proceed in parallel; two agents working the same account
// (e.g. both responding to one settlement offer) take turns. A single shared
// instance is passed to every workflow service.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for an account and returns its unlock func.
//
//	defer locks.Lock(accountID)()
func (l *AccountLocks) Lock(accountID string) func() {
	l.mu.Lock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
