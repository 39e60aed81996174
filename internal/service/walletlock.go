package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// walletLocks hands out one mutex per wallet id. Entries are created on first
// use and dropped once no goroutine holds or waits for them.
type walletLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

func newWalletLocks() *walletLocks {
	return &walletLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until the wallet's lock is held or ctx ends. The returned func
// releases the lock and must be called exactly once.
func (l *walletLocks) Lock(ctx context.Context, walletID uuid.UUID) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[walletID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[walletID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.unref(walletID, entry)
		}, nil
	case <-ctx.Done():
		l.unref(walletID, entry)
		return nil, ctx.Err()
	}
}

func (l *walletLocks) unref(walletID uuid.UUID, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, walletID)
	}
}

func (l *walletLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
