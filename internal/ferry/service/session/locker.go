package session

import (
	"context"
	"sync"
)

// KeyedLock serializes work per key. Waiters queue in the order the runtime
// hands out the channel; entries are dropped once nobody holds or waits.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLock returns an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done. On success the returned func
// must be called to release the key.
func (l *KeyedLock) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
	}, nil
}

func (l *KeyedLock) drop(key string, e *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
