// Package moreatomic contains synchronization helpers the rate limiter
// needs beyond what sync provides.
package moreatomic

import "context"

// CtxMutex is a mutex whose Lock can be abandoned when the context expires.
// Unlike csync.Mutex it supports TryUnlock, which Release paths need since
// they may run without a matching Lock.
type CtxMutex struct {
	mut chan struct{}
}

func NewCtxMutex() *CtxMutex {
	return &CtxMutex{
		mut: make(chan struct{}, 1),
	}
}

func (m *CtxMutex) Lock(ctx context.Context) error {
	select {
	case m.mut <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryUnlock returns true if the mutex has been unlocked.
func (m *CtxMutex) TryUnlock() bool {
	select {
	case <-m.mut:
		return true
	default:
		return false
	}
}

func (m *CtxMutex) Unlock() {
	select {
	case <-m.mut:
	default:
		panic("Unlock of already unlocked mutex.")
	}
}
