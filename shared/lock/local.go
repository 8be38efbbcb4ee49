package lock

import (
	"context"
	"fmt"
	"lodge/infras/otel"
	"lodge/shared/failure"
	"sync"
	"time"
)

type localEntry struct {
	sem  chan struct{}
	refs int
}

type localLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	otel    otel.Otel
	wait    time.Duration
}

func NewLocal(wait time.Duration, otl otel.Otel) Locker {
	return &localLocker{
		entries: map[string]*localEntry{},
		otel:    otl,
		wait:    wait,
	}
}

func (l *localLocker) Acquire(ctx context.Context, key string) (release Release, err error) {
	ctx, scope := newScope(ctx, l.otel, "local.Acquire", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	entry := l.ref(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once

		return func() {
			once.Do(func() {
				<-entry.sem
				l.unref(key)
			})
		}, nil
	case <-timer.C:
		l.unref(key)

		return nil, failure.ErrRoomBusy
	case <-ctx.Done():
		l.unref(key)

		return nil, fmt.Errorf("failed to acquire room lock: %w", ctx.Err())
	}
}

func (l *localLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}

	entry.refs++

	return entry
}

// unref drops the entry once nobody holds or waits for it.
func (l *localLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return
	}

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
