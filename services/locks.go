package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// duelLocks выдает по одному семафору на дуэль: не больше одного перехода на id одновременно.
type duelLocks struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func newDuelLocks() *duelLocks {
	return &duelLocks{sems: make(map[string]*semaphore.Weighted)}
}

// lock ждет освобождения дуэли или отмены ctx.
func (l *duelLocks) lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[key] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

func lockKey(tournamentID, duelID string) string {
	return tournamentID + "/" + duelID
}
