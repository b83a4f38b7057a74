package actor

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// Background runs fire-and-forget follow-ups: cache warm-ups and
// invalidations, projection refreshes, view counters.
type Background struct {
	wg  sync.WaitGroup
	log logger.Logger
}

// NewBackground creates an empty follow-up group.
func NewBackground(log logger.Logger) *Background {
	return &Background{log: log}
}

// Go runs fn in its own goroutine with a background context.
func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fn(context.Background()); err != nil && !errors.Is(err, ErrStopped) {
			b.log.Warn("async follow-up failed", logger.String("task", name), logger.Error(err))
		}
	}()
}

// Wait blocks until every follow-up, including ones scheduled by other
// follow-ups, has returned.
func (b *Background) Wait() {
	b.wg.Wait()
}
