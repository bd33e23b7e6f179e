package deskguard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ViewIncrementer persists one view of an article.
type ViewIncrementer interface {
	IncrementViewCount(ctx context.Context, id string) error
}

// ViewCounterConfig sizes the view counter.
type ViewCounterConfig struct {
	Buffer  int // pending increments; default 1024
	Workers int // concurrent writers; default 2
}

// ViewCounter counts article views off the request path. Record never
// blocks: when the buffer is full the view is dropped and logged. Counts are
// eventually consistent and may undercount under load.
type ViewCounter struct {
	store   ViewIncrementer
	logger  zerolog.Logger
	queue   chan string
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewViewCounter starts the workers. Call Close to stop them.
func NewViewCounter(store ViewIncrementer, cfg ViewCounterConfig, logger zerolog.Logger) *ViewCounter {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	v := &ViewCounter{
		store:  store,
		logger: logger,
		queue:  make(chan string, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		v.wg.Add(1)
		go v.work()
	}
	return v
}

// Record schedules one increment for the article.
func (v *ViewCounter) Record(articleID string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return
	}

	select {
	case v.queue <- articleID:
	default:
		v.dropped.Add(1)
		v.logger.Warn().Str("article_id", articleID).Msg("view counter saturated, view dropped")
	}
}

func (v *ViewCounter) work() {
	defer v.wg.Done()
	for id := range v.queue {
		if err := v.store.IncrementViewCount(context.Background(), id); err != nil {
			v.failed.Add(1)
			v.logger.Warn().Err(err).Str("article_id", id).Msg("view increment failed")
		}
	}
}

// Dropped returns the number of views discarded because the buffer was full.
func (v *ViewCounter) Dropped() int64 {
	return v.dropped.Load()
}

// Failed returns the number of increments the store rejected.
func (v *ViewCounter) Failed() int64 {
	return v.failed.Load()
}

// Close stops accepting views and waits for the buffered ones to be written,
// or for ctx to end. It is safe to call more than once.
func (v *ViewCounter) Close(ctx context.Context) error {
	v.mu.Lock()
	if !v.closed {
		v.closed = true
		close(v.queue)
	}
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		v.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
