package deskguard

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MutationMetrics summarises the transactions run by a Service.
// Rejected mutations failed on authorization, validation or a conflict;
// failed mutations hit a storage error.
type MutationMetrics struct {
	TotalMutations     int64         `json:"total_mutations"`
	CommittedMutations int64         `json:"committed_mutations"`
	RejectedMutations  int64         `json:"rejected_mutations"`
	FailedMutations    int64         `json:"failed_mutations"`
	AverageDuration    time.Duration `json:"average_duration"`
	MaxDuration        time.Duration `json:"max_duration"`
	MinDuration        time.Duration `json:"min_duration"`
	LastReset          time.Time     `json:"last_reset"`
}

// mutationMonitor holds the counters behind MutationMetrics.
type mutationMonitor struct {
	totalCount     int64
	committedCount int64
	rejectedCount  int64
	failedCount    int64
	totalDuration  int64 // nanoseconds
	maxDuration    int64 // nanoseconds
	minDuration    int64 // nanoseconds
	lastReset      time.Time
	mu             sync.RWMutex
}

func newMutationMonitor() *mutationMonitor {
	return &mutationMonitor{
		minDuration: int64(time.Hour),
		lastReset:   time.Now(),
	}
}

func (m *mutationMonitor) record(duration time.Duration, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	atomic.AddInt64(&m.totalCount, 1)
	atomic.AddInt64(&m.totalDuration, int64(duration))

	switch {
	case err == nil:
		atomic.AddInt64(&m.committedCount, 1)
	case errors.Is(err, ErrInternal):
		atomic.AddInt64(&m.failedCount, 1)
	default:
		atomic.AddInt64(&m.rejectedCount, 1)
	}

	ns := int64(duration)
	for {
		current := atomic.LoadInt64(&m.maxDuration)
		if ns <= current || atomic.CompareAndSwapInt64(&m.maxDuration, current, ns) {
			break
		}
	}
	for {
		current := atomic.LoadInt64(&m.minDuration)
		if ns >= current || atomic.CompareAndSwapInt64(&m.minDuration, current, ns) {
			break
		}
	}
}

func (m *mutationMonitor) snapshot() MutationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := atomic.LoadInt64(&m.totalCount)
	var avg time.Duration
	if total > 0 {
		avg = time.Duration(atomic.LoadInt64(&m.totalDuration) / total)
	}
	minDur := time.Duration(atomic.LoadInt64(&m.minDuration))
	if total == 0 {
		minDur = 0
	}

	return MutationMetrics{
		TotalMutations:     total,
		CommittedMutations: atomic.LoadInt64(&m.committedCount),
		RejectedMutations:  atomic.LoadInt64(&m.rejectedCount),
		FailedMutations:    atomic.LoadInt64(&m.failedCount),
		AverageDuration:    avg,
		MaxDuration:        time.Duration(atomic.LoadInt64(&m.maxDuration)),
		MinDuration:        minDur,
		LastReset:          m.lastReset,
	}
}

func (m *mutationMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.totalCount, 0)
	atomic.StoreInt64(&m.committedCount, 0)
	atomic.StoreInt64(&m.rejectedCount, 0)
	atomic.StoreInt64(&m.failedCount, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.maxDuration, 0)
	atomic.StoreInt64(&m.minDuration, int64(time.Hour))
	m.lastReset = time.Now()
}

// MutationMetrics returns counters for the mutations run since the last reset.
func (s *Service) MutationMetrics() MutationMetrics {
	return s.txMonitor.snapshot()
}

// ResetMutationMetrics clears the mutation counters.
func (s *Service) ResetMutationMetrics() {
	s.txMonitor.reset()
}

// IsMutationHealthy reports whether fewer than 10% of mutations failed on
// storage errors. Rejections do not count against health.
func (s *Service) IsMutationHealthy() bool {
	m := s.txMonitor.snapshot()
	if m.TotalMutations == 0 {
		return true
	}
	return float64(m.FailedMutations)/float64(m.TotalMutations) < 0.1
}
