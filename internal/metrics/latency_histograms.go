package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// LatencyHistogram is a lock-free summary of one operation's latencies.
type LatencyHistogram struct {
	buckets [8]uint64
	min     uint64
	max     uint64
	count   uint64
	sum     uint64
	errors  uint64
}

func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{}
}

func (lh *LatencyHistogram) Record(d time.Duration, failed bool) {
	latencyNs := uint64(d)
	if d < 0 {
		latencyNs = 0
	}
	atomic.AddUint64(&lh.count, 1)
	atomic.AddUint64(&lh.sum, latencyNs)
	if failed {
		atomic.AddUint64(&lh.errors, 1)
	}

	for {
		oldMin := atomic.LoadUint64(&lh.min)
		if latencyNs >= oldMin && oldMin != 0 {
			break
		}
		if atomic.CompareAndSwapUint64(&lh.min, oldMin, latencyNs) {
			break
		}
	}

	for {
		oldMax := atomic.LoadUint64(&lh.max)
		if latencyNs <= oldMax {
			break
		}
		if atomic.CompareAndSwapUint64(&lh.max, oldMax, latencyNs) {
			break
		}
	}

	atomic.AddUint64(&lh.buckets[bucketIndex(d)], 1)
}

// bucket upper bounds; the last bucket is open
var bucketBounds = [...]time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

func (lh *LatencyHistogram) GetStats() LatencyStats {
	count := atomic.LoadUint64(&lh.count)
	sum := atomic.LoadUint64(&lh.sum)

	avg := uint64(0)
	if count > 0 {
		avg = sum / count
	}

	stats := LatencyStats{
		Min:    time.Duration(atomic.LoadUint64(&lh.min)),
		Max:    time.Duration(atomic.LoadUint64(&lh.max)),
		Avg:    time.Duration(avg),
		Count:  count,
		Errors: atomic.LoadUint64(&lh.errors),
	}
	for i := range lh.buckets {
		stats.Buckets[i] = atomic.LoadUint64(&lh.buckets[i])
	}
	return stats
}

type LatencyStats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Count   uint64
	Errors  uint64
	Buckets [8]uint64
}

// LatencySet keeps one histogram per external operation.
type LatencySet struct {
	mu   sync.RWMutex
	byOp map[string]*LatencyHistogram
}

func NewLatencySet() *LatencySet {
	return &LatencySet{byOp: make(map[string]*LatencyHistogram)}
}

func (s *LatencySet) Get(op string) *LatencyHistogram {
	s.mu.RLock()
	h := s.byOp[op]
	s.mu.RUnlock()
	if h != nil {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h = s.byOp[op]; h == nil {
		h = NewLatencyHistogram()
		s.byOp[op] = h
	}
	return h
}

func (s *LatencySet) Snapshot() map[string]LatencyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]LatencyStats, len(s.byOp))
	for op, h := range s.byOp {
		out[op] = h.GetStats()
	}
	return out
}
