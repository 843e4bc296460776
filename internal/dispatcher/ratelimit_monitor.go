package dispatcher

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor remembers the rate limit headers of the last response per
// route and guild, so requests that would certainly be rejected are not sent.
type RateLimitMonitor struct {
	mu      sync.RWMutex
	buckets map[string]*RateLimitBucket
	now     func() time.Time
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
		now:     time.Now,
	}
}

func (rlm *RateLimitMonitor) CanExecute(route, guildID string) bool {
	rlm.mu.RLock()
	bucket, exists := rlm.buckets[rlm.getKey(route, guildID)]
	rlm.mu.RUnlock()

	if !exists {
		return true
	}
	if !rlm.now().Before(bucket.ResetAt) {
		return true
	}
	return bucket.Remaining > 0
}

// RetryAfter is how long until the bucket resets, zero if it is usable.
func (rlm *RateLimitMonitor) RetryAfter(route, guildID string) time.Duration {
	if rlm.CanExecute(route, guildID) {
		return 0
	}
	b := rlm.GetBucket(route, guildID)
	if b == nil {
		return 0
	}
	return b.ResetAt.Sub(rlm.now())
}

func (rlm *RateLimitMonitor) UpdateFromFastHTTPResponse(resp *fasthttp.Response, route, guildID string) {
	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	limit := string(resp.Header.Peek("X-RateLimit-Limit"))
	resetAfter := string(resp.Header.Peek("X-RateLimit-Reset-After"))
	reset := string(resp.Header.Peek("X-RateLimit-Reset"))

	if remaining == "" && resp.StatusCode() != fasthttp.StatusTooManyRequests {
		return
	}

	bucket := &RateLimitBucket{}
	bucket.Remaining, _ = strconv.Atoi(remaining)
	bucket.Limit, _ = strconv.Atoi(limit)

	switch {
	case resetAfter != "":
		secs, _ := strconv.ParseFloat(resetAfter, 64)
		bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
	case reset != "":
		secs, _ := strconv.ParseFloat(reset, 64)
		bucket.ResetAt = time.Unix(0, int64(secs*float64(time.Second)))
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		bucket.Remaining = 0
		if retry := string(resp.Header.Peek("Retry-After")); retry != "" {
			secs, _ := strconv.ParseFloat(retry, 64)
			bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
		}
	}

	rlm.mu.Lock()
	rlm.buckets[rlm.getKey(route, guildID)] = bucket
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) getKey(route, guildID string) string {
	return route + ":" + guildID
}

func (rlm *RateLimitMonitor) GetBucket(route, guildID string) *RateLimitBucket {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	b := rlm.buckets[rlm.getKey(route, guildID)]
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}
