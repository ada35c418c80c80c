package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// PerIP hands out one token bucket per client address. Idle addresses fall
// out of the cache after ttl, and the cache never holds more than size.
type PerIP struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors *expirable.LRU[string, *rate.Limiter]
}

func New(rps, burst, size int, ttl time.Duration) *PerIP {
	return &PerIP{
		limit:    rate.Limit(rps),
		burst:    burst,
		visitors: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

func (p *PerIP) Allow(ip string) bool {
	p.mu.Lock()
	l, ok := p.visitors.Get(ip)
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
	}
	// re-adding refreshes the idle timer
	p.visitors.Add(ip, l)
	p.mu.Unlock()

	return l.Allow()
}
