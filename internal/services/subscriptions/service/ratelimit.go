package service

import (
	"sync"
	"time"
)

// ipLimiter caps verification requests per client address. Counters are
// process local, a multi instance deployment rate limits per instance
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time

	limit      int
	window     time.Duration
	maxClients int
	now        func() time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		clients:    make(map[string][]time.Time),
		limit:      limit,
		window:     window,
		maxClients: 10000,
		now:        time.Now,
	}
}

// allow records one request for ip and reports whether it is within limits
func (rl *ipLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	// clean old entries for this client
	var recent []time.Time
	for _, ts := range rl.clients[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.limit {
		rl.clients[ip] = recent
		return false
	}

	// bound the table: drop idle clients before admitting a new one
	if _, known := rl.clients[ip]; !known && len(rl.clients) >= rl.maxClients {
		for k, stamps := range rl.clients {
			live := false
			for _, ts := range stamps {
				if ts.After(cutoff) {
					live = true
					break
				}
			}
			if !live {
				delete(rl.clients, k)
			}
		}
		if len(rl.clients) >= rl.maxClients {
			return false
		}
	}

	rl.clients[ip] = append(recent, now)
	return true
}
