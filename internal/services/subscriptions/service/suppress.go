package service

import (
	"sync"
	"time"
)

// resendState tracks how often a verification email went to one address
type resendState struct {
	count int
	last  time.Time
}

// suppressor throttles repeat verification emails per address. After n sends
// the next one is allowed only once 30 * 2^(n-1) seconds have passed since
// the last. State is a bounded process-local map and resets on restart
type suppressor struct {
	mu    sync.Mutex
	sends map[string]resendState

	base       time.Duration
	maxEntries int
	now        func() time.Time
}

func newSuppressor(base time.Duration) *suppressor {
	if base <= 0 {
		base = 30 * time.Second
	}
	return &suppressor{
		sends:      make(map[string]resendState),
		base:       base,
		maxEntries: 10000,
		now:        time.Now,
	}
}

// hold is how long address state suppresses resends after its latest send
func (s *suppressor) hold(st resendState) time.Duration {
	return s.base << (st.count - 1)
}

// shouldSend reports whether a mail to email may go out now, and records
// the send when it may
func (s *suppressor) shouldSend(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, known := s.sends[email]
	if known && now.Sub(st.last) < s.hold(st) {
		return false
	}

	// bound the table: entries past their hold suppress nothing, drop them
	// before admitting a new address
	if !known && len(s.sends) >= s.maxEntries {
		for k, e := range s.sends {
			if now.Sub(e.last) >= s.hold(e) {
				delete(s.sends, k)
			}
		}
		if len(s.sends) >= s.maxEntries {
			// every entry still holds, send without tracking doubling
			return true
		}
	}

	st.count++
	st.last = now
	s.sends[email] = st
	return true
}
