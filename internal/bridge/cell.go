package bridge

import (
	"sync"
	"time"

	"replywatch/internal/platform/errors"
)

// DefaultWait bounds Wait when the caller does not pass a timeout
const DefaultWait = 5 * time.Minute

// Cell is a one-shot settlement slot for a value of type T.
//
// The first Succeed or Fail wins; every later settlement is a no-op. A single
// goroutine may park on Wait until the cell settles or the wait times out.
// Timing out settles the cell with a timeout error, so a completion arriving
// after the deadline is dropped rather than delivered to nobody
type Cell[T any] struct {
	mu      sync.Mutex
	settled bool
	waiting bool
	val     T
	err     error
	done    chan struct{}
}

// NewCell returns an unsettled cell
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{done: make(chan struct{})}
}

// Succeed settles the cell with v. No-op if already settled
func (c *Cell[T]) Succeed(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return
	}
	c.settled = true
	c.val = v
	close(c.done)
}

// Fail settles the cell with err. No-op if already settled
func (c *Cell[T]) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return
	}
	c.settled = true
	c.err = err
	close(c.done)
}

// Settled reports whether the cell has a result
func (c *Cell[T]) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Wait blocks until the cell settles or timeout elapses (zero means
// DefaultWait). If the cell is already settled it returns immediately.
// On timeout the cell is failed with a timeout error so a late Succeed
// is dropped. A second concurrent Wait on a pending cell is a programmer
// error and panics
func (c *Cell[T]) Wait(timeout time.Duration) (T, error) {
	if timeout <= 0 {
		timeout = DefaultWait
	}

	c.mu.Lock()
	if c.settled {
		v, err := c.val, c.err
		c.mu.Unlock()
		return v, err
	}
	if c.waiting {
		c.mu.Unlock()
		panic("bridge: already waiting")
	}
	c.waiting = true
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
	case <-timer.C:
		c.Fail(errors.Timeoutf("wait timed out after %s", timeout))
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiting = false
	return c.val, c.err
}

// Callback adapts a (value, error) completion pair to the cell settlement
func (c *Cell[T]) Callback() func(T, error) {
	return func(v T, err error) {
		if err != nil {
			c.Fail(err)
			return
		}
		c.Succeed(v)
	}
}

// Await runs fn with the settlement funcs of a fresh cell and waits for the
// result with the default timeout. fn is expected to hand succeed/fail to an
// asynchronous operation and return promptly
func Await[T any](fn func(succeed func(T), fail func(error))) (T, error) {
	c := NewCell[T]()
	fn(c.Succeed, c.Fail)
	return c.Wait(0)
}
