package scheduler

import (
	"fmt"
	"sync"

	"github.com/jediknight00/apollo/pkg/croutine"
)

// MaxPrio is the number of priority levels in a context's ready queue.
const MaxPrio = 20

// Context is the private ready queue of one processor. It owns every routine
// dispatched to it until the routine finishes. All methods are safe for
// concurrent use.
type Context struct {
	id int

	mu     sync.Mutex
	queues [MaxPrio][]*croutine.Routine
	ready  int
	owned  map[uint64]*croutine.Routine
	closed bool

	executed uint64

	// onRelease runs outside the lock after a finished routine is dropped.
	onRelease func(id uint64)

	// wake holds at most one token. A push that lands between a consumer's
	// empty check and its wait leaves the token behind, so the wait returns.
	wake chan struct{}
	done chan struct{}
}

// NewContext creates an open, empty context for processor id.
func NewContext(id int) *Context {
	return &Context{
		id:    id,
		owned: make(map[uint64]*croutine.Routine),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// ID returns the processor id this context belongs to.
func (c *Context) ID() int { return c.id }

// Add takes ownership of a new routine and enqueues it.
func (c *Context) Add(r *croutine.Routine) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: processor %d", ErrContextClosed, c.id)
	}
	if _, ok := c.owned[r.ID()]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s on processor %d", ErrRoutineExists, r, c.id)
	}
	c.owned[r.ID()] = r
	c.enqueueLocked(r)
	c.mu.Unlock()

	c.signal()
	return nil
}

// Push enqueues a routine that has become ready again.
func (c *Context) Push(r *croutine.Routine) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: processor %d", ErrContextClosed, c.id)
	}
	c.enqueueLocked(r)
	c.mu.Unlock()

	c.signal()
	return nil
}

// Next blocks until a ready routine is available and returns it, highest
// priority first and FIFO within a priority. It returns false once the
// context has been shut down, even if routines are still queued.
func (c *Context) Next() (*croutine.Routine, bool) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, false
		}
		if r := c.popLocked(); r != nil {
			c.mu.Unlock()
			return r, true
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-c.done:
		}
	}
}

// ShutDown closes the context and wakes any blocked Next. Owned routines are
// marked finished and will not run again; one that is running completes its
// current body. Later calls are no-ops.
func (c *Context) ShutDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, r := range c.owned {
		r.Abort()
	}
	close(c.done)
}

// Notify wakes the routine with the given id if this context owns it. It
// reports whether the id was found; unknown and finished ids are no-ops.
func (c *Context) Notify(id uint64) bool {
	return c.notify(id, nil)
}

// NotifyRoutine is Notify restricted to one routine instance. It is a no-op
// once r has finished, even if a newer routine with the same id is owned.
func (c *Context) NotifyRoutine(r *croutine.Routine) bool {
	return c.notify(r.ID(), r)
}

func (c *Context) notify(id uint64, want *croutine.Routine) bool {
	c.mu.Lock()
	r, ok := c.owned[id]
	c.mu.Unlock()
	if !ok || (want != nil && r != want) {
		return false
	}
	if r.Wake() {
		if err := c.Push(r); err != nil {
			return false
		}
	}
	return true
}

// Owns reports whether the routine with id still belongs to this context.
func (c *Context) Owns(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.owned[id]
	return ok
}

// Load is the number of routines owned by the context, ready or not.
func (c *Context) Load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.owned)
}

// Closed reports whether ShutDown has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ContextStats is a point-in-time view of one context.
type ContextStats struct {
	Processor int    `json:"processor"`
	Ready     int    `json:"ready"`
	Owned     int    `json:"owned"`
	Executed  uint64 `json:"executed"`
}

// Stats returns a snapshot of the context counters.
func (c *Context) Stats() ContextStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ContextStats{
		Processor: c.id,
		Ready:     c.ready,
		Owned:     len(c.owned),
		Executed:  c.executed,
	}
}

// release drops a finished routine.
func (c *Context) release(r *croutine.Routine) {
	c.mu.Lock()
	cur, ok := c.owned[r.ID()]
	if ok && cur == r {
		delete(c.owned, r.ID())
	}
	hook := c.onRelease
	c.mu.Unlock()

	if ok && cur == r && hook != nil {
		hook(r.ID())
	}
}

func (c *Context) setReleaseHook(fn func(id uint64)) {
	c.mu.Lock()
	c.onRelease = fn
	c.mu.Unlock()
}

func (c *Context) countRun() {
	c.mu.Lock()
	c.executed++
	c.mu.Unlock()
}

func (c *Context) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Context) enqueueLocked(r *croutine.Routine) {
	p := r.Priority()
	if p >= MaxPrio {
		p = MaxPrio - 1
	}
	c.queues[p] = append(c.queues[p], r)
	c.ready++
}

func (c *Context) popLocked() *croutine.Routine {
	if c.ready == 0 {
		return nil
	}
	for p := MaxPrio - 1; p >= 0; p-- {
		q := c.queues[p]
		if len(q) == 0 {
			continue
		}
		r := q[0]
		q[0] = nil
		c.queues[p] = q[1:]
		c.ready--
		return r
	}
	return nil
}
