// Package data provides data sources that wake scheduler routines when new
// messages arrive.
package data

import "sync"

// Visitor is an asynchronous data source with a single notify callback.
type Visitor interface {
	// RegisterNotifyCallback installs the callback invoked on every data
	// arrival. Registering again replaces the previous callback.
	RegisterNotifyCallback(fn func())
}

// DefaultDepth is the buffer depth used when NewChannelVisitor is given a
// non-positive depth.
const DefaultDepth = 16

// ChannelVisitor is a bounded FIFO of messages. When the buffer is full the
// oldest message is dropped to make room, so publishers never block.
// It is safe for concurrent use.
type ChannelVisitor[T any] struct {
	mu      sync.Mutex
	buf     []T
	depth   int
	dropped uint64
	notify  func()
}

// NewChannelVisitor creates a visitor buffering at most depth messages.
func NewChannelVisitor[T any](depth int) *ChannelVisitor[T] {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &ChannelVisitor[T]{depth: depth}
}

func (v *ChannelVisitor[T]) RegisterNotifyCallback(fn func()) {
	v.mu.Lock()
	v.notify = fn
	v.mu.Unlock()
}

// Publish buffers msg and invokes the notify callback outside the lock.
func (v *ChannelVisitor[T]) Publish(msg T) {
	v.mu.Lock()
	if len(v.buf) >= v.depth {
		var zero T
		v.buf[0] = zero
		v.buf = v.buf[1:]
		v.dropped++
	}
	v.buf = append(v.buf, msg)
	fn := v.notify
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// TryFetch pops the oldest buffered message.
func (v *ChannelVisitor[T]) TryFetch() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	if len(v.buf) == 0 {
		return zero, false
	}
	msg := v.buf[0]
	v.buf[0] = zero
	v.buf = v.buf[1:]
	return msg, true
}

// Len returns the number of buffered messages.
func (v *ChannelVisitor[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.buf)
}

// Dropped returns how many messages were discarded because the buffer was full.
func (v *ChannelVisitor[T]) Dropped() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropped
}
