// Package croutine defines the cooperative unit of work run by the scheduler.
package croutine

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a routine.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateWaiting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// IsTerminal reports whether the routine will never run again.
func (s State) IsTerminal() bool {
	return s == StateFinished
}

// Result is what a body returns to the processor when it gives up control.
type Result uint8

const (
	// Finish ends the routine.
	Finish Result = iota
	// Wait suspends the routine until it is notified.
	Wait
	// Yield keeps the routine ready and requeues it behind its peers.
	Yield
)

func (r Result) String() string {
	switch r {
	case Finish:
		return "finish"
	case Wait:
		return "wait"
	case Yield:
		return "yield"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// Func is a routine body. It runs uninterrupted until it returns.
type Func func() Result

// Once adapts a plain callable into a body that finishes after one run.
func Once(fn func()) Func {
	return func() Result {
		fn()
		return Finish
	}
}

// NoProcessor marks a routine without a declared processor affinity.
const NoProcessor = -1

// Routine is a named, identified, stateful wrapper around one body.
// State transitions are serialized by an internal mutex; the body itself
// is only ever invoked by the processor that owns the routine.
type Routine struct {
	id   uint64
	name string
	body Func

	prio      uint32
	processor int

	mu      sync.Mutex
	state   State
	pending bool // notified while running
}

// New creates a routine in the ready state.
func New(id uint64, name string, body Func) *Routine {
	return &Routine{
		id:        id,
		name:      name,
		body:      body,
		processor: NoProcessor,
		state:     StateReady,
	}
}

func (r *Routine) ID() uint64   { return r.id }
func (r *Routine) Name() string { return r.name }

// Priority is the ready-queue level of the routine; higher runs first.
func (r *Routine) Priority() uint32 { return r.prio }

// SetPriority is applied by the policy before the routine is dispatched.
func (r *Routine) SetPriority(p uint32) { r.prio = p }

// Processor returns the declared processor affinity, or NoProcessor.
func (r *Routine) Processor() int { return r.processor }

// SetProcessor records the processor the routine was pinned to.
func (r *Routine) SetProcessor(p int) { r.processor = p }

// State returns the current lifecycle state.
func (r *Routine) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wake moves a waiting routine back to ready and reports whether the caller
// must enqueue it. A wake that arrives while the routine is running is
// remembered and applied when the body suspends, so it is never lost and
// never causes a second concurrent run. Wakes on ready or finished routines
// are no-ops.
func (r *Routine) Wake() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateWaiting:
		r.state = StateReady
		return true
	case StateRunning:
		r.pending = true
	}
	return false
}

// Acquire transitions ready -> running. It returns false if the routine is
// not ready, in which case the caller must not run it.
func (r *Routine) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady {
		return false
	}
	r.state = StateRunning
	r.pending = false
	return true
}

// Release applies the body's result and returns the new state. A routine
// that waits while a wake is pending becomes ready again immediately. A
// routine aborted while running stays finished whatever the result.
func (r *Routine) Release(res Result) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateFinished {
		r.pending = false
		return r.state
	}
	switch res {
	case Finish:
		r.state = StateFinished
	case Yield:
		r.state = StateReady
	default:
		if r.pending {
			r.state = StateReady
		} else {
			r.state = StateWaiting
		}
	}
	r.pending = false
	return r.state
}

// Abort marks the routine finished regardless of its current state. The
// owning context aborts its routines on shutdown.
func (r *Routine) Abort() {
	r.mu.Lock()
	r.state = StateFinished
	r.pending = false
	r.mu.Unlock()
}

// Run executes the body once. The caller must have acquired the routine.
func (r *Routine) Run() Result {
	return r.body()
}

func (r *Routine) String() string {
	return fmt.Sprintf("%s(%d)", r.name, r.id)
}
