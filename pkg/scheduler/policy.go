package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jediknight00/apollo/internal/config"
	"github.com/jediknight00/apollo/pkg/croutine"
)

// Policy decides where a new routine lands and routes wakeups to the
// context holding a routine. Implementations must be safe for concurrent use.
type Policy interface {
	// Name is the config identifier of the policy.
	Name() string

	// DispatchTask places a ready routine into exactly one context.
	DispatchTask(r *croutine.Routine) error

	// NotifyProcessor wakes the routine with the given id. Unknown and
	// finished ids are no-ops and report false.
	NotifyProcessor(id uint64) bool
}

// NewPolicy builds the policy called name over contexts.
func NewPolicy(name string, contexts []*Context, conf config.SchedulerConf, logger *slog.Logger) (Policy, error) {
	if len(contexts) == 0 {
		return nil, fmt.Errorf("%w: no processors", ErrInvalidProcessorNum)
	}
	switch name {
	case config.PolicyClassic:
		return NewClassic(contexts, conf), nil
	case config.PolicyChoreography:
		return NewChoreography(contexts, conf, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// routineNotifier is implemented by policies that can wake one routine
// instance rather than whatever currently holds its id.
type routineNotifier interface {
	NotifyRoutine(r *croutine.Routine) bool
}

// placement tracks which context holds each live routine id. Entries are
// dropped when the context releases the finished routine.
type placement struct {
	mu    sync.RWMutex
	where map[uint64]*Context
}

func newPlacement(contexts []*Context) *placement {
	pl := &placement{where: make(map[uint64]*Context)}
	for _, c := range contexts {
		c := c
		c.setReleaseHook(func(id uint64) { pl.forget(id, c) })
	}
	return pl
}

// dispatch adds r to c unless a live routine with the same id exists anywhere.
func (pl *placement) dispatch(r *croutine.Routine, c *Context) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if prev, ok := pl.where[r.ID()]; ok && prev.Owns(r.ID()) {
		return fmt.Errorf("%w: %s", ErrRoutineExists, r)
	}
	if err := c.Add(r); err != nil {
		return err
	}
	pl.where[r.ID()] = c
	return nil
}

// notify wakes id; a non-nil want restricts the wake to that instance.
func (pl *placement) notify(id uint64, want *croutine.Routine) bool {
	pl.mu.RLock()
	c, ok := pl.where[id]
	pl.mu.RUnlock()
	if !ok {
		return false
	}
	if want == nil {
		return c.Notify(id)
	}
	return c.NotifyRoutine(want)
}

// forget drops id unless it was re-dispatched meanwhile.
func (pl *placement) forget(id uint64, c *Context) {
	pl.mu.Lock()
	if cur, ok := pl.where[id]; ok && cur == c && !c.Owns(id) {
		delete(pl.where, id)
	}
	pl.mu.Unlock()
}

func (pl *placement) len() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.where)
}

func applyPriority(r *croutine.Routine, conf config.SchedulerConf) (config.TaskConf, bool) {
	tc, ok := conf.Task(r.Name())
	if ok {
		r.SetPriority(tc.Prio)
	}
	return tc, ok
}
