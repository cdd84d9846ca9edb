package scheduler

import (
	"sync/atomic"

	"github.com/jediknight00/apollo/internal/config"
	"github.com/jediknight00/apollo/pkg/croutine"
)

// Classic spreads routines over all contexts, placing each new routine on
// the least loaded one. Ties rotate round-robin so an idle pool fills evenly.
type Classic struct {
	contexts []*Context
	conf     config.SchedulerConf
	cursor   atomic.Uint64
	pl       *placement
}

// NewClassic creates a classic policy over contexts.
func NewClassic(contexts []*Context, conf config.SchedulerConf) *Classic {
	return &Classic{
		contexts: contexts,
		conf:     conf,
		pl:       newPlacement(contexts),
	}
}

func (p *Classic) Name() string { return config.PolicyClassic }

func (p *Classic) DispatchTask(r *croutine.Routine) error {
	applyPriority(r, p.conf)
	c := p.pick()
	r.SetProcessor(c.ID())
	return p.pl.dispatch(r, c)
}

func (p *Classic) NotifyProcessor(id uint64) bool {
	return p.pl.notify(id, nil)
}

// NotifyRoutine wakes r only while it is the routine placed under its id.
func (p *Classic) NotifyRoutine(r *croutine.Routine) bool {
	return p.pl.notify(r.ID(), r)
}

func (p *Classic) pick() *Context {
	n := len(p.contexts)
	start := int(p.cursor.Add(1)-1) % n

	var best *Context
	bestLoad := 0
	for i := 0; i < n; i++ {
		c := p.contexts[(start+i)%n]
		if c.Closed() {
			continue
		}
		if load := c.Load(); best == nil || load < bestLoad {
			best, bestLoad = c, load
		}
	}
	if best == nil {
		// Everything is shut down; Add reports it.
		return p.contexts[start]
	}
	return best
}
