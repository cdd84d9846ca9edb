package scheduler

import (
	"log/slog"

	"github.com/jediknight00/apollo/internal/config"
	"github.com/jediknight00/apollo/pkg/croutine"
)

// Choreography pins every routine to one context. A task declaring a
// processor in the config lands there; any other task is pinned by its id,
// so a given name always maps to the same processor and its execution order
// relative to co-located stages is reproducible.
type Choreography struct {
	contexts []*Context
	conf     config.SchedulerConf
	logger   *slog.Logger
	pl       *placement
}

// NewChoreography creates a choreography policy over contexts.
func NewChoreography(contexts []*Context, conf config.SchedulerConf, logger *slog.Logger) *Choreography {
	return &Choreography{
		contexts: contexts,
		conf:     conf,
		logger:   logger,
		pl:       newPlacement(contexts),
	}
}

func (p *Choreography) Name() string { return config.PolicyChoreography }

func (p *Choreography) DispatchTask(r *croutine.Routine) error {
	pid := p.affinity(r)
	r.SetProcessor(pid)
	return p.pl.dispatch(r, p.contexts[pid])
}

func (p *Choreography) NotifyProcessor(id uint64) bool {
	return p.pl.notify(id, nil)
}

// NotifyRoutine wakes r only while it is the routine placed under its id.
func (p *Choreography) NotifyRoutine(r *croutine.Routine) bool {
	return p.pl.notify(r.ID(), r)
}

func (p *Choreography) affinity(r *croutine.Routine) int {
	n := len(p.contexts)
	tc, ok := applyPriority(r, p.conf)
	if ok && tc.Processor != nil {
		if pid := *tc.Processor; pid >= 0 && pid < n {
			return pid
		}
		p.logger.Warn("task processor out of range, pinning by id",
			"name", r.Name(), "processor", *tc.Processor, "processor_num", n)
	}
	return int(r.ID() % uint64(n))
}
