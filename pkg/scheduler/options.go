package scheduler

import (
	"log/slog"

	"github.com/jediknight00/apollo/internal/logging"
	"github.com/jediknight00/apollo/pkg/perf"
	"github.com/jediknight00/apollo/pkg/registry"
)

type options struct {
	logger   *slog.Logger
	registry registry.Registry
	sink     perf.Sink
	metrics  *Metrics
}

// Option configures a Scheduler.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the name -> id registry. The default is a fresh registry.NameRegistry.
func WithRegistry(r registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSink sets the observability hook for scheduling events.
func WithSink(s perf.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithMetrics sets the prometheus collectors. The default is unregistered.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.sink == nil {
		o.sink = perf.Nop{}
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}
