package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jediknight00/apollo/internal/monitor"
	"github.com/jediknight00/apollo/pkg/croutine"
	"github.com/jediknight00/apollo/pkg/data"
	"github.com/jediknight00/apollo/pkg/perf"
	"github.com/jediknight00/apollo/pkg/registry"
	"github.com/jediknight00/apollo/pkg/scheduler"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a demo pipeline of data-driven routines until interrupted",
	Long: `Builds a scheduler from the config, then chains --tasks routines through
data visitors: a ticker publishes into the first stage and every stage forwards
to the next. SIGINT or SIGTERM shuts the scheduler down.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if numTasks < 1 {
			return fmt.Errorf("--tasks must be at least 1, got %d", numTasks)
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())

		sinks := perf.Multi{}
		var recorder *perf.Recorder
		if runTraceFile != "" {
			recorder = perf.NewRecorder(runTraceFile)
			sinks = append(sinks, recorder)
		}
		if dbPath != "" {
			db, err := perf.NewSQLiteSink(dbPath, logger)
			if err != nil {
				return err
			}
			defer func() {
				if n := db.Dropped(); n > 0 {
					logger.Warn("scheduling events dropped by sqlite sink", "dropped", n)
				}
				db.Close()
			}()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "cyber",
				Subsystem: "perf",
				Name:      "dropped_events_total",
				Help:      "Scheduling events discarded because the sqlite writer fell behind.",
			}, func() float64 { return float64(db.Dropped()) }))
			sinks = append(sinks, db)
		}

		names := registry.New()
		sched, err := scheduler.FromConfig(workRoot, schedName,
			scheduler.WithLogger(logger),
			scheduler.WithRegistry(names),
			scheduler.WithSink(sinks),
			scheduler.WithMetrics(scheduler.NewMetrics(reg)),
		)
		if err != nil {
			return err
		}

		source, err := buildPipeline(sched, numTasks, reg, logger)
		if err != nil {
			sched.ShutDown()
			sched.Wait()
			return err
		}
		logger.Info("pipeline ready", "tasks", names.Len(), "policy", sched.PolicyName())

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			for seq := 0; ; seq++ {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					source.Publish(seq)
				}
			}
		})

		var srv *http.Server
		if monitorAddr != "" {
			srv = &http.Server{
				Addr:    monitorAddr,
				Handler: monitor.New(sched, reg, logger, monitor.WithNames(names)),
			}
			g.Go(func() error {
				logger.Info("monitor listening", "addr", monitorAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("monitor: %w", err)
				}
				return nil
			})
		}

		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down")
			sched.ShutDown()
			sched.Wait()

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
			return nil
		})

		err = g.Wait()
		if recorder != nil {
			if ferr := recorder.Flush(); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return err
	},
}

// buildPipeline creates n chained stages and returns the visitor feeding
// the first one. Each stage's buffer depth and drop count are exported to reg.
func buildPipeline(sched *scheduler.Scheduler, n int, reg prometheus.Registerer, logger *slog.Logger) (*data.ChannelVisitor[int], error) {
	visitors := make([]*data.ChannelVisitor[int], n)
	for i := range visitors {
		v := data.NewChannelVisitor[int](data.DefaultDepth)
		visitors[i] = v
		labels := prometheus.Labels{"stage": fmt.Sprintf("stage-%d", i)}
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   "cyber",
				Subsystem:   "visitor",
				Name:        "buffered",
				Help:        "Messages waiting in a stage's visitor.",
				ConstLabels: labels,
			}, func() float64 { return float64(v.Len()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace:   "cyber",
				Subsystem:   "visitor",
				Name:        "dropped_total",
				Help:        "Messages discarded because a stage's visitor was full.",
				ConstLabels: labels,
			}, func() float64 { return float64(v.Dropped()) }),
		)
	}

	for i := 0; i < n; i++ {
		name := fmt.Sprintf("stage-%d", i)
		var handle func(int)
		if i+1 < n {
			next := visitors[i+1]
			handle = func(v int) { next.Publish(v) }
		} else {
			handle = func(v int) { logger.Debug("pipeline output", "stage", name, "seq", v) }
		}
		if !sched.CreateTaskFromFactory(croutine.NewFactory(visitors[i], handle), name) {
			return nil, fmt.Errorf("create task %s", name)
		}
	}
	return visitors[0], nil
}

var (
	numTasks     int
	period       time.Duration
	monitorAddr  string
	dbPath       string
	runTraceFile string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&numTasks, "tasks", "n", 4, "number of pipeline stages")
	runCmd.Flags().DurationVar(&period, "period", 100*time.Millisecond, "interval between published messages")
	runCmd.Flags().StringVar(&monitorAddr, "monitor-addr", "127.0.0.1:9090", "monitor listen address (empty disables)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "record scheduling events into this SQLite database")
	runCmd.Flags().StringVar(&runTraceFile, "trace", "", "write scheduling events as JSON lines on exit")
}
