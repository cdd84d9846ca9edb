package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jediknight00/apollo/pkg/perf"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	kindStyles  = map[perf.Kind]lipgloss.Style{
		perf.KindDispatch: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		perf.KindNotify:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		perf.KindFinish:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		perf.KindShutdown: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "print scheduling events recorded by `cyber run --db` or `cyber run --trace`",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			events []perf.Event
			err    error
		)
		switch {
		case traceDB != "" && traceFile != "":
			return fmt.Errorf("--db and --file are mutually exclusive")
		case traceDB != "":
			events, err = loadDB(cmd.Context(), traceDB, traceLimit)
		case traceFile != "":
			events, err = perf.LoadTrace(traceFile)
			if err == nil && traceLimit > 0 && len(events) > traceLimit {
				events = events[:traceLimit]
			}
		default:
			return fmt.Errorf("one of --db or --file is required")
		}
		if err != nil {
			return err
		}
		printEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

func loadDB(ctx context.Context, path string, limit int) ([]perf.Event, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	sink, err := perf.NewSQLiteSink(path, logger)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	if err := sink.Migrate(ctx); err != nil {
		return nil, err
	}
	return sink.Events(ctx, limit)
}

func printEvents(out io.Writer, events []perf.Event) {
	fmt.Fprintln(out, headerStyle.Render(row("TIME", "KIND", "PROC", "ROUTINE", "NAME")))
	for _, e := range events {
		kind := e.Kind.String()
		if st, ok := kindStyles[e.Kind]; ok {
			kind = st.Render(kind)
		}
		proc := "-"
		if e.Processor >= 0 {
			proc = strconv.Itoa(e.Processor)
		}
		fmt.Fprintln(out, row(
			mutedStyle.Render(e.Time.Format("15:04:05.000000")),
			kind, proc, strconv.FormatUint(e.RoutineID, 10), e.Name))
	}
}

func row(cols ...string) string {
	widths := []int{16, 9, 5, 21, 0}
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = lipgloss.NewStyle().Width(widths[i]).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

var (
	traceDB    string
	traceFile  string
	traceLimit int
)

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().StringVar(&traceDB, "db", "", "path of the SQLite event database")
	traceCmd.Flags().StringVarP(&traceFile, "file", "f", "", "path of a JSON-lines trace file")
	traceCmd.Flags().IntVarP(&traceLimit, "limit", "n", 100, "maximum number of events to print (0 for all)")
}
