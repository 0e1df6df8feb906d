package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/netsim/scenario"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/tracing"
)

func (a *app) newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario.",
		Long: "Run a scenario and report what every application sent and " +
			"received. Captures listed in the scenario are written to " +
			"--pcap-dir.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().String("stop", "", "Override the stop time of the scenario, e.g. 5s.")
	cmd.Flags().String("ascii", "", "Write every trace record as text to this file, - for stdout.")
	cmd.Flags().String("pcap-dir", "", "Directory for the captures of the scenario. Captures are skipped if empty.")
	cmd.Flags().String("db", "", "Record the trace into <db>.sqlite3.")
	cmd.Flags().Bool("event-log", false, "Log every dispatched event at debug level.")
	cmd.Flags().Bool("monitor", false, "Serve the monitoring page while running.")
	cmd.Flags().Int("monitor-port", 0, "Port of the monitoring server; random if 0.")
	cmd.Flags().Bool("open-browser", false, "Open the monitoring page in a browser.")

	return cmd
}

func (a *app) builder(out io.Writer) (simulation.Builder, error) {
	b := simulation.MakeBuilder().WithLogger(a.logger)

	if a.config.GetBool("event-log") {
		b = b.WithEventLogging()
	}

	if path := a.config.GetString("ascii"); path != "" {
		// Hide Close so that stdout stays open.
		w := io.Writer(struct{ io.Writer }{out})
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return b, err
			}

			w = f
		}

		b = b.WithTraceWriter(tracing.NewTextWriter(w))
	}

	if path := a.config.GetString("db"); path != "" {
		b = b.WithDataRecorder(path)
	}

	if a.config.GetBool("monitor") {
		b = b.WithMonitor().WithMonitorPort(a.config.GetInt("monitor-port"))
		if a.config.GetBool("open-browser") {
			b = b.WithOpenBrowser()
		}
	}

	return b, nil
}

func (a *app) run(out io.Writer, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	stop := sc.Stop
	if s := a.config.GetString("stop"); s != "" {
		stop, err = scenario.ParseDuration(s)
		if err != nil {
			return err
		}
	}

	b, err := a.builder(out)
	if err != nil {
		return err
	}

	s, err := b.Build()
	if err != nil {
		return err
	}

	err = a.apply(sc, s)
	if err != nil {
		return errors.Join(err, s.Terminate())
	}

	if dir := a.config.GetString("pcap-dir"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Join(err, s.Terminate())
		}

		if err := sc.OpenCaptures(s, dir); err != nil {
			return errors.Join(err, s.Terminate())
		}
	}

	records, err := s.Run(stop.Seconds())
	err = errors.Join(err, s.Terminate())
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(out,
		"%s finished at %.6fs with %d trace records\n",
		scenarioName(sc, path), s.Engine().CurrentTime(), len(records))

	printApps(out, s)

	return nil
}

// apply sets the scenario up. Unreachable node pairs only warn.
func (a *app) apply(sc *scenario.Scenario, s *simulation.Simulation) error {
	err := sc.Apply(s)
	if errors.Is(err, sim.ErrUnreachableDestination) {
		a.logger.Warn("some nodes cannot reach each other", zap.Error(err))
		return nil
	}

	return err
}

func scenarioName(sc *scenario.Scenario, path string) string {
	if sc.Name != "" {
		return sc.Name
	}

	return path
}

func printApps(out io.Writer, s *simulation.Simulation) {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"App", "Name", "Node", "Role", "State",
		"Sent", "Received", "Received Bytes", "Suppressed"})

	for _, info := range s.Apps() {
		table.Append([]string{
			info.ID.String(),
			info.Name,
			info.Node.String(),
			info.Role.String(),
			info.State.String(),
			strconv.FormatUint(info.Stats.SentPackets, 10),
			strconv.FormatUint(info.Stats.ReceivedPackets, 10),
			strconv.FormatUint(info.Stats.ReceivedBytes, 10),
			strconv.FormatUint(info.Stats.Suppressed, 10),
		})
	}

	table.Render()

	fmt.Fprintln(out)
}
