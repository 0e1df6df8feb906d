package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/tracing"
)

func (a *app) newTraceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <trace.sqlite3>",
		Short: "Query a trace recorded with run --db.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.trace(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().String("kind", "", "Only show records of this kind, e.g. receive.")
	cmd.Flags().String("outcome", "", "Only show records with this outcome, e.g. dropped.")
	cmd.Flags().Int("node", -1, "Only show records of this node.")
	cmd.Flags().Int("limit", 50, "Show at most this many records.")
	cmd.Flags().Int("offset", 0, "Skip this many records.")

	return cmd
}

func (a *app) traceQuery() datarecording.QueryParams {
	var (
		where []string
		args  []any
	)

	if kind := a.config.GetString("kind"); kind != "" {
		where = append(where, "Kind = ?")
		args = append(args, kind)
	}

	if outcome := a.config.GetString("outcome"); outcome != "" {
		where = append(where, "Outcome = ?")
		args = append(args, outcome)
	}

	if node := a.config.GetInt("node"); node >= 0 {
		where = append(where, "Node = ?")
		args = append(args, node)
	}

	return datarecording.QueryParams{
		Where:   strings.Join(where, " AND "),
		Args:    args,
		OrderBy: "Time ASC",
		Limit:   a.config.GetInt("limit"),
		Offset:  a.config.GetInt("offset"),
	}
}

func (a *app) trace(ctx context.Context, out io.Writer, path string) error {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(tracing.DefaultTraceTable, tracing.DBRecord{})

	rows, total, err := reader.Query(ctx, tracing.DefaultTraceTable, a.traceQuery())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Time", "Kind", "Node", "Interface", "App",
		"Packet", "Size", "Protocol", "Src", "Dst", "Outcome"})

	for _, row := range rows {
		r := row.(*tracing.DBRecord)
		table.Append([]string{
			strconv.FormatFloat(r.Time, 'f', 9, 64),
			r.Kind,
			strconv.Itoa(r.Node),
			strconv.Itoa(r.Interface),
			strconv.Itoa(r.App),
			strconv.FormatUint(r.PacketID, 10),
			strconv.Itoa(r.PacketSize),
			r.Protocol,
			r.Src,
			r.Dst,
			r.Outcome,
		})
	}

	table.Render()

	fmt.Fprintf(out, "%d of %d records\n", len(rows), total)

	return nil
}
