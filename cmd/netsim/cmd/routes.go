package cmd

import (
	"errors"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sarchlab/netsim/scenario"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/simulation"
)

func (a *app) newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes <scenario.yaml>",
		Short: "Print the routing tables of a scenario.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.routes(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) routes(out io.Writer, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	s, err := simulation.MakeBuilder().WithLogger(a.logger).Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	err = sc.Apply(s)
	if errors.Is(err, sim.ErrUnreachableDestination) {
		color.New(color.FgYellow).Fprintf(out, "warning: %v\n", err)
	} else if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Node", "Destination", "Interface", "Address", "Next Hop"})

	for _, n := range s.Topology().Nodes() {
		entries, err := s.Routes(n.ID)
		if err != nil {
			return err
		}

		for _, e := range entries {
			iface := s.Topology().Interface(e.Interface)
			table.Append([]string{
				n.ID.String(),
				e.Destination.String(),
				e.Interface.String(),
				iface.Address.String(),
				e.NextHop.String(),
			})
		}
	}

	table.Render()

	return nil
}
