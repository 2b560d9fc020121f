package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"blockdag-sim/internal/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios [name]",
	Short: "List built-in incident scenarios",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := scenario.Names()
		if len(args) == 1 {
			names = args
		}
		for _, n := range names {
			sc, err := scenario.Resolve(n)
			if err != nil {
				return err
			}
			renderScenario(cmd.OutOrStdout(), n, sc)
		}
		return nil
	},
}

func renderScenario(w io.Writer, key string, sc *scenario.Scenario) {
	fmt.Fprintf(w, "%s (%s)\n", key, sc.Name)
	fmt.Fprintln(w, prefixLines(wordwrap.String(sc.Description, 76), "  "))
	for _, p := range sc.Phases {
		anomalies := "nominal"
		if len(p.Anomalies) > 0 {
			anomalies = strings.Join(p.Anomalies, ",")
		}
		fmt.Fprintf(w, "  - %s [%s]\n", p.Name, anomalies)
		for _, tr := range p.Triggers {
			fmt.Fprintf(w, "      %s >= %d -> %s\n", tr.Event, tr.Value, tr.Next)
		}
	}
	fmt.Fprintln(w)
}
