package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/metrics"
)

var (
	rulesJSON  bool
	rulesWidth int
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the alert rule catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rulesJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(alerts.Catalog)
		}
		return renderRules(cmd.OutOrStdout(), alerts.Catalog, rulesWidth)
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "Print the catalog as JSON")
	rulesCmd.Flags().IntVar(&rulesWidth, "width", 80, "Wrap width for descriptions")
}

// condition renders the check a rule performs, e.g. "blockdag_peers_connected < 6.00".
func condition(r alerts.Rule) string {
	switch {
	case r.Kind == alerts.KindRate && r.Companion != "":
		return fmt.Sprintf("%s / %s %s %s%%", r.Metric, r.Companion, r.Comparator, metrics.FormatNumber(r.Bound, 2))
	case r.Kind == alerts.KindRate:
		return fmt.Sprintf("rate(%s) %s %s/s", r.Metric, r.Comparator, metrics.FormatNumber(r.Bound, 2))
	case alerts.IsHistogramMetric(r.Metric):
		return fmt.Sprintf("p95(%s) %s %s", r.Metric, r.Comparator, metrics.FormatValue(r.Metric, r.Bound))
	}
	return fmt.Sprintf("%s %s %s", r.Metric, r.Comparator, metrics.FormatValue(r.Metric, r.Bound))
}

func renderRules(w io.Writer, rules []alerts.Rule, width int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tKIND\tCONDITION")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Kind, condition(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, r := range rules {
		text := wordwrap.String(r.Name+". "+r.Description+".", width-4)
		fmt.Fprintf(w, "%s\n%s\n", r.ID, prefixLines(text, "    "))
	}
	return nil
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
