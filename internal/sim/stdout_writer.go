// Writer implementation printing samples and alerts to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/telemetry"
)

const defaultWrapWidth = 100

var (
	styleTime     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleNode     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleMetric   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleResolved = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Overview is printed once before the first colorized row.
type Overview struct {
	RunID      string
	Nodes      []string
	Designated string
	Anomalies  string
}

// StdoutWriter prints rows as JSON lines, or as colorized text when attached
// to a terminal.
type StdoutWriter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	width    int
	overview *Overview
	once     sync.Once
}

// NewStdoutWriter writes to os.Stdout, colorizing when it is a terminal.
func NewStdoutWriter(overview *Overview) *StdoutWriter {
	fd := int(os.Stdout.Fd())
	w := &StdoutWriter{out: os.Stdout, overview: overview, width: defaultWrapWidth}
	if term.IsTerminal(fd) {
		w.colorize = true
		if width, _, err := term.GetSize(fd); err == nil && width > 20 {
			w.width = width
		}
	}
	return w
}

// NewJSONStdoutWriter always prints JSON lines to out.
func NewJSONStdoutWriter(out io.Writer) *StdoutWriter {
	return &StdoutWriter{out: out, width: defaultWrapWidth}
}

func (w *StdoutWriter) printOverview() {
	o := w.overview
	if o == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", o.RunID)
	fmt.Fprintf(tw, "Nodes:\t%s\n", strings.Join(o.Nodes, ", "))
	fmt.Fprintf(tw, "Degraded node:\t%s\n", o.Designated)
	fmt.Fprintf(tw, "Anomalies:\t%s\n", o.Anomalies)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func (w *StdoutWriter) printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteSample prints one sample.
func (w *StdoutWriter) WriteSample(row telemetry.SampleRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)

	value := metrics.FormatValue(row.Metric, row.Value)
	if row.Kind == telemetry.KindHistogram {
		value = fmt.Sprintf("p50=%s p95=%s p99=%s",
			metrics.FormatDuration(row.P50), metrics.FormatDuration(row.P95), metrics.FormatDuration(row.P99))
	}
	_, err := fmt.Fprintf(w.out, "%s %s %s %s\n",
		styleTime.Render("["+row.Timestamp.Format(time.RFC3339)+"]"),
		styleNode.Render(row.NodeID),
		styleMetric.Render(row.Metric),
		value)
	return err
}

// WriteSamples prints multiple samples.
func (w *StdoutWriter) WriteSamples(rows []telemetry.SampleRow) error {
	for _, r := range rows {
		if err := w.WriteSample(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert prints one alert transition.
func (w *StdoutWriter) WriteAlert(row telemetry.AlertRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)

	label := styleWarning.Render("WARNING")
	if row.Severity == "critical" {
		label = styleCritical.Render("CRITICAL")
	}
	if row.Transition == telemetry.AlertResolved {
		label = styleResolved.Render("RESOLVED")
	}
	head := fmt.Sprintf("%s %s %s %s value=%s threshold=%s",
		styleTime.Render("["+row.Timestamp.Format(time.RFC3339)+"]"),
		label,
		styleNode.Render(row.NodeID),
		row.RuleID,
		metrics.FormatNumber(row.Value, 2),
		metrics.FormatNumber(row.Threshold, 2))
	if row.Transition == telemetry.AlertResolved {
		head += " after " + metrics.FormatDuration(row.ActiveFor)
	}
	fmt.Fprintln(w.out, head)
	_, err := fmt.Fprintln(w.out, indent(wordwrap.String(row.Message, w.width-4), "    "))
	return err
}

// WriteAlerts prints multiple alert transitions.
func (w *StdoutWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, r := range rows {
		if err := w.WriteAlert(r); err != nil {
			return err
		}
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
