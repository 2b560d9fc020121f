package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"blockdag-sim/internal/telemetry"
)

const (
	defaultGreptimePort  = 4001
	greptimeWriteTimeout = 10 * time.Second
)

// greptimeClient is the part of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes samples and alert transitions to GreptimeDB via
// the ingester client.
type GreptimeDBWriter struct {
	client      greptimeClient
	sampleTable string
	alertTable  string
	log         *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes into database. Empty table names fall back to the row defaults.
func NewGreptimeDBWriter(endpoint, database, sampleTable, alertTable string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if sampleTable == "" {
		sampleTable = telemetry.SampleTableName
	}
	if alertTable == "" {
		alertTable = telemetry.AlertTableName
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{client: client, sampleTable: sampleTable, alertTable: alertTable, log: log}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

// WriteSample inserts a single sample.
func (w *GreptimeDBWriter) WriteSample(row telemetry.SampleRow) error {
	return w.WriteSamples([]telemetry.SampleRow{row})
}

// WriteSamples inserts multiple samples in one request.
func (w *GreptimeDBWriter) WriteSamples(rows []telemetry.SampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := sampleTable(w.sampleTable)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.NodeID, r.Metric, r.Kind, r.Value, r.P50, r.P95, r.P99, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteAlert inserts a single alert transition.
func (w *GreptimeDBWriter) WriteAlert(row telemetry.AlertRow) error {
	return w.WriteAlerts([]telemetry.AlertRow{row})
}

// WriteAlerts inserts multiple alert transitions in one request.
func (w *GreptimeDBWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := alertTable(w.alertTable)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.NodeID, r.RuleID, r.Severity, r.Transition, r.Value, r.Threshold, r.ActiveFor, r.Message, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.log.Error("greptime write failed", "rows", n, "err", err)
		return err
	}
	w.log.Debug("greptime write", "rows", n)
	return nil
}

func sampleTable(name string) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"run_id", "node_id", "metric"} {
		if err := tbl.AddTagColumn(tag, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("kind", types.STRING); err != nil {
		return nil, err
	}
	for _, f := range []string{"value", "p50", "p95", "p99"} {
		if err := tbl.AddFieldColumn(f, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

func alertTable(name string) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"run_id", "node_id", "rule_id"} {
		if err := tbl.AddTagColumn(tag, types.STRING); err != nil {
			return nil, err
		}
	}
	for _, f := range []string{"severity", "transition"} {
		if err := tbl.AddFieldColumn(f, types.STRING); err != nil {
			return nil, err
		}
	}
	for _, f := range []string{"value", "threshold", "active_for_seconds"} {
		if err := tbl.AddFieldColumn(f, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("message", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}
