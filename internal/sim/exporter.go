package sim

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/telemetry"
)

const defaultExportQueue = 64

// ExporterOptions configures an Exporter. Zero values pick defaults.
type ExporterOptions struct {
	RunID     string
	QueueSize int
	Tracker   *alerts.Tracker
	Logger    *slog.Logger
}

type exportBatch struct {
	samples []telemetry.SampleRow
	alerts  []telemetry.AlertRow
}

// Exporter turns every engine tick into sample rows and alert transitions
// and hands them to writers on a background worker, so a slow sink never
// blocks the tick.
type Exporter struct {
	engine  *Engine
	samples SampleWriter
	alerts  AlertWriter
	tracker *alerts.Tracker
	runID   string
	log     *slog.Logger
	queue   chan exportBatch
	dropped atomic.Uint64

	mutCancel   sync.Mutex
	cancel      func()
	unsubscribe func()
	done        chan struct{}
}

// NewExporter creates an exporter for engine. Either writer may be nil.
func NewExporter(engine *Engine, samples SampleWriter, alertWriter AlertWriter, opts ExporterOptions) *Exporter {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultExportQueue
	}
	if opts.Tracker == nil {
		opts.Tracker = alerts.NewTracker()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Exporter{
		engine:  engine,
		samples: samples,
		alerts:  alertWriter,
		tracker: opts.Tracker,
		runID:   opts.RunID,
		log:     opts.Logger,
		queue:   make(chan exportBatch, opts.QueueSize),
	}
}

// RunID identifies the rows written by this exporter.
func (x *Exporter) RunID() string { return x.runID }

// Dropped returns how many tick batches were discarded on a full queue.
func (x *Exporter) Dropped() uint64 { return x.dropped.Load() }

// Start subscribes to the engine and starts the writer worker. Calling it
// again while started is a no-op.
func (x *Exporter) Start(ctx context.Context) {
	x.mutCancel.Lock()
	defer x.mutCancel.Unlock()
	if x.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	x.cancel = cancel
	x.done = make(chan struct{})
	x.unsubscribe = x.engine.Subscribe(x.onTick)
	go x.work(ctx, x.done)
}

// Close unsubscribes, flushes queued batches and stops the worker.
func (x *Exporter) Close() {
	x.mutCancel.Lock()
	defer x.mutCancel.Unlock()
	if x.cancel == nil {
		return
	}
	x.unsubscribe()
	x.cancel()
	<-x.done
	x.cancel = nil
}

func (x *Exporter) onTick() {
	b := x.collect()
	if len(b.samples) == 0 && len(b.alerts) == 0 {
		return
	}
	select {
	case x.queue <- b:
	default:
		n := x.dropped.Add(1)
		x.log.Warn("export queue full, dropping tick", "samples", len(b.samples), "alerts", len(b.alerts), "dropped_total", n)
	}
}

// collect builds the rows of the tick that just completed: the newest point
// of every series touched on it plus alert transitions.
func (x *Exporter) collect() exportBatch {
	var b exportBatch
	now := x.engine.Now()
	for _, snap := range x.engine.Snapshot() {
		b.samples = append(b.samples, x.sampleRows(snap)...)

		evals, ok := x.engine.EvaluateNode(snap.NodeID)
		if !ok {
			continue
		}
		_, transitions := x.tracker.Update(snap.NodeID, evals, now)
		for _, tr := range transitions {
			b.alerts = append(b.alerts, x.alertRow(tr))
		}
	}
	return b
}

func (x *Exporter) sampleRows(snap NodeSnapshot) []telemetry.SampleRow {
	ts := time.UnixMilli(snap.LastUpdate).UTC()
	var rows []telemetry.SampleRow
	for _, p := range snap.Metrics {
		if p.Point.Timestamp != snap.LastUpdate {
			continue
		}
		rows = append(rows, telemetry.SampleRow{
			RunID:     x.runID,
			NodeID:    snap.NodeID,
			Metric:    p.Metric,
			Kind:      string(p.Kind),
			Value:     p.Point.Value,
			Timestamp: ts,
		})
	}
	for _, h := range snap.Histograms {
		if h.Sample.Timestamp != snap.LastUpdate {
			continue
		}
		q := h.Sample.Quantiles
		rows = append(rows, telemetry.SampleRow{
			RunID:     x.runID,
			NodeID:    snap.NodeID,
			Metric:    h.Metric,
			Kind:      telemetry.KindHistogram,
			Value:     q.P95,
			P50:       q.P50,
			P95:       q.P95,
			P99:       q.P99,
			Timestamp: ts,
		})
	}
	return rows
}

func (x *Exporter) alertRow(tr alerts.Transition) telemetry.AlertRow {
	a := tr.Alert
	kind := telemetry.AlertFired
	if tr.Kind == alerts.Resolved {
		kind = telemetry.AlertResolved
	}
	return telemetry.AlertRow{
		RunID:      x.runID,
		NodeID:     a.NodeID,
		RuleID:     a.RuleID,
		Severity:   string(a.Severity),
		Transition: kind,
		Value:      a.Value,
		Threshold:  a.Threshold,
		ActiveFor:  a.TimeActive.Seconds(),
		Message:    a.Description + ": " + metrics.FormatValue(a.Metric, a.Value),
		Timestamp:  tr.At.UTC(),
	}
}

func (x *Exporter) work(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case b := <-x.queue:
			x.write(b)
		case <-ctx.Done():
			for {
				select {
				case b := <-x.queue:
					x.write(b)
				default:
					return
				}
			}
		}
	}
}

func (x *Exporter) write(b exportBatch) {
	if x.samples != nil {
		if err := writeSamples(x.samples, b.samples); err != nil {
			x.log.Error("sample write failed", "rows", len(b.samples), "err", err)
		}
	}
	if x.alerts != nil {
		if err := writeAlerts(x.alerts, b.alerts); err != nil {
			x.log.Error("alert write failed", "rows", len(b.alerts), "err", err)
		}
	}
}
