package sim

import (
	"context"

	"blockdag-sim/internal/logging"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/telemetry"
)

// Start begins ticking every metrics.TickInterval until Stop is called or ctx
// is done. Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mutRun.Lock()
	defer e.mutRun.Unlock()
	if e.running {
		return
	}
	stop := make(chan struct{})
	ticker := e.clock.NewTicker(metrics.TickInterval)
	e.stop = stop
	e.running = true

	log := logging.FromContext(ctx)
	log.Info("starting engine", "tick_interval", metrics.TickInterval, "nodes", len(e.NodeIDs()))
	go e.run(ctx, ticker, stop)
}

// Stop halts ticking. It does not wait for an in-flight tick, so it is safe
// to call from a listener. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mutRun.Lock()
	defer e.mutRun.Unlock()
	if !e.running {
		return
	}
	close(e.stop)
	e.running = false
	e.log.Info("stopping engine")
}

// Running reports whether the scheduler is active.
func (e *Engine) Running() bool {
	e.mutRun.Lock()
	defer e.mutRun.Unlock()
	return e.running
}

func (e *Engine) run(ctx context.Context, ticker Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			e.tick(stop)
		case <-stop:
			return
		case <-ctx.Done():
			e.stopIfCurrent(stop)
			return
		}
	}
}

// stopIfCurrent marks the engine stopped when stop still belongs to the
// active run.
func (e *Engine) stopIfCurrent(stop chan struct{}) {
	e.mutRun.Lock()
	defer e.mutRun.Unlock()
	if e.running && e.stop == stop {
		close(stop)
		e.running = false
	}
}

// Step runs one tick immediately, whether or not the scheduler is running.
func (e *Engine) Step() {
	e.tick(nil)
}

// tick advances every node, evicts expired points, then notifies listeners
// outside the store lock.
func (e *Engine) tick(stop <-chan struct{}) {
	if stop != nil {
		select {
		case <-stop:
			return
		default:
		}
	}
	e.advance()
	e.bus.Notify()
}

func (e *Engine) advance() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	elapsed := now.Sub(e.started)
	cfg := e.anomalies

	for i, id := range e.store.NodeIDs() {
		node, ok := e.store.Node(id)
		if !ok {
			continue
		}
		u := e.gen.Next(node, elapsed, cfg, i == 0)
		e.apply(id, u, nowMs)
		e.store.Touch(id, nowMs)
	}
	e.store.EvictOlderThan(nowMs - metrics.Retention.Milliseconds())
	e.ticks++
	e.lastTick = now
}

func (e *Engine) apply(nodeID string, u telemetry.Update, nowMs int64) {
	for _, g := range u.Gauges {
		e.store.Append(nodeID, g.Name, metrics.DataPoint{Timestamp: nowMs, Value: g.Value})
	}
	for _, c := range u.Counters {
		e.store.Append(nodeID, c.Name, metrics.DataPoint{Timestamp: nowMs, Value: c.Value})
	}
	for _, h := range u.Histograms {
		e.store.AppendHistogram(nodeID, h.Name, metrics.HistogramSample{Timestamp: nowMs, Quantiles: h.Quantiles})
	}
}
