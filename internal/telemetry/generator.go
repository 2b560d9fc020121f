package telemetry

import (
	"math/rand"
	"time"

	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/metrics"
)

// noiseSpan is the full width of the relative noise band (±5%).
const noiseSpan = 0.1

// Sample is one generated scalar value.
type Sample struct {
	Name  string
	Value float64
}

// HistogramUpdate is one generated quantile summary.
type HistogramUpdate struct {
	Name      string
	Quantiles metrics.Quantiles
}

// Update is everything generated for one node on one tick.
type Update struct {
	// Down marks the downtime short circuit: only node-up was produced.
	Down       bool
	Gauges     []Sample
	Counters   []Sample
	Histograms []HistogramUpdate
}

// Generator computes the next simulated values of a node's series.
type Generator struct {
	rand *rand.Rand
	// last counter values per node, used once a series has been fully evicted
	last map[string]map[string]float64
}

// NewGenerator creates a generator drawing noise from r.
func NewGenerator(r *rand.Rand) *Generator {
	return &Generator{rand: r, last: make(map[string]map[string]float64)}
}

// NextGauge returns baseline plus symmetric noise, floored at zero. u is a
// uniform draw in [0,1).
func NextGauge(baseline, u float64) float64 {
	noise := (u - 0.5) * noiseSpan * baseline
	return max(0, baseline+noise)
}

// NextCounter advances a counter by rate per second over one interval.
// Negative rates are treated as zero so counters never decrease.
func NextCounter(prev, rate float64, interval time.Duration) float64 {
	return prev + max(0, rate)*interval.Seconds()
}

// NextHistogram scales all quantiles by one shared noise factor so their
// ordering is preserved.
func NextHistogram(base metrics.Quantiles, u float64) metrics.Quantiles {
	noise := (u - 0.5) * noiseSpan
	return base.Scale(1 + noise)
}

// Next generates the tick update for node. elapsed is the engine age and
// drives height-like baselines. Overrides from cfg apply only when
// designated is true.
func (g *Generator) Next(node *metrics.NodeState, elapsed time.Duration, cfg anomaly.Config, designated bool) Update {
	if !designated {
		cfg = anomaly.Config{}
	}
	if cfg.NodeDowntime {
		return Update{Down: true, Gauges: []Sample{{Name: metrics.NodeUp, Value: 0}}}
	}

	var u Update
	for _, spec := range metrics.Gauges {
		baseline := spec.BaselineAt(elapsed)
		if v, ok := GaugeOverride(spec.Name, cfg); ok {
			baseline = v
		}
		u.Gauges = append(u.Gauges, Sample{Name: spec.Name, Value: NextGauge(baseline, g.rand.Float64())})
	}
	for _, spec := range metrics.Counters {
		rate := spec.Rate
		if v, ok := CounterOverride(spec.Name, cfg); ok {
			rate = v
		}
		next := NextCounter(g.previous(node, spec), rate, metrics.TickInterval)
		g.remember(node.NodeID, spec.Name, next)
		u.Counters = append(u.Counters, Sample{Name: spec.Name, Value: next})
	}
	for _, spec := range metrics.Histograms {
		base := spec.Baseline
		if q, ok := HistogramOverride(spec.Name, cfg); ok {
			base = q
		}
		u.Histograms = append(u.Histograms, HistogramUpdate{Name: spec.Name, Quantiles: NextHistogram(base, g.rand.Float64())})
	}
	return u
}

func (g *Generator) previous(node *metrics.NodeState, spec metrics.CounterSpec) float64 {
	if m, ok := node.Metrics[spec.Name]; ok {
		if last, ok := m.Latest(); ok {
			return last.Value
		}
	}
	if v, ok := g.last[node.NodeID][spec.Name]; ok {
		return v
	}
	return spec.Seed
}

func (g *Generator) remember(nodeID, name string, v float64) {
	byName, ok := g.last[nodeID]
	if !ok {
		byName = make(map[string]float64)
		g.last[nodeID] = byName
	}
	byName[name] = v
}
