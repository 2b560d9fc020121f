package admin

import (
	"github.com/prometheus/client_golang/prometheus"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/sim"
)

var quantileLabels = []struct {
	q     metrics.Quantile
	label string
}{
	{metrics.P50, "0.5"},
	{metrics.P95, "0.95"},
	{metrics.P99, "0.99"},
}

// Collector exposes the newest value of every simulated series in the
// Prometheus exposition format, the way a real node's /metrics would.
type Collector struct {
	engine *sim.Engine

	scalars    map[string]*prometheus.Desc
	histograms map[string]*prometheus.Desc
	ticks      *prometheus.Desc
	anomaly    *prometheus.Desc
	firing     *prometheus.Desc
}

// NewCollector builds descriptors for the full metric catalog.
func NewCollector(engine *sim.Engine) *Collector {
	c := &Collector{
		engine:     engine,
		scalars:    make(map[string]*prometheus.Desc),
		histograms: make(map[string]*prometheus.Desc),
		ticks:      prometheus.NewDesc("blockdag_sim_ticks_total", "Completed simulation ticks", nil, nil),
		anomaly:    prometheus.NewDesc("blockdag_sim_anomaly_enabled", "Whether an anomaly flag is set", []string{"flag"}, nil),
		firing:     prometheus.NewDesc("blockdag_sim_alerts_active", "Alert rules currently active", []string{"node", "severity"}, nil),
	}
	for _, g := range metrics.Gauges {
		c.scalars[g.Name] = prometheus.NewDesc(g.Name, g.Help, []string{"node"}, nil)
	}
	for _, ctr := range metrics.Counters {
		c.scalars[ctr.Name] = prometheus.NewDesc(ctr.Name, ctr.Help, []string{"node"}, nil)
	}
	for _, h := range metrics.Histograms {
		c.histograms[h.Name] = prometheus.NewDesc(h.Name, h.Help, []string{"node", "quantile"}, nil)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.scalars {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.ticks
	ch <- c.anomaly
	ch <- c.firing
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, snap := range c.engine.Snapshot() {
		for _, p := range snap.Metrics {
			d, ok := c.scalars[p.Metric]
			if !ok {
				continue
			}
			vt := prometheus.GaugeValue
			if p.Kind == metrics.KindCounter {
				vt = prometheus.CounterValue
			}
			ch <- prometheus.MustNewConstMetric(d, vt, p.Point.Value, snap.NodeID)
		}
		for _, h := range snap.Histograms {
			d, ok := c.histograms[h.Metric]
			if !ok {
				continue
			}
			for _, ql := range quantileLabels {
				v, _ := h.Sample.Quantiles.Get(ql.q)
				ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, snap.NodeID, ql.label)
			}
		}
		c.collectFiring(ch, snap.NodeID)
	}

	ticks, _ := c.engine.Stats()
	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(ticks))

	cfg := c.engine.AnomalyConfig()
	for _, name := range anomaly.Names {
		v := 0.0
		if cfg.Enabled(name) {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.anomaly, prometheus.GaugeValue, v, name)
	}
}

func (c *Collector) collectFiring(ch chan<- prometheus.Metric, nodeID string) {
	evals, ok := c.engine.EvaluateNode(nodeID)
	if !ok {
		return
	}
	counts := map[alerts.Severity]int{alerts.SeverityWarning: 0, alerts.SeverityCritical: 0}
	for _, ev := range evals {
		if ev.Active {
			counts[ev.Rule.Severity]++
		}
	}
	for _, sev := range []alerts.Severity{alerts.SeverityWarning, alerts.SeverityCritical} {
		ch <- prometheus.MustNewConstMetric(c.firing, prometheus.GaugeValue, float64(counts[sev]), nodeID, string(sev))
	}
}
