package telemetry

import (
	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/metrics"
)

// Per-flag baseline overrides for the degraded node. When several flags touch
// the same metric the later entry wins.
var gaugeOverrides = []struct {
	flag   string
	values map[string]float64
}{
	{anomaly.PeerCollapse, map[string]float64{
		metrics.PeersConnected: 2,
		metrics.PeersInbound:   1,
		metrics.PeersOutbound:  1,
		metrics.DAGTipsCount:   25,
	}},
	{anomaly.MempoolOverload, map[string]float64{
		metrics.MempoolSize:  50000,
		metrics.MempoolBytes: 500 * metrics.MiB,
	}},
	{anomaly.DiskPressure, map[string]float64{
		metrics.DiskFree: 5 * metrics.GiB,
	}},
	{anomaly.ConsensusStress, map[string]float64{
		metrics.FinalityLag: 200,
		metrics.TipAge:      120,
	}},
}

var counterOverrides = []struct {
	flag  string
	rates map[string]float64
}{
	{anomaly.RPCFlood, map[string]float64{
		metrics.RPCRequests: 100,
		metrics.RPCErrors:   5,
	}},
	{anomaly.PeerCollapse, map[string]float64{
		metrics.OrphanBlocks: 0.1,
		metrics.StaleBlocks:  0.1,
	}},
	{anomaly.MempoolOverload, map[string]float64{
		metrics.TxEvicted: 10,
	}},
}

var histogramOverrides = []struct {
	flag      string
	quantiles map[string]metrics.Quantiles
}{
	{anomaly.PropagationSlowdown, map[string]metrics.Quantiles{
		metrics.BlockPropagationLatency: {P50: 0.5, P95: 2.5, P99: 5},
		metrics.TxPropagationLatency:    {P50: 0.2, P95: 1, P99: 2},
	}},
	{anomaly.DiskPressure, map[string]metrics.Quantiles{
		metrics.DBReadLatency:  {P50: 0.01, P95: 0.1, P99: 0.5},
		metrics.DBWriteLatency: {P50: 0.02, P95: 0.2, P99: 1},
	}},
	{anomaly.RPCFlood, map[string]metrics.Quantiles{
		metrics.RPCDuration: {P50: 0.1, P95: 1, P99: 2},
	}},
	{anomaly.ConsensusStress, map[string]metrics.Quantiles{
		metrics.MergeLatency:            {P50: 0.5, P95: 2, P99: 5},
		metrics.ConsensusProcessingTime: {P50: 0.2, P95: 1, P99: 3},
	}},
}

// GaugeOverride returns the anomalous baseline for a gauge, if any flag in
// cfg sets one.
func GaugeOverride(name string, cfg anomaly.Config) (float64, bool) {
	var (
		v     float64
		found bool
	)
	for _, o := range gaugeOverrides {
		if !cfg.Enabled(o.flag) {
			continue
		}
		if x, ok := o.values[name]; ok {
			v, found = x, true
		}
	}
	return v, found
}

// CounterOverride returns the anomalous rate per second for a counter.
func CounterOverride(name string, cfg anomaly.Config) (float64, bool) {
	var (
		v     float64
		found bool
	)
	for _, o := range counterOverrides {
		if !cfg.Enabled(o.flag) {
			continue
		}
		if x, ok := o.rates[name]; ok {
			v, found = x, true
		}
	}
	return v, found
}

// HistogramOverride returns the anomalous baseline quantiles for a histogram.
func HistogramOverride(name string, cfg anomaly.Config) (metrics.Quantiles, bool) {
	var (
		q     metrics.Quantiles
		found bool
	)
	for _, o := range histogramOverrides {
		if !cfg.Enabled(o.flag) {
			continue
		}
		if x, ok := o.quantiles[name]; ok {
			q, found = x, true
		}
	}
	return q, found
}
