// Series data model for the simulated node fleet
package metrics

// Kind distinguishes scalar metric families.
type Kind string

const (
	KindGauge   Kind = "gauge"
	KindCounter Kind = "counter"
)

// DataPoint is one scalar sample. Timestamp is unix milliseconds.
type DataPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Quantile selects one field of a histogram sample.
type Quantile string

const (
	P50 Quantile = "p50"
	P95 Quantile = "p95"
	P99 Quantile = "p99"
)

// Quantiles holds the percentile summary of one histogram sample.
type Quantiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Get returns the value of q and false when q is not a known quantile.
func (q Quantiles) Get(which Quantile) (float64, bool) {
	switch which {
	case P50:
		return q.P50, true
	case P95:
		return q.P95, true
	case P99:
		return q.P99, true
	}
	return 0, false
}

// Scale multiplies all three quantiles by factor, flooring each at zero.
func (q Quantiles) Scale(factor float64) Quantiles {
	return Quantiles{
		P50: max(0, q.P50*factor),
		P95: max(0, q.P95*factor),
		P99: max(0, q.P99*factor),
	}
}

// HistogramSample is one quantile summary at a point in time.
type HistogramSample struct {
	Timestamp int64     `json:"timestamp"`
	Quantiles Quantiles `json:"quantiles"`
}

// Metric is an append-only scalar series.
type Metric struct {
	Name   string      `json:"name"`
	Kind   Kind        `json:"kind"`
	Help   string      `json:"help"`
	Points []DataPoint `json:"points"`
}

// Latest returns the most recent point.
func (m *Metric) Latest() (DataPoint, bool) {
	if m == nil || len(m.Points) == 0 {
		return DataPoint{}, false
	}
	return m.Points[len(m.Points)-1], true
}

// Append pushes p to the tail of the series. A point older than the tail is
// stamped with the tail's timestamp so the series stays ordered.
func (m *Metric) Append(p DataPoint) {
	if n := len(m.Points); n > 0 && p.Timestamp < m.Points[n-1].Timestamp {
		p.Timestamp = m.Points[n-1].Timestamp
	}
	m.Points = append(m.Points, p)
}

// HistogramMetric is an append-only quantile series.
type HistogramMetric struct {
	Name    string            `json:"name"`
	Help    string            `json:"help"`
	Samples []HistogramSample `json:"samples"`
}

// Latest returns the most recent sample.
func (h *HistogramMetric) Latest() (HistogramSample, bool) {
	if h == nil || len(h.Samples) == 0 {
		return HistogramSample{}, false
	}
	return h.Samples[len(h.Samples)-1], true
}

// Append pushes s to the tail of the series, clamping its timestamp to the
// tail's like Metric.Append.
func (h *HistogramMetric) Append(s HistogramSample) {
	if n := len(h.Samples); n > 0 && s.Timestamp < h.Samples[n-1].Timestamp {
		s.Timestamp = h.Samples[n-1].Timestamp
	}
	h.Samples = append(h.Samples, s)
}

// NodeState holds every series of one simulated node.
type NodeState struct {
	NodeID     string                      `json:"node_id"`
	Metrics    map[string]*Metric          `json:"metrics"`
	Histograms map[string]*HistogramMetric `json:"histograms"`
	LastUpdate int64                       `json:"last_update"`
}

// Clone returns a deep copy of the node state.
func (n *NodeState) Clone() *NodeState {
	if n == nil {
		return nil
	}
	out := &NodeState{
		NodeID:     n.NodeID,
		Metrics:    make(map[string]*Metric, len(n.Metrics)),
		Histograms: make(map[string]*HistogramMetric, len(n.Histograms)),
		LastUpdate: n.LastUpdate,
	}
	for name, m := range n.Metrics {
		cp := *m
		cp.Points = append([]DataPoint(nil), m.Points...)
		out.Metrics[name] = &cp
	}
	for name, h := range n.Histograms {
		cp := *h
		cp.Samples = append([]HistogramSample(nil), h.Samples...)
		out.Histograms[name] = &cp
	}
	return out
}
