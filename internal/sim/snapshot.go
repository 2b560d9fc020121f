package sim

import (
	"blockdag-sim/internal/metrics"
)

// LatestPoint is the newest point of one scalar series.
type LatestPoint struct {
	Metric string            `json:"metric"`
	Kind   metrics.Kind      `json:"kind"`
	Point  metrics.DataPoint `json:"point"`
}

// LatestHistogram is the newest sample of one histogram series.
type LatestHistogram struct {
	Metric string                  `json:"metric"`
	Sample metrics.HistogramSample `json:"sample"`
}

// NodeSnapshot holds the newest value of every series of a node, in catalog
// order. Series with no points are omitted.
type NodeSnapshot struct {
	NodeID     string            `json:"node_id"`
	LastUpdate int64             `json:"last_update"`
	Metrics    []LatestPoint     `json:"metrics"`
	Histograms []LatestHistogram `json:"histograms"`
}

// Value returns the newest value of a scalar metric.
func (s NodeSnapshot) Value(metric string) (float64, bool) {
	for _, p := range s.Metrics {
		if p.Metric == metric {
			return p.Point.Value, true
		}
	}
	return 0, false
}

// Up reports whether the node's newest node-up sample is non-zero.
func (s NodeSnapshot) Up() bool {
	v, ok := s.Value(metrics.NodeUp)
	return ok && v != 0
}

// Snapshot returns the latest values of every node in construction order.
func (e *Engine) Snapshot() []NodeSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := e.store.NodeIDs()
	out := make([]NodeSnapshot, 0, len(ids))
	for _, id := range ids {
		n, ok := e.store.Node(id)
		if !ok {
			continue
		}
		out = append(out, snapshotNode(n))
	}
	return out
}

// NodeSnapshot returns the latest values of one node.
func (e *Engine) NodeSnapshot(nodeID string) (NodeSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.store.Node(nodeID)
	if !ok {
		return NodeSnapshot{}, false
	}
	return snapshotNode(n), true
}

func snapshotNode(n *metrics.NodeState) NodeSnapshot {
	s := NodeSnapshot{NodeID: n.NodeID, LastUpdate: n.LastUpdate}
	for _, spec := range metrics.Gauges {
		if p, ok := n.Metrics[spec.Name].Latest(); ok {
			s.Metrics = append(s.Metrics, LatestPoint{Metric: spec.Name, Kind: metrics.KindGauge, Point: p})
		}
	}
	for _, spec := range metrics.Counters {
		if p, ok := n.Metrics[spec.Name].Latest(); ok {
			s.Metrics = append(s.Metrics, LatestPoint{Metric: spec.Name, Kind: metrics.KindCounter, Point: p})
		}
	}
	for _, spec := range metrics.Histograms {
		if h, ok := n.Histograms[spec.Name].Latest(); ok {
			s.Histograms = append(s.Histograms, LatestHistogram{Metric: spec.Name, Sample: h})
		}
	}
	return s
}
