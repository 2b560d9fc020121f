package metrics

import "sort"

// Store owns the series of every node. It is not safe for concurrent use;
// the engine guards it.
type Store struct {
	order []string
	nodes map[string]*NodeState
}

// NewStore creates one NodeState per id and seeds every catalog metric with a
// single point at nowMs. Duplicate ids are ignored after their first use.
func NewStore(nodeIDs []string, nowMs int64) *Store {
	s := &Store{nodes: make(map[string]*NodeState, len(nodeIDs))}
	for _, id := range nodeIDs {
		if _, dup := s.nodes[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.nodes[id] = seedNode(id, nowMs)
	}
	return s
}

func seedNode(id string, nowMs int64) *NodeState {
	n := &NodeState{
		NodeID:     id,
		Metrics:    make(map[string]*Metric, len(Gauges)+len(Counters)),
		Histograms: make(map[string]*HistogramMetric, len(Histograms)),
		LastUpdate: nowMs,
	}
	for _, g := range Gauges {
		n.Metrics[g.Name] = &Metric{
			Name:   g.Name,
			Kind:   KindGauge,
			Help:   g.Help,
			Points: []DataPoint{{Timestamp: nowMs, Value: g.Seed}},
		}
	}
	for _, c := range Counters {
		n.Metrics[c.Name] = &Metric{
			Name:   c.Name,
			Kind:   KindCounter,
			Help:   c.Help,
			Points: []DataPoint{{Timestamp: nowMs, Value: c.Seed}},
		}
	}
	for _, h := range Histograms {
		n.Histograms[h.Name] = &HistogramMetric{
			Name:    h.Name,
			Help:    h.Help,
			Samples: []HistogramSample{{Timestamp: nowMs, Quantiles: h.Baseline}},
		}
	}
	return n
}

// NodeIDs returns the node ids in construction order.
func (s *Store) NodeIDs() []string {
	return append([]string(nil), s.order...)
}

// Node returns the live state of a node. Callers outside the engine should
// use Clone on the result.
func (s *Store) Node(id string) (*NodeState, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Append pushes p onto a scalar series. Unknown nodes or metrics are ignored
// and reported as false.
func (s *Store) Append(nodeID, metric string, p DataPoint) bool {
	n, ok := s.nodes[nodeID]
	if !ok {
		return false
	}
	m, ok := n.Metrics[metric]
	if !ok {
		return false
	}
	m.Append(p)
	return true
}

// AppendHistogram pushes sample onto a histogram series. Unknown nodes or
// metrics are ignored and reported as false.
func (s *Store) AppendHistogram(nodeID, metric string, sample HistogramSample) bool {
	n, ok := s.nodes[nodeID]
	if !ok {
		return false
	}
	h, ok := n.Histograms[metric]
	if !ok {
		return false
	}
	h.Append(sample)
	return true
}

// Touch records nowMs as the last update time of a node. LastUpdate never
// moves backwards, matching the clamped series timestamps.
func (s *Store) Touch(nodeID string, nowMs int64) {
	if n, ok := s.nodes[nodeID]; ok && nowMs > n.LastUpdate {
		n.LastUpdate = nowMs
	}
}

// EvictOlderThan drops, from every series, the prefix of points older than
// cutoffMs.
func (s *Store) EvictOlderThan(cutoffMs int64) {
	for _, n := range s.nodes {
		for _, m := range n.Metrics {
			i := sort.Search(len(m.Points), func(i int) bool { return m.Points[i].Timestamp >= cutoffMs })
			if i > 0 {
				m.Points = append(m.Points[:0:0], m.Points[i:]...)
			}
		}
		for _, h := range n.Histograms {
			i := sort.Search(len(h.Samples), func(i int) bool { return h.Samples[i].Timestamp >= cutoffMs })
			if i > 0 {
				h.Samples = append(h.Samples[:0:0], h.Samples[i:]...)
			}
		}
	}
}
