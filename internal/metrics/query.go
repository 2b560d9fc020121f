package metrics

import (
	"sort"
	"time"
)

// TimeRange names a query window.
type TimeRange string

const (
	Range5m  TimeRange = "5m"
	Range15m TimeRange = "15m"
	Range1h  TimeRange = "1h"
	Range6h  TimeRange = "6h"
)

var ranges = map[TimeRange]time.Duration{
	Range5m:  5 * time.Minute,
	Range15m: 15 * time.Minute,
	Range1h:  time.Hour,
	Range6h:  6 * time.Hour,
}

// Duration returns the window length. Unrecognised ranges fall back to one hour.
func (r TimeRange) Duration() time.Duration {
	if d, ok := ranges[r]; ok {
		return d
	}
	return ranges[Range1h]
}

// Series returns the points of a scalar series at or after nowMs minus the
// window. Unknown nodes or metrics yield an empty slice.
func (s *Store) Series(nodeID, metric string, r TimeRange, nowMs int64) []DataPoint {
	n, ok := s.nodes[nodeID]
	if !ok {
		return []DataPoint{}
	}
	m, ok := n.Metrics[metric]
	if !ok {
		return []DataPoint{}
	}
	cutoff := nowMs - r.Duration().Milliseconds()
	i := sort.Search(len(m.Points), func(i int) bool { return m.Points[i].Timestamp >= cutoff })
	return append([]DataPoint{}, m.Points[i:]...)
}

// HistogramSeries projects quantile q of a histogram series into scalar
// points, using the same window filtering as Series.
func (s *Store) HistogramSeries(nodeID, metric string, r TimeRange, q Quantile, nowMs int64) []DataPoint {
	n, ok := s.nodes[nodeID]
	if !ok {
		return []DataPoint{}
	}
	h, ok := n.Histograms[metric]
	if !ok {
		return []DataPoint{}
	}
	if _, ok := (Quantiles{}).Get(q); !ok {
		return []DataPoint{}
	}
	cutoff := nowMs - r.Duration().Milliseconds()
	i := sort.Search(len(h.Samples), func(i int) bool { return h.Samples[i].Timestamp >= cutoff })
	out := make([]DataPoint, 0, len(h.Samples)-i)
	for _, sample := range h.Samples[i:] {
		v, _ := sample.Quantiles.Get(q)
		out = append(out, DataPoint{Timestamp: sample.Timestamp, Value: v})
	}
	return out
}
