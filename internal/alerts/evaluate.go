package alerts

import (
	"strings"

	"blockdag-sim/internal/metrics"
)

// Evaluation is the transient result of one rule against one node.
type Evaluation struct {
	Rule   Rule    `json:"rule"`
	Value  float64 `json:"value"`
	Active bool    `json:"active"`
}

// IsHistogramMetric reports whether name follows the latency/duration naming
// used by histogram series. Such rules read the p95 of the latest sample.
func IsHistogramMetric(name string) bool {
	return strings.Contains(name, "_latency_seconds") || strings.Contains(name, "_duration_seconds")
}

// Evaluate runs every catalog rule against state and returns one evaluation
// per rule in catalog order. A nil state evaluates every rule against the
// zero default.
func Evaluate(state *metrics.NodeState) []Evaluation {
	return EvaluateRules(Catalog, state)
}

// EvaluateRules is Evaluate over an arbitrary rule list.
func EvaluateRules(rules []Rule, state *metrics.NodeState) []Evaluation {
	out := make([]Evaluation, 0, len(rules))
	for _, r := range rules {
		value := latestValue(state, r.Metric)
		out = append(out, Evaluation{Rule: r, Value: value, Active: r.active(state, value)})
	}
	return out
}

// latestValue returns the newest scalar value, or the p95 of the newest
// histogram sample for latency/duration metrics. Missing data reads as 0.
func latestValue(state *metrics.NodeState, name string) float64 {
	if state == nil {
		return 0
	}
	if IsHistogramMetric(name) {
		if s, ok := state.Histograms[name].Latest(); ok {
			return s.Quantiles.P95
		}
		return 0
	}
	if p, ok := state.Metrics[name].Latest(); ok {
		return p.Value
	}
	return 0
}

func (r Rule) active(state *metrics.NodeState, value float64) bool {
	switch r.Kind {
	case KindThreshold:
		return r.Comparator.Compare(value, r.Bound)
	case KindRate:
		rate, ok := r.Rate(state)
		if !ok {
			return false
		}
		return r.Comparator.Compare(rate, r.Bound)
	}
	return false
}

// Rate derives the value a KindRate rule compares. It returns false when the
// series involved hold fewer than two points.
func (r Rule) Rate(state *metrics.NodeState) (float64, bool) {
	if state == nil {
		return 0, false
	}
	cur, prev, ok := lastTwo(state, r.Metric)
	if !ok {
		return 0, false
	}
	if r.Companion == "" {
		return (cur - prev) / metrics.TickInterval.Seconds(), true
	}
	ccur, cprev, ok := lastTwo(state, r.Companion)
	if !ok {
		return 0, false
	}
	denom := ccur - cprev
	if denom <= 0 {
		return 0, true
	}
	return (cur - prev) / denom * 100, true
}

func lastTwo(state *metrics.NodeState, name string) (cur, prev float64, ok bool) {
	m, found := state.Metrics[name]
	if !found || len(m.Points) < 2 {
		return 0, 0, false
	}
	n := len(m.Points)
	return m.Points[n-1].Value, m.Points[n-2].Value, true
}
