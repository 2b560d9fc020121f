// Static alert rule catalog for BlockDAG nodes
package alerts

import (
	"fmt"

	"blockdag-sim/internal/metrics"
)

// Severity of an alert rule.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Kind selects how a rule derives the value it compares.
type Kind int

const (
	// KindThreshold compares the latest value of Metric against Bound.
	KindThreshold Kind = iota
	// KindRate compares a rate derived from the two most recent raw points
	// of Metric (and Companion, when set) against Bound.
	KindRate
)

func (k Kind) String() string {
	switch k {
	case KindThreshold:
		return "threshold"
	case KindRate:
		return "rate"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindThreshold, KindRate:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("alerts: unknown rule kind %d", int(k))
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "threshold":
		*k = KindThreshold
	case "rate":
		*k = KindRate
	default:
		return fmt.Errorf("alerts: unknown rule kind %q", b)
	}
	return nil
}

// Comparator is the relation a rule checks.
type Comparator string

const (
	Greater Comparator = ">"
	Less    Comparator = "<"
	Equal   Comparator = "=="
)

// Compare reports whether v <op> bound holds.
func (c Comparator) Compare(v, bound float64) bool {
	switch c {
	case Greater:
		return v > bound
	case Less:
		return v < bound
	case Equal:
		return v == bound
	}
	return false
}

// Rule is one alert definition.
//
// For KindRate with a Companion the derived value is the percentage
// Δmetric/Δcompanion*100 over the two most recent points of each series. For
// KindRate without a Companion it is Δmetric divided by the tick length in
// seconds.
type Rule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Severity    Severity   `json:"severity"`
	Metric      string     `json:"metric"`
	Description string     `json:"description"`
	Threshold   *float64   `json:"threshold,omitempty"`
	Kind        Kind       `json:"kind"`
	Comparator  Comparator `json:"comparator"`
	Bound       float64    `json:"bound"`
	Companion   string     `json:"companion,omitempty"`
}

func threshold(v float64) *float64 { return &v }

// Catalog is the fixed rule set in evaluation order.
var Catalog = []Rule{
	{
		ID:          "tip_age_high",
		Name:        "Tip age > 60s for > 2 minutes",
		Severity:    SeverityCritical,
		Metric:      metrics.TipAge,
		Description: "Tip age exceeds 60 seconds",
		Threshold:   threshold(60),
		Kind:        KindThreshold,
		Comparator:  Greater,
		Bound:       60,
	},
	{
		ID:          "dag_tips_high",
		Name:        "DAG tips count > 25 sustained",
		Severity:    SeverityWarning,
		Metric:      metrics.DAGTipsCount,
		Description: "DAG tips count is abnormally high",
		Threshold:   threshold(25),
		Kind:        KindThreshold,
		Comparator:  Greater,
		Bound:       25,
	},
	{
		ID:          "peers_low",
		Name:        "Peers connected < 6",
		Severity:    SeverityWarning,
		Metric:      metrics.PeersConnected,
		Description: "Low peer connectivity",
		Threshold:   threshold(6),
		Kind:        KindThreshold,
		Comparator:  Less,
		Bound:       6,
	},
	{
		ID:          "propagation_latency_high",
		Name:        "Propagation latency p95 > 2s",
		Severity:    SeverityWarning,
		Metric:      metrics.BlockPropagationLatency,
		Description: "Block propagation latency is high",
		Threshold:   threshold(2),
		Kind:        KindThreshold,
		Comparator:  Greater,
		Bound:       2,
	},
	{
		ID:          "finality_lag_high",
		Name:        "Finality lag > 50 blocks",
		Severity:    SeverityCritical,
		Metric:      metrics.FinalityLag,
		Description: "Finality lag is too high",
		Threshold:   threshold(50),
		Kind:        KindThreshold,
		Comparator:  Greater,
		Bound:       50,
	},
	{
		ID:          "rpc_error_rate_high",
		Name:        "RPC error rate > 2%",
		Severity:    SeverityWarning,
		Metric:      metrics.RPCErrors,
		Description: "RPC error rate exceeds 2%",
		Threshold:   threshold(2),
		Kind:        KindRate,
		Comparator:  Greater,
		Bound:       2,
		Companion:   metrics.RPCRequests,
	},
	{
		ID:          "disk_free_low",
		Name:        "Disk free < 10GB",
		Severity:    SeverityCritical,
		Metric:      metrics.DiskFree,
		Description: "Disk space is critically low",
		Threshold:   threshold(10 * metrics.GiB),
		Kind:        KindThreshold,
		Comparator:  Less,
		Bound:       10 * metrics.GiB,
	},
	{
		ID:          "invalid_blocks_high",
		Name:        "Invalid blocks rate > baseline",
		Severity:    SeverityWarning,
		Metric:      metrics.InvalidBlocks,
		Description: "Invalid blocks rate is elevated",
		Kind:        KindRate,
		Comparator:  Greater,
		Bound:       0.01,
	},
	{
		ID:          "node_down",
		Name:        "Node is DOWN",
		Severity:    SeverityCritical,
		Metric:      metrics.NodeUp,
		Description: "Node is not responding",
		Threshold:   threshold(0),
		Kind:        KindThreshold,
		Comparator:  Equal,
		Bound:       0,
	},
}

// Lookup returns the catalog rule with the given id.
func Lookup(id string) (Rule, bool) {
	for _, r := range Catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
