// Exported row types with greptime tags
package telemetry

import (
	"os"
	"time"
)

// SampleRow is one exported series sample. Histogram rows carry the three
// quantiles and leave Value at the p95.
type SampleRow struct {
	RunID     string    `json:"run_id"`  // TAG
	NodeID    string    `json:"node_id"` // TAG
	Metric    string    `json:"metric"`  // TAG
	Kind      string    `json:"kind"`    // FIELD
	Value     float64   `json:"value"`   // FIELD
	P50       float64   `json:"p50,omitempty"`
	P95       float64   `json:"p95,omitempty"`
	P99       float64   `json:"p99,omitempty"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// KindHistogram marks a SampleRow carrying quantiles. Scalar rows use the
// metric kind ("gauge" or "counter").
const KindHistogram = "histogram"

// Alert transition kinds.
const (
	AlertFired    = "fired"
	AlertResolved = "resolved"
)

// AlertRow records an alert changing state on a node.
type AlertRow struct {
	RunID      string    `json:"run_id"`  // TAG
	NodeID     string    `json:"node_id"` // TAG
	RuleID     string    `json:"rule_id"` // TAG
	Severity   string    `json:"severity"`
	Transition string    `json:"transition"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	ActiveFor  float64   `json:"active_for_seconds"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// SampleTableName holds the GreptimeDB table for samples. It defaults to
// "blockdag_samples" and can be overridden with BLOCKDAG_SAMPLE_TABLE.
var SampleTableName = func() string {
	if env := os.Getenv("BLOCKDAG_SAMPLE_TABLE"); env != "" {
		return env
	}
	return "blockdag_samples"
}()

// AlertTableName holds the GreptimeDB table for alert transitions.
var AlertTableName = func() string {
	if env := os.Getenv("BLOCKDAG_ALERT_TABLE"); env != "" {
		return env
	}
	return "blockdag_alerts"
}()

func (SampleRow) TableName() string {
	return SampleTableName
}

func (AlertRow) TableName() string {
	return AlertTableName
}
