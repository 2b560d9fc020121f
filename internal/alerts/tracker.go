package alerts

import (
	"sort"
	"sync"
	"time"

	"blockdag-sim/internal/metrics"
)

// Alert is an active rule on a node together with how long it has held.
type Alert struct {
	ID          string        `json:"id"`
	RuleID      string        `json:"rule_id"`
	RuleName    string        `json:"rule_name"`
	Severity    Severity      `json:"severity"`
	NodeID      string        `json:"node_id"`
	Metric      string        `json:"metric"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	TimeActive  time.Duration `json:"-"`
	Seconds     float64       `json:"time_active_seconds"`
	Description string        `json:"description"`
}

// TransitionKind tells whether an alert started or stopped.
type TransitionKind string

const (
	Fired    TransitionKind = "fired"
	Resolved TransitionKind = "resolved"
)

// Transition records an alert changing state between two updates.
type Transition struct {
	Kind  TransitionKind `json:"kind"`
	Alert Alert          `json:"alert"`
	At    time.Time      `json:"at"`
}

type trackKey struct {
	node string
	rule string
}

type tracked struct {
	since time.Time
	last  Evaluation
}

// Tracker keeps activation start times per (node, rule) across evaluations.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	active map[trackKey]tracked
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[trackKey]tracked)}
}

// AlertID is the stable identifier of a rule on a node.
func AlertID(ruleID, nodeID string) string {
	return ruleID + "-" + nodeID
}

func newAlert(nodeID string, ev Evaluation, since, now time.Time) Alert {
	a := Alert{
		ID:          AlertID(ev.Rule.ID, nodeID),
		RuleID:      ev.Rule.ID,
		RuleName:    ev.Rule.Name,
		Severity:    ev.Rule.Severity,
		NodeID:      nodeID,
		Metric:      ev.Rule.Metric,
		Value:       ev.Value,
		Description: ev.Rule.Description,
	}
	if ev.Rule.Threshold != nil {
		a.Threshold = *ev.Rule.Threshold
	}
	// an alert seen on a single evaluation has been active for one tick
	a.TimeActive = now.Sub(since) + metrics.TickInterval
	a.Seconds = a.TimeActive.Seconds()
	return a
}

// Update folds the evaluations of one node taken at now into the tracker.
// It returns the node's active alerts in rule order and the transitions since
// the previous update of that node.
func (t *Tracker) Update(nodeID string, evals []Evaluation, now time.Time) ([]Alert, []Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		alerts      []Alert
		transitions []Transition
	)
	for _, ev := range evals {
		key := trackKey{node: nodeID, rule: ev.Rule.ID}
		prev, was := t.active[key]
		switch {
		case ev.Active && !was:
			t.active[key] = tracked{since: now, last: ev}
			a := newAlert(nodeID, ev, now, now)
			alerts = append(alerts, a)
			transitions = append(transitions, Transition{Kind: Fired, Alert: a, At: now})
		case ev.Active && was:
			t.active[key] = tracked{since: prev.since, last: ev}
			alerts = append(alerts, newAlert(nodeID, ev, prev.since, now))
		case !ev.Active && was:
			delete(t.active, key)
			a := newAlert(nodeID, ev, prev.since, now)
			transitions = append(transitions, Transition{Kind: Resolved, Alert: a, At: now})
		}
	}
	return alerts, transitions
}

// Active returns every currently active alert at now, ordered by node then
// alert id.
func (t *Tracker) Active(now time.Time) []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Alert, 0, len(t.active))
	for key, tr := range t.active {
		out = append(out, newAlert(key.node, tr.last, tr.since, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NodeID != out[j].NodeID {
			return out[i].NodeID < out[j].NodeID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Reset forgets all tracked activations.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.active = make(map[trackKey]tracked)
	t.mu.Unlock()
}
