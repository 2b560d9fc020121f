package scenario

import (
	"sort"

	"blockdag-sim/internal/anomaly"
)

// BuiltIn returns predefined incident drills.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"peer-partition": {
			Name:        "Peer Partition",
			Description: "The designated node is cut off from its peers, falls behind on tips and slows block propagation.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Fleet runs nominally while baselines settle.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 10, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Peer connections drop away.",
					Anomalies:   []string{anomaly.PeerCollapse},
					Triggers:    []Trigger{{Event: EventAlertsActive, Value: 1, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "The isolated node relays blocks late.",
					Anomalies:   []string{anomaly.PeerCollapse, anomaly.PropagationSlowdown},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Connectivity is restored and the node catches up.",
				},
			},
		},
		"rpc-storm": {
			Name:        "RPC Storm",
			Description: "A traffic spike floods the RPC endpoint and backs up the mempool.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Fleet runs nominally while baselines settle.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 10, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Request volume and error rate climb.",
					Anomalies:   []string{anomaly.RPCFlood},
					Triggers: []Trigger{
						{Event: EventAlertsActive, Value: 1, Next: "climax"},
						{Event: EventTimeElapsed, Value: 60, Next: "climax"},
					},
				},
				{
					Name:        "climax",
					Description: "Pending transactions pile up behind the flood.",
					Anomalies:   []string{anomaly.RPCFlood, anomaly.MempoolOverload},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Rate limits kick in and traffic returns to normal.",
				},
			},
		},
		"disk-exhaustion": {
			Name:        "Disk Exhaustion",
			Description: "The data volume fills up until consensus starts to suffer.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Fleet runs nominally while baselines settle.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 10, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Free space drains steadily.",
					Anomalies:   []string{anomaly.DiskPressure},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Slow writes push finality lag and orphan rates up.",
					Anomalies:   []string{anomaly.DiskPressure, anomaly.ConsensusStress},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Old snapshots are pruned and the node recovers.",
				},
			},
		},
	}
}

// Names lists the built-in scenarios alphabetically.
func Names() []string {
	arcs := BuiltIn()
	out := make([]string, 0, len(arcs))
	for n := range arcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
