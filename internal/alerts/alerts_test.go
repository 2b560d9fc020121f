package alerts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdag-sim/internal/metrics"
)

func freshNode(t *testing.T) *metrics.NodeState {
	t.Helper()
	s := metrics.NewStore([]string{"Node A"}, 0)
	n, ok := s.Node("Node A")
	require.True(t, ok)
	return n
}

func push(n *metrics.NodeState, name string, ts int64, v float64) {
	n.Metrics[name].Append(metrics.DataPoint{Timestamp: ts, Value: v})
}

func byID(evals []Evaluation) map[string]Evaluation {
	out := make(map[string]Evaluation, len(evals))
	for _, ev := range evals {
		out[ev.Rule.ID] = ev
	}
	return out
}

func TestCatalogOrderAndShape(t *testing.T) {
	ids := make([]string, 0, len(Catalog))
	for _, r := range Catalog {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"tip_age_high", "dag_tips_high", "peers_low", "propagation_latency_high",
		"finality_lag_high", "rpc_error_rate_high", "disk_free_low",
		"invalid_blocks_high", "node_down",
	}, ids)

	r, ok := Lookup("invalid_blocks_high")
	require.True(t, ok)
	assert.Nil(t, r.Threshold)
	assert.Equal(t, KindRate, r.Kind)

	r, ok = Lookup("disk_free_low")
	require.True(t, ok)
	require.NotNil(t, r.Threshold)
	assert.Equal(t, float64(10*metrics.GiB), *r.Threshold)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestRuleKindJSON(t *testing.T) {
	r, ok := Lookup("rpc_error_rate_high")
	require.True(t, ok)
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"rate"`)

	var back Rule
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, KindRate, back.Kind)

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("ratio")))
	_, err = Kind(7).MarshalText()
	assert.Error(t, err)
}

func TestEvaluate_FreshNodeIsQuiet(t *testing.T) {
	evals := Evaluate(freshNode(t))
	require.Len(t, evals, len(Catalog))
	for i, ev := range evals {
		assert.Equal(t, Catalog[i].ID, ev.Rule.ID, "evaluation order")
		assert.False(t, ev.Active, ev.Rule.ID)
	}
}

func TestEvaluate_TipAgeHigh(t *testing.T) {
	n := freshNode(t)
	push(n, metrics.TipAge, 2000, 70)

	ev := byID(Evaluate(n))["tip_age_high"]
	assert.True(t, ev.Active)
	assert.Equal(t, 70.0, ev.Value)
}

func TestEvaluate_ThresholdRules(t *testing.T) {
	cases := []struct {
		rule   string
		metric string
		value  float64
		active bool
	}{
		{"dag_tips_high", metrics.DAGTipsCount, 26, true},
		{"dag_tips_high", metrics.DAGTipsCount, 25, false},
		{"peers_low", metrics.PeersConnected, 2, true},
		{"peers_low", metrics.PeersConnected, 6, false},
		{"finality_lag_high", metrics.FinalityLag, 200, true},
		{"disk_free_low", metrics.DiskFree, 5 * metrics.GiB, true},
		{"disk_free_low", metrics.DiskFree, 10 * metrics.GiB, false},
		{"node_down", metrics.NodeUp, 0, true},
		{"node_down", metrics.NodeUp, 1, false},
	}
	for _, c := range cases {
		n := freshNode(t)
		push(n, c.metric, 2000, c.value)
		ev := byID(Evaluate(n))[c.rule]
		assert.Equal(t, c.active, ev.Active, "%s at %v", c.rule, c.value)
	}
}

func TestEvaluate_HistogramRuleReadsP95(t *testing.T) {
	n := freshNode(t)
	n.Histograms[metrics.BlockPropagationLatency].Append(metrics.HistogramSample{
		Timestamp: 2000,
		Quantiles: metrics.Quantiles{P50: 0.5, P95: 2.5, P99: 5},
	})

	ev := byID(Evaluate(n))["propagation_latency_high"]
	assert.True(t, ev.Active)
	assert.Equal(t, 2.5, ev.Value)
	assert.True(t, IsHistogramMetric(metrics.RPCDuration))
	assert.False(t, IsHistogramMetric(metrics.TipAge))
}

func TestEvaluate_RPCErrorRate(t *testing.T) {
	n := freshNode(t)
	// 50000 -> 50200 requests, 100 -> 110 errors: 5% error rate
	push(n, metrics.RPCRequests, 2000, 50200)
	push(n, metrics.RPCErrors, 2000, 110)

	ev := byID(Evaluate(n))["rpc_error_rate_high"]
	assert.True(t, ev.Active)
	assert.Equal(t, 110.0, ev.Value, "value stays the raw counter")

	n = freshNode(t)
	push(n, metrics.RPCRequests, 2000, 50200)
	push(n, metrics.RPCErrors, 2000, 101)
	assert.False(t, byID(Evaluate(n))["rpc_error_rate_high"].Active)

	n = freshNode(t)
	push(n, metrics.RPCRequests, 2000, 50000)
	push(n, metrics.RPCErrors, 2000, 500)
	assert.False(t, byID(Evaluate(n))["rpc_error_rate_high"].Active, "no request delta reads as 0%")
}

func TestEvaluate_InvalidBlocksRate(t *testing.T) {
	n := freshNode(t)
	push(n, metrics.InvalidBlocks, 2000, 6)
	assert.True(t, byID(Evaluate(n))["invalid_blocks_high"].Active)

	n = freshNode(t)
	push(n, metrics.InvalidBlocks, 2000, 5.0002)
	assert.False(t, byID(Evaluate(n))["invalid_blocks_high"].Active)
}

func TestEvaluate_RateRulesNeedTwoPoints(t *testing.T) {
	r, _ := Lookup("invalid_blocks_high")
	_, ok := r.Rate(freshNode(t))
	assert.False(t, ok)
	_, ok = r.Rate(nil)
	assert.False(t, ok)
}

func TestEvaluate_NoDataDefaultsToZero(t *testing.T) {
	evals := byID(Evaluate(nil))
	require.Len(t, evals, len(Catalog))
	assert.True(t, evals["node_down"].Active, "missing node-up reads as down")
	assert.True(t, evals["peers_low"].Active)
	assert.False(t, evals["rpc_error_rate_high"].Active)
	assert.False(t, evals["tip_age_high"].Active)

	n := freshNode(t)
	n.Metrics[metrics.NodeUp].Points = nil
	ev := byID(Evaluate(n))["node_down"]
	assert.True(t, ev.Active)
	assert.Equal(t, 0.0, ev.Value)
}

func TestTracker_FireHoldResolve(t *testing.T) {
	tr := NewTracker()
	t0 := time.Unix(1000, 0)
	n := freshNode(t)
	push(n, metrics.TipAge, 2000, 70)

	active, transitions := tr.Update("Node A", Evaluate(n), t0)
	require.Len(t, active, 1)
	assert.Equal(t, "tip_age_high-Node A", active[0].ID)
	assert.Equal(t, metrics.TickInterval, active[0].TimeActive)
	assert.Equal(t, 60.0, active[0].Threshold)
	require.Len(t, transitions, 1)
	assert.Equal(t, Fired, transitions[0].Kind)

	active, transitions = tr.Update("Node A", Evaluate(n), t0.Add(10*time.Second))
	require.Len(t, active, 1)
	assert.Equal(t, 12*time.Second, active[0].TimeActive)
	assert.Equal(t, 12.0, active[0].Seconds)
	assert.Empty(t, transitions)
	assert.Len(t, tr.Active(t0.Add(10*time.Second)), 1)

	push(n, metrics.TipAge, 4000, 5)
	active, transitions = tr.Update("Node A", Evaluate(n), t0.Add(20*time.Second))
	assert.Empty(t, active)
	require.Len(t, transitions, 1)
	assert.Equal(t, Resolved, transitions[0].Kind)
	assert.Equal(t, 5.0, transitions[0].Alert.Value)
	assert.Empty(t, tr.Active(t0.Add(20*time.Second)))
}

func TestTracker_NodesAreIndependent(t *testing.T) {
	tr := NewTracker()
	now := time.Unix(0, 0)
	down := freshNode(t)
	push(down, metrics.NodeUp, 2000, 0)

	tr.Update("Node A", Evaluate(down), now)
	_, transitions := tr.Update("Node B", Evaluate(freshNode(t)), now)
	assert.Empty(t, transitions)

	all := tr.Active(now)
	require.Len(t, all, 1)
	assert.Equal(t, "Node A", all[0].NodeID)

	tr.Reset()
	assert.Empty(t, tr.Active(now))
}
