package admin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/logging"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/scenario"
	"blockdag-sim/internal/sim"
)

func newTestServer(t *testing.T) (*Server, *sim.Engine, *alerts.Tracker) {
	t.Helper()
	clock := sim.NewManualClock(time.Unix(1_700_000_000, 0))
	engine := sim.NewEngine(sim.DefaultNodes, sim.WithClock(clock), sim.WithSeed(42), sim.WithLogger(logging.Discard()))
	tracker := alerts.NewTracker()
	t.Cleanup(engine.Stop)
	return NewServer(engine, Options{Tracker: tracker, Logger: logging.Discard()}), engine, tracker
}

func do(t *testing.T, s *Server, method, target, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	resp := w.Result()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestNodes(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/nodes", "")
	require.Equal(t, http.StatusOK, code)
	ids := gjson.GetBytes(body, "#.node_id").Array()
	require.Len(t, ids, 3)
	assert.Equal(t, "Node A", ids[0].String())

	code, body = do(t, s, http.MethodGet, "/nodes/Node%20B", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Node B", gjson.GetBytes(body, "node_id").String())
	height := gjson.GetBytes(body, `metrics.#(metric=="blockdag_virtual_height").point.value`)
	assert.Equal(t, 1_000_000.0, height.Float())

	code, _ = do(t, s, http.MethodGet, "/nodes/Node%20Z", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSeries(t *testing.T) {
	s, engine, _ := newTestServer(t)
	engine.Step()

	code, body := do(t, s, http.MethodGet, "/series?node=Node%20A&metric="+metrics.Bluescore+"&range=5m", "")
	require.Equal(t, http.StatusOK, code)
	points := gjson.ParseBytes(body).Array()
	require.Len(t, points, 2)
	assert.Equal(t, 1_000_000.0, points[0].Get("value").Float())

	code, body = do(t, s, http.MethodGet, "/series?node=nobody&metric="+metrics.Bluescore, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(body))

	code, _ = do(t, s, http.MethodGet, "/series?node=Node%20A", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, s, http.MethodGet, "/series?node=Node%20A&metric=no_such_metric", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown metric", gjson.GetBytes(body, "error").String())
}

func TestHistogram(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/histogram?node=Node%20A&metric="+metrics.MergeLatency+"&quantile=p99", "")
	require.Equal(t, http.StatusOK, code)
	points := gjson.ParseBytes(body).Array()
	require.Len(t, points, 1)
	assert.Greater(t, points[0].Get("value").Float(), 0.0)

	code, _ = do(t, s, http.MethodGet, "/histogram?node=Node%20A&metric="+metrics.MergeLatency+"&quantile=p42", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAlerts(t *testing.T) {
	s, engine, tracker := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/alerts", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(body))

	engine.Append("Node A", metrics.TipAge, 70)
	evals, ok := engine.EvaluateNode("Node A")
	require.True(t, ok)
	tracker.Update("Node A", evals, engine.Now())

	code, body = do(t, s, http.MethodGet, "/alerts?node=Node%20A", "")
	require.Equal(t, http.StatusOK, code)
	ids := gjson.GetBytes(body, "#.rule_id").Array()
	require.Len(t, ids, 1)
	assert.Equal(t, "tip_age_high", ids[0].String())
	assert.Equal(t, "critical", gjson.GetBytes(body, "0.severity").String())

	_, body = do(t, s, http.MethodGet, "/alerts?node=Node%20B", "")
	assert.JSONEq(t, "[]", string(body))

	code, _ = do(t, s, http.MethodDelete, "/alerts", "")
	require.Equal(t, http.StatusNoContent, code)
	_, body = do(t, s, http.MethodGet, "/alerts", "")
	assert.JSONEq(t, "[]", string(body))
}

func TestRules(t *testing.T) {
	s, _, _ := newTestServer(t)
	code, body := do(t, s, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(len(alerts.Catalog)), gjson.GetBytes(body, "#").Int())
	assert.Equal(t, "tip_age_high", gjson.GetBytes(body, "0.id").String())
	assert.Equal(t, "threshold", gjson.GetBytes(body, "0.kind").String())
	assert.Equal(t, "rate", gjson.GetBytes(body, `#(id=="rpc_error_rate_high").kind`).String())
}

func TestAnomalies(t *testing.T) {
	s, engine, _ := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/anomalies", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, gjson.GetBytes(body, "peerCollapse").Bool())

	code, _ = do(t, s, http.MethodPut, "/anomalies", `{"peerCollapse":true,"diskPressure":true}`)
	require.Equal(t, http.StatusOK, code)
	cfg := engine.AnomalyConfig()
	assert.True(t, cfg.PeerCollapse)
	assert.True(t, cfg.DiskPressure)

	code, _ = do(t, s, http.MethodPut, "/anomalies", `{"solarFlare":true}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, s, http.MethodPost, "/anomalies/toggle?flag=peer-collapse", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, gjson.GetBytes(body, "peerCollapse").Bool())
	assert.True(t, gjson.GetBytes(body, "diskPressure").Bool())
	assert.False(t, engine.AnomalyConfig().PeerCollapse)

	code, _ = do(t, s, http.MethodPost, "/anomalies/toggle?flag=nope", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEngineLifecycle(t *testing.T) {
	s, engine, _ := newTestServer(t)

	code, body := do(t, s, http.MethodPost, "/engine/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, gjson.GetBytes(body, "running").Bool())
	assert.True(t, engine.Running())

	code, body = do(t, s, http.MethodPost, "/engine/stop", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, gjson.GetBytes(body, "running").Bool())
	assert.False(t, engine.Running())

	code, _ = do(t, s, http.MethodGet, "/engine/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestScenarioEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	code, _ := do(t, s, http.MethodGet, "/scenario", "")
	assert.Equal(t, http.StatusNotFound, code)

	sc := scenario.BuiltIn()["disk-exhaustion"]
	runner, err := scenario.NewRunner(&sc, engine, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	s = NewServer(engine, Options{Runner: runner, Logger: logging.Discard()})
	code, body := do(t, s, http.MethodGet, "/scenario", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "setup", gjson.GetBytes(body, "phase").String())
	assert.False(t, gjson.GetBytes(body, "finished").Bool())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, body := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	text := string(body)
	assert.Contains(t, text, `blockdag_node_up{node="Node A"} 1`)
	assert.Contains(t, text, "# TYPE blockdag_blocks_accepted_total counter")
	assert.Contains(t, text, `blockdag_merge_latency_seconds{node="Node C",quantile="0.99"}`)
	assert.Contains(t, text, `blockdag_sim_anomaly_enabled{flag="rpc-flood"} 0`)
	assert.Contains(t, text, "blockdag_sim_ticks_total 0")
}

func TestCollector(t *testing.T) {
	clock := sim.NewManualClock(time.Unix(1_700_000_000, 0))
	engine := sim.NewEngine([]string{"n1", "n2"}, sim.WithClock(clock), sim.WithSeed(3), sim.WithLogger(logging.Discard()))
	c := NewCollector(engine)

	assert.Equal(t, 2, testutil.CollectAndCount(c, metrics.NodeUp))
	assert.Equal(t, 6, testutil.CollectAndCount(c, metrics.RPCDuration))
	assert.Equal(t, 7, testutil.CollectAndCount(c, "blockdag_sim_anomaly_enabled"))
	assert.Equal(t, 4, testutil.CollectAndCount(c, "blockdag_sim_alerts_active"))

	engine.Step()
	engine.Step()
	assert.Equal(t, 1, testutil.CollectAndCount(c, "blockdag_sim_ticks_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, metrics.Bluescore))
}

func TestStartShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
