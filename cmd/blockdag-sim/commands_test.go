package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/config"
	"blockdag-sim/internal/scenario"
)

func TestRenderRules(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRules(&buf, alerts.Catalog, 40))
	out := buf.String()
	for _, r := range alerts.Catalog {
		assert.Contains(t, out, r.ID)
	}
	assert.Contains(t, out, "blockdag_disk_free_bytes < 10.00 GB")
	assert.Contains(t, out, "blockdag_rpc_errors_total / blockdag_rpc_requests_total > 2.00%")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "    ") && strings.Contains(strings.TrimSpace(line), " ") {
			assert.LessOrEqual(t, len(line), 40, "description line not wrapped: %q", line)
		}
	}
}

func TestRenderScenario(t *testing.T) {
	sc := scenario.BuiltIn()["rpc-storm"]
	var buf bytes.Buffer
	renderScenario(&buf, "rpc-storm", &sc)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "rpc-storm (RPC Storm)"), "unexpected header: %q", out)
	assert.Contains(t, out, "  - climax [rpc-flood,mempool-overload]")
	assert.Contains(t, out, "alerts_active >= 1 -> climax")
}

func TestApplySimulateFlags(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, simulateCmd.Flags().Set("anomaly", "peer-collapse,rpc-flood"))
	require.NoError(t, simulateCmd.Flags().Set("seed", "9"))
	require.NoError(t, simulateCmd.Flags().Set("no-admin", "true"))
	t.Cleanup(func() {
		simAnomalies, simSeed, simNoAdmin = nil, 0, false
		simulateCmd.Flags().Lookup("anomaly").Changed = false
		simulateCmd.Flags().Lookup("seed").Changed = false
		simulateCmd.Flags().Lookup("no-admin").Changed = false
	})

	require.NoError(t, applySimulateFlags(simulateCmd, cfg))
	assert.EqualValues(t, 9, cfg.Seed)
	assert.Empty(t, cfg.Admin.Addr)
	ac, err := cfg.AnomalyConfig()
	require.NoError(t, err)
	assert.True(t, ac.PeerCollapse)
	assert.True(t, ac.RPCFlood)

	require.NoError(t, simulateCmd.Flags().Set("anomaly", "meteor"))
	assert.Error(t, applySimulateFlags(simulateCmd, cfg), "unknown anomaly must fail validation")
}
