package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdag-sim/internal/config"
	"blockdag-sim/internal/logging"
	"blockdag-sim/internal/sim"
	"blockdag-sim/internal/telemetry"
)

func TestNewSinksDefaultPrintsAlerts(t *testing.T) {
	cfg := config.Default()
	sw, aw, cleanup, err := newSinks(cfg, nil, logging.Discard())
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, sw)
	assert.IsType(t, &sim.StdoutWriter{}, aw)
}

func TestNewSinksPrintBoth(t *testing.T) {
	cfg := config.Default()
	cfg.Export.PrintSamples = true
	sw, aw, cleanup, err := newSinks(cfg, nil, logging.Discard())
	require.NoError(t, err)
	cleanup()
	require.IsType(t, &sim.StdoutWriter{}, sw)
	assert.Same(t, sw.(*sim.StdoutWriter), aw.(*sim.StdoutWriter), "samples and alerts should share one console writer")
}

func TestNewSinksLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.jsonl")
	cfg := config.Default()
	cfg.Export.LogFile = path
	cfg.Export.PrintAlerts = false

	sw, aw, cleanup, err := newSinks(cfg, nil, logging.Discard())
	require.NoError(t, err)
	require.IsType(t, &sim.FileWriter{}, sw)
	now := time.Now().UTC()
	require.NoError(t, sw.WriteSample(telemetry.SampleRow{RunID: "r", NodeID: "Node A", Metric: "blockdag_tps", Value: 10, Timestamp: now}))
	require.NoError(t, aw.WriteAlert(telemetry.AlertRow{RunID: "r", NodeID: "Node A", RuleID: "node_down", Timestamp: now}))
	cleanup()

	for _, p := range []string{path, path + ".alerts"} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), "expected %s to be non-empty", p)
	}
}

func TestNewSinksLogFileAndConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Export.LogFile = filepath.Join(t.TempDir(), "samples.jsonl")
	cfg.Export.PrintAlerts = true

	sw, aw, cleanup, err := newSinks(cfg, nil, logging.Discard())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &sim.FileWriter{}, sw)
	assert.IsType(t, &sim.MultiWriter{}, aw)
}

func TestNewReplayWriterFallback(t *testing.T) {
	cfg := config.Default()
	w, err := newReplayWriter(cfg, false, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &sim.StdoutWriter{}, w)
}
