package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdag-sim/internal/anomaly"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, []string{"Node A", "Node B", "Node C"}, cfg.Nodes)
	assert.Equal(t, ":8080", cfg.Admin.Addr)
	assert.True(t, cfg.Export.PrintAlerts)
	assert.Equal(t, "public", cfg.Export.Greptime.Database)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 3)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "sim.yaml", `
nodes: [alpha, beta]
seed: 7
anomalies: [peer-collapse, rpc-flood]
scenario: rpc-storm
export:
  log_file: /tmp/samples.jsonl
  queue_size: 16
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Nodes)
	assert.EqualValues(t, 7, cfg.Seed)
	assert.Equal(t, "rpc-storm", cfg.Scenario)
	assert.Equal(t, 16, cfg.Export.QueueSize)
	assert.False(t, cfg.Export.PrintAlerts, "a log file is a sink, so alerts are not forced to stdout")

	ac, err := cfg.AnomalyConfig()
	require.NoError(t, err)
	assert.Equal(t, anomaly.Config{PeerCollapse: true, RPCFlood: true}, ac)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "sim.toml", `
nodes = ["n1", "n2", "n3", "n4"]
anomalies = ["disk-pressure"]

[admin]
addr = "127.0.0.1:9000"

[export.greptime]
endpoint = "greptime:4001"
database = "metrics"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 4)
	assert.Equal(t, "127.0.0.1:9000", cfg.Admin.Addr)
	assert.Equal(t, "greptime:4001", cfg.Export.Greptime.Endpoint)
	assert.Equal(t, "metrics", cfg.Export.Greptime.Database)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown anomaly": "anomalies: [meteor-strike]\n",
		"bad log level":   "log:\n  level: loud\n",
		"unknown field":   "colour: red\n",
		"duplicate nodes": "nodes: [a, a]\n",
		"empty node id":   "nodes: [\"\"]\n",
		"huge queue":      "export:\n  queue_size: 100000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "db.example:4001")
	t.Setenv("GREPTIMEDB_DATABASE", "chain")
	t.Setenv("BLOCKDAG_SAMPLE_TABLE", "s")
	t.Setenv("BLOCKDAG_ALERT_TABLE", "a")
	t.Setenv("ADMIN_ADDR", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.example:4001", cfg.Export.Greptime.Endpoint)
	assert.Equal(t, "chain", cfg.Export.Greptime.Database)
	assert.Equal(t, "s", cfg.Export.Greptime.SampleTable)
	assert.Equal(t, "a", cfg.Export.Greptime.AlertTable)
	assert.Equal(t, ":9999", cfg.Admin.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(""))
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	const key = "BLOCKDAG_SIM_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })
	path := writeFile(t, ".env", key+"=from-file\n")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))
}
