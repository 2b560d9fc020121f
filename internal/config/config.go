// YAML/TOML config loader with CUE validation integration
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"blockdag-sim/internal/anomaly"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Admin configures the HTTP control API. An empty Addr disables it.
type Admin struct {
	Addr string `yaml:"addr" json:"addr" toml:"addr"`
}

// Greptime configures the GreptimeDB sink. An empty Endpoint disables it.
type Greptime struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	Database    string `yaml:"database" json:"database" toml:"database"`
	SampleTable string `yaml:"sample_table" json:"sample_table" toml:"sample_table"`
	AlertTable  string `yaml:"alert_table" json:"alert_table" toml:"alert_table"`
}

// Export configures where samples and alert transitions go.
type Export struct {
	LogFile      string   `yaml:"log_file" json:"log_file" toml:"log_file"`
	PrintSamples bool     `yaml:"print_samples" json:"print_samples" toml:"print_samples"`
	PrintAlerts  bool     `yaml:"print_alerts" json:"print_alerts" toml:"print_alerts"`
	QueueSize    int      `yaml:"queue_size" json:"queue_size" toml:"queue_size"`
	Greptime     Greptime `yaml:"greptime" json:"greptime" toml:"greptime"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" json:"level" toml:"level"`
	Format string `yaml:"format" json:"format" toml:"format"`
}

// Config is the root configuration of the simulator.
type Config struct {
	Nodes     []string `yaml:"nodes" json:"nodes" toml:"nodes"`
	Seed      int64    `yaml:"seed" json:"seed" toml:"seed"`
	Anomalies []string `yaml:"anomalies" json:"anomalies" toml:"anomalies"`
	Scenario  string   `yaml:"scenario" json:"scenario" toml:"scenario"`
	Admin     Admin    `yaml:"admin" json:"admin" toml:"admin"`
	Export    Export   `yaml:"export" json:"export" toml:"export"`
	Log       Log      `yaml:"log" json:"log" toml:"log"`
}

// Default returns the reference configuration: three nodes, nominal
// anomalies, admin API on :8080, alerts printed to STDOUT.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Nodes) == 0 {
		c.Nodes = []string{"Node A", "Node B", "Node C"}
	}
	if c.Anomalies == nil {
		c.Anomalies = []string{}
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8080"
	}
	if c.Export.QueueSize <= 0 {
		c.Export.QueueSize = 64
	}
	if c.Export.Greptime.Database == "" {
		c.Export.Greptime.Database = "public"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if !c.Export.PrintSamples && !c.Export.PrintAlerts && c.Export.LogFile == "" && c.Export.Greptime.Endpoint == "" {
		c.Export.PrintAlerts = true
	}
}

// applyEnv lets deployment environments override sink and admin settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Export.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Export.Greptime.Database = v
	}
	if v := os.Getenv("BLOCKDAG_SAMPLE_TABLE"); v != "" {
		c.Export.Greptime.SampleTable = v
	}
	if v := os.Getenv("BLOCKDAG_ALERT_TABLE"); v != "" {
		c.Export.Greptime.AlertTable = v
	}
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		c.Admin.Addr = v
	}
}

// AnomalyConfig parses the configured flag names.
func (c *Config) AnomalyConfig() (anomaly.Config, error) {
	return anomaly.Parse(c.Anomalies)
}

// Load reads path (YAML, or TOML for a .toml extension), applies defaults
// and environment overrides, and validates the result. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
