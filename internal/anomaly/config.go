// Anomaly toggles biasing the synthetic generator
package anomaly

import (
	"errors"
	"fmt"
	"strings"
)

// Flag names as used in configuration files, the CLI and the admin API.
const (
	NodeDowntime        = "node-downtime"
	PeerCollapse        = "peer-collapse"
	PropagationSlowdown = "propagation-slowdown"
	MempoolOverload     = "mempool-overload"
	DiskPressure        = "disk-pressure"
	RPCFlood            = "rpc-flood"
	ConsensusStress     = "consensus-stress"
)

// ErrUnknownFlag is returned when a flag name is not recognised.
var ErrUnknownFlag = errors.New("unknown anomaly flag")

// Names lists every flag in a stable order.
var Names = []string{
	NodeDowntime,
	PeerCollapse,
	PropagationSlowdown,
	MempoolOverload,
	DiskPressure,
	RPCFlood,
	ConsensusStress,
}

// Config is a set of independent fault toggles. It is a plain value: copies
// never alias engine state.
type Config struct {
	NodeDowntime        bool `json:"nodeDowntime" yaml:"node_downtime"`
	PeerCollapse        bool `json:"peerCollapse" yaml:"peer_collapse"`
	PropagationSlowdown bool `json:"propagationSlowdown" yaml:"propagation_slowdown"`
	MempoolOverload     bool `json:"mempoolOverload" yaml:"mempool_overload"`
	DiskPressure        bool `json:"diskPressure" yaml:"disk_pressure"`
	RPCFlood            bool `json:"rpcFlood" yaml:"rpc_flood"`
	ConsensusStress     bool `json:"consensusStress" yaml:"consensus_stress"`
}

func (c *Config) field(name string) (*bool, error) {
	switch name {
	case NodeDowntime:
		return &c.NodeDowntime, nil
	case PeerCollapse:
		return &c.PeerCollapse, nil
	case PropagationSlowdown:
		return &c.PropagationSlowdown, nil
	case MempoolOverload:
		return &c.MempoolOverload, nil
	case DiskPressure:
		return &c.DiskPressure, nil
	case RPCFlood:
		return &c.RPCFlood, nil
	case ConsensusStress:
		return &c.ConsensusStress, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
}

// Parse builds a Config with the named flags set.
func Parse(names []string) (Config, error) {
	var c Config
	for _, n := range names {
		f, err := c.field(strings.TrimSpace(n))
		if err != nil {
			return Config{}, err
		}
		*f = true
	}
	return c, nil
}

// Enabled reports whether the named flag is set. Unknown names report false.
func (c Config) Enabled(name string) bool {
	f, err := c.field(name)
	if err != nil {
		return false
	}
	return *f
}

// With returns a copy of c with the named flag set to on.
func (c Config) With(name string, on bool) (Config, error) {
	f, err := c.field(name)
	if err != nil {
		return c, err
	}
	*f = on
	return c, nil
}

// Active returns the names of the set flags in the order of Names.
func (c Config) Active() []string {
	var out []string
	for _, n := range Names {
		if c.Enabled(n) {
			out = append(out, n)
		}
	}
	return out
}

// Any reports whether at least one flag is set.
func (c Config) Any() bool {
	return c != Config{}
}

func (c Config) String() string {
	active := c.Active()
	if len(active) == 0 {
		return "nominal"
	}
	return strings.Join(active, ",")
}
