package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"blockdag-sim/internal/anomaly"
)

// Trigger events understood by the runner.
const (
	// EventTimeElapsed carries the whole seconds spent in the current phase.
	EventTimeElapsed = "time_elapsed"
	// EventAlertsActive carries the number of active alerts on the designated node.
	EventAlertsActive = "alerts_active"
)

var (
	// ErrUnknownScenario is returned when a name is neither built in nor a readable file.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrInvalidScenario wraps structural problems in a scenario definition.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario defines an incident drill with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description"`
	Phases      []Phase `yaml:"phases" json:"phases"`
}

// Phase is a stage of the drill. While it is current the engine runs with
// exactly the listed anomaly flags.
type Phase struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Anomalies   []string  `yaml:"anomalies,omitempty" json:"anomalies,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event" json:"event"`
	Value int    `yaml:"value" json:"value"`
	Next  string `yaml:"next" json:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk and validates it.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Resolve returns the built-in scenario called name, or loads name as a file.
func Resolve(name string) (*Scenario, error) {
	if s, ok := BuiltIn()[name]; ok {
		return &s, nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return Load(name)
}

// Validate checks phase names, trigger targets, events and anomaly flags.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidScenario)
	}
	names := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		if p.Name == "" {
			return fmt.Errorf("%w: phase without name", ErrInvalidScenario)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: duplicate phase %q", ErrInvalidScenario, p.Name)
		}
		names[p.Name] = true
		if _, err := anomaly.Parse(p.Anomalies); err != nil {
			return fmt.Errorf("%w: phase %q: %v", ErrInvalidScenario, p.Name, err)
		}
	}
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			switch tr.Event {
			case EventTimeElapsed, EventAlertsActive:
			default:
				return fmt.Errorf("%w: phase %q: unknown event %q", ErrInvalidScenario, p.Name, tr.Event)
			}
			if !names[tr.Next] {
				return fmt.Errorf("%w: phase %q: trigger targets unknown phase %q", ErrInvalidScenario, p.Name, tr.Next)
			}
		}
	}
	return nil
}

// Phase looks up a phase by name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

// AnomalyConfig returns the flag set of a phase.
func (p Phase) AnomalyConfig() (anomaly.Config, error) {
	return anomaly.Parse(p.Anomalies)
}
