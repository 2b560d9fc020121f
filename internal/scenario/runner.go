package scenario

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/sim"
)

// Target is the part of the engine a Runner drives.
type Target interface {
	Subscribe(fn sim.Listener) (unsubscribe func())
	SetAnomalyConfig(cfg anomaly.Config)
	Designated() string
	EvaluateNode(nodeID string) ([]alerts.Evaluation, bool)
	Now() time.Time
}

// PhaseChange records a transition made by a Runner.
type PhaseChange struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// Runner plays a scenario against an engine: it checks the current phase's
// triggers after every tick and swaps the anomaly set on transitions.
type Runner struct {
	sc     *Scenario
	target Target
	log    *slog.Logger

	mu          sync.Mutex
	phase       string
	enteredAt   time.Time
	history     []PhaseChange
	unsubscribe func()
}

// NewRunner validates sc and prepares a runner for target.
func NewRunner(sc *Scenario, target Target, log *slog.Logger) (*Runner, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{sc: sc, target: target, log: log.With("scenario", sc.Name)}, nil
}

// Start enters the first phase and subscribes to ticks. Calling it again
// while running is a no-op.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		return nil
	}
	if err := r.enter(r.sc.Phases[0], r.target.Now()); err != nil {
		return err
	}
	r.unsubscribe = r.target.Subscribe(r.onTick)
	return nil
}

// Stop unsubscribes from the engine. The anomaly set of the current phase
// stays in effect.
func (r *Runner) Stop() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Phase returns the name of the current phase.
func (r *Runner) Phase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Finished reports whether the current phase has no way out.
func (r *Runner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sc.Phase(r.phase)
	return ok && len(p.Triggers) == 0
}

// History returns the transitions made so far.
func (r *Runner) History() []PhaseChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PhaseChange, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Runner) onTick() {
	now := r.target.Now()
	active := r.activeAlerts()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe == nil {
		return
	}
	events := []Event{
		{Type: EventTimeElapsed, Value: int(now.Sub(r.enteredAt) / time.Second)},
		{Type: EventAlertsActive, Value: active},
	}
	for _, ev := range events {
		next, ok := r.sc.NextPhase(r.phase, ev)
		if !ok {
			continue
		}
		p, _ := r.sc.Phase(next)
		if err := r.enter(p, now); err != nil {
			r.log.Error("phase transition failed", "phase", next, "err", err)
		}
		return
	}
}

func (r *Runner) activeAlerts() int {
	evals, ok := r.target.EvaluateNode(r.target.Designated())
	if !ok {
		return 0
	}
	n := 0
	for _, ev := range evals {
		if ev.Active {
			n++
		}
	}
	return n
}

// enter must be called with mu held.
func (r *Runner) enter(p Phase, now time.Time) error {
	cfg, err := p.AnomalyConfig()
	if err != nil {
		return fmt.Errorf("phase %q: %w", p.Name, err)
	}
	from := r.phase
	r.phase = p.Name
	r.enteredAt = now
	r.history = append(r.history, PhaseChange{From: from, To: p.Name, At: now})
	r.target.SetAnomalyConfig(cfg)
	r.log.Info("scenario phase", "from", from, "to", p.Name, "anomalies", cfg.String())
	return nil
}
