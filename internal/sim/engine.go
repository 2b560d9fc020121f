// Engine advancing the simulated BlockDAG fleet
package sim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/telemetry"
)

// DefaultNodes is the reference fleet.
var DefaultNodes = []string{"Node A", "Node B", "Node C"}

// Engine owns the time-series store of a fixed node set and advances it on
// every tick. All methods are safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	store     *metrics.Store
	gen       *telemetry.Generator
	anomalies anomaly.Config
	started   time.Time
	lastTick  time.Time
	ticks     uint64

	clock Clock
	bus   *Bus
	log   *slog.Logger

	// lifecycle, separate from mu so Stop can run inside a listener
	mutRun  sync.Mutex
	stop    chan struct{}
	running bool
}

type engineOptions struct {
	clock     Clock
	rand      *rand.Rand
	log       *slog.Logger
	anomalies anomaly.Config
}

// Option customises an Engine.
type Option func(*engineOptions)

// WithClock injects the time source and ticker factory.
func WithClock(c Clock) Option {
	return func(o *engineOptions) { o.clock = c }
}

// WithRand sets the noise source.
func WithRand(r *rand.Rand) Option {
	return func(o *engineOptions) { o.rand = r }
}

// WithSeed seeds the noise source. A zero seed keeps the time-based default.
func WithSeed(seed int64) Option {
	return func(o *engineOptions) {
		if seed != 0 {
			o.rand = rand.New(rand.NewSource(seed))
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.log = l }
}

// WithAnomalies sets the initial anomaly configuration.
func WithAnomalies(cfg anomaly.Config) Option {
	return func(o *engineOptions) { o.anomalies = cfg }
}

// NewEngine creates an engine for nodeIDs. Every series is seeded with one
// point at the clock's current time. The first node is the one anomalies
// apply to.
func NewEngine(nodeIDs []string, opts ...Option) *Engine {
	o := engineOptions{clock: RealClock(), log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := o.clock.Now()
	return &Engine{
		store:     metrics.NewStore(nodeIDs, now.UnixMilli()),
		gen:       telemetry.NewGenerator(o.rand),
		anomalies: o.anomalies,
		started:   now,
		clock:     o.clock,
		bus:       NewBus(o.log),
		log:       o.log,
	}
}

// NodeIDs returns the node ids in construction order.
func (e *Engine) NodeIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.NodeIDs()
}

// Designated returns the node anomalies apply to, or "" for an empty fleet.
func (e *Engine) Designated() string {
	ids := e.NodeIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// NodeState returns a deep copy of a node's state.
func (e *Engine) NodeState(nodeID string) (*metrics.NodeState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.store.Node(nodeID)
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Series returns the window r of a scalar series ending now.
func (e *Engine) Series(nodeID, metric string, r metrics.TimeRange) []metrics.DataPoint {
	now := e.clock.Now().UnixMilli()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Series(nodeID, metric, r, now)
}

// HistogramSeries returns quantile q of the window r of a histogram series.
func (e *Engine) HistogramSeries(nodeID, metric string, r metrics.TimeRange, q metrics.Quantile) []metrics.DataPoint {
	now := e.clock.Now().UnixMilli()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.HistogramSeries(nodeID, metric, r, q, now)
}

// EvaluateAlerts runs the alert catalog against state.
func (e *Engine) EvaluateAlerts(state *metrics.NodeState) []alerts.Evaluation {
	return alerts.Evaluate(state)
}

// EvaluateNode runs the alert catalog against the live state of a node.
func (e *Engine) EvaluateNode(nodeID string) ([]alerts.Evaluation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.store.Node(nodeID)
	if !ok {
		return nil, false
	}
	return alerts.Evaluate(n), true
}

// Append pushes a value onto a scalar series at the current time. Unknown
// nodes or metrics are ignored.
func (e *Engine) Append(nodeID, metric string, value float64) {
	now := e.clock.Now().UnixMilli()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store.Append(nodeID, metric, metrics.DataPoint{Timestamp: now, Value: value}) {
		e.store.Touch(nodeID, now)
	}
}

// AppendHistogram pushes quantiles onto a histogram series at the current
// time. Unknown nodes or metrics are ignored.
func (e *Engine) AppendHistogram(nodeID, metric string, q metrics.Quantiles) {
	now := e.clock.Now().UnixMilli()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store.AppendHistogram(nodeID, metric, metrics.HistogramSample{Timestamp: now, Quantiles: q}) {
		e.store.Touch(nodeID, now)
	}
}

// SetAnomalyConfig replaces the anomaly configuration. It takes effect on
// the next tick.
func (e *Engine) SetAnomalyConfig(cfg anomaly.Config) {
	e.mu.Lock()
	prev := e.anomalies
	e.anomalies = cfg
	e.mu.Unlock()
	if prev != cfg {
		e.log.Info("anomaly config changed", "from", prev.String(), "to", cfg.String())
	}
}

// AnomalyConfig returns a copy of the current anomaly configuration.
func (e *Engine) AnomalyConfig() anomaly.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.anomalies
}

// Subscribe registers fn to run after every tick.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Stats reports the number of completed ticks and when the last one ran.
func (e *Engine) Stats() (ticks uint64, last time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ticks, e.lastTick
}
