package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/anomaly"
	"blockdag-sim/internal/logging"
	"blockdag-sim/internal/metrics"
	"blockdag-sim/internal/scenario"
	"blockdag-sim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Tracker supplies active alerts with durations. It must be fed by
	// something that sees every tick, normally the exporter.
	Tracker *alerts.Tracker
	// Runner is the scenario being played, if any.
	Runner *scenario.Runner
	Logger *slog.Logger
}

type Server struct {
	Engine   *sim.Engine
	tracker  *alerts.Tracker
	runner   *scenario.Runner
	log      *slog.Logger
	registry *prometheus.Registry
	mux      *http.ServeMux

	// ctx bounds engines started over HTTP.
	ctx context.Context
}

func NewServer(engine *sim.Engine, opts Options) *Server {
	if opts.Tracker == nil {
		opts.Tracker = alerts.NewTracker()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(engine))

	s := &Server{
		Engine:   engine,
		tracker:  opts.Tracker,
		runner:   opts.Runner,
		log:      opts.Logger,
		registry: reg,
		mux:      http.NewServeMux(),
		ctx:      context.Background(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /nodes", s.handleNodes)
	s.mux.HandleFunc("GET /nodes/{id}", s.handleNode)
	s.mux.HandleFunc("GET /series", s.handleSeries)
	s.mux.HandleFunc("GET /histogram", s.handleHistogram)
	s.mux.HandleFunc("GET /alerts", s.handleAlerts)
	s.mux.HandleFunc("DELETE /alerts", s.handleResetAlerts)
	s.mux.HandleFunc("GET /rules", s.handleRules)
	s.mux.HandleFunc("GET /anomalies", s.handleGetAnomalies)
	s.mux.HandleFunc("PUT /anomalies", s.handlePutAnomalies)
	s.mux.HandleFunc("POST /anomalies/toggle", s.handleToggleAnomaly)
	s.mux.HandleFunc("GET /engine", s.handleEngine)
	s.mux.HandleFunc("POST /engine/start", s.handleStart)
	s.mux.HandleFunc("POST /engine/stop", s.handleStop)
	s.mux.HandleFunc("GET /scenario", s.handleScenario)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.ctx = logging.NewContext(ctx, s.log)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown", "err", err)
		}
	}()

	s.log.Info("admin API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Engine.NodeSnapshot(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown node")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func seriesParams(r *http.Request) (node, metric string, rng metrics.TimeRange, ok bool) {
	q := r.URL.Query()
	node, metric = q.Get("node"), q.Get("metric")
	rng = metrics.TimeRange(q.Get("range"))
	if rng == "" {
		rng = metrics.Range1h
	}
	return node, metric, rng, node != "" && metric != ""
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	node, metric, rng, ok := seriesParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "node and metric are required")
		return
	}
	if _, ok := metrics.KindOf(metric); !ok {
		writeError(w, http.StatusNotFound, "unknown metric")
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Series(node, metric, rng))
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	node, metric, rng, ok := seriesParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "node and metric are required")
		return
	}
	q := metrics.Quantile(r.URL.Query().Get("quantile"))
	if q == "" {
		q = metrics.P95
	}
	if _, ok := (metrics.Quantiles{}).Get(q); !ok {
		writeError(w, http.StatusBadRequest, "quantile must be p50, p95 or p99")
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.HistogramSeries(node, metric, rng, q))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	node := r.URL.Query().Get("node")
	out := []alerts.Alert{}
	for _, a := range s.tracker.Active(s.Engine.Now()) {
		if node == "" || a.NodeID == node {
			out = append(out, a)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleResetAlerts clears activation times. Rules still holding fire again
// on the next exporter tick with a fresh duration.
func (s *Server) handleResetAlerts(w http.ResponseWriter, r *http.Request) {
	s.tracker.Reset()
	s.log.Info("alert tracker reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, alerts.Catalog)
}

func (s *Server) handleGetAnomalies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.AnomalyConfig())
}

func (s *Server) handlePutAnomalies(w http.ResponseWriter, r *http.Request) {
	var cfg anomaly.Config
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Engine.SetAnomalyConfig(cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleToggleAnomaly(w http.ResponseWriter, r *http.Request) {
	flag := r.URL.Query().Get("flag")
	cur := s.Engine.AnomalyConfig()
	next, err := cur.With(flag, !cur.Enabled(flag))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Engine.SetAnomalyConfig(next)
	writeJSON(w, http.StatusOK, next)
}

type engineStatus struct {
	Running  bool     `json:"running"`
	Ticks    uint64   `json:"ticks"`
	LastTick string   `json:"last_tick,omitempty"`
	Nodes    []string `json:"nodes"`
}

func (s *Server) status() engineStatus {
	ticks, last := s.Engine.Stats()
	st := engineStatus{Running: s.Engine.Running(), Ticks: ticks, Nodes: s.Engine.NodeIDs()}
	if !last.IsZero() {
		st.LastTick = last.UTC().Format(time.RFC3339)
	}
	return st
}

func (s *Server) handleEngine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.Engine.Start(s.ctx)
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Engine.Stop()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusNotFound, "no scenario running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":    s.runner.Phase(),
		"finished": s.runner.Finished(),
		"history":  s.runner.History(),
	})
}
