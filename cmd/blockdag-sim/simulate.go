package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"blockdag-sim/internal/admin"
	"blockdag-sim/internal/alerts"
	"blockdag-sim/internal/config"
	"blockdag-sim/internal/logging"
	"blockdag-sim/internal/scenario"
	"blockdag-sim/internal/sim"
)

var (
	simPrintOnly bool
	simLogFile   string
	simScenario  string
	simSeed      int64
	simAnomalies []string
	simAdminAddr string
	simNoAdmin   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time node simulator",
	Long: "simulate advances the node fleet every two seconds, serves the admin API and exports " +
		"samples and alert transitions to the configured sinks until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applySimulateFlags(cmd, cfg); err != nil {
			return err
		}
		anomalies, err := cfg.AnomalyConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		engine := sim.NewEngine(cfg.Nodes,
			sim.WithSeed(cfg.Seed),
			sim.WithLogger(log),
			sim.WithAnomalies(anomalies))

		runID := uuid.NewString()
		overview := &sim.Overview{
			RunID:      runID,
			Nodes:      engine.NodeIDs(),
			Designated: engine.Designated(),
			Anomalies:  anomalies.String(),
		}
		samples, alertSink, cleanup, err := newSinks(cfg, overview, log)
		if err != nil {
			return err
		}
		defer cleanup()

		tracker := alerts.NewTracker()
		exporter := sim.NewExporter(engine, samples, alertSink, sim.ExporterOptions{
			RunID:     runID,
			QueueSize: cfg.Export.QueueSize,
			Tracker:   tracker,
			Logger:    log,
		})
		exporter.Start(ctx)
		defer exporter.Close()

		var runner *scenario.Runner
		if cfg.Scenario != "" {
			sc, err := scenario.Resolve(cfg.Scenario)
			if err != nil {
				return err
			}
			runner, err = scenario.NewRunner(sc, engine, log)
			if err != nil {
				return err
			}
			if err := runner.Start(); err != nil {
				return err
			}
			defer runner.Stop()
		}

		if cfg.Admin.Addr != "" {
			srv := admin.NewServer(engine, admin.Options{Tracker: tracker, Runner: runner, Logger: log})
			go func() {
				if err := srv.Start(ctx, cfg.Admin.Addr); err != nil {
					log.Error("admin server failed", "err", err)
					stop()
				}
			}()
		}

		log.Info("simulation started", "run_id", runID, "nodes", len(cfg.Nodes), "anomalies", anomalies.String())
		engine.Start(ctx)
		<-ctx.Done()
		engine.Stop()

		ticks, _ := engine.Stats()
		log.Info("simulation stopped", "ticks", ticks, "dropped_batches", exporter.Dropped())
		return nil
	},
}

// applySimulateFlags lets explicitly set flags override the loaded file.
func applySimulateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if simPrintOnly {
		cfg.Export.PrintSamples = true
		cfg.Export.PrintAlerts = true
		cfg.Export.Greptime.Endpoint = ""
	}
	if flags.Changed("log-file") {
		cfg.Export.LogFile = simLogFile
	}
	if flags.Changed("scenario") {
		cfg.Scenario = simScenario
	}
	if flags.Changed("seed") {
		cfg.Seed = simSeed
	}
	if flags.Changed("anomaly") {
		cfg.Anomalies = simAnomalies
	}
	if flags.Changed("admin-addr") {
		cfg.Admin.Addr = simAdminAddr
	}
	if simNoAdmin {
		cfg.Admin.Addr = ""
	}
	return config.Validate(cfg)
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print samples and alerts to STDOUT instead of writing to GreptimeDB")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export samples (JSONL); alerts go to <path>.alerts")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or path to a scenario YAML file")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Noise seed (0 picks a time-based seed)")
	simulateCmd.Flags().StringSliceVar(&simAnomalies, "anomaly", nil, "Anomaly flags to enable, e.g. peer-collapse,rpc-flood")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", "", "Admin API listen address")
	simulateCmd.Flags().BoolVar(&simNoAdmin, "no-admin", false, "Disable the admin API")
}
