package main

import (
	"log/slog"

	"blockdag-sim/internal/config"
	"blockdag-sim/internal/sim"
)

// newSinks builds the sample and alert writers the export section asks for.
// Either writer is nil when nothing consumes that row type. The cleanup
// function closes any files opened.
func newSinks(cfg *config.Config, overview *sim.Overview, log *slog.Logger) (sim.SampleWriter, sim.AlertWriter, func(), error) {
	var (
		sws     []sim.SampleWriter
		aws     []sim.AlertWriter
		cleanup = func() {}
	)

	if cfg.Export.PrintSamples || cfg.Export.PrintAlerts {
		sw := sim.NewStdoutWriter(overview)
		if cfg.Export.PrintSamples {
			sws = append(sws, sw)
		}
		if cfg.Export.PrintAlerts {
			aws = append(aws, sw)
		}
	}

	if g := cfg.Export.Greptime; g.Endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(g.Endpoint, g.Database, g.SampleTable, g.AlertTable, log)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("exporting to GreptimeDB", "endpoint", g.Endpoint, "database", g.Database)
		sws = append(sws, gw)
		aws = append(aws, gw)
	}

	if cfg.Export.LogFile != "" {
		fw, err := sim.NewFileWriter(cfg.Export.LogFile, cfg.Export.LogFile+".alerts")
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() {
			if err := fw.Close(); err != nil {
				log.Error("closing log file", "err", err)
			}
		}
		sws = append(sws, fw)
		aws = append(aws, fw)
	}

	return combineSamples(sws), combineAlerts(aws), cleanup, nil
}

func combineSamples(ws []sim.SampleWriter) sim.SampleWriter {
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return ws[0]
	}
	return sim.NewMultiWriter(ws, nil)
}

func combineAlerts(ws []sim.AlertWriter) sim.AlertWriter {
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return ws[0]
	}
	return sim.NewMultiWriter(nil, ws)
}

// newReplayWriter picks GreptimeDB when an endpoint is configured and
// printOnly is not set, STDOUT otherwise.
func newReplayWriter(cfg *config.Config, printOnly bool, log *slog.Logger) (sim.SampleWriter, error) {
	g := cfg.Export.Greptime
	if printOnly || g.Endpoint == "" {
		return sim.NewStdoutWriter(nil), nil
	}
	return sim.NewGreptimeDBWriter(g.Endpoint, g.Database, g.SampleTable, g.AlertTable, log)
}
