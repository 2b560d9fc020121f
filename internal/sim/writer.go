package sim

import "blockdag-sim/internal/telemetry"

// SampleWriter receives exported series samples.
type SampleWriter interface {
	WriteSample(telemetry.SampleRow) error
}

// Optional: sample writers may support batch mode
type batchSampleWriter interface {
	WriteSamples([]telemetry.SampleRow) error
}

// AlertWriter receives alert transitions.
type AlertWriter interface {
	WriteAlert(telemetry.AlertRow) error
}

// Optional: alert writers may support batch mode
type batchAlertWriter interface {
	WriteAlerts([]telemetry.AlertRow) error
}

// writeSamples uses the batch path when w supports it.
func writeSamples(w SampleWriter, rows []telemetry.SampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchSampleWriter); ok {
		return bw.WriteSamples(rows)
	}
	for _, r := range rows {
		if err := w.WriteSample(r); err != nil {
			return err
		}
	}
	return nil
}

// writeAlerts uses the batch path when w supports it.
func writeAlerts(w AlertWriter, rows []telemetry.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchAlertWriter); ok {
		return bw.WriteAlerts(rows)
	}
	for _, r := range rows {
		if err := w.WriteAlert(r); err != nil {
			return err
		}
	}
	return nil
}
