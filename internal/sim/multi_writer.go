package sim

import (
	"errors"

	"blockdag-sim/internal/telemetry"
)

// MultiWriter fans samples and alert transitions out to multiple writers.
// Every writer is attempted; the errors are joined.
type MultiWriter struct {
	samples []SampleWriter
	alerts  []AlertWriter
}

// NewMultiWriter creates a new MultiWriter. Nil entries are skipped.
func NewMultiWriter(sws []SampleWriter, aws []AlertWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range sws {
		if w != nil {
			mw.samples = append(mw.samples, w)
		}
	}
	for _, w := range aws {
		if w != nil {
			mw.alerts = append(mw.alerts, w)
		}
	}
	return mw
}

// WriteSample sends a sample to all sample writers.
func (mw *MultiWriter) WriteSample(row telemetry.SampleRow) error {
	return mw.WriteSamples([]telemetry.SampleRow{row})
}

// WriteSamples sends samples to all sample writers, using batch if supported.
func (mw *MultiWriter) WriteSamples(rows []telemetry.SampleRow) error {
	var errs []error
	for _, w := range mw.samples {
		if err := writeSamples(w, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAlert sends an alert transition to all alert writers.
func (mw *MultiWriter) WriteAlert(row telemetry.AlertRow) error {
	return mw.WriteAlerts([]telemetry.AlertRow{row})
}

// WriteAlerts sends alert transitions to all alert writers, using batch if
// supported.
func (mw *MultiWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	var errs []error
	for _, w := range mw.alerts {
		if err := writeAlerts(w, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
