package sim

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdag-sim/internal/telemetry"
)

// collectWriter records rows and counts batch calls.
type collectWriter struct {
	mu      sync.Mutex
	samples []telemetry.SampleRow
	alerts  []telemetry.AlertRow
	batches int
	err     error
}

func (c *collectWriter) WriteSample(r telemetry.SampleRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, r)
	return c.err
}

func (c *collectWriter) WriteSamples(rows []telemetry.SampleRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.samples = append(c.samples, rows...)
	return c.err
}

func (c *collectWriter) WriteAlert(r telemetry.AlertRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, r)
	return c.err
}

func (c *collectWriter) snapshot() ([]telemetry.SampleRow, []telemetry.AlertRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]telemetry.SampleRow(nil), c.samples...), append([]telemetry.AlertRow(nil), c.alerts...)
}

// singleWriter only supports row-at-a-time writes.
type singleWriter struct{ rows []telemetry.SampleRow }

func (s *singleWriter) WriteSample(r telemetry.SampleRow) error {
	s.rows = append(s.rows, r)
	return nil
}

func TestMultiWriterFansOut(t *testing.T) {
	batch := &collectWriter{}
	single := &singleWriter{}
	mw := NewMultiWriter([]SampleWriter{batch, nil, single}, []AlertWriter{batch})

	rows := []telemetry.SampleRow{{Metric: "a"}, {Metric: "b"}}
	require.NoError(t, mw.WriteSamples(rows))
	assert.Equal(t, 1, batch.batches)
	assert.Len(t, batch.samples, 2)
	assert.Len(t, single.rows, 2)

	require.NoError(t, mw.WriteAlert(telemetry.AlertRow{RuleID: "node_down"}))
	assert.Len(t, batch.alerts, 1)
}

func TestMultiWriterContinuesAfterError(t *testing.T) {
	failing := &collectWriter{err: errors.New("sink down")}
	ok := &collectWriter{}
	mw := NewMultiWriter([]SampleWriter{failing, ok}, nil)

	err := mw.WriteSample(telemetry.SampleRow{Metric: "a"})
	assert.ErrorContains(t, err, "sink down")
	assert.Len(t, ok.samples, 1, "healthy writer skipped after failure")
}
