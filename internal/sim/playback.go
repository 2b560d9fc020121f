package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"blockdag-sim/internal/telemetry"
)

// ReplayLog replays sample rows from r to writer. A speed >0 paces rows by
// their recorded timestamps divided by speed. If speed <= 0, no artificial
// delay is inserted.
func ReplayLog(ctx context.Context, r io.Reader, writer SampleWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var (
		prev time.Time
		n    int
	)
	for {
		var row telemetry.SampleRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return n, ctx.Err()
				}
			}
		}
		if err := writer.WriteSample(row); err != nil {
			return n, err
		}
		n++
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its sample rows.
func ReplayLogFile(ctx context.Context, path string, writer SampleWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
