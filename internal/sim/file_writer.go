package sim

import (
	"encoding/json"
	"os"
	"sync"

	"blockdag-sim/internal/telemetry"
)

// FileWriter writes samples and alert transitions to JSONL files.
type FileWriter struct {
	mu         sync.Mutex
	sampleFile *os.File
	alertFile  *os.File
	sampleEnc  *json.Encoder
	alertEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. alertPath may be empty to skip the
// alert log.
func NewFileWriter(samplePath, alertPath string) (*FileWriter, error) {
	sf, err := os.Create(samplePath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{sampleFile: sf, sampleEnc: json.NewEncoder(sf)}
	if alertPath != "" {
		af, err := os.Create(alertPath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.alertFile = af
		fw.alertEnc = json.NewEncoder(af)
	}
	return fw, nil
}

// WriteSample logs a single sample.
func (f *FileWriter) WriteSample(row telemetry.SampleRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sampleEnc.Encode(row)
}

// WriteSamples logs multiple samples.
func (f *FileWriter) WriteSamples(rows []telemetry.SampleRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if err := f.sampleEnc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert logs a single alert transition, if enabled.
func (f *FileWriter) WriteAlert(row telemetry.AlertRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alertEnc == nil {
		return nil
	}
	return f.alertEnc.Encode(row)
}

// WriteAlerts logs multiple alert transitions.
func (f *FileWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, r := range rows {
		if err := f.WriteAlert(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.sampleFile != nil {
		if e := f.sampleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.alertFile != nil {
		if e := f.alertFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
