// Package telemetry records run metadata for later upload. Recording is
// local only; the upload pipeline is a separate collaborator.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/types"
)

// Recorder spools one JSON record per session into a local directory.
type Recorder struct {
	spoolDir string
	logger   logger.Logger
}

// NewRecorder creates a recorder spooling under the user cache directory.
func NewRecorder(log logger.Logger) *Recorder {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}

	return &Recorder{
		spoolDir: filepath.Join(cacheDir, "batect", "sessions"),
		logger:   log,
	}
}

// NewRecorderWithDir creates a recorder spooling into a specific directory
// (for testing).
func NewRecorderWithDir(dir string, log logger.Logger) *Recorder {
	return &Recorder{
		spoolDir: dir,
		logger:   log,
	}
}

// Record writes the session record. A recording failure is reported to the
// caller but must never affect the run's outcome.
func (r *Recorder) Record(meta types.RunMetadata) error {
	if err := os.MkdirAll(r.spoolDir, 0o755); err != nil {
		return fmt.Errorf("creating telemetry spool: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}

	path := filepath.Join(r.spoolDir, meta.SessionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session record: %w", err)
	}

	r.logger.Debug("Recorded session", logger.WithField("path", path))
	return nil
}

// NullRecorder discards all records. Used when telemetry is disabled.
type NullRecorder struct{}

// Record implements TelemetryRecorder.
func (NullRecorder) Record(types.RunMetadata) error { return nil }
