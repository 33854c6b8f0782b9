package overflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teemow/inboxcontent/internal/logging"
)

// DefaultRetention is how long spill files are kept when no age is given.
const DefaultRetention = 24 * time.Hour

// SweepFailure is a file that could not be inspected or removed.
type SweepFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SweepReport summarises one Sweep run.
type SweepReport struct {
	Dir          string         `json:"dir"`
	MaxAge       time.Duration  `json:"-"`
	Scanned      int            `json:"scanned"`
	Removed      int            `json:"removed"`
	RemovedBytes int64          `json:"removedBytes"`
	Failures     []SweepFailure `json:"failures,omitempty"`
}

// Sweep removes spill files older than maxAge. A non-positive maxAge
// selects DefaultRetention. Only files carrying the manager's prefix are
// considered. Per-file problems are collected in the report; an error is
// returned only when the directory cannot be listed or ctx ends.
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) (SweepReport, error) {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	report := SweepReport{Dir: m.Dir, MaxAge: maxAge}
	if m.Dir == "" {
		return report, nil
	}

	entries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to list work directory: %w", err)
	}

	cutoff := m.now().Add(-maxAge)
	prefix := m.Prefix + "_"

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		report.Scanned++

		path := filepath.Join(m.Dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{Path: path, Error: err.Error()})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			report.Failures = append(report.Failures, SweepFailure{Path: path, Error: err.Error()})
			continue
		}
		report.Removed++
		report.RemovedBytes += info.Size()
	}

	m.logger.Debug("work directory swept",
		logging.Operation("overflow.sweep"),
		"removed", report.Removed,
		"failures", len(report.Failures))
	return report, nil
}
