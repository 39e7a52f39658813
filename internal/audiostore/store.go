// Package audiostore manages the temporary on-disk cache for audio artifacts.
//
// The store is the only component that touches artifact files. All
// operations are idempotent: deleting a missing file is not an error, and
// a sweep continues past individual failures. This removes the need for
// locking given the single-active-session invariant upstream.
package audiostore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-message-pipeline/internal/observability/logging"
	"voice-message-pipeline/internal/observability/metrics"
)

const artifactExt = ".wav"

// Store manages a dedicated cache subdirectory of audio artifacts.
type Store struct {
	dir     string
	log     zerolog.Logger
	metrics *metrics.Metrics
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// SweepReport summarizes one retention sweep.
type SweepReport struct {
	Scanned int
	Deleted int
	Errors  []error
}

// New creates a store rooted at dir. The directory is created lazily on
// the first Allocate.
func New(dir string) *Store {
	return &Store{
		dir:     dir,
		log:     logging.WithComponent("audiostore"),
		metrics: metrics.DefaultMetrics,
		clock:   time.Now,
	}
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Allocate returns a fresh, unique artifact path inside the cache
// directory, creating the directory on first use. The file itself is not
// created; the capture device writes it.
func (s *Store) Allocate() (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("audiostore: create cache dir: %w", err)
	}
	name := fmt.Sprintf("rec-%d-%s%s", s.clock().UnixMilli(), shortID(), artifactExt)
	return filepath.Join(s.dir, name), nil
}

// Size returns the byte size of the artifact at path.
func (s *Store) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("audiostore: stat %s: %w", filepath.Base(path), err)
	}
	return info.Size(), nil
}

// Exists reports whether an artifact is present at path.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes the artifact at path. Idempotent: deleting a missing or
// never-created file is not an error.
func (s *Store) Delete(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("audiostore: delete %s: %w", filepath.Base(path), err)
	}
	if err == nil {
		s.log.Debug().Str("artifact", filepath.Base(path)).Msg("Artifact deleted")
	}
	return nil
}

// Sweep deletes artifacts whose last-modified time is older than maxAge.
// Invoked once at process start. A per-file failure is recorded and the
// sweep continues.
func (s *Store) Sweep(maxAge time.Duration) SweepReport {
	var report SweepReport

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing recorded yet.
			return report
		}
		report.Errors = append(report.Errors, fmt.Errorf("audiostore: read cache dir: %w", err))
		s.metrics.SweepErrors.Inc()
		return report
	}

	cutoff := s.clock().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		report.Scanned++

		info, err := entry.Info()
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("audiostore: stat %s: %w", entry.Name(), err))
			s.metrics.SweepErrors.Inc()
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			report.Errors = append(report.Errors, fmt.Errorf("audiostore: sweep %s: %w", entry.Name(), err))
			s.metrics.SweepErrors.Inc()
			continue
		}
		report.Deleted++
		s.metrics.SweepDeletions.Inc()
	}

	s.log.Info().
		Int("scanned", report.Scanned).
		Int("deleted", report.Deleted).
		Int("errors", len(report.Errors)).
		Dur("maxAge", maxAge).
		Msg("Store sweep finished")
	return report
}

func shortID() string {
	return uuid.NewString()[:8]
}
