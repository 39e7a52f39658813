package audiostore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAllocate_CreatesDirAndUniquePaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s := New(dir)

	p1, err := s.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := s.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p1 == p2 {
		t.Errorf("expected unique paths, got %s twice", p1)
	}
	if filepath.Dir(p1) != dir {
		t.Errorf("expected path inside %s, got %s", dir, p1)
	}
	if !strings.HasPrefix(filepath.Base(p1), "rec-") || !strings.HasSuffix(p1, ".wav") {
		t.Errorf("unexpected artifact name: %s", filepath.Base(p1))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected cache dir to exist, err=%v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Delete(path); err != nil {
		t.Errorf("first delete: unexpected error: %v", err)
	}
	// Deleting an already-deleted file is not an error
	if err := s.Delete(path); err != nil {
		t.Errorf("second delete: unexpected error: %v", err)
	}
	// Never-created path is not an error either
	if err := s.Delete(filepath.Join(s.Dir(), "never-created.wav")); err != nil {
		t.Errorf("never-created delete: unexpected error: %v", err)
	}
	// Empty path is a no-op
	if err := s.Delete(""); err != nil {
		t.Errorf("empty path delete: unexpected error: %v", err)
	}
}

func TestExists(t *testing.T) {
	s := New(t.TempDir())

	path, _ := s.Allocate()
	if s.Exists(path) {
		t.Error("expected Exists false before write")
	}
	os.WriteFile(path, []byte("audio"), 0o644)
	if !s.Exists(path) {
		t.Error("expected Exists true after write")
	}
}

func TestSize(t *testing.T) {
	s := New(t.TempDir())

	path, _ := s.Allocate()
	if err := os.WriteFile(path, make([]byte, 1234), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := s.Size(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1234 {
		t.Errorf("expected size 1234, got %d", n)
	}

	if _, err := s.Size(filepath.Join(s.Dir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSweep_DeletesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	old := filepath.Join(dir, "rec-1-old.wav")
	fresh := filepath.Join(dir, "rec-2-fresh.wav")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	report := s.Sweep(24 * time.Hour)

	if report.Scanned != 2 {
		t.Errorf("expected 2 scanned, got %d", report.Scanned)
	}
	if report.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", report.Deleted)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}
	if s.Exists(old) {
		t.Error("expected expired artifact to be deleted")
	}
	if !s.Exists(fresh) {
		t.Error("expected fresh artifact to survive")
	}
}

func TestSweep_MissingDirIsNotAnError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))

	report := s.Sweep(24 * time.Hour)

	if report.Scanned != 0 || report.Deleted != 0 || len(report.Errors) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}
