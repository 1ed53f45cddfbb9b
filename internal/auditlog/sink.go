// Package auditlog persists an append-only CSV record of every block a run
// performs. Each append is flushed and synced before returning, so a crash
// mid-run loses at most the block in flight, never evidence of completed ones.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Header is the fixed CSV header written at the start of every run.
var Header = []string{"Handle", "FollowsCount", "DID", "BlockedAt"}

// BlockedAtLayout is the timestamp layout used in the log.
const BlockedAtLayout = "2006-01-02 15:04:05"

// Record is one successful block. Records are never updated or deleted.
type Record struct {
	Handle       string
	FollowsCount int64
	DID          string
	BlockedAt    time.Time
}

func (r Record) row() []string {
	return []string{
		r.Handle,
		strconv.FormatInt(r.FollowsCount, 10),
		r.DID,
		r.BlockedAt.Format(BlockedAtLayout),
	}
}

// Sink is a run-scoped audit log file. The handle is owned by a single run:
// Begin truncates, so two concurrent runs sharing a path would destroy each
// other's logs. Callers enforce single-writer discipline.
type Sink struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// New creates a sink for path. No file is touched until Begin.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Path returns the log file location.
func (s *Sink) Path() string { return s.path }

// Begin truncates (or creates) the log and writes the header row. It marks
// the start of a run's execution batch.
func (s *Sink) Begin() error {
	if s.f != nil {
		s.f.Close()
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open audit log %s: %w", s.path, err)
	}
	s.f = f
	s.w = csv.NewWriter(f)

	if err := s.w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return s.flush()
}

// Append writes one record and makes it durable before returning.
func (s *Sink) Append(r Record) error {
	if s.f == nil {
		return fmt.Errorf("audit log not started")
	}
	if err := s.w.Write(r.row()); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	return s.flush()
}

func (s *Sink) flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// Export returns the raw bytes of the current run's log.
func (s *Sink) Export() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return data, nil
}

// Close releases the file handle. The log stays on disk for export.
func (s *Sink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.w = nil
	return err
}
