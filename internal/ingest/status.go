package ingest

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StatusSnapshot is a read-only view of an ingest run's progress.
type StatusSnapshot struct {
	RunID           string    `json:"run_id,omitempty"`
	IsRunning       bool      `json:"is_running"`
	TotalFiles      int       `json:"total_files"`
	ProcessedFiles  int       `json:"processed_files"`
	FailedFiles     int       `json:"failed_files"`
	CurrentFile     *string   `json:"current_file"`
	ProgressPercent float64   `json:"progress_percent"`
	Errors          []string  `json:"errors"`
	StartedAt       time.Time `json:"started_at,omitempty"`
}

// Status tracks the progress of a single ingest run.
// All methods are safe for concurrent use; a fresh instance is created
// for every run and frozen when the run finishes.
type Status struct {
	mu        sync.Mutex
	runID     string
	running   bool
	total     int
	processed int
	failed    int
	current   string
	percent   float64
	errors    []string
	startedAt time.Time
}

func newStatus() *Status {
	return &Status{
		runID:     uuid.NewString(),
		running:   true,
		errors:    []string{},
		startedAt: time.Now(),
	}
}

// RunID returns the unique identifier of this run.
func (s *Status) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Status) setTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// beginFile records the file about to be processed. idx is the zero-based
// scan position, so percent stays monotonically non-decreasing.
func (s *Status) beginFile(name string, idx, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
	if total > 0 {
		s.percent = float64(idx) / float64(total) * 100
	}
}

func (s *Status) incProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
}

func (s *Status) recordFailure(file string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.errors = append(s.errors, fmt.Sprintf("%s: %v", file, err))
}

func (s *Status) appendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

// finish freezes the status at the end of a run, on every exit path.
func (s *Status) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.current = ""
	s.percent = 100
}

// Snapshot returns a point-in-time copy of the run's progress.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatusSnapshot{
		RunID:           s.runID,
		IsRunning:       s.running,
		TotalFiles:      s.total,
		ProcessedFiles:  s.processed,
		FailedFiles:     s.failed,
		ProgressPercent: s.percent,
		Errors:          append([]string{}, s.errors...),
		StartedAt:       s.startedAt,
	}
	if s.current != "" {
		current := s.current
		snap.CurrentFile = &current
	}
	return snap
}
