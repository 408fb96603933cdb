// Package report records per-task timing for one batch and persists it as a
// JSON artifact under the build output directory. The artifact lets repeated
// invocations tell a cached, near-instant task apart from one that did real
// work.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileName is the well-known name of the report artifact inside the build
// output directory.
const FileName = "run_report.json"

// Entry records the timing of one executed task.
type Entry struct {
	Task       string        `json:"task_name"`
	StartedAt  time.Time     `json:"start_time"`
	FinishedAt time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration_ns"`
}

// Report is the ordered record of every task executed in one batch.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Entries   []Entry   `json:"tasks"`
}

// New builds a report for a finished batch with a fresh run ID.
func New(entries []Entry) *Report {
	r := &Report{
		RunID:   uuid.NewString(),
		Entries: entries,
	}
	if len(entries) > 0 {
		r.StartedAt = entries[0].StartedAt
	}
	return r
}

// Path returns the fixed report location for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, "build", FileName)
}

// Write serializes the report to path, overwriting any previous artifact.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	return nil
}

// Load reads a report previously produced by Write.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode run report %s: %w", path, err)
	}
	return &r, nil
}
