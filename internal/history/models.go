package history

import "time"

// RunStatus is the terminal or in-progress state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunAborted   RunStatus = "aborted"
)

// Run describes one invocation of the translate command.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         RunStatus
	SourceLanguage string
	TargetLanguage string
	Model          string
	InputDir       string
	OutputDir      string
	ErrorMessage   string

	// Aggregates filled by ListRuns.
	Files     int
	Written   int
	Failed    int
	Fallbacks int
}

// Duration reports how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FileRecord is the stored outcome of one input file.
type FileRecord struct {
	Name       string
	OutputPath string
	Status     string
	Reason     string
	Kind       string
	Entries    int
	Chunks     int
	Fallbacks  int
	Attempts   int
	Warnings   int
	Duration   time.Duration
	RecordedAt time.Time
}
