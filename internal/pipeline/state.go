package pipeline

import (
	"fmt"
	"time"

	"subtrans/internal/reassemble"
	"subtrans/internal/services"
)

// State is a step of the per-file state machine.
type State string

const (
	StatePending      State = "pending"
	StateParsing      State = "parsing"
	StateChunking     State = "chunking"
	StateTranslating  State = "translating"
	StateReassembling State = "reassembling"
	StateWritten      State = "written"
	StateFailed       State = "failed"
)

// Event reports a state transition. Done and Total are set while translating.
type Event struct {
	File   string
	State  State
	Done   int
	Total  int
	Detail string
}

func (e Event) String() string {
	if e.State == StateTranslating {
		return fmt.Sprintf("%s(%d/%d)", e.State, e.Done, e.Total)
	}
	return string(e.State)
}

// Status is the final per-file result reported to the caller.
type Status int

const (
	StatusFailed Status = iota
	StatusWritten
	StatusWrittenWithFallbacks
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusWrittenWithFallbacks:
		return "written_with_fallbacks"
	default:
		return "failed"
	}
}

// Outcome is the report for one input file.
type Outcome struct {
	Name       string
	Path       string
	OutputPath string
	Status     Status
	Reason     string
	Kind       services.Kind
	Err        error
	Entries    int
	Chunks     int
	Fallbacks  int
	Attempts   int
	Warnings   []string
	Failures   []reassemble.ChunkFailure
	Duration   time.Duration
}

// Label renders the status the way it is reported to users:
// Written, WrittenWithFallbacks(n) or Failed(reason).
func (o Outcome) Label() string {
	switch o.Status {
	case StatusWritten:
		return "Written"
	case StatusWrittenWithFallbacks:
		return fmt.Sprintf("WrittenWithFallbacks(%d)", o.Fallbacks)
	default:
		return fmt.Sprintf("Failed(%s)", o.Reason)
	}
}

// Succeeded reports whether an output file was produced.
func (o Outcome) Succeeded() bool {
	return o.Status != StatusFailed
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Outcomes []Outcome
	Aborted  bool
	Err      error
	Started  time.Time
	Finished time.Time
}

// Counts tallies outcomes by status.
func (r Report) Counts() (written, withFallbacks, failed int) {
	for _, outcome := range r.Outcomes {
		switch outcome.Status {
		case StatusWritten:
			written++
		case StatusWrittenWithFallbacks:
			withFallbacks++
		default:
			failed++
		}
	}
	return written, withFallbacks, failed
}

// Fallbacks returns the total number of fallback chunks across files.
func (r Report) Fallbacks() int {
	total := 0
	for _, outcome := range r.Outcomes {
		total += outcome.Fallbacks
	}
	return total
}
