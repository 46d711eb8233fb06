package domain

import (
	"fmt"
	"strings"
	"time"
)

// Candidate is a source discovered in the remote workspace, in on-screen order.
type Candidate struct {
	Index int
	Title string
}

// Skip records why a candidate did not produce a record.
type Skip struct {
	Title string
	Stage Stage
	Code  ErrorCode
}

// Report summarises one pipeline run.
type Report struct {
	RunID     string
	Profile   string
	Processed int
	Skipped   []Skip
	Elapsed   time.Duration
	// Aborted is set when the run stopped before processing the workspace.
	Aborted ErrorCode
}

// SkippedCount returns the number of candidates that were not processed.
func (r Report) SkippedCount() int {
	return len(r.Skipped)
}

// String renders a short human readable digest of the run.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (profile %s): processed=%d skipped=%d elapsed=%s\n",
		r.RunID, r.Profile, r.Processed, r.SkippedCount(), r.Elapsed.Round(time.Second))
	if r.Aborted != "" {
		fmt.Fprintf(&b, "aborted=%s\n", r.Aborted)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "- %s [%s at %s]\n", s.Title, s.Code, s.Stage)
	}
	return b.String()
}
