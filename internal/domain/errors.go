package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a source was skipped or a run aborted.
type ErrorCode string

const (
	ErrCodeSessionUnavailable   ErrorCode = "SESSION_UNAVAILABLE"    // fatal
	ErrCodeElementUnavailable   ErrorCode = "ELEMENT_UNAVAILABLE"    // per source
	ErrCodeControlUnavailable   ErrorCode = "CONTROL_UNAVAILABLE"    // per source
	ErrCodeCompletionTimeout    ErrorCode = "COMPLETION_TIMEOUT"     // per source
	ErrCodeNoVisibleResult      ErrorCode = "NO_VISIBLE_RESULT"      // per source
	ErrCodeClipboardReadFailure ErrorCode = "CLIPBOARD_READ_FAILURE" // degraded
	ErrCodeDuplicateURL         ErrorCode = "DUPLICATE_URL"          // record dropped
	ErrCodePersistenceFailure   ErrorCode = "PERSISTENCE_FAILURE"    // record dropped
	ErrCodeAlreadyProcessed     ErrorCode = "ALREADY_PROCESSED"      // dedup
)

// Stage names the activation state a source had reached.
type Stage string

const (
	StageDiscovered          Stage = "discovered"
	StageActivationRequested Stage = "activation_requested"
	StageSubmissionSent      Stage = "submission_sent"
	StageAwaitingCompletion  Stage = "awaiting_completion"
	StageResultDisambiguated Stage = "result_disambiguated"
	StageResultExtracted     Stage = "result_extracted"
	StagePersisted           Stage = "persisted"
)

var (
	// ErrSessionUnavailable is returned when a browser session cannot be acquired.
	ErrSessionUnavailable = errors.New("session unavailable")
	// ErrDuplicateURL is returned when an insert collides with an existing url.
	ErrDuplicateURL = errors.New("duplicate url")
)

// StageError is a per-source failure. It never aborts the run.
type StageError struct {
	Code  ErrorCode
	Stage Stage
	Title string
	Err   error
}

// NewStageError builds a StageError wrapping err.
func NewStageError(code ErrorCode, stage Stage, title string, err error) *StageError {
	return &StageError{Code: code, Stage: stage, Title: title, Err: err}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: source %q at %s", e.Code, e.Title, e.Stage)
	}
	return fmt.Sprintf("%s: source %q at %s: %v", e.Code, e.Title, e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}
