package domain

import (
	"fmt"
	"time"
)

// Status enumerates the lifecycle of a source record. Transitions only move forward.
type Status string

const (
	StatusDownloaded             Status = "DOWNLOADED"
	StatusSentToRemoteSummarizer Status = "SENT_TO_REMOTE_SUMMARIZER"
	StatusSentToReferenceManager Status = "SENT_TO_REFERENCE_MANAGER"
	StatusCompleted              Status = "COMPLETED"
)

var statusOrder = []Status{
	StatusDownloaded,
	StatusSentToRemoteSummarizer,
	StatusSentToReferenceManager,
	StatusCompleted,
}

// Statuses returns every lifecycle tag in forward order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Rank returns the position of s in the lifecycle, or -1 for unknown values.
func (s Status) Rank() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known lifecycle tags.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// ParseStatus validates a persisted status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// SourceRecord is the persisted unit of work, keyed for dedup by Title.
// Empty URL, ExternalID and integration ids are stored as NULL.
// Summary is a pointer because an empty extracted text still marks the source as processed.
type SourceRecord struct {
	ID               int64
	Title            string
	URL              string
	ExternalID       string
	Summary          *string
	Status           Status
	RemoteDocumentID string
	ReferenceItemID  string
	CreatedAt        time.Time
}

// ImportResult reports the outcome of a bulk import batch.
type ImportResult struct {
	Added   int
	Skipped int
}
