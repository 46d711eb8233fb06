package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/logging"
)

func TestGateListsCandidatesInOrder(t *testing.T) {
	t.Parallel()

	ws := newFakeWorkspace("first", "", "third")
	gate := NewGate(&fakeRepo{}, testSelectors.Rows, time.Millisecond, 10*time.Millisecond, logging.Discard())

	candidates, skipped, err := gate.ListCandidates(context.Background(), ws)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, domain.Candidate{Index: 0, Title: "first"}, candidates[0].Candidate)
	assert.Equal(t, domain.Candidate{Index: 2, Title: "third"}, candidates[1].Candidate)
	assert.Equal(t, []domain.Skip{{Title: "#2", Stage: domain.StageDiscovered, Code: domain.ErrCodeElementUnavailable}}, skipped)
}

func TestGateEmptyWorkspace(t *testing.T) {
	t.Parallel()

	gate := NewGate(&fakeRepo{}, testSelectors.Rows, time.Millisecond, 5*time.Millisecond, logging.Discard())
	candidates, skipped, err := gate.ListCandidates(context.Background(), newFakeWorkspace())
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, skipped)
}

func TestGateFilterIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{records: []domain.SourceRecord{
		{Title: "done", Summary: strPtr("")},
		{Title: "imported", URL: "https://a.example", Status: domain.StatusDownloaded},
	}}
	gate := NewGate(repo, testSelectors.Rows, time.Millisecond, 0, logging.Discard())
	candidates := []Candidate{
		{Candidate: domain.Candidate{Index: 0, Title: "done"}},
		{Candidate: domain.Candidate{Index: 1, Title: "imported"}},
		{Candidate: domain.Candidate{Index: 2, Title: "new"}},
	}

	for i := 0; i < 2; i++ {
		pending, skipped, err := gate.Filter(context.Background(), candidates)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "imported", pending[0].Title)
		assert.Equal(t, "new", pending[1].Title)
		assert.Equal(t, []domain.Skip{{Title: "done", Stage: domain.StageDiscovered, Code: domain.ErrCodeAlreadyProcessed}}, skipped)
	}
}
