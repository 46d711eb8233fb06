package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOrdering(t *testing.T) {
	t.Parallel()

	statuses := Statuses()
	require.Len(t, statuses, 4)
	for i, s := range statuses {
		assert.Equal(t, i, s.Rank())
		assert.True(t, s.Valid())
	}
	assert.Less(t, StatusDownloaded.Rank(), StatusSentToRemoteSummarizer.Rank())
	assert.Equal(t, -1, Status("bogus").Rank())
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	s, err := ParseStatus("SENT_TO_REFERENCE_MANAGER")
	require.NoError(t, err)
	assert.Equal(t, StatusSentToReferenceManager, s)

	_, err = ParseStatus("notebooklm")
	require.Error(t, err)
}

func TestStageErrorCode(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewStageError(ErrCodeNoVisibleResult, StageResultDisambiguated, "A", cause))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeNoVisibleResult, se.Code)
	assert.Equal(t, StageResultDisambiguated, se.Stage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `NO_VISIBLE_RESULT: source "A" at result_disambiguated: boom`)
}

func TestReportString(t *testing.T) {
	t.Parallel()

	r := Report{RunID: "01H", Profile: "7", Processed: 1, Skipped: []Skip{{Title: "A", Stage: StageDiscovered, Code: ErrCodeAlreadyProcessed}}}
	out := r.String()
	assert.Contains(t, out, "processed=1 skipped=1")
	assert.Contains(t, out, "A [ALREADY_PROCESSED at discovered]")
	assert.NotContains(t, out, "aborted")

	r.Aborted = ErrCodeSessionUnavailable
	assert.Contains(t, r.String(), "aborted=SESSION_UNAVAILABLE")
}
