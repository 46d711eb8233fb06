package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NotebookSync/internal/config"
	"NotebookSync/internal/domain"
	"NotebookSync/internal/logging"
)

func newTestApp(t *testing.T, apiURL string) *Application {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "sources.db")
	cfg.Database.MaxOpenConns = 1
	if apiURL != "" {
		cfg.Profiles.APIURL = apiURL
	}

	application, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })
	return application
}

func TestImportAndStatus(t *testing.T) {
	t.Parallel()

	application := newTestApp(t, "")
	path := filepath.Join(t.TempDir(), "videos.txt")
	content := "WARNING: skipped\n" +
		"1\tTalk one\thttps://www.youtube.com/watch?v=f6kdp27TYZs\n" +
		"2\tTalk two\thttps://youtu.be/rFejpH_tAHM\n" +
		"3\tTalk one again\thttps://www.youtube.com/watch?v=f6kdp27TYZs\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	res, err := application.Import(context.Background(), "tab", path)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportResult{Added: 2, Skipped: 1}, res)

	res, err = application.Import(context.Background(), "tab", path)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportResult{Added: 0, Skipped: 3}, res)

	counts, err := application.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StatusDownloaded])
	assert.Zero(t, counts[domain.StatusSentToRemoteSummarizer])

	_, err = application.Import(context.Background(), "tab", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.Equal(t, []string{"html", "pipe", "tab"}, application.ImportFormats())
}

func TestRunFailsWhenProfileCannotStart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":-1,"msg":"profile does not exist"}`))
	}))
	defer srv.Close()

	application := newTestApp(t, srv.URL)
	report, err := application.Run(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrSessionUnavailable)
	assert.Zero(t, report.Processed)
	assert.Equal(t, "missing", report.Profile)
}

func TestWatchRequiresInterval(t *testing.T) {
	t.Parallel()

	application := newTestApp(t, "")
	err := application.Watch(context.Background(), "k1", 0)
	assert.ErrorContains(t, err, "interval must be positive")
}
