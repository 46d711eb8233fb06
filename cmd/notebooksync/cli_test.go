package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig points the store at a temporary database.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := "database:\n  path: " + filepath.Join(dir, "sources.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newCLIApp(&out)
	a.ErrWriter = io.Discard
	err := a.Run(append([]string{"notebooksync"}, args...))
	return out.String(), err
}

func TestImportThenStatus(t *testing.T) {
	cfg := writeTestConfig(t)
	file := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(file, []byte(
		"Talk | Speaker|https://www.youtube.com/watch?v=f6kdp27TYZs\nPost|https://example.com/post\n"), 0o600))

	out, err := runCLI(t, "--config", cfg, "import", "--format", "pipe", "--file", file)
	require.NoError(t, err)
	assert.Equal(t, "added=2 skipped=0\n", out)

	out, err = runCLI(t, "--config", cfg, "status")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"DOWNLOADED", "2"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"TOTAL", "2"}, strings.Fields(lines[4]))
}

func TestImportUnknownFormat(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := runCLI(t, "--config", cfg, "import", "--format", "csv", "--file", "x.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: html, pipe, tab")
}

func TestRunRequiresProfile(t *testing.T) {
	_, err := runCLI(t, "--config", writeTestConfig(t), "run")
	assert.Error(t, err)
}
