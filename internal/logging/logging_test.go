package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyPathIsNop(t *testing.T) {
	logger, err := New("  ", true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1), "nop logger should not enable any level")
}

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pimenu.json")
	logger, err := New(path, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("process started")
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "process started", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "pid")
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pimenu.json")
	logger, err := New(path, true)
	require.NoError(t, err)

	logger.Debug("debug line")
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "debug line")
}
