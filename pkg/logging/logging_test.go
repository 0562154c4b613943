package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperchat.log")

	logger, err := New(LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Info("inserted embedding")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inserted embedding")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "info", level.String())

	level, err = parseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, "warn", level.String())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
