package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFileOnlyWritesNoStderrHandlerButOpensLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONVOCATIONS_WORKING_DIR", dir)

	logPath, closer, err := Init(FileOnly)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	assert.Equal(t, filepath.Join(dir, "logs", "convocations.log"), logPath)

	slog.Info("hello", "k", "v")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestInitStderrOnlyOpensNoLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONVOCATIONS_WORKING_DIR", dir)

	logPath, closer, err := Init(StderrOnly)
	require.NoError(t, err)
	assert.Empty(t, logPath)
	assert.Nil(t, closer)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInitRespectsLogLevelEnvVar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONVOCATIONS_WORKING_DIR", dir)
	t.Setenv("CONVOCATIONS_LOG_LEVEL", "warn")

	logPath, closer, err := Init(FileOnly)
	require.NoError(t, err)
	defer closer.Close()

	slog.Info("should be dropped")
	slog.Warn("should appear")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should appear")
}
