package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path, Service: "ytdl-relay"})
	require.NoError(t, err)
	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "ytdl-relay", entry["service"])
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestNewCLI_Levels(t *testing.T) {
	quiet := NewCLI(false)
	assert.False(t, quiet.Core().Enabled(zap.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zap.WarnLevel))

	assert.True(t, NewCLI(true).Core().Enabled(zap.DebugLevel))
}

func TestNew_UnwritablePathFails(t *testing.T) {
	_, err := New(Config{OutputPath: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{})
	assert.Error(t, err)
}

func TestMultiLogger_WritesPerCategory(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.Transfer().Info("session completed", zap.String("id", "abc123"))
	ml.Access().Info("request")
	ml.Error().Info("ignored below error level")
	ml.Error().Error("boom")
	require.NoError(t, ml.Close())

	transfer := readLog(t, ml.CategoryLogPath(CategoryTransfer))
	assert.Contains(t, transfer, `"id":"abc123"`)
	assert.Contains(t, transfer, `"category":"transfer"`)
	assert.NotContains(t, transfer, "request")
	assert.Contains(t, transfer, `"ts":`)
	assert.NotContains(t, transfer, `"caller"`)

	errorLog := readLog(t, ml.CategoryLogPath(CategoryError))
	assert.Contains(t, errorLog, "boom")
	assert.NotContains(t, errorLog, "ignored")
}

func TestLoggerAdapter_FallsBackToBase(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	la := NewSingleLoggerAdapter(zap.New(core))

	la.Transfer().Info("transfer")
	la.Access().Info("access")

	assert.Equal(t, 2, logs.Len())
	assert.NoError(t, la.Close())
}

func TestLoggerAdapter_TeesToCategoryFile(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	la := NewLoggerAdapter(zap.New(core), ml)

	la.Transfer().Info("relay finished")
	la.Transfer().Error("relay failed")
	require.NoError(t, la.Close())

	assert.Equal(t, 1, logs.FilterMessage("relay finished").Len())
	transfer := readLog(t, ml.CategoryLogPath(CategoryTransfer))
	assert.Contains(t, transfer, "relay finished")
	assert.Contains(t, transfer, "relay failed")

	errorLog := readLog(t, ml.CategoryLogPath(CategoryError))
	assert.Contains(t, errorLog, "relay failed")
	assert.NotContains(t, errorLog, "relay finished")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}
