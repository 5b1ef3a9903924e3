package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/config"
)

func TestInitLogger_Validation(t *testing.T) {
	_, err := InitLogger(nil)
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "text", Output: "kafka"})
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "text", Output: "file"})
	assert.Error(t, err, "file output requires a path")
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scan.log")
	lm, err := InitLogger(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)
	assert.Same(t, lm, LoggerInstance)
	assert.False(t, IsDebugEnabled())
}

func TestLogScanEvent_Fields(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.True(t, IsDebugEnabled())

	var buf bytes.Buffer
	lm.GetLogger().SetOutput(&buf)

	LogScanEvent(ScanLogEntry{
		ScanID:   "batch-1",
		Target:   "10.0.0.0/30",
		Status:   "completed",
		Progress: 100,
		Result:   "3 open",
		Duration: 1500 * time.Millisecond,
	}, map[string]interface{}{"open": 3})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "scan", record["type"])
	assert.Equal(t, "batch-1", record["scan_id"])
	assert.Equal(t, float64(1500), record["duration"])
	assert.Equal(t, float64(3), record["open"])
	assert.Equal(t, "info", record["level"])
}

func TestHelpers_BeforeInit(t *testing.T) {
	saved := LoggerInstance
	LoggerInstance = nil
	t.Cleanup(func() { LoggerInstance = saved })

	assert.False(t, IsDebugEnabled())
	assert.NotPanics(t, func() {
		Warnf("dropped %d", 1)
		WithFields(map[string]interface{}{"k": "v"}).Error("dropped")
		LogSystemEvent("Test", "Event", "dropped", ErrorLevel, nil)
	})
}
