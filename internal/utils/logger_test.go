package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   tmpDir,
		LogFile:  "test.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "close is idempotent")
}

func TestLogger_WritesJSONFile(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "info.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.InfoTag("BATCH", "rendered %d of %d", 2, 5)
	logger.Warn("structured", map[string]interface{}{"spec": "icon-192"})

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[BATCH] rendered 2 of 5")
	assert.Contains(t, string(content), `"spec":"icon-192"`)
}

func TestLogger_DebugSuppressedAboveDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestConsoleLogger_NoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("debug", &buf)

	logger.ErrorTag("ICO", "member %d failed", 48)

	out := buf.String()
	assert.Contains(t, out, "[ERROR] [ICO] member 48 failed")
	assert.False(t, strings.Contains(out, "\x1b["), "console logger for tests must not emit color codes")
}

func TestFormatLog(t *testing.T) {
	tests := []struct {
		tag, msg, want string
	}{
		{"BOOT", "ready", "[BOOT] ready"},
		{"", "plain", "plain"},
		{"HTTP", "[WS] already tagged", "[WS] already tagged"},
		{" JOB ", " spaced ", "[JOB] spaced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLog(tt.tag, tt.msg))
	}
}

func TestNilLoggerTagCallsAreSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.InfoTag("BOOT", "noop")
		logger.ErrorTag("BOOT", "noop")
	})
}
