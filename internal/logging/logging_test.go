package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerWithWriter_Formats(t *testing.T) {
	var text, js bytes.Buffer
	NewLoggerWithWriter(slog.LevelInfo, "text", &text).Info("refill", "task_id", 7)
	NewLoggerWithWriter(slog.LevelInfo, "JSON", &js).Info("refill", "task_id", 7)

	assert.Contains(t, text.String(), "msg=refill")
	assert.Contains(t, text.String(), "task_id=7")
	assert.Contains(t, js.String(), `"msg":"refill"`)
	assert.Contains(t, js.String(), `"task_id":7`)
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Debug("timeslice refilled")
	logger.Warn("sink failed")

	assert.NotContains(t, buf.String(), "timeslice refilled")
	assert.Contains(t, buf.String(), "sink failed")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}
