package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", "json", zapcore.WarnLevel, zapcore.InfoLevel},
		{"bogus", "json", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		log := New(tt.level, tt.format)
		assert.True(t, log.Core().Enabled(tt.enabled), "%s should enable %s", tt.level, tt.enabled)
		assert.False(t, log.Core().Enabled(tt.disabled), "%s should not enable %s", tt.level, tt.disabled)
	}
}
