package logging

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-batch/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		for _, format := range []string{"console", "json"} {
			log, err := New(config.LoggingConfig{Level: tc.level, Format: format})
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.want), "%s/%s", tc.level, format)
			if tc.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tc.want-1), "%s/%s", tc.level, format)
			}
		}
	}
}
