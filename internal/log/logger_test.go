package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env      string
		level    string
		expected zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "debug", zerolog.InfoLevel},
		{"development", "WARN", zerolog.WarnLevel},
		{"production", "error", zerolog.ErrorLevel},
		{"development", "info", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.env, tt.level))
		})
	}
}

func TestNewWritesEnvField(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "staging", "info")

	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "staging")
}
