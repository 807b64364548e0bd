package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew_WritesJSONWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New("info", "json", path)

	log.Debug().Msg("hidden")
	log.Component("meals").Info().Str("meal", "Ramen").Msg("Meal created")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "meals", entry["component"])
	assert.Equal(t, "Ramen", entry["meal"])
	assert.Equal(t, "bitelog-api", entry["service"])
	assert.Equal(t, "Meal created", entry["message"])
}

func TestIsDebug(t *testing.T) {
	assert.True(t, New("debug", "json", "stdout").IsDebug())
	assert.False(t, New("warn", "text", "stdout").IsDebug())
	assert.False(t, Nop().IsDebug())
}
