package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNewBuildsUsableLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := New(&Config{
			Level:      "debug",
			Format:     format,
			Output:     "stdout",
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		require.NoError(t, err, format)
		require.NotNil(t, log, format)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel), format)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	log, err := New(&Config{
		Level:      "error",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storesync.log")

	log, err := New(&Config{
		Level:      "info",
		Format:     "json",
		Output:     path,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NoError(t, err)

	log.Info("delivery recorded", zap.String("event", "product/updated"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "delivery recorded")
	assert.Contains(t, string(data), "product/updated")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestSync(t *testing.T) {
	log, err := New(&Config{
		Level:      "info",
		Format:     "json",
		Output:     filepath.Join(t.TempDir(), "sync.log"),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NoError(t, err)

	log.Info("flush me")
	assert.NoError(t, Sync(log))
}
