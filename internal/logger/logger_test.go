package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/chari/internal/logger"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithProduction("chari"), logger.WithOutput(&buf))
	log.Debug("hidden")
	log.Info("keygen", logger.Component("cli"), logger.Length("key_len", 43), logger.Error(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "keygen", rec["msg"])
	assert.Equal(t, "chari", rec["service"])
	assert.Equal(t, "cli", rec["component"])
	assert.EqualValues(t, 43, rec["key_len"])
	assert.NotContains(t, rec, "error")
}

func TestNewText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithDevelopment("chari"), logger.WithOutput(&buf))
	log.Debug("visible", logger.Error(errors.New("boom")), logger.Path(""))
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "path=")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}
