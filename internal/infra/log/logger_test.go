package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral/config"
)

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLogLevel(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseLogLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_RedactsTokens(t *testing.T) {
	cfg := &config.Config{}
	cfg.Env.ServiceName = "referral-mobile-auth"
	cfg.Env.Log.Level = "info"

	var buf bytes.Buffer
	logger, err := newLogger(&buf, cfg)
	require.NoError(t, err)

	logger.Info("refresh", slog.String("refresh_token", "abc.def"), slog.String("principal_id", "A1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, redacted, line["refresh_token"])
	assert.Equal(t, "A1", line["principal_id"])
	assert.Equal(t, "referral-mobile-auth", line["service"])
}
