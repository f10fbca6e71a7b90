package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json outside dev", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, "debug", "PROD")
		logger.Debug().Str("component", "session").Msg("hello")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "debug", line["level"])
		require.Equal(t, "session", line["component"])
		require.Equal(t, "hello", line["message"])
	})

	t.Run("console in dev", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, "info", "DEV")
		logger.Info().Msg("hello")

		require.Contains(t, buf.String(), "hello")
		require.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, "loud", "PROD")
		require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

		logger.Debug().Msg("dropped")
		require.Zero(t, buf.Len())
	})
}
