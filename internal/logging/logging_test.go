package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWriterCopiesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.log")
	var console bytes.Buffer

	logger := zerolog.New(logWriter(Config{File: path, MaxSizeMB: 1}, &console))
	logger.Info().Str("component", "test").Msg("hello")

	assert.Contains(t, console.String(), `"message":"hello"`)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := NewLogger(Config{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLogger(Config{Level: "DEBUG", Format: "console"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
