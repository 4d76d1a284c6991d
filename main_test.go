package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcap-navigator/config"
	"mcap-navigator/session"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Config{LogLevel: "warn"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("root", "/data").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "/data", entry["root"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Config{LogLevel: "loud"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerPretty(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Config{LogLevel: "info", Pretty: true}, &buf)

	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestOpenStore(t *testing.T) {
	mem, err := openStore(config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, mem)
	require.NoError(t, mem.Close())

	bolt, err := openStore(config.Config{StateDB: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	assert.IsType(t, &session.BoltStore{}, bolt)
	require.NoError(t, bolt.Close())
}
