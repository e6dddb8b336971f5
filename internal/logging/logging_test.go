package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbrela/go-stm32dfu/bootloader"
)

var _ bootloader.Logger = (*Adapter)(nil)

func TestAdapterFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := Adapt(zerolog.New(&buf))

	a.Warn("version mismatch", "file_version", "0x0200", "blocks", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "version mismatch", entry["message"])
	assert.Equal(t, "0x0200", entry["file_version"])
	assert.Equal(t, float64(3), entry["blocks"])
}

func TestAdapterLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := Adapt(zerolog.New(&buf).Level(zerolog.InfoLevel))

	a.Debug("hidden")
	a.Info("shown")
	a.Error("failed", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "boom")
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "debug", true)
	require.NoError(t, err)
	log.Debug().Str("device", "0483:DF11").Msg("opened")

	line := buf.String()
	assert.Contains(t, line, "DBG")
	assert.Contains(t, line, "opened")
	assert.Contains(t, line, "device=0483:DF11")
	assert.False(t, strings.Contains(line, "\x1b["), "no color codes")

	_, err = NewWithWriter(&buf, "verbose", true)
	assert.Error(t, err)
}

func TestNewDefaultLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
