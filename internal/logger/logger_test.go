package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf)

	l.Info("learn", "hidden")
	l.Warn("learn", "shown %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [learn] shown 7")
}

func TestLogger_Silent(t *testing.T) {
	var buf bytes.Buffer
	l := New(SILENT, &buf)
	l.Error("server", "nope")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, WARN, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
