package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "info", Format: "json", Service: "pillarcast"})
	require.NoError(t, err)

	l.Info("cycle done",
		String("pillar", "technical"),
		Int("samples", 3),
		Float64("score", 61.5),
		Bool("degraded", false),
		Duration("took", 1500*time.Millisecond),
		Strings("failed", []string{"binance", "coingecko"}),
		Error(errors.New("upstream 503")),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	e := lines[0]
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "cycle done", e["message"])
	assert.Equal(t, "pillarcast", e["service"])
	assert.Equal(t, "technical", e["pillar"])
	assert.EqualValues(t, 3, e["samples"])
	assert.EqualValues(t, 61.5, e["score"])
	assert.Equal(t, false, e["degraded"])
	assert.EqualValues(t, 1500, e["took"])
	assert.Equal(t, []any{"binance", "coingecko"}, e["failed"])
	assert.Equal(t, "upstream 503", e["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "WARN", Format: "json"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, &Config{Level: "debug", Format: "json"})
	require.NoError(t, err)

	child := l.With(String("component", "sink"))
	child.Debug("persisted", Int64("ts_ms", 1700000000000))
	l.Debug("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "sink", lines[0]["component"])
	assert.EqualValues(t, 1700000000000, lines[0]["ts_ms"])
	assert.NotContains(t, lines[1], "component")
}

func TestLogger_InvalidConfig(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, &Config{Level: "chatty"})
	assert.Error(t, err)
	_, err = newLogger(&bytes.Buffer{}, &Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestLogger_NilAndNopAreSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("x", String("k", "v"))
		l.With(Int("n", 1)).Warn("y")
		Nop().Error("z", Any("payload", map[string]int{"a": 1}))
	})
}
