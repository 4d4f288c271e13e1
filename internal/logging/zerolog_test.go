package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	log.Warn(context.Background(), "pin rejected", "user_id", "u1", "err", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "pin rejected", line["message"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "boom", line["err"])
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("component", "controller")

	log.Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	assert.Contains(t, out, `"component":"controller"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestZerologLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())
}

func TestPairs_DanglingValue(t *testing.T) {
	m := pairs([]any{"a", 1, "orphan"})
	assert.Equal(t, 1, m["a"])
	assert.Equal(t, "orphan", m["!BADKEY"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	l, err := New("json", "debug", &buf)
	require.NoError(t, err)
	l.Debug(context.Background(), "dbg")
	assert.True(t, strings.Contains(buf.String(), `"msg":"dbg"`))

	buf.Reset()
	l, err = New("zerolog", "info", &buf)
	require.NoError(t, err)
	l.Info(context.Background(), "zl")
	assert.Contains(t, buf.String(), `"message":"zl"`)

	_, err = New("xml", "info", &buf)
	assert.Error(t, err)

	_, err = New("text", "loud", &buf)
	assert.Error(t, err)
}
