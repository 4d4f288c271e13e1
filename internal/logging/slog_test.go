package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line), sc.Text())
		out = append(out, line)
	}
	return out
}

func TestNewSlog_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"", []string{"INFO", "WARN", "ERROR"}},
		{"Warning", []string{"WARN", "ERROR"}},
		{"ERROR", []string{"ERROR"}},
		{"info+4", []string{"WARN", "ERROR"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewSlog("json", tt.level, &buf)
			require.NoError(t, err)

			ctx := context.Background()
			l.Debug(ctx, "m")
			l.Info(ctx, "m")
			l.Warn(ctx, "m")
			l.Error(ctx, "m")

			var got []string
			for _, line := range jsonLines(t, &buf) {
				got = append(got, line["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSlog_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlog("JSON", "info", &buf)
	require.NoError(t, err)

	l.With("session_id", "s-42").Warn(context.Background(), "pin rejected",
		"user_id", "u-7", "attempts", 3, "err", errors.New("wrong pin"))

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "pin rejected", line["msg"])
	assert.Equal(t, "s-42", line["session_id"])
	assert.Equal(t, "u-7", line["user_id"])
	assert.EqualValues(t, 3, line["attempts"])
	assert.Equal(t, "wrong pin", line["err"])
}

func TestNewSlog_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlog("", "debug", &buf)
	require.NoError(t, err)

	l.Debug(context.TODO(), "janitor", "removed", 2)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=janitor")
	assert.Contains(t, out, "removed=2")
}

func TestNewSlog_Errors(t *testing.T) {
	_, err := NewSlog("xml", "info", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewSlog("text", "loud", &bytes.Buffer{})
	assert.ErrorContains(t, err, `"loud"`)
}

func TestParseSlogLevel(t *testing.T) {
	lvl, err := parseSlogLevel(" debug ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = parseSlogLevel("error-4")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped")
	l.With("k", "v").Info(context.Background(), "dropped")
}
