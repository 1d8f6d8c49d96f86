// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx(t *testing.T) {
	ctx := AppendCtx(context.TODO(), slog.String("meeting_uid", "m-1"))

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	require.Len(t, attrs, 1)
	assert.Equal(t, "meeting_uid", attrs[0].Key)
	assert.Equal(t, "m-1", attrs[0].Value.String())
}

func TestAppendCtx_SiblingsDoNotShareAttributes(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("a", "1"))
	left := AppendCtx(parent, slog.String("b", "2"))
	right := AppendCtx(parent, slog.String("c", "3"))

	leftAttrs := left.Value(slogFields).([]slog.Attr)
	rightAttrs := right.Value(slogFields).([]slog.Attr)
	require.Len(t, leftAttrs, 2)
	require.Len(t, rightAttrs, 2)
	assert.Equal(t, "b", leftAttrs[1].Key)
	assert.Equal(t, "c", rightAttrs[1].Key)
	assert.Len(t, parent.Value(slogFields).([]slog.Attr), 1)
}

func TestNewHandler_WritesContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: "info"}))

	ctx := AppendCtx(context.Background(), slog.String("participation_uid", "p-9"))
	logger.DebugContext(ctx, "hidden")
	logger.ErrorContext(ctx, "capacity check failed", PriorityCritical())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug records are filtered at info level")

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "capacity check failed", record["msg"])
	assert.Equal(t, "p-9", record["participation_uid"])
	assert.Equal(t, "critical", record["priority"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelDebug,
		"verbose": slog.LevelDebug,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
