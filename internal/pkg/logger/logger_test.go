package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// resetLogger resets the global logger state for testing
func resetLogger() {
	logger = zap.NewNop().Sugar()
	initOnce = sync.Once{}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestInit(t *testing.T) {
	t.Run("logs are discarded before initialization", func(t *testing.T) {
		resetLogger()

		assert.NotPanics(t, func() {
			Info(t.Context(), "nobody listens")
		})
	})

	t.Run("successful initialization with valid level", func(t *testing.T) {
		resetLogger()
		var buf bytes.Buffer

		err := Init(WithLevel("info"), WithOutput(&buf))
		require.NoError(t, err)

		Info(t.Context(), "hello", "answer", 42)
		Debug(t.Context(), "filtered out")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "hello", entries[0]["msg"])
		assert.Equal(t, "info", entries[0]["level"])
		assert.EqualValues(t, 42, entries[0]["answer"])
	})

	t.Run("error with invalid level", func(t *testing.T) {
		resetLogger()

		err := Init(WithLevel("invalid"))
		assert.Error(t, err)
	})

	t.Run("init only once", func(t *testing.T) {
		resetLogger()
		var first, second bytes.Buffer

		require.NoError(t, Init(WithLevel("debug"), WithOutput(&first)))
		require.NoError(t, Init(WithLevel("error"), WithOutput(&second)))

		Debug(t.Context(), "still debug")

		assert.Contains(t, first.String(), "still debug")
		assert.Empty(t, second.String())
	})
}

func TestTraceCorrelation(t *testing.T) {
	t.Run("should attach trace and span ids from the context", func(t *testing.T) {
		resetLogger()
		var buf bytes.Buffer
		require.NoError(t, Init(WithLevel("debug"), WithOutput(&buf)))

		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)

		ctx := trace.ContextWithSpanContext(t.Context(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))

		Warn(ctx, "with span", "k", "v")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0]["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", entries[0]["span_id"])
		assert.Equal(t, "v", entries[0]["k"])
	})

	t.Run("should not add ids without a span", func(t *testing.T) {
		resetLogger()
		var buf bytes.Buffer
		require.NoError(t, Init(WithLevel("debug"), WithOutput(&buf)))

		Error(context.Background(), "no span")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0], "trace_id")
		assert.NotContains(t, entries[0], "span_id")
	})
}
