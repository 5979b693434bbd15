package oteladapters

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler is a slog.Handler that records every record it receives.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)

	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func recordAttrs(record slog.Record) map[string]any {
	attrs := make(map[string]any)
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})

	return attrs
}

func Test_SlogLogger_ForwardsLevelsAndAttributes(t *testing.T) {
	handler := &captureHandler{}
	logger := NewSlogLogger(handler)

	logger.Debug("debug msg", "operation", "insert_user")
	logger.Info("info msg", "workers", 20)
	logger.Warn("warn msg")
	logger.Error("error msg", "error", "boom")

	require.Len(t, handler.records, 4)

	assert.Equal(t, slog.LevelDebug, handler.records[0].Level)
	assert.Equal(t, "debug msg", handler.records[0].Message)
	assert.Equal(t, "insert_user", recordAttrs(handler.records[0])["operation"])

	assert.Equal(t, slog.LevelInfo, handler.records[1].Level)
	assert.EqualValues(t, 20, recordAttrs(handler.records[1])["workers"])

	assert.Equal(t, slog.LevelWarn, handler.records[2].Level)

	assert.Equal(t, slog.LevelError, handler.records[3].Level)
	assert.Equal(t, "boom", recordAttrs(handler.records[3])["error"])
}

func Test_SlogBridgeLogger_ForwardsContextualMessages(t *testing.T) {
	handler := &captureHandler{}
	logger := NewSlogBridgeLoggerWithHandler(handler)

	ctx := context.Background()
	logger.DebugContext(ctx, "debug msg")
	logger.InfoContext(ctx, "info msg", "product_id", 7)
	logger.WarnContext(ctx, "warn msg")
	logger.ErrorContext(ctx, "error msg")

	require.Len(t, handler.records, 4)
	assert.Equal(t, "info msg", handler.records[1].Message)
	assert.EqualValues(t, 7, recordAttrs(handler.records[1])["product_id"])
}

func Test_NewSlogBridgeLogger_UsesTheGlobalProvider(t *testing.T) {
	logger := NewSlogBridgeLogger("test")

	require.NotNil(t, logger)
	// the global provider defaults to a no-op; logging must not panic
	logger.InfoContext(context.Background(), "noop")
}
