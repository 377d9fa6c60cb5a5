package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devlense/internal/config"
	contextutils "devlense/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogWithContextAddsTraceInfo(t *testing.T) {
	tp := trace.NewTracerProvider()
	tracer := tp.Tracer("test-tracer")

	core, observedLogs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	logger.Info(ctx, "bug report submitted", map[string]interface{}{"bug_report_id": 7})

	entries := observedLogs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.EqualValues(t, 7, fields["bug_report_id"])
}

func TestLogWithContextNoSpan(t *testing.T) {
	core, observedLogs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Info(context.Background(), "test message", nil)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func TestLoggerErrorMergesFields(t *testing.T) {
	core, observedLogs := observer.New(zap.DebugLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Error(context.Background(), "insert failed", errors.New("duplicate key"),
		map[string]interface{}{"table": "qna"}, map[string]interface{}{"user_id": 3})

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "duplicate key", fields["error"])
	assert.Equal(t, "qna", fields["table"])
	assert.EqualValues(t, 3, fields["user_id"])
}

func TestLoggerAddsUserFromContextWithoutMutatingFields(t *testing.T) {
	core, observedLogs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	fields := map[string]interface{}{"kind": "qna"}
	ctx := contextutils.WithUserID(context.Background(), 42)
	logger.Error(ctx, "insert failed", errors.New("boom"), fields)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 42, entries[0].ContextMap()["user_id"])
	assert.Equal(t, map[string]interface{}{"kind": "qna"}, fields)
}

func TestLoggerSkipsDisabledLevels(t *testing.T) {
	core, observedLogs := observer.New(zap.WarnLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Debug(context.Background(), "noise", nil)
	logger.Info(context.Background(), "noise", nil)
	logger.Warn(context.Background(), "kept", nil)

	require.Len(t, observedLogs.All(), 1)
	assert.Equal(t, "kept", observedLogs.All()[0].Message)
}

func TestNewLogger_DisabledIsNoop(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}).
		WithFileSink(&config.LoggingConfig{File: path, MaxSizeMB: 1}, zap.InfoLevel)

	logger.Info(context.Background(), "session signed in", map[string]interface{}{"user_id": 9})
	logger.Debug(context.Background(), "dropped below level")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"session signed in"`)
	assert.Contains(t, lines[0], `"user_id":9`)
}

func TestWithFileSink_EmptyPathReturnsSameLogger(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	assert.Same(t, logger, logger.WithFileSink(&config.LoggingConfig{}, zap.InfoLevel))
	assert.Same(t, logger, logger.WithFileSink(nil, zap.InfoLevel))
}
