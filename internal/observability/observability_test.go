package observability

import (
	"context"
	"os"
	"testing"
	"time"

	"devlense/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// keepServiceEnv restores the variables SetupObservability exports
func keepServiceEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_SERVICE_VERSION", "")
}

func exporterConfig(protocol string) *config.OpenTelemetryConfig {
	return &config.OpenTelemetryConfig{
		ServiceName:    "devlense",
		ServiceVersion: "test",
		Protocol:       protocol,
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SamplingRate:   1.0,
	}
}

func TestSetupObservability_Disabled(t *testing.T) {
	keepServiceEnv(t)
	cfg := exporterConfig("grpc")

	tp, mp, logger, err := SetupObservability(cfg, "devlense-test")
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.Nil(t, mp)
	require.NotNil(t, logger)
	assert.Equal(t, "devlense-test", cfg.ServiceName)
	assert.Equal(t, "devlense-test", os.Getenv("OTEL_SERVICE_NAME"))
}

func TestSetupObservability_ReturnsExporterErrors(t *testing.T) {
	cases := []struct {
		name    string
		tracing bool
		metrics bool
		want    string
	}{
		{name: "tracing", tracing: true, want: "failed to initialize tracing"},
		{name: "metrics", metrics: true, want: "failed to initialize metrics"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepServiceEnv(t)
			cfg := exporterConfig("carrier-pigeon")
			cfg.EnableTracing = tc.tracing
			cfg.EnableMetrics = tc.metrics

			tp, mp, logger, err := SetupObservability(cfg, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Contains(t, err.Error(), "unsupported otel protocol: carrier-pigeon")
			assert.Nil(t, tp)
			assert.Nil(t, mp)
			assert.NotNil(t, logger)
		})
	}
}

func TestSetupObservability_AutoSDKSkipsExporters(t *testing.T) {
	keepServiceEnv(t)
	// The protocol is never consulted on the auto SDK path.
	cfg := exporterConfig("carrier-pigeon")
	cfg.EnableTracing = true
	cfg.UseAutoSDK = true

	tp, _, _, err := SetupObservability(cfg, "")
	require.NoError(t, err)
	require.NotNil(t, tp)
	_, standard := tp.(*sdktrace.TracerProvider)
	assert.False(t, standard)
}

func TestInitStandardTracing_Protocols(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			tp, err := InitStandardTracing(exporterConfig(protocol))
			require.NoError(t, err)

			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = sdkTP.Shutdown(ctx)
		})
	}
}

// collect reads everything recorded on reader, keyed by instrument name
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumPoint(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestInstruments_RecordOnProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	i := NewInstruments(provider.Meter("devlense"))
	ctx := context.Background()
	i.RecordSubmission(ctx, "bug_report", "ok")
	i.RecordSubmission(ctx, "bug_report", "ok")
	i.RecordSubmission(ctx, "qna", "INSERT_FAILED")
	i.RecordAttachment(ctx, 2048, "image/png")
	i.RecordAttachment(ctx, 1024, "image/png")
	i.RecordAuthEvent(ctx, "SIGNED_OUT")

	data := collect(t, reader)

	submissions := data["devlense.submissions"]
	assert.Equal(t, int64(2), sumPoint(t, submissions,
		attribute.String("submission.kind", "bug_report"),
		attribute.String("submission.outcome", "ok")))
	assert.Equal(t, int64(1), sumPoint(t, submissions,
		attribute.String("submission.kind", "qna"),
		attribute.String("submission.outcome", "INSERT_FAILED")))

	assert.Equal(t, int64(1), sumPoint(t, data["devlense.auth.events"], attribute.String("auth.event", "SIGNED_OUT")))

	hist, ok := data["devlense.attachment.bytes"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, int64(3072), hist.DataPoints[0].Sum)
	contentType, _ := hist.DataPoints[0].Attributes.Value("attachment.content_type")
	assert.Equal(t, "image/png", contentType.AsString())
}

func TestInstruments_NoProviderIsSafe(t *testing.T) {
	i := GetInstruments()
	require.NotNil(t, i)
	ctx := context.Background()
	i.RecordSubmission(ctx, "bug_report", "ok")
	i.RecordAttachment(ctx, 1024, "image/png")
	i.RecordAuthEvent(ctx, "SIGNED_IN")

	var nilInstruments *Instruments
	nilInstruments.RecordSubmission(ctx, "qna", "INSERT_FAILED")
	nilInstruments.RecordAttachment(ctx, 1, "image/gif")
	nilInstruments.RecordAuthEvent(ctx, "SIGNED_OUT")
}
