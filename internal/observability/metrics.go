package observability

import (
	"context"
	"sync"

	"devlense/internal/config"
	contextutils "devlense/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics and installs the provider globally.
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Instruments holds the application's counters and histograms. Instruments created
// before a MeterProvider is installed are no-ops.
type Instruments struct {
	submissions     otelmetric.Int64Counter
	attachmentBytes otelmetric.Int64Histogram
	authEvents      otelmetric.Int64Counter
}

var (
	instruments     *Instruments
	instrumentsOnce sync.Once
)

// NewInstruments creates the application's instruments on meter
func NewInstruments(meter otelmetric.Meter) *Instruments {
	i := &Instruments{}
	i.submissions, _ = meter.Int64Counter("devlense.submissions",
		otelmetric.WithDescription("Form submissions by kind and outcome"))
	i.attachmentBytes, _ = meter.Int64Histogram("devlense.attachment.bytes",
		otelmetric.WithDescription("Size of uploaded attachments"),
		otelmetric.WithUnit("By"))
	i.authEvents, _ = meter.Int64Counter("devlense.auth.events",
		otelmetric.WithDescription("Auth state changes published to the session hub"))
	return i
}

// GetInstruments returns the process-wide instruments, creating them from the global
// meter provider on first use.
func GetInstruments() *Instruments {
	instrumentsOnce.Do(func() {
		instruments = NewInstruments(otel.Meter("devlense"))
	})
	return instruments
}

// RecordSubmission counts one submission attempt. outcome is "ok" or an error code.
func (i *Instruments) RecordSubmission(ctx context.Context, kind, outcome string) {
	if i == nil || i.submissions == nil {
		return
	}
	i.submissions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("submission.kind", kind),
		attribute.String("submission.outcome", outcome),
	))
}

// RecordAttachment records the size of an uploaded attachment.
func (i *Instruments) RecordAttachment(ctx context.Context, size int64, contentType string) {
	if i == nil || i.attachmentBytes == nil {
		return
	}
	i.attachmentBytes.Record(ctx, size, otelmetric.WithAttributes(attribute.String("attachment.content_type", contentType)))
}

// RecordAuthEvent counts one auth state change.
func (i *Instruments) RecordAuthEvent(ctx context.Context, eventType string) {
	if i == nil || i.authEvents == nil {
		return
	}
	i.authEvents.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("auth.event", eventType)))
}
