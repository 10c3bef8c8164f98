package sinks

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/probeworks/vitals"
)

// maxPayloadAttr caps the payload attribute recorded on spans so one huge
// snapshot cannot blow up span size limits downstream.
const maxPayloadAttr = 4096

// OTelConfig configures the OpenTelemetry sink.
type OTelConfig struct {
	// ServiceName labels the traces; defaults to "vitals".
	ServiceName string

	// Endpoint is the OTLP gRPC collector address (host:port). Empty selects
	// the stdout trace exporter, which is handy for development.
	Endpoint string

	// Insecure disables transport security for the gRPC exporter.
	Insecure bool

	// Writer is the stdout exporter's destination; defaults to os.Stdout.
	// Ignored when Endpoint is set.
	Writer io.Writer
}

// OTelSink emits one span per event plus an emitted-events counter. The sink
// owns its tracer provider; the meter comes from the global provider so the
// host's metrics pipeline picks the counter up if one is installed.
type OTelSink struct {
	tracer   trace.Tracer
	counter  metric.Int64Counter
	provider *sdktrace.TracerProvider
}

// NewOTel builds the exporter, tracer provider and instruments.
func NewOTel(ctx context.Context, cfg OTelConfig) (*OTelSink, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vitals"
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(vitals.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if cfg.Endpoint == "" {
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	} else {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	counter, err := otel.Meter("vitals-sinks").Int64Counter(
		"vitals.events.emitted",
		metric.WithDescription("Events emitted through the OTel sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return &OTelSink{
		tracer:   tp.Tracer("vitals-sinks"),
		counter:  counter,
		provider: tp,
	}, nil
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (s *OTelSink) AddCustomStatEvent(name string, payloadJSON string) {
	attrPayload := payloadJSON
	if len(attrPayload) > maxPayloadAttr {
		attrPayload = attrPayload[:maxPayloadAttr]
	}

	ctx := context.Background()
	_, span := s.tracer.Start(ctx, "vitals.emit", trace.WithAttributes(
		attribute.String("event.name", name),
		attribute.Int("payload.bytes", len(payloadJSON)),
		attribute.String("payload.json", attrPayload),
	))
	span.End()

	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("event.name", name)))
}

// ForceFlush drains buffered spans to the exporter.
func (s *OTelSink) ForceFlush(ctx context.Context) error {
	return s.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the sink's tracer provider.
func (s *OTelSink) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
