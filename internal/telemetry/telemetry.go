// Package telemetry provides OpenTelemetry metrics export for consultd.
//
// Instruments throughout the codebase are created against the global
// meter provider; this package installs a real provider backed by an
// OTLP exporter when telemetry is enabled, and leaves the no-op default
// in place when it is not. Telemetry failures never crash the service.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Options configures the metrics exporter.
type Options struct {
	// Enabled turns export on. When false New returns a no-op instance
	// and the global provider stays untouched.
	Enabled bool

	// Endpoint is the OTLP collector address, host:port.
	Endpoint string

	// Protocol selects the exporter transport: "grpc" (default) or
	// "http/protobuf".
	Protocol string

	// Insecure disables transport security, for local collectors.
	Insecure bool

	ServiceName    string
	ServiceVersion string
}

// Telemetry owns the meter provider lifecycle.
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
}

// New initializes metrics export and installs the global meter provider.
func New(ctx context.Context, opts Options) (*Telemetry, error) {
	if !opts.Enabled {
		return &Telemetry{}, nil
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("telemetry: endpoint is required when enabled")
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "consultd"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	)

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(mp)

	return &Telemetry{meterProvider: mp}, nil
}

func newExporter(ctx context.Context, opts Options) (sdkmetric.Exporter, error) {
	switch opts.Protocol {
	case "http/protobuf":
		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(opts.Endpoint),
		}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, httpOpts...)
	case "", "grpc":
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(opts.Endpoint),
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unknown protocol %q", opts.Protocol)
	}
}

// Shutdown flushes pending metrics and stops the provider. Safe to call
// on a disabled instance.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.meterProvider == nil {
		return nil
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telemetry: meter provider shutdown: %w", err)
	}
	return nil
}

// Enabled reports whether a real provider was installed.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.meterProvider != nil
}
