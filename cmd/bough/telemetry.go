package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// newTelemetry is swapped out in tests.
var newTelemetry = initTelemetry

// startTelemetry installs the providers selected by --trace and --metrics.
// shutdown is only replaced once they are running, so main can always call
// it.
func startTelemetry(ctx context.Context, out io.Writer) error {
	if !flagTrace && !flagMetrics {
		return nil
	}
	stop, err := newTelemetry(ctx, telemetryConfig{
		Traces:  flagTrace,
		Metrics: flagMetrics,
		Output:  out,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	shutdown = stop
	return nil
}

type telemetryConfig struct {
	Traces  bool
	Metrics bool
	Output  io.Writer
}

// initTelemetry installs global tracer and meter providers that print to
// cfg.Output. The returned shutdown flushes and stops both; it must be
// called before exit or buffered spans are lost.
func initTelemetry(ctx context.Context, cfg telemetryConfig) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "bough"),
		attribute.String("service.version", version),
	)

	if cfg.Traces {
		exp, err := stdouttrace.New(
			stdouttrace.WithWriter(cfg.Output),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.Metrics {
		exp, err := stdoutmetric.New(
			stdoutmetric.WithWriter(cfg.Output),
			stdoutmetric.WithPrettyPrint(),
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("metric exporter: %w", err), shutdown(ctx))
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	return shutdown, nil
}
