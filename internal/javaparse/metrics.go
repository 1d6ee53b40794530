package javaparse

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("bough.javaparse")
	meter  = otel.Meter("bough.javaparse")
)

var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	nodesLowered metric.Int64Histogram
	parseErrors  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics registers the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"javaparse_parse_duration_seconds",
			metric.WithDescription("Duration of Java parse and lowering"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"javaparse_parse_total",
			metric.WithDescription("Total number of parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesLowered, err = meter.Int64Histogram(
			"javaparse_nodes",
			metric.WithDescription("Number of syntax nodes per parsed file"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"javaparse_parse_errors_total",
			metric.WithDescription("Total number of failed parses"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordParseMetrics(ctx context.Context, duration time.Duration, nodes int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if success {
		nodesLowered.Record(ctx, int64(nodes))
	} else {
		parseErrors.Add(ctx, 1)
	}
}

// startParseSpan starts a span for one parse; the caller ends it.
func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "javaparse.Parse",
		trace.WithAttributes(
			attribute.String("javaparse.file", filePath),
			attribute.Int("javaparse.content_size", contentSize),
		),
	)
}

func setParseSpanResult(span trace.Span, nodes, errorNodes int) {
	span.SetAttributes(
		attribute.Int("javaparse.node_count", nodes),
		attribute.Int("javaparse.error_count", errorNodes),
	)
}
