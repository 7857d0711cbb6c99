//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package metric configures OTLP metric export for the evaluation
// engine.
package metric

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	itelemetry "github.com/piqi-framework/piqi-go/internal/telemetry"
)

// OTLP transport protocols.
const (
	// ProtocolGRPC uses gRPC transport for the OTLP exporter.
	ProtocolGRPC = "grpc"
	// ProtocolHTTP uses HTTP transport for the OTLP exporter.
	ProtocolHTTP = "http"
)

// shutdownTimeout bounds the final flush so a stalled collector cannot
// hang process shutdown.
const shutdownTimeout = 5 * time.Second

type options struct {
	endpoint    string
	protocol    string
	serviceName string
}

// Option configures metric export.
type Option func(*options)

// WithEndpoint sets the OTLP collector endpoint as host:port. The
// default comes from the standard OTEL environment variables.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithProtocol selects the OTLP transport, grpc or http. The default is
// grpc.
func WithProtocol(protocol string) Option {
	return func(o *options) {
		o.protocol = protocol
	}
}

// WithServiceName overrides the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// Start configures the global meter provider with an OTLP exporter,
// initializes the engine instruments, and returns a cleanup that
// flushes and shuts the provider down.
func Start(ctx context.Context, opt ...Option) (func() error, error) {
	opts := options{
		protocol:    ProtocolGRPC,
		serviceName: itelemetry.ServiceName,
	}
	for _, o := range opt {
		o(&opts)
	}
	if opts.endpoint == "" {
		opts.endpoint = metricsEndpoint(opts.protocol)
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.serviceName),
			semconv.ServiceVersionKey.String(itelemetry.ServiceVersion),
			semconv.ServiceNamespaceKey.String(itelemetry.ServiceNamespace),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	if err := InitMeterProvider(mp); err != nil {
		return nil, err
	}

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return mp.Shutdown(ctx)
	}, nil
}

// InitMeterProvider installs the meter provider and creates the engine
// instruments on it.
func InitMeterProvider(mp metric.MeterProvider) error {
	itelemetry.MeterProvider = mp
	itelemetry.EvaluationMeter = mp.Meter(itelemetry.MeterNameEvaluation)

	var err error
	if itelemetry.EvaluationMetricRunCnt, err = itelemetry.EvaluationMeter.Int64Counter(
		itelemetry.MetricEvaluationRunCnt,
		metric.WithDescription("Total number of evaluation runs"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", itelemetry.MetricEvaluationRunCnt, err)
	}
	if itelemetry.EvaluationMetricRunDuration, err = itelemetry.EvaluationMeter.Float64Histogram(
		itelemetry.MetricEvaluationRunDuration,
		metric.WithDescription("Duration of evaluation runs"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", itelemetry.MetricEvaluationRunDuration, err)
	}
	if itelemetry.EvaluationMetricSAMCallCnt, err = itelemetry.EvaluationMeter.Int64Counter(
		itelemetry.MetricSAMCallCnt,
		metric.WithDescription("Total number of assessment method calls"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("create metric %s: %w", itelemetry.MetricSAMCallCnt, err)
	}
	return nil
}

// GetMeterProvider returns the installed meter provider.
func GetMeterProvider() metric.MeterProvider {
	return itelemetry.MeterProvider
}

func newExporter(ctx context.Context, opts options) (sdkmetric.Exporter, error) {
	if opts.protocol == ProtocolHTTP {
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(opts.endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	}
	return otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(opts.endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
}

// metricsEndpoint resolves the collector endpoint from the environment,
// the metric-specific variable first, then the generic one, then the
// conventional localhost port for the protocol.
func metricsEndpoint(protocol string) string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); ep != "" {
		return ep
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep
	}
	if protocol == ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}
