//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

// Package trace configures OTLP trace export for the evaluation engine.
package trace

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

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

// Tracer is the tracer Start configures. Before Start it is the global
// no-op tracer.
var Tracer = itelemetry.Tracer

// grpcNewClient allows test injection of a custom dialer.
var grpcNewClient = grpc.NewClient

type options struct {
	endpoint    string
	protocol    string
	serviceName string
}

// Option configures trace export.
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

// Start configures the global tracer provider with an OTLP exporter and
// returns a cleanup that flushes and shuts it down.
func Start(ctx context.Context, opt ...Option) (func() error, error) {
	opts := options{
		protocol:    ProtocolGRPC,
		serviceName: itelemetry.ServiceName,
	}
	for _, o := range opt {
		o(&opts)
	}
	if opts.endpoint == "" {
		opts.endpoint = tracesEndpoint(opts.protocol)
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.serviceName),
			semconv.ServiceVersionKey.String(itelemetry.ServiceVersion),
			semconv.ServiceNamespaceKey.String(itelemetry.ServiceNamespace),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	itelemetry.Tracer = tp.Tracer(itelemetry.InstrumentName)
	Tracer = itelemetry.Tracer

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

func newExporter(ctx context.Context, opts options) (*otlptrace.Exporter, error) {
	if opts.protocol == ProtocolHTTP {
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(opts.endpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	conn, err := grpcNewClient(opts.endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial otlp collector %s: %w", opts.endpoint, err)
	}
	return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
}

// tracesEndpoint resolves the collector endpoint from the environment,
// the trace-specific variable first, then the generic one, then the
// conventional localhost port for the protocol.
func tracesEndpoint(protocol string) string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); ep != "" {
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
