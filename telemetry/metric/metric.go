//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package metric holds the OpenTelemetry meter used by the RAG pipeline.
// Until Start is called the meter is a no-op.
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
	noopm "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const (
	// InstrumentName scopes every instrument created by this module.
	InstrumentName = "github.com/zakiabashir/physical-ai-robotics-textbook"

	defaultServiceName      = "textbook-rag"
	defaultServiceVersion   = "v0.1.0"
	defaultServiceNamespace = "physical-ai-textbook"
	defaultShutdownTimeout  = 5 * time.Second

	// ProtocolGRPC and ProtocolHTTP select the OTLP transport.
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

var (
	// Meter is the global OpenTelemetry meter for the RAG pipeline.
	Meter metric.Meter = noopm.Meter{}
)

// Start exports metrics over OTLP (gRPC unless WithProtocol says otherwise)
// and replaces Meter.
// The environment variables described below can be used for Endpoint configuration.
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default: "localhost:4317")
// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	options := &options{
		metricsEndpoint:  metricsEndpoint(),
		serviceName:      defaultServiceName,
		serviceVersion:   defaultServiceVersion,
		serviceNamespace: defaultServiceNamespace,
		shutdownTimeout:  defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(options.serviceNamespace),
			semconv.ServiceName(options.serviceName),
			semconv.ServiceVersion(options.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	Meter = provider.Meter(InstrumentName)

	return func() error {
		// Start's ctx may already be cancelled by the time the caller exits.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), options.shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown MeterProvider: %w", err)
		}
		return nil
	}, nil
}

func newExporter(ctx context.Context, o *options) (sdkmetric.Exporter, error) {
	if o.protocol == ProtocolHTTP {
		httpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(o.metricsEndpoint)}
		if o.insecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, httpOpts...)
	}
	grpcOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(o.metricsEndpoint)}
	if o.insecure {
		grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, grpcOpts...)
}

func metricsEndpoint() string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "localhost:4317"
}

// Option is a function that configures meter options.
type Option func(*options)

type options struct {
	metricsEndpoint  string
	serviceName      string
	serviceVersion   string
	serviceNamespace string
	insecure         bool
	protocol         string
	shutdownTimeout  time.Duration
}

// WithEndpoint sets the metrics endpoint (host and port) the exporter
// connects to, e.g. "collector:4317". It takes precedence over the
// OTEL_EXPORTER_OTLP_* environment variables.
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		if endpoint != "" {
			opts.metricsEndpoint = endpoint
		}
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(opts *options) {
		opts.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(opts *options) {
		opts.serviceVersion = version
	}
}

// WithInsecure disables TLS towards the collector.
func WithInsecure() Option {
	return func(opts *options) {
		opts.insecure = true
	}
}

// WithProtocol selects ProtocolGRPC (default) or ProtocolHTTP.
func WithProtocol(protocol string) Option {
	return func(opts *options) {
		opts.protocol = protocol
	}
}

// WithShutdownTimeout bounds the final flush done by the clean function.
func WithShutdownTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.shutdownTimeout = d
		}
	}
}
