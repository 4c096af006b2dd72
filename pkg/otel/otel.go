// Package otel optionally routes log/slog output to an OTLP log exporter.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
)

// Enabled reports whether an OTLP endpoint is configured
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") != ""
}

// SetupLogger installs an OTLP-backed slog default logger for the named
// service. Records are batched; callers flush the returned provider before a
// Lambda invocation returns and shut it down on exit.
func SetupLogger(ctx context.Context, service string) (*sdklog.LoggerProvider, error) {
	resource := sdkresource.NewSchemaless(
		attribute.String("service.name", service),
	)

	var err error
	var exporter sdklog.Exporter

	if useGRPC() {
		exporter, err = otlploggrpc.New(ctx)
	} else {
		exporter, err = otlploghttp.New(ctx)
	}

	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(resource),
	)

	global.SetLoggerProvider(provider)

	logger := otelslog.NewLogger(service, otelslog.WithLoggerProvider(provider))
	slog.SetDefault(logger)

	return provider, nil
}

// SetupDefault configures the process-wide slog logger: JSON on stdout, or
// the OTLP bridge when an endpoint is configured. The returned function
// flushes pending records and is a no-op without OTLP.
func SetupDefault(ctx context.Context, service string) func(context.Context) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if !Enabled() {
		return func(context.Context) {}
	}

	provider, err := SetupLogger(ctx, service)
	if err != nil {
		slog.Error("failed to set up otlp logging", "error", err)
		return func(context.Context) {}
	}

	return func(ctx context.Context) {
		if err := provider.ForceFlush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
		}
	}
}

func useGRPC() bool {
	return strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")) == "grpc" ||
		strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL")) == "grpc"
}
