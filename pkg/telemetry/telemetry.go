// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/NVIDIA/alertsd/pkg/errors"
)

// Trace exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	DefaultOTLPEndpoint = "localhost:4317"
)

// Exporters lists the supported exporter names.
func Exporters() []string {
	return []string{ExporterNone, ExporterStdout, ExporterOTLP}
}

// Config selects and configures the trace exporter.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Exporter is one of Exporters(). Empty means none.
	Exporter string

	// OTLPEndpoint is the collector host:port or URL. Defaults to
	// DefaultOTLPEndpoint.
	OTLPEndpoint string
	OTLPInsecure bool

	// SampleRatio is the fraction of root traces kept. Zero or anything
	// outside (0, 1) samples every trace.
	SampleRatio float64

	// Writer receives stdout exporter output. Defaults to os.Stderr.
	Writer io.Writer
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init creates a tracer provider for cfg and installs it as the global
// provider. With the none exporter it installs nothing and returns a no-op
// ShutdownFunc.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if name == "" || name == ExporterNone {
		return noopShutdown, nil
	}
	if !slices.Contains(Exporters(), name) {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown trace exporter %q, supported: %s", cfg.Exporter, strings.Join(Exporters(), ", ")),
			map[string]any{"exporter": cfg.Exporter})
	}

	exporter, err := newExporter(ctx, name, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal,
			fmt.Sprintf("failed to create %s trace exporter", name), err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		)),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		slog.Warn("opentelemetry error", "error", err)
	}))

	slog.Debug("tracing enabled",
		"exporter", name,
		"endpoint", cfg.OTLPEndpoint,
		"sampleRatio", cfg.SampleRatio)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down tracer provider: %w", err)
		}
		return nil
	}, nil
}

func newExporter(ctx context.Context, name string, cfg Config) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = DefaultOTLPEndpoint
		}
		// OTEL_EXPORTER_OTLP_ENDPOINT is usually a URL, the flag a host:port
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if strings.Contains(endpoint, "://") {
			opts = []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(endpoint)}
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter %q", name)
	}
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
