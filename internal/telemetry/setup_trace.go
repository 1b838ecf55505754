// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry provides utilities for setting up and configuring
// application observability, including logging, tracing, and metrics.
// This file focuses on initializing the OpenTelemetry SDK. With the "gcp"
// exporter, traces go to Cloud Trace and metrics to Cloud Monitoring; with
// "none", spans and counters are still recorded (so logs carry trace ids) but
// nothing leaves the process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	telemetryexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Exporter names accepted by `telemetry.exporter`.
const (
	ExporterGCP  = "gcp"
	ExporterNone = "none"
)

// SetupOpenTelemetry initializes and configures the OpenTelemetry SDK for the entire application.
// It returns a `shutdown` function that must be called on application exit to ensure all
// buffered telemetry data is flushed before the application terminates.
//
// Inputs:
//   - ctx: The parent context, used for initialization of clients.
//   - config: The application's configuration struct, which provides the exporter,
//     the Google Project ID and the application's service name.
//
// Returns:
//   - shutdown: A function that should be deferred by the caller to gracefully
//     shut down all telemetry components (TracerProvider, MeterProvider).
//   - err: An error if any part of the setup fails.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	exporter := config.Telemetry.Exporter
	if exporter == "" {
		exporter = ExporterNone
	}
	if exporter != ExporterGCP && exporter != ExporterNone {
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}

	// --- Resource Detection ---
	// The GCP detector is only consulted when exporting to GCP; off GCP it
	// would probe the metadata server on every start.
	options := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.Application.Name),
			semconv.ServiceVersionKey.String(config.Application.Version),
		),
	}
	if exporter == ExporterGCP {
		options = append(options, resource.WithDetectors(gcp.NewDetector()))
	}
	res, err := resource.New(ctx, options...)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", "error", err)
	} else if err != nil {
		slog.Error("resource.New failed", "error", err)
		return nil, err
	}

	// --- Propagator Setup ---
	// `autoprop` configures W3C Trace Context and Baggage (or whatever
	// OTEL_PROPAGATORS names), so trace context flows to the model services.
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	traceOptions := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOptions := []metric.Option{metric.WithResource(res)}

	if exporter == ExporterGCP {
		traceExporter, err := telemetryexporter.New(telemetryexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			slog.Error("unable to set up trace exporter", "error", err)
			return nil, err
		}
		traceOptions = append(traceOptions, sdktrace.WithBatcher(traceExporter))

		mExporter, err := mexporter.New(mexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			slog.Error("unable to set up metric exporter", "error", err)
			return nil, err
		}
		meterOptions = append(meterOptions, metric.WithReader(metric.NewPeriodicReader(mExporter)))
	}

	tp := sdktrace.NewTracerProvider(traceOptions...)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mProvider := metric.NewMeterProvider(meterOptions...)
	shutdownFuncs = append(shutdownFuncs, mProvider.Shutdown)
	otel.SetMeterProvider(mProvider)
	otel.Meter(cor.MeterName)

	slog.Info("telemetry initialized", "exporter", exporter)
	return shutdown, nil
}
