// Package telemetry wires OpenTelemetry spans and counters through the
// three places SPEC_FULL.md's ambient stack calls out: HTTP handlers,
// the agent tool loop, and the scheduler. Grounded on
// mansoorceksport-metamorph's internal/telemetry (tracer/meter globals
// plus a request middleware), adapted from its Fiber middleware to
// net/http and from its Grafana OTLP exporter setup (not carried here —
// this module's go.mod has no otlp exporter package) to an in-process
// SDK provider.
//
// Every call site in this package talks to the otel.Tracer/otel.Meter
// globals, which already resolve to safe no-op implementations before
// Setup ever runs. Setup installs an SDK TracerProvider/MeterProvider
// that record spans and counters in-process; wiring a real OTLP
// exporter is future work (see DESIGN.md) and does not change any
// instrumented call site.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "coachspine"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

// Tracer returns the package-wide tracer every instrumented call site shares.
func Tracer() trace.Tracer { return tracer }

// Meter returns the package-wide meter every instrumented call site shares.
func Meter() metric.Meter { return meter }

// Providers holds the SDK providers Setup installs, so main can drain
// them on shutdown.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Setup installs an in-process SDK tracer/meter provider as the global
// default and refreshes the package-level Tracer/Meter handles to come
// from it. Calling Setup is optional — every instrumented call site
// already works against otel's no-op default without it.
func Setup() *Providers {
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tracer = otel.Tracer(instrumentationName)
	meter = otel.Meter(instrumentationName)
	return &Providers{TracerProvider: tp, MeterProvider: mp}
}

// Shutdown drains both providers; safe to call on a nil *Providers so
// callers don't need to special-case an unconfigured Setup.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return p.MeterProvider.Shutdown(ctx)
}
