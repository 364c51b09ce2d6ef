package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Backend names.
const (
	BackendPrometheus = "prometheus"
	BackendOTel       = "otel"
)

// Config selects and configures the metric and tracing backends.
type Config struct {
	Enabled  bool       `yaml:"enabled"`
	Backend  string     `yaml:"backend"`  // "prometheus" (default) or "otel".
	Textfile string     `yaml:"textfile"` // Prometheus text file written at shutdown. Empty skips it.
	OTLP     OTLPConfig `yaml:"otlp"`
}

// Params defines the dependencies of NewTelemetry.
type Params struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    Config
}

// Telemetry is the pair of recorder and tracer handed to the application.
type Telemetry struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// NewTelemetry builds the configured backends and registers their shutdown hooks.
func NewTelemetry(p Params) (Telemetry, error) {
	cfg := p.Config
	if !cfg.Enabled {
		logger.Debugf("Metrics disabled; using no-op recorder and tracer.")
		return Telemetry{Recorder: metrics.NewNoOpMetricRecorder(), Tracer: metrics.NewNoOpTracer()}, nil
	}

	ctx := context.Background()
	var traceOpts []sdktrace.TracerProviderOption
	if cfg.OTLP.Enabled() {
		exp, err := NewSpanExporter(ctx, cfg.OTLP)
		if err != nil {
			return Telemetry{}, fmt.Errorf("failed to create span exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	tracer := NewOpenTelemetryTracer(traceOpts...)
	p.Lifecycle.Append(fx.Hook{OnStop: tracer.Shutdown})

	switch cfg.Backend {
	case "", BackendPrometheus:
		rec := NewPrometheusRecorder()
		if cfg.Textfile != "" {
			p.Lifecycle.Append(fx.Hook{OnStop: func(context.Context) error {
				return rec.WriteTextfile(cfg.Textfile)
			}})
		}
		return Telemetry{Recorder: rec, Tracer: tracer}, nil

	case BackendOTel:
		var provider metric.MeterProvider
		if cfg.OTLP.Enabled() {
			exp, err := NewMetricExporter(ctx, cfg.OTLP)
			if err != nil {
				return Telemetry{}, fmt.Errorf("failed to create metric exporter: %w", err)
			}
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
			p.Lifecycle.Append(fx.Hook{OnStop: mp.Shutdown})
			provider = mp
		} else {
			mp, _ := NewManualMeterProvider()
			p.Lifecycle.Append(fx.Hook{OnStop: mp.Shutdown})
			provider = mp
		}
		rec, err := NewOpenTelemetryRecorder(provider)
		if err != nil {
			return Telemetry{}, fmt.Errorf("failed to create OpenTelemetry instruments: %w", err)
		}
		return Telemetry{Recorder: rec, Tracer: tracer}, nil

	default:
		return Telemetry{}, fmt.Errorf("unsupported metrics backend '%s'", cfg.Backend)
	}
}

// Module provides metrics.MetricRecorder and metrics.Tracer. It expects a Config to be supplied.
var Module = fx.Options(
	fx.Provide(NewTelemetry),
)
