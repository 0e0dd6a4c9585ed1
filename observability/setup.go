package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects what Setup initializes.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	SampleRate     float64
	MetricInterval time.Duration
}

// Providers holds the initialized providers and the shared instruments.
type Providers struct {
	Metrics *Metrics

	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

// Setup initializes OTLP export when cfg.Enabled is set. Metrics are always
// returned; without export they record into the global no-op provider.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	p := &Providers{}

	if cfg.Enabled {
		tc := DefaultTracerConfig(cfg.ServiceName)
		tc.ServiceVersion = orDefault(cfg.ServiceVersion, tc.ServiceVersion)
		tc.Environment = orDefault(cfg.Environment, tc.Environment)
		tc.Endpoint = orDefault(cfg.Endpoint, tc.Endpoint)
		tc.Insecure = cfg.Insecure
		tc.SampleRate = cfg.SampleRate

		tp, err := InitTracer(ctx, tc)
		if err != nil {
			return nil, err
		}
		p.tracer = tp

		mc := DefaultMeterConfig(cfg.ServiceName)
		mc.ServiceVersion = tc.ServiceVersion
		mc.Environment = tc.Environment
		mc.Endpoint = tc.Endpoint
		mc.Insecure = cfg.Insecure
		if cfg.MetricInterval > 0 {
			mc.Interval = cfg.MetricInterval
		}

		mp, err := InitMeter(ctx, &mc)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		p.meter = mp
	}

	metrics, err := NewMetrics(Meter(cfg.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	p.Metrics = metrics
	return p, nil
}

// Shutdown flushes and stops the providers started by Setup.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
