package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/hypermodel/component"
	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
)

const telemetryName = "telemetry"

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// Telemetry starts and flushes the OpenTelemetry providers.
type Telemetry struct {
	cfg observability.Config
	log *logger.Logger

	mu        sync.Mutex
	providers *observability.Providers
}

// NewTelemetry builds the telemetry component from the runtime config.
func NewTelemetry(cfg *config.Config, log *logger.Logger) *Telemetry {
	return &Telemetry{
		cfg: observability.Config{
			Enabled:        cfg.Tracing.Enabled,
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
		},
		log: log,
	}
}

// Name returns the component name.
func (t *Telemetry) Name() string { return telemetryName }

// Start installs the OTLP exporters when tracing is enabled.
func (t *Telemetry) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.providers != nil {
		return nil
	}
	p, err := observability.Setup(ctx, t.cfg)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	t.providers = p
	if t.cfg.Enabled {
		t.log.Info("telemetry export enabled", logger.Fields("endpoint", t.cfg.Endpoint))
	}
	return nil
}

// Stop flushes pending spans and metrics.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	p := t.providers
	t.providers = nil
	t.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Shutdown(ctx)
}

// Health reports healthy once started.
func (t *Telemetry) Health(ctx context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.providers == nil:
		return component.Health{Name: telemetryName, Status: component.StatusDegraded, Message: "not started"}
	case !t.cfg.Enabled:
		return component.Health{Name: telemetryName, Status: component.StatusHealthy, Message: "export disabled"}
	default:
		return component.Health{Name: telemetryName, Status: component.StatusHealthy}
	}
}

// Describe returns the summary line.
func (t *Telemetry) Describe() component.Description {
	details := "export disabled"
	if t.cfg.Enabled {
		details = fmt.Sprintf("otlp %s sample=%.2f", t.cfg.Endpoint, t.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}
