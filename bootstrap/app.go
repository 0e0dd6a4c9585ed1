package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/hypermodel/cli"
	"github.com/kbukum/hypermodel/component"
	"github.com/kbukum/hypermodel/deploy"
	"github.com/kbukum/hypermodel/inference"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
	"github.com/kbukum/hypermodel/pipeline"
)

// App is a hypermodel application with uniform lifecycle management.
// The type parameter C is the config type.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*config.Config]) error {
//	    return a.Inference.RegisterModel("xgb", loadXGB)
//	})
//	os.Exit(app.Main(ctx, os.Args[1:]))
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary
	Metrics    *observability.Metrics
	Pipelines  *pipeline.App
	Inference  *inference.App
	Deployer   deploy.Deployer

	gracefulTimeout time.Duration
	out             io.Writer
	errOut          io.Writer
	onConfigure     []func(ctx context.Context, app *App[C]) error
	configured      bool

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp creates an application from a typed config.
// It applies defaults, validates the config and initializes the logger,
// the pipeline registry, the inference host and the deployer.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	rc := cfg.GetConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            rc.Name,
		Version:         rc.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		out:             os.Stdout,
		errOut:          os.Stderr,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.out != nil {
		app.out = o.out
	}
	if o.errOut != nil {
		app.errOut = o.errOut
	}

	if o.logger != nil {
		app.Logger = o.logger
		logger.SetGlobalLogger(o.logger)
	} else {
		logger.Init(&rc.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	logger.RegisterComponents(app.Logger, "component", "pipeline", "inference", "deploy", "cli")
	app.Components = component.NewRegistry()

	metrics, err := observability.NewMetrics(observability.Meter(rc.Name))
	if err != nil {
		return nil, err
	}
	app.Metrics = metrics

	bc := o.buildContext
	if bc == nil {
		bc = pipeline.NewBuildContext()
	}
	app.Pipelines = pipeline.NewApp(rc.Name, bc,
		pipeline.WithConfig(rc),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger.Get("pipeline")),
	)
	app.Inference = inference.NewApp(rc.Name,
		inference.WithConfig(rc),
		inference.WithMetrics(metrics),
		inference.WithLogger(logger.Get("inference")),
	)

	app.Deployer = o.deployer
	if app.Deployer == nil {
		app.Deployer = deploy.NewHTTPDeployer(
			deploy.WithTimeout(rc.Deploy.Timeout),
			deploy.WithLogger(logger.Get("deploy")),
		)
	}

	if err := app.Components.Register(NewTelemetry(rc, app.Logger.WithComponent(telemetryName))); err != nil {
		return nil, err
	}

	app.Summary = NewSummary(rc.Name, rc.Version)
	return app, nil
}

// Register registers a pipeline definition with the application.
func (a *App[C]) Register(def pipeline.DefinitionFunc, opts ...pipeline.PipelineOption) (*pipeline.Pipeline, error) {
	return a.Pipelines.Register(def, opts...)
}

// ConfigureOp adds an op configurator applied to ops of pipelines registered
// afterwards.
func (a *App[C]) ConfigureOp(fn pipeline.OpConfigurator) {
	a.Pipelines.ConfigureOp(fn)
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback to run once, after components started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Execute runs the command tree with args.
func (a *App[C]) Execute(ctx context.Context, args []string) error {
	rc := a.Cfg.GetConfig()
	return cli.Execute(ctx, cli.Options{
		Name:      a.Name,
		Pipelines: a.Pipelines,
		Inference: a.Inference,
		Deployer:  a.Deployer,
		Deploy:    rc.Deploy,
		Lifecycle: a.RunTask,
		Serve:     a.Serve,
		Logger:    logger.Get("cli"),
		Out:       a.out,
		Err:       a.errOut,
	}, args)
}

// Main runs Execute and returns the process exit code, printing the failure.
func (a *App[C]) Main(ctx context.Context, args []string) int {
	err := a.Execute(ctx, args)
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if stderrors.As(err, &exitErr) {
		fmt.Fprintln(a.errOut, exitErr.Message)
		return exitErr.Code
	}
	fmt.Fprintln(a.errOut, err)
	return 1
}

// RunTask runs a finite task inside the application lifecycle: components
// start, the task runs, components stop. SIGINT and SIGTERM cancel the task.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Serve starts the inference server in mode alongside the other components,
// prints the startup summary and blocks until a shutdown signal or ctx is done.
func (a *App[C]) Serve(ctx context.Context, mode inference.Mode) error {
	a.Inference.SetMode(mode)
	if a.Components.Get(a.Inference.Name()) == nil {
		if err := a.Components.Register(a.Inference); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}
	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()

	a.Logger.Info("Inference API ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// DisplaySummary prints the startup summary to the error writer.
func (a *App[C]) DisplaySummary() {
	a.Summary.Display(a.errOut, a.Components, a.Pipelines)
}

// startup starts components, runs OnStart hooks, the configure callbacks
// and OnReady hooks.
func (a *App[C]) startup(ctx context.Context) error {
	a.Logger.Debug("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}
	return nil
}

func (a *App[C]) configure(ctx context.Context) error {
	if a.configured {
		return nil
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	a.configured = true
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the application. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs OnStop hooks and stops all components within the graceful timeout.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		shutdownErr = stderrors.Join(shutdownErr, err)
	}
	a.Logger.Debug("Application shutdown complete")
	return shutdownErr
}
