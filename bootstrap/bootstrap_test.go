package bootstrap

import (
	"bytes"
	"context"
	stderrors "errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/hypermodel/component"
	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/deploy"
	"github.com/kbukum/hypermodel/inference"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/pipeline"
)

// testConfig embeds config.Config the way applications do.
type testConfig struct {
	config.Config `mapstructure:",squash"`
	Bucket        string `mapstructure:"bucket"`
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	mu       sync.Mutex
	starts   int
	stops    int
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

func newTestConfig(name string) *testConfig {
	return &testConfig{Config: config.Config{
		ServiceConfig: config.ServiceConfig{Name: name, Version: "1.0.0", Environment: "development"},
		Deploy:        config.DeployConfig{Host: "https://kfp.example.com"},
	}}
}

type testApp struct {
	*App[*testConfig]
	out, errOut *bytes.Buffer
}

func newTestApp(t *testing.T, cfg *testConfig, opts ...Option) *testApp {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	opts = append([]Option{WithLogger(logger.NewNop()), WithOutput(out, errOut)}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return &testApp{App: app, out: out, errOut: errOut}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, newTestConfig("titanic"))

	if app.Name != "titanic" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.Pipelines == nil || app.Inference == nil || app.Deployer == nil || app.Metrics == nil {
		t.Fatal("expected pipelines, inference, deployer and metrics to be wired")
	}
	if _, ok := app.Deployer.(*deploy.HTTPDeployer); !ok {
		t.Errorf("expected default HTTP deployer, got %T", app.Deployer)
	}
	if app.Components.Get(telemetryName) == nil {
		t.Error("expected telemetry component")
	}
	if app.Cfg.Port != config.DefaultPort {
		t.Errorf("expected defaults applied, port %d", app.Cfg.Port)
	}
	if app.Inference.Port() != config.DefaultPort {
		t.Errorf("expected inference port from config, got %d", app.Inference.Port())
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := newTestConfig("")
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestNewAppWithOptions(t *testing.T) {
	bc := pipeline.NewBuildContext()
	bc.ConfigureOp(func(op *pipeline.Op) *pipeline.Op { return op.WithEnv("SHARED", "1") })
	deployer := deploy.Func(func(ctx context.Context, req deploy.Request) (*deploy.Submission, error) {
		return &deploy.Submission{ID: "x"}, nil
	})

	app := newTestApp(t, newTestConfig("titanic"),
		WithGracefulTimeout(30*time.Second),
		WithBuildContext(bc),
		WithDeployer(deployer),
	)

	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if _, ok := app.Deployer.(deploy.Func); !ok {
		t.Errorf("expected custom deployer, got %T", app.Deployer)
	}
	if app.Pipelines.BuildContext() != bc {
		t.Error("expected shared build context")
	}
}

func TestNewAppCustomLoggerIsGlobal(t *testing.T) {
	custom := logger.NewNop()
	app := newTestApp(t, newTestConfig("titanic"), WithLogger(custom))
	if app.Logger != custom {
		t.Error("expected the custom logger on the app")
	}
	if logger.GetGlobalLogger() != custom {
		t.Error("expected the custom logger to become the global logger")
	}
}

func TestRegisterAppliesConfigurators(t *testing.T) {
	cfg := newTestConfig("titanic")
	cfg.ContainerURL = "growingdata/demo-tragic_titanic"
	app := newTestApp(t, cfg)
	app.ConfigureOp(func(op *pipeline.Op) *pipeline.Op { return op.WithEnv("LAKE_BUCKET", "grwdt-dev-lake") })

	p, err := app.Register(func(b *pipeline.Builder) error {
		b.Op(noop, pipeline.WithOpName("create-training"))
		return nil
	}, pipeline.WithPipelineName("demo"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	op, ok := p.Op("create-training")
	if !ok {
		t.Fatal("expected op create-training")
	}
	if env := op.Container().Env; len(env) != 1 || env[0].Name != "LAKE_BUCKET" {
		t.Errorf("expected configurator env, got %+v", env)
	}
	tpl, ok := p.Workflow().Template("create-training")
	if !ok || tpl.Container == nil || tpl.Container.Image != "growingdata/demo-tragic_titanic" {
		t.Errorf("expected image from config in the compiled template, got %+v", tpl)
	}
}

func noop(ctx context.Context, args pipeline.Kwargs) (any, error) { return nil, nil }

func TestRunTaskLifecycleOrder(t *testing.T) {
	app := newTestApp(t, newTestConfig("titanic"))
	var events []string
	record := func(name string) Hook {
		return func(ctx context.Context) error { events = append(events, name); return nil }
	}
	app.OnStart(record("start"))
	app.OnReady(record("ready"))
	app.OnStop(record("stop"))
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		events = append(events, "configure")
		return nil
	})

	for range 2 {
		if err := app.RunTask(context.Background(), func(ctx context.Context) error {
			events = append(events, "task")
			return nil
		}); err != nil {
			t.Fatalf("RunTask: %v", err)
		}
	}

	want := "start,configure,ready,task,stop,start,ready,task,stop"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRunTaskErrors(t *testing.T) {
	boom := stderrors.New("boom")
	tests := []struct {
		name      string
		setup     func(app *testApp, c *mockComponent)
		task      func(ctx context.Context) error
		wantTask  bool
		wantStops int
	}{
		{
			name:  "component start error",
			setup: func(app *testApp, c *mockComponent) { c.startErr = boom },
		},
		{
			name: "start hook error",
			setup: func(app *testApp, c *mockComponent) {
				app.OnStart(func(ctx context.Context) error { return boom })
			},
			wantStops: 1,
		},
		{
			name: "configure error",
			setup: func(app *testApp, c *mockComponent) {
				app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error { return boom })
			},
			wantStops: 1,
		},
		{
			name: "ready hook error",
			setup: func(app *testApp, c *mockComponent) {
				app.OnReady(func(ctx context.Context) error { return boom })
			},
			wantStops: 1,
		},
		{
			name:      "task error",
			setup:     func(app *testApp, c *mockComponent) {},
			task:      func(ctx context.Context) error { return boom },
			wantTask:  true,
			wantStops: 1,
		},
		{
			name: "stop hook error",
			setup: func(app *testApp, c *mockComponent) {
				app.OnStop(func(ctx context.Context) error { return boom })
			},
			wantTask:  true,
			wantStops: 1,
		},
		{
			name:      "component stop error",
			setup:     func(app *testApp, c *mockComponent) { c.stopErr = boom },
			wantTask:  true,
			wantStops: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, newTestConfig("titanic"))
			c := &mockComponent{name: "lake", health: component.Health{Name: "lake", Status: component.StatusHealthy}}
			if err := app.RegisterComponent(c); err != nil {
				t.Fatal(err)
			}
			tc.setup(app, c)

			ran := false
			task := tc.task
			if task == nil {
				task = func(ctx context.Context) error { return nil }
			}
			err := app.RunTask(context.Background(), func(ctx context.Context) error {
				ran = true
				return task(ctx)
			})
			if !stderrors.Is(err, boom) {
				t.Errorf("expected boom, got %v", err)
			}
			if ran != tc.wantTask {
				t.Errorf("task ran = %v, want %v", ran, tc.wantTask)
			}
			if c.stops != tc.wantStops {
				t.Errorf("stops = %d, want %d", c.stops, tc.wantStops)
			}
		})
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t, newTestConfig("titanic"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.RunTask(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, newTestConfig("titanic"))
			_ = app.Components.StartAll(context.Background())
			_ = app.RegisterComponent(&mockComponent{name: "lake", health: component.Health{Name: "lake", Status: tc.status}})

			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("ReadyCheck() error = %v, wantErr %v", err, tc.wantErr)
			}
			_ = app.Shutdown(context.Background())
		})
	}
}

func TestMainRunsPipelines(t *testing.T) {
	app := newTestApp(t, newTestConfig("titanic"))
	var calls []string
	op := func(name string) pipeline.OpFunc {
		return func(ctx context.Context, args pipeline.Kwargs) (any, error) {
			calls = append(calls, name)
			return nil, nil
		}
	}
	if _, err := app.Register(func(b *pipeline.Builder) error {
		a := b.Op(op("create-training"), pipeline.WithOpName("create-training"))
		b.Op(op("train-model"), pipeline.WithOpName("train-model")).After(a)
		return nil
	}, pipeline.WithPipelineName("demo")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if code := app.Main(context.Background(), []string{"pipelines", "demo", "run-all"}); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, app.errOut.String())
	}
	if strings.Join(calls, ",") != "create-training,train-model" {
		t.Errorf("unexpected calls %v", calls)
	}

	if code := app.Main(context.Background(), []string{"pipelines", "demo", "missing-op"}); code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(app.errOut.String(), "Error:") {
		t.Errorf("expected error message, got %q", app.errOut.String())
	}
}

func TestServe(t *testing.T) {
	cfg := newTestConfig("titanic")
	cfg.Port = freePort(t)
	app := newTestApp(t, cfg)
	app.Inference.OnInit(func(ctx context.Context, a *inference.App) error {
		return a.RegisterModel("xgb", func(ctx context.Context) (any, error) { return "booster", nil })
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, inference.ModeDev) }()

	deadline := time.Now().Add(2 * time.Second)
	for app.Inference.Addr() == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("inference server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	summary := app.errOut.String()
	for _, want := range []string{"titanic v1.0.0", "Inference API", "/health", "Health Check"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	if app.Inference.Addr() != "" {
		t.Error("expected server stopped")
	}
}

func TestSummaryDisplay(t *testing.T) {
	registry := component.NewRegistry()
	_ = registry.Register(&mockComponent{name: "lake", health: component.Health{Name: "lake", Status: component.StatusUnhealthy, Message: "timeout"}})

	pipelines := pipeline.NewApp("titanic", pipeline.NewBuildContext(), pipeline.WithLogger(logger.NewNop()))
	if _, err := pipelines.Register(func(b *pipeline.Builder) error {
		a := b.Op(noop, pipeline.WithOpName("create-training"))
		b.Op(noop, pipeline.WithOpName("train-model")).After(a)
		return nil
	}, pipeline.WithPipelineName("demo"), pipeline.WithCron("0 0 * * *")); err != nil {
		t.Fatal(err)
	}

	s := NewSummary("titanic", "")
	s.SetStartupDuration(1500 * time.Millisecond)
	var buf bytes.Buffer
	s.Display(&buf, registry, pipelines)

	out := buf.String()
	for _, want := range []string{
		"titanic vdev started in 1.50s",
		"[component] lake",
		"demo (2 tasks) cron=0 0 * * *",
		"train-model ← create-training",
		"❌ lake: unhealthy (timeout)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryDisplayNil(t *testing.T) {
	var buf bytes.Buffer
	NewSummary("titanic", "1.0").Display(&buf, nil, nil)
	if !strings.Contains(buf.String(), "titanic v1.0") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestTelemetryDisabled(t *testing.T) {
	cfg := newTestConfig("titanic")
	cfg.ApplyDefaults()
	tel := NewTelemetry(&cfg.Config, logger.NewNop())

	if h := tel.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded before start, got %s", h.Status)
	}
	if err := tel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := tel.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Status)
	}
	if d := tel.Describe(); d.Details != "export disabled" {
		t.Errorf("unexpected details %q", d.Details)
	}
	if err := tel.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestHealthStatusIcon(t *testing.T) {
	tests := map[component.HealthStatus]string{
		component.StatusHealthy:   "✅",
		component.StatusDegraded:  "⚠️",
		component.StatusUnhealthy: "❌",
		"other":                   "❓",
	}
	for status, want := range tests {
		if got := healthStatusIcon(status); got != want {
			t.Errorf("healthStatusIcon(%s) = %s, want %s", status, got, want)
		}
	}
}
