package inference

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/hypermodel/component"
	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
	"github.com/kbukum/hypermodel/validation"
)

// Mode selects the interface the server listens on.
type Mode string

const (
	// ModeDev listens on 127.0.0.1.
	ModeDev Mode = "dev"
	// ModeProd listens on all interfaces.
	ModeProd Mode = "prod"
)

// Host returns the listen host for the mode.
func (m Mode) Host() string {
	if m == ModeProd {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}

const shutdownTimeout = 5 * time.Second

// ModelLoader loads a model. It is called at most once per successful load.
type ModelLoader func(ctx context.Context) (any, error)

// InitFunc runs before the server starts serving.
type InitFunc func(ctx context.Context, a *App) error

// App is the host of the prediction HTTP server.
type App struct {
	name    string
	port    int
	log     *logger.Logger
	metrics *observability.Metrics

	engine *gin.Engine
	initMu sync.Mutex

	mu          sync.RWMutex
	models      map[string]*component.Lazy[any]
	initFns     []InitFunc
	initialised bool
	mode        Mode
	httpServer  *http.Server
	addr        string
}

// Option configures an App.
type Option func(*App)

// WithPort sets the listen port. Port 0 picks a free port.
func WithPort(port int) Option {
	return func(a *App) { a.port = port }
}

// WithConfig takes the port from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		if cfg != nil && cfg.Port != 0 {
			a.port = cfg.Port
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithMetrics records request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// NewApp creates an inference app named name listening on config.DefaultPort
// unless configured otherwise.
func NewApp(name string, opts ...Option) *App {
	a := &App{
		name:   name,
		port:   config.DefaultPort,
		models: make(map[string]*component.Lazy[any]),
		mode:   ModeDev,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("inference")
	}

	if debugEnabled(a.log) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	a.engine = gin.New()
	a.engine.Use(Recovery(a.log), RequestID(), RequestLogger(a.log, a.name, a.metrics))
	a.engine.GET(healthPath, Health(a.name, a.componentHealth))
	a.engine.GET(readyPath, Ready(a.name, a.Initialised))
	return a
}

// Name returns the app name.
func (a *App) Name() string { return a.name }

// Port returns the configured port.
func (a *App) Port() int { return a.port }

// Router returns the gin engine for registering prediction routes.
func (a *App) Router() *gin.Engine { return a.engine }

// Handler returns the app as an http.Handler.
func (a *App) Handler() http.Handler { return a.engine }

// RegisterModel binds a model loader to name. The loader runs on the first
// GetModel call for that name.
func (a *App) RegisterModel(name string, load ModelLoader) error {
	if verr := validation.New().Required("name", name).Validate(); verr != nil {
		return verr
	}
	if load == nil {
		return errors.MissingField("loader")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.models[name]; ok {
		return errors.AlreadyExists("model").WithDetail("model", name)
	}
	a.models[name] = component.NewLazy[any](name, load)
	a.log.Info("model registered", logger.Fields("model", name))
	return nil
}

// GetModel returns the model registered under name, loading it if needed.
// An unregistered name yields a NOT_FOUND error.
func (a *App) GetModel(ctx context.Context, name string) (any, error) {
	a.mu.RLock()
	m, ok := a.models[name]
	a.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("model", name)
	}
	return m.Get(ctx)
}

// Model returns the model registered under name as a T.
func Model[T any](ctx context.Context, a *App, name string) (T, error) {
	var zero T
	v, err := a.GetModel(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.InvalidInput("model", fmt.Sprintf("%s is %T", name, v))
	}
	return t, nil
}

// Models returns the registered model names, sorted.
func (a *App) Models() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.models))
	for name := range a.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnInit registers fn to run before serving. Callbacks run in registration order.
func (a *App) OnInit(fn InitFunc) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.initFns = append(a.initFns, fn)
	a.mu.Unlock()
}

// Initialise runs the OnInit callbacks once. The first failing callback
// stops initialisation and its error is returned; a later call retries.
func (a *App) Initialise(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	a.mu.RLock()
	if a.initialised {
		a.mu.RUnlock()
		return nil
	}
	fns := append([]InitFunc(nil), a.initFns...)
	a.mu.RUnlock()

	a.log.Info("initialising inference app", logger.Fields("callbacks", len(fns)))
	for i, fn := range fns {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("inference init callback %d: %w", i, err)
		}
	}

	a.mu.Lock()
	a.initialised = true
	a.mu.Unlock()
	return nil
}

// Initialised reports whether the OnInit callbacks have completed.
func (a *App) Initialised() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialised
}

// SetMode selects the listen interface used by Start.
func (a *App) SetMode(m Mode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
}

// Serve initialises the app, starts the server in mode and blocks until ctx
// is cancelled, then shuts down.
func (a *App) Serve(ctx context.Context, mode Mode) error {
	a.SetMode(mode)
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Stop(context.Background())
}

// StartDev serves on the loopback interface until ctx is cancelled.
func (a *App) StartDev(ctx context.Context) error { return a.Serve(ctx, ModeDev) }

// StartProd serves on all interfaces until ctx is cancelled.
func (a *App) StartProd(ctx context.Context) error { return a.Serve(ctx, ModeProd) }

// Addr returns the bound address, or "" before Start.
func (a *App) Addr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.addr
}

// Start initialises the app and binds the port. It returns once the listener
// is bound; serving continues in a goroutine.
func (a *App) Start(ctx context.Context) error {
	if err := a.Initialise(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	if a.httpServer != nil {
		bound := a.addr
		a.mu.Unlock()
		return errors.AlreadyExists("inference server").WithDetail("addr", bound)
	}
	addr := net.JoinHostPort(a.mode.Host(), fmt.Sprint(a.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		a.mu.Unlock()
		return errors.ConnectionFailed("inference listener").WithCause(err).WithDetail("addr", addr)
	}
	srv := &http.Server{
		Handler:           a.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.httpServer = srv
	a.addr = listener.Addr().String()
	mode := a.mode
	a.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.log.Error("inference server error", logger.ErrorFields("serve", err))
		}
	}()

	a.log.Info("inference API started", logger.Fields("addr", listener.Addr().String(), "mode", string(mode)))
	return nil
}

// Stop shuts the server down and releases loaded models.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.addr = ""
	models := make([]*component.Lazy[any], 0, len(a.models))
	for _, m := range a.models {
		models = append(models, m)
	}
	a.mu.Unlock()

	var shutdownErr error
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("inference server shutdown: %w", err)
		}
		a.log.Info("inference API stopped")
	}
	for _, m := range models {
		if err := m.Close(); err != nil {
			a.log.Warn("failed to release model", logger.Fields("model", m.Name(), logger.FieldError, err.Error()))
		}
	}
	return shutdownErr
}

func (a *App) componentHealth(ctx context.Context) []component.Health {
	a.mu.RLock()
	models := make([]*component.Lazy[any], 0, len(a.models))
	for _, name := range sortedKeys(a.models) {
		models = append(models, a.models[name])
	}
	a.mu.RUnlock()

	out := make([]component.Health, 0, len(models))
	for _, m := range models {
		out = append(out, m.Health(ctx))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// debugEnabled reports whether l would emit debug lines.
func debugEnabled(l *logger.Logger) bool {
	zl := l.GetLogger()
	return zl.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}
