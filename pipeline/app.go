package pipeline

import (
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/dag"
	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
	"github.com/kbukum/hypermodel/validation"
	"github.com/kbukum/hypermodel/workflow"
)

// DefinitionFunc declares the ops of a pipeline and their ordering.
// It runs exactly once, when the pipeline is registered.
type DefinitionFunc func(b *Builder) error

// App is the registry of the pipelines of one process.
type App struct {
	name     string
	bctx     *BuildContext
	compiler workflow.Compiler

	image      string
	script     string
	cron       string
	experiment string

	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	order     []string

	log     *logger.Logger
	metrics *observability.Metrics
}

// AppOption configures an App.
type AppOption func(*App)

// WithCompiler replaces the default workflow compiler.
func WithCompiler(c workflow.Compiler) AppOption {
	return func(a *App) { a.compiler = c }
}

// WithLogger sets the logger used by the app and its pipelines.
func WithLogger(l *logger.Logger) AppOption {
	return func(a *App) { a.log = l }
}

// WithMetrics records task and run metrics on m.
func WithMetrics(m *observability.Metrics) AppOption {
	return func(a *App) { a.metrics = m }
}

// WithConfig takes the container image, script name and the default cron
// and experiment from cfg.
func WithConfig(cfg *config.Config) AppOption {
	return func(a *App) {
		if cfg == nil {
			return
		}
		a.image = cfg.ContainerURL
		a.script = cfg.ScriptName
		a.cron = cfg.Cron
		a.experiment = cfg.Experiment
	}
}

// NewApp creates an empty pipeline registry. A nil build context is
// replaced by an empty one.
func NewApp(name string, bc *BuildContext, opts ...AppOption) *App {
	if bc == nil {
		bc = NewBuildContext()
	}
	a := &App{
		name:      name,
		bctx:      bc,
		compiler:  workflow.NewCompiler(),
		script:    name,
		pipelines: make(map[string]*Pipeline),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("pipeline")
	}
	return a
}

// Name returns the application name.
func (a *App) Name() string { return a.name }

// BuildContext returns the context holding the op configurators.
func (a *App) BuildContext() *BuildContext { return a.bctx }

// ConfigureOp appends an op configurator. Pipelines already registered are
// not reconfigured; configure ops before registering pipelines.
func (a *App) ConfigureOp(fn OpConfigurator) {
	a.mu.RLock()
	registered := slices.Clone(a.order)
	a.mu.RUnlock()
	if len(registered) > 0 {
		a.log.Warn("op configurator added after pipelines were registered, they keep their ops unchanged",
			logger.Fields("pipelines", registered))
	}
	a.bctx.ConfigureOp(fn)
}

// PipelineOption configures a pipeline at registration.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	name       string
	cron       string
	experiment string
}

// WithPipelineName overrides the name derived from the definition function.
// Definitions written as closures have no usable name and need it.
func WithPipelineName(name string) PipelineOption {
	return func(o *pipelineOptions) { o.name = name }
}

// WithCron sets the schedule used when the pipeline is deployed.
func WithCron(cron string) PipelineOption {
	return func(o *pipelineOptions) { o.cron = cron }
}

// WithExperiment sets the grouping label used when the pipeline is deployed.
func WithExperiment(experiment string) PipelineOption {
	return func(o *pipelineOptions) { o.experiment = experiment }
}

// Register runs def once, compiles what it declared and adds the resulting
// pipeline to the app. The pipeline is immutable afterwards.
func (a *App) Register(def DefinitionFunc, opts ...PipelineOption) (*Pipeline, error) {
	if def == nil {
		return nil, errors.MissingField("definition")
	}
	o := pipelineOptions{cron: a.cron, experiment: a.experiment}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = funcName(def)
	}
	if verr := validation.New().Name("pipeline", o.name).Cron("cron", o.cron).Validate(); verr != nil {
		return nil, verr
	}

	a.mu.RLock()
	_, exists := a.pipelines[o.name]
	a.mu.RUnlock()
	if exists {
		return nil, errors.AlreadyExists("pipeline").WithDetail("pipeline", o.name)
	}

	b := newBuilder(o.name, a.bctx)
	defErr := def(b)
	ops := b.freeze()
	if defErr != nil {
		return nil, defErr
	}
	if err := b.Err(); err != nil {
		return nil, err
	}

	wf, err := a.compiler.Compile(a.definition(o.name, ops))
	if err != nil {
		return nil, errors.InvalidInput("pipeline", err.Error()).WithCause(err).WithDetail("pipeline", o.name)
	}
	if o.cron != "" || o.experiment != "" {
		if wf.Metadata.Annotations == nil {
			wf.Metadata.Annotations = make(map[string]string)
		}
		if o.cron != "" {
			wf.Metadata.Annotations[workflow.AnnotationCron] = o.cron
		}
		if o.experiment != "" {
			wf.Metadata.Annotations[workflow.AnnotationExperiment] = o.experiment
		}
	}

	p := &Pipeline{
		name:       o.name,
		cron:       o.cron,
		experiment: o.experiment,
		ops:        ops,
		opsByName:  make(map[string]*Op, len(ops)),
		workflow:   wf,
		log:        a.log.WithFields(logger.Fields(logger.FieldPipeline, o.name)),
		metrics:    a.metrics,
	}
	for _, op := range ops {
		p.opsByName[op.name] = op
	}
	if err := p.loadTasks(wf.Tasks()); err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := op.bind(p); err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.pipelines[p.name]; exists {
		return nil, errors.AlreadyExists("pipeline").WithDetail("pipeline", p.name)
	}
	a.pipelines[p.name] = p
	a.order = append(a.order, p.name)

	a.log.Info("pipeline registered", logger.Fields(
		logger.FieldPipeline, p.name,
		"ops", len(ops),
		"cron", p.cron,
		logger.FieldExperiment, p.experiment,
	))
	return p, nil
}

// Pipeline looks a registered pipeline up by name.
func (a *App) Pipeline(name string) (*Pipeline, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.pipelines[name]
	return p, ok
}

// Pipelines returns the registered pipelines in registration order.
func (a *App) Pipelines() []*Pipeline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Pipeline, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.pipelines[name])
	}
	return out
}

// definition turns the recorded ops into the compiler's input. Every op
// runs the application script with "pipelines <pipeline> <op>" followed by
// its bound arguments.
func (a *App) definition(name string, ops []*Op) workflow.Definition {
	def := workflow.Definition{Name: name, Steps: make([]workflow.Step, 0, len(ops))}
	for _, op := range ops {
		c := op.container
		step := workflow.Step{
			Name:         op.name,
			Dependencies: slices.Clone(op.deps),
			Container: workflow.Container{
				Image:   c.Image,
				Command: slices.Clone(c.Command),
				Args:    append([]string{"pipelines", name, op.name}, op.bound.Args()...),
			},
		}
		if step.Container.Image == "" {
			step.Container.Image = a.image
		}
		if len(step.Container.Command) == 0 && a.script != "" {
			step.Container.Command = []string{a.script}
		}
		for _, env := range c.Env {
			step.Container.Env = append(step.Container.Env, workflow.EnvVar{Name: env.Name, Value: env.Value})
		}
		for _, s := range c.Secrets {
			step.Volumes = append(step.Volumes, workflow.Volume{Name: s.Name, Secret: &workflow.SecretSource{SecretName: s.Secret}})
			step.Container.VolumeMounts = append(step.Container.VolumeMounts, workflow.VolumeMount{Name: s.Name, MountPath: s.MountPath})
		}
		for _, v := range c.EmptyDirs {
			step.Volumes = append(step.Volumes, workflow.Volume{Name: v.Name, EmptyDir: &workflow.EmptyDir{}})
			step.Container.VolumeMounts = append(step.Container.VolumeMounts, workflow.VolumeMount{Name: v.Name, MountPath: v.MountPath})
		}
		def.Steps = append(def.Steps, step)
	}
	return def
}

// loadTasks builds the task map from the compiled tasks and checks that it
// forms a DAG over the pipeline's ops.
func (p *Pipeline) loadTasks(tasks []workflow.Task) error {
	g := dag.New()
	p.tasks = tasks
	p.taskMap = make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := p.opsByName[dep]; !ok {
				return errors.DanglingDependency(p.name, t.Name, dep)
			}
		}
		if err := g.Add(t.Name, t.Dependencies...); err != nil {
			return errors.DuplicateOp(p.name, t.Name)
		}
		p.taskMap[t.Name] = slices.Clone(t.Dependencies)
	}

	if err := g.Validate(); err != nil {
		var gerr *dag.GraphError
		if stderrors.As(err, &gerr) {
			switch {
			case stderrors.Is(gerr, dag.ErrCycle):
				return errors.CyclicDependency(p.name, gerr.Path)
			case stderrors.Is(gerr, dag.ErrUnknownNode):
				return errors.DanglingDependency(p.name, gerr.Node, gerr.Dependency)
			}
		}
		return fmt.Errorf("pipeline %s: %w", p.name, err)
	}
	return nil
}
