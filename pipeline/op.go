package pipeline

import (
	"context"
	"slices"

	"github.com/kbukum/hypermodel/errors"
)

// OpFunc is the work an op performs. Arguments are always named.
type OpFunc func(ctx context.Context, args Kwargs) (any, error)

// EnvVar is an environment variable set in the op's container.
type EnvVar struct {
	Name  string
	Value string
}

// SecretMount mounts a named secret into the op's container.
type SecretMount struct {
	Name      string
	Secret    string
	MountPath string
}

// VolumeMount mounts a scratch volume into the op's container.
type VolumeMount struct {
	Name      string
	MountPath string
}

// Container describes how the op runs when the pipeline is deployed.
type Container struct {
	Image     string
	Command   []string
	Env       []EnvVar
	Secrets   []SecretMount
	EmptyDirs []VolumeMount
}

func (c Container) clone() Container {
	return Container{
		Image:     c.Image,
		Command:   slices.Clone(c.Command),
		Env:       slices.Clone(c.Env),
		Secrets:   slices.Clone(c.Secrets),
		EmptyDirs: slices.Clone(c.EmptyDirs),
	}
}

// Op is one named step of a pipeline.
type Op struct {
	name      string
	fn        OpFunc
	bound     Kwargs
	deps      []string
	container Container

	pipeline *Pipeline
	builder  *Builder
}

// OpOption configures an op when it is created.
type OpOption func(*Op)

// WithOpName overrides the name derived from the op function.
func WithOpName(name string) OpOption {
	return func(op *Op) { op.name = name }
}

// WithArgs binds arguments at definition time. Request arguments with the
// same name take precedence when the op is invoked.
func WithArgs(args Kwargs) OpOption {
	return func(op *Op) { op.bound = op.bound.Merge(args) }
}

// WithContainer sets the container the op runs in when deployed.
func WithContainer(c Container) OpOption {
	return func(op *Op) { op.container = c.clone() }
}

// NewOp wraps fn as an op that is not yet part of any pipeline.
// Invoking it before it is bound fails with UNBOUND_OP.
func NewOp(fn OpFunc, opts ...OpOption) *Op {
	op := &Op{name: funcName(fn), fn: fn, bound: Kwargs{}}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// Name returns the task name of the op.
func (op *Op) Name() string { return op.name }

// Pipeline returns the pipeline the op belongs to, or nil.
func (op *Op) Pipeline() *Pipeline { return op.pipeline }

// Dependencies returns the names of the ops that must complete first.
func (op *Op) Dependencies() []string { return slices.Clone(op.deps) }

// Container returns a copy of the op's container spec.
func (op *Op) Container() Container { return op.container.clone() }

// BoundArgs returns a copy of the arguments bound at definition time.
func (op *Op) BoundArgs() Kwargs { return Kwargs{}.Merge(op.bound) }

// Invoke runs the op with the given named arguments merged over its bound ones.
func (op *Op) Invoke(ctx context.Context, args Kwargs) (any, error) {
	if op.pipeline == nil {
		return nil, errors.UnboundOp(op.name)
	}
	return op.fn(ctx, op.bound.Merge(args))
}

// InvokeArgs runs the op with alternating name/value pairs.
func (op *Op) InvokeArgs(ctx context.Context, kv ...any) (any, error) {
	args, err := ParseKwargs(kv...)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithDetail("op", op.name)
		}
		return nil, err
	}
	return op.Invoke(ctx, args)
}

// After declares that op runs only once every dep has completed.
// Misuse is recorded on the owning builder and reported when the
// definition finishes.
func (op *Op) After(deps ...*Op) *Op {
	if !op.mutable() {
		return op
	}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		if !slices.Contains(op.deps, dep.name) {
			op.deps = append(op.deps, dep.name)
		}
	}
	return op
}

// WithEnv sets an environment variable, replacing any earlier value.
func (op *Op) WithEnv(name, value string) *Op {
	if !op.mutable() {
		return op
	}
	for i := range op.container.Env {
		if op.container.Env[i].Name == name {
			op.container.Env[i].Value = value
			return op
		}
	}
	op.container.Env = append(op.container.Env, EnvVar{Name: name, Value: value})
	return op
}

// WithSecret mounts secret at mountPath as a volume called name.
func (op *Op) WithSecret(name, secret, mountPath string) *Op {
	if !op.mutable() {
		return op
	}
	op.container.Secrets = append(op.container.Secrets, SecretMount{Name: name, Secret: secret, MountPath: mountPath})
	return op
}

// WithEmptyDir mounts a scratch volume at mountPath.
func (op *Op) WithEmptyDir(name, mountPath string) *Op {
	if !op.mutable() {
		return op
	}
	op.container.EmptyDirs = append(op.container.EmptyDirs, VolumeMount{Name: name, MountPath: mountPath})
	return op
}

// WithImage overrides the container image.
func (op *Op) WithImage(image string) *Op {
	if !op.mutable() {
		return op
	}
	op.container.Image = image
	return op
}

// mutable reports whether the op may still change. Once the owning builder
// is frozen every change is rejected and recorded as PIPELINE_FROZEN.
func (op *Op) mutable() bool {
	if op.builder == nil {
		return true
	}
	return op.builder.checkMutable()
}

func (op *Op) bind(p *Pipeline) error {
	if op.pipeline != nil && op.pipeline != p {
		return errors.InvalidInput("op", "op "+op.name+" already belongs to pipeline "+op.pipeline.name)
	}
	op.pipeline = p
	return nil
}

// Err returns the error recorded by the pipeline definition the op belongs
// to, such as PIPELINE_FROZEN after a late After call.
func (op *Op) Err() error {
	if op.builder == nil {
		return nil
	}
	return op.builder.Err()
}
