package pipeline

import (
	"sync"

	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/validation"
)

// Builder records the ops of one pipeline while its definition function runs.
// It is frozen as soon as the definition returns.
type Builder struct {
	name string
	ctx  *BuildContext

	mu     sync.Mutex
	ops    []*Op
	byName map[string]*Op
	err    error
	frozen bool
}

func newBuilder(name string, bc *BuildContext) *Builder {
	return &Builder{
		name:   name,
		ctx:    bc,
		byName: make(map[string]*Op),
	}
}

// Name returns the name of the pipeline being defined.
func (b *Builder) Name() string { return b.name }

// Add creates an op from fn and adds it to the pipeline. Configurators of the
// build context are applied before the op joins.
func (b *Builder) Add(fn OpFunc, opts ...OpOption) (*Op, error) {
	op := NewOp(fn, opts...)
	if err := checkOpName(op); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.frozen {
		b.mu.Unlock()
		return nil, errors.PipelineFrozen(b.name)
	}
	if _, ok := b.byName[op.name]; ok {
		b.mu.Unlock()
		return nil, errors.DuplicateOp(b.name, op.name)
	}
	b.mu.Unlock()

	op, err := b.ctx.apply(op)
	if err != nil {
		return nil, err
	}
	// A configurator may hand back a different op.
	if err := checkOpName(op); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byName[op.name]; ok {
		return nil, errors.DuplicateOp(b.name, op.name)
	}
	op.builder = b
	b.ops = append(b.ops, op)
	b.byName[op.name] = op
	return op, nil
}

func checkOpName(op *Op) error {
	if op.name == "" {
		return errors.InvalidInput("op", "op name could not be derived, use WithOpName")
	}
	if verr := validation.New().Name("op", op.name).Validate(); verr != nil {
		return verr
	}
	return nil
}

// Op is Add for use inside definition functions: the first error is kept
// and reported once the definition returns, and a detached op is returned
// so that calls can be chained.
func (b *Builder) Op(fn OpFunc, opts ...OpOption) *Op {
	op, err := b.Add(fn, opts...)
	if err != nil {
		b.fail(err)
		return NewOp(fn, opts...)
	}
	return op
}

// Err returns the first error recorded while the definition ran.
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Builder) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) checkMutable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frozen {
		return true
	}
	if b.err == nil {
		b.err = errors.PipelineFrozen(b.name)
	}
	return false
}

func (b *Builder) freeze() []*Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
	return b.ops
}
