package pipeline

import (
	"slices"
	"sync"

	"github.com/kbukum/hypermodel/errors"
)

// OpConfigurator transforms an op as it joins a pipeline. It may mutate the
// op or return a replacement, but must not return nil.
type OpConfigurator func(op *Op) *Op

// BuildContext carries the configuration shared by every pipeline of an App.
// It is passed explicitly to NewApp instead of living in package state.
type BuildContext struct {
	mu            sync.RWMutex
	configurators []OpConfigurator
}

// NewBuildContext creates an empty build context.
func NewBuildContext() *BuildContext {
	return &BuildContext{}
}

// ConfigureOp appends fn to the configurators. Only ops that join a pipeline
// after this call are affected.
func (bc *BuildContext) ConfigureOp(fn OpConfigurator) {
	if fn == nil {
		return
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.configurators = append(bc.configurators, fn)
}

// Configurators returns a snapshot of the configurators in registration order.
func (bc *BuildContext) Configurators() []OpConfigurator {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return slices.Clone(bc.configurators)
}

// apply runs every configurator over op in registration order.
func (bc *BuildContext) apply(op *Op) (*Op, error) {
	name := op.name
	for i, fn := range bc.Configurators() {
		op = fn(op)
		if op == nil {
			return nil, errors.InvalidInput("configurator", "configurator returned no op").
				WithDetail("op", name).
				WithDetail("index", i)
		}
	}
	return op, nil
}
