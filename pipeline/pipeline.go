package pipeline

import (
	"slices"

	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
	"github.com/kbukum/hypermodel/workflow"
)

// Pipeline is a frozen, named graph of ops.
type Pipeline struct {
	name       string
	cron       string
	experiment string

	ops       []*Op
	opsByName map[string]*Op
	tasks     []workflow.Task
	taskMap   map[string][]string
	workflow  *workflow.Workflow

	log     *logger.Logger
	metrics *observability.Metrics
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Cron returns the schedule used when the pipeline is deployed, if any.
func (p *Pipeline) Cron() string { return p.cron }

// Experiment returns the grouping label used when the pipeline is deployed, if any.
func (p *Pipeline) Experiment() string { return p.experiment }

// Ops returns the ops in the order they were added.
func (p *Pipeline) Ops() []*Op { return slices.Clone(p.ops) }

// Op looks an op up by task name.
func (p *Pipeline) Op(name string) (*Op, bool) {
	op, ok := p.opsByName[name]
	return op, ok
}

// Tasks returns the task list extracted from the compiled workflow, in
// declaration order.
func (p *Pipeline) Tasks() []workflow.Task {
	out := make([]workflow.Task, len(p.tasks))
	for i, t := range p.tasks {
		out[i] = workflow.Task{Name: t.Name, Dependencies: slices.Clone(t.Dependencies)}
	}
	return out
}

// Dependencies returns the declared dependencies of a task.
func (p *Pipeline) Dependencies(task string) ([]string, bool) {
	deps, ok := p.taskMap[task]
	return slices.Clone(deps), ok
}

// Workflow returns the compiled workflow document. Callers must not modify it.
func (p *Pipeline) Workflow() *workflow.Workflow { return p.workflow }
