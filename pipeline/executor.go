package pipeline

import (
	"context"

	"github.com/kbukum/hypermodel/dag"
	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
)

// RunTask runs task after its dependencies, recording completions in log.
// A task already completed in log is not run again. The error of a failing
// op is returned unchanged and the task is recorded as failed.
func (p *Pipeline) RunTask(ctx context.Context, task string, log *RunLog, args Kwargs) error {
	if log == nil {
		return errors.InvalidInput("run_log", "a run log is required")
	}
	if log.pipeline != p.name {
		return errors.InvalidInput("run_log", "run log belongs to pipeline "+log.pipeline)
	}
	ctx, rc, owned := p.runContext(ctx, log)
	err := p.runTask(ctx, task, log, args)
	if owned {
		rc.Finish(ctx, err)
	}
	return err
}

// RunAll runs every task of the pipeline in declaration order on a fresh
// RunLog. Shared dependencies run once.
func (p *Pipeline) RunAll(ctx context.Context, args Kwargs) (*RunLog, error) {
	log := NewRunLog(p.name)
	ctx, rc, owned := p.runContext(ctx, log)

	p.log.WithContext(ctx).Info("pipeline run started", logger.Fields("tasks", len(p.tasks)))
	var err error
	for _, t := range p.tasks {
		if err = p.runTask(ctx, t.Name, log, args); err != nil {
			break
		}
	}
	p.finishRun(ctx, log, rc, owned, err)
	return log, err
}

// RunAllParallel runs the pipeline level by level, running the tasks of a
// level concurrently with at most maxParallel at a time (0 means no limit).
// A task still starts only after all of its dependencies completed.
func (p *Pipeline) RunAllParallel(ctx context.Context, args Kwargs, maxParallel int) (*RunLog, error) {
	log := NewRunLog(p.name)
	ctx, rc, owned := p.runContext(ctx, log)

	g := dag.New()
	for _, t := range p.tasks {
		op, ok := p.opsByName[t.Name]
		if !ok {
			err := errors.UnboundTask(p.name, t.Name)
			p.finishRun(ctx, log, rc, owned, err)
			return log, err
		}
		if err := g.AddNode(p.node(op, log, args), t.Dependencies...); err != nil {
			p.finishRun(ctx, log, rc, owned, err)
			return log, err
		}
	}

	p.log.WithContext(ctx).Info("pipeline run started", logger.Fields("tasks", len(p.tasks), "max_parallel", maxParallel))
	engine := &dag.Engine{MaxParallel: maxParallel}
	_, err := engine.ExecuteFiltered(ctx, g, log.state, func(name string, _ *dag.State) bool {
		return !log.Completed(name)
	})
	p.finishRun(ctx, log, rc, owned, err)
	return log, err
}

func (p *Pipeline) runTask(ctx context.Context, task string, log *RunLog, args Kwargs) error {
	deps, ok := p.taskMap[task]
	if !ok {
		return errors.UnknownTask(p.name, task)
	}
	op, ok := p.opsByName[task]
	if !ok {
		return errors.UnboundTask(p.name, task)
	}
	if log.Completed(task) {
		return nil
	}
	if path := log.enter(task); path != nil {
		return errors.CyclicDependency(p.name, path)
	}
	defer log.leave()

	for _, dep := range deps {
		if err := p.runTask(ctx, dep, log, args); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.node(op, log, args).Run(ctx, log.state)
	return err
}

// node wraps op as a traced and logged dag node that records its outcome in log.
func (p *Pipeline) node(op *Op, log *RunLog, args Kwargs) dag.Node {
	inner := dag.Func(op.name, func(ctx context.Context, _ *dag.State) (any, error) {
		out, err := op.Invoke(ctx, args)
		if err != nil {
			log.markFailed(op.name, err)
			return nil, err
		}
		log.markCompleted(op.name, out)
		return out, nil
	})
	return dag.WithLogging(dag.WithTracing(inner), p.log)
}

// runContext attaches the observability context of this request unless the
// caller already did. owned reports whether it was created here.
func (p *Pipeline) runContext(ctx context.Context, log *RunLog) (context.Context, *observability.RunContext, bool) {
	if rc := observability.RunContextFromContext(ctx); rc != nil {
		return ctx, rc, false
	}
	rc := observability.NewRunContext(p.name, log.id, p.metrics)
	ctx = observability.WithRunContext(ctx, rc)
	ctx = logger.ContextWithRunID(ctx, log.id)
	return ctx, rc, true
}

func (p *Pipeline) finishRun(ctx context.Context, log *RunLog, rc *observability.RunContext, owned bool, err error) {
	if owned {
		rc.Finish(ctx, err)
	}
	fields := logger.Fields("completed", len(log.Order()), logger.FieldDuration, rc.Duration().Milliseconds())
	if err != nil {
		if task, ok := log.Failed(); ok {
			fields[logger.FieldTask] = task
		}
		fields[logger.FieldError] = err.Error()
		p.log.WithContext(ctx).Error("pipeline run failed", fields)
		return
	}
	p.log.WithContext(ctx).Info("pipeline run completed", fields)
}
