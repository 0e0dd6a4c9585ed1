package dag

import (
	"context"
	"time"

	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
)

// WithTracing wraps a Node so each run is traced as a task of the
// observability.RunContext carried by ctx. Without one the node runs untraced.
func WithTracing(node Node) Node {
	return &tracingNode{inner: node}
}

type tracingNode struct {
	inner Node
}

func (n *tracingNode) Name() string { return n.inner.Name() }

func (n *tracingNode) Run(ctx context.Context, state *State) (any, error) {
	rc := observability.RunContextFromContext(ctx)
	if rc == nil {
		return n.inner.Run(ctx, state)
	}

	ctx, span := rc.StartTask(ctx, n.inner.Name())
	result, err := n.inner.Run(ctx, state)
	rc.EndTask(ctx, span, err)

	return result, err
}

// WithLogging wraps a Node with execution logging.
// Logs: node name, duration, and success/error status.
func WithLogging(node Node, log *logger.Logger) Node {
	return &loggingNode{inner: node, log: log}
}

type loggingNode struct {
	inner Node
	log   *logger.Logger
}

func (n *loggingNode) Name() string { return n.inner.Name() }

func (n *loggingNode) Run(ctx context.Context, state *State) (any, error) {
	log := n.log.WithContext(ctx)
	log.Debug("task started", map[string]interface{}{logger.FieldTask: n.inner.Name()})

	start := time.Now()
	result, err := n.inner.Run(ctx, state)
	duration := time.Since(start)

	fields := map[string]interface{}{
		logger.FieldTask:     n.inner.Name(),
		logger.FieldDuration: duration.Milliseconds(),
	}

	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Error("task failed", fields)
	} else {
		log.Info("task completed", fields)
	}

	return result, err
}
