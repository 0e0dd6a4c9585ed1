package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/hypermodel/dag"
)

// RunLog records what happened during one execution request.
// It is never shared between requests and never persisted.
type RunLog struct {
	id       string
	pipeline string
	started  time.Time

	mu        sync.Mutex
	completed map[string]bool
	order     []string
	failed    string
	failErr   error
	visiting  []string

	state *dag.State
}

// NewRunLog creates an empty run log for one request against pipeline.
func NewRunLog(pipeline string) *RunLog {
	return &RunLog{
		id:        uuid.NewString(),
		pipeline:  pipeline,
		started:   time.Now(),
		completed: make(map[string]bool),
		state:     dag.NewState(),
	}
}

// ID returns the request id.
func (l *RunLog) ID() string { return l.id }

// Pipeline returns the name of the pipeline the log belongs to.
func (l *RunLog) Pipeline() string { return l.pipeline }

// Started returns when the log was created.
func (l *RunLog) Started() time.Time { return l.started }

// Completed reports whether task completed during this request.
func (l *RunLog) Completed(task string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed[task]
}

// Order returns the completed tasks in completion order.
func (l *RunLog) Order() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.order)
}

// Failed returns the task whose op failed, if any.
func (l *RunLog) Failed() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed, l.failed != ""
}

// Err returns the error of the failed task.
func (l *RunLog) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failErr
}

// Output returns the value returned by a completed task's op.
func (l *RunLog) Output(task string) (any, bool) {
	return l.state.Get(task)
}

// Output reads a completed task's result as T.
func Output[T any](l *RunLog, task string) (T, error) {
	return dag.Read(l.state, dag.Port[T]{Key: task})
}

func (l *RunLog) markCompleted(task string, output any) {
	l.state.Set(task, output)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.completed[task] {
		return
	}
	l.completed[task] = true
	l.order = append(l.order, task)
}

func (l *RunLog) markFailed(task string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed == "" {
		l.failed = task
		l.failErr = err
	}
}

// enter pushes task on the visiting stack. It returns the cycle path when
// task is already being resolved.
func (l *RunLog) enter(task string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.Index(l.visiting, task); i >= 0 {
		return append(slices.Clone(l.visiting[i:]), task)
	}
	l.visiting = append(l.visiting, task)
	return nil
}

func (l *RunLog) leave() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visiting = l.visiting[:len(l.visiting)-1]
}
