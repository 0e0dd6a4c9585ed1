package dag

import "time"

// Node statuses.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Result holds the outcome of a graph execution.
type Result struct {
	NodeResults map[string]NodeResult
	// Order lists the nodes that ran, level by level, in insertion order within a level.
	Order    []string
	Duration time.Duration
}

// NodeResult holds the outcome of a single node execution.
type NodeResult struct {
	Name     string
	Status   string // "completed" | "skipped" | "failed"
	Duration time.Duration
	Output   any
	Error    error
}

// Failed returns the first failed node in Order.
func (r *Result) Failed() (NodeResult, bool) {
	for _, name := range r.Order {
		if nr := r.NodeResults[name]; nr.Status == StatusFailed {
			return nr, true
		}
	}
	return NodeResult{}, false
}
