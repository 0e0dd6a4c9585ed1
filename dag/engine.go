package dag

import (
	"context"
	"sync"
	"time"
)

// Engine executes a graph in dependency order.
type Engine struct {
	// MaxParallel limits concurrent nodes per level (0 = unlimited).
	MaxParallel int
}

// NodeFilter returns true if a node should execute in this run.
type NodeFilter func(nodeName string, state *State) bool

// Execute runs every node in dependency order.
func (e *Engine) Execute(ctx context.Context, g *Graph, state *State) (*Result, error) {
	return e.execute(ctx, g, state, nil)
}

// ExecuteFiltered runs only nodes that pass the filter.
// Nodes that don't pass are marked as "skipped" and count as done for
// their dependents.
func (e *Engine) ExecuteFiltered(ctx context.Context, g *Graph, state *State, filter NodeFilter) (*Result, error) {
	return e.execute(ctx, g, state, filter)
}

// execute stops after the first level that has a failure. The error of the
// first failed node in that level is returned as is.
func (e *Engine) execute(ctx context.Context, g *Graph, state *State, filter NodeFilter) (*Result, error) {
	start := time.Now()

	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}
	for _, name := range g.order {
		if _, ok := g.nodes[name]; !ok {
			return nil, &GraphError{Kind: ErrMissingNode, Node: name}
		}
	}

	result := &Result{
		NodeResults: make(map[string]NodeResult),
	}

	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		// Determine which nodes to run in this level
		var toRun []string
		for _, name := range level {
			if filter != nil && !filter(name, state) {
				result.NodeResults[name] = NodeResult{
					Name:   name,
					Status: StatusSkipped,
				}
				continue
			}
			toRun = append(toRun, name)
		}

		if len(toRun) == 0 {
			continue
		}

		e.executeLevel(ctx, g, state, toRun, result)
		result.Order = append(result.Order, toRun...)

		for _, name := range toRun {
			if nr := result.NodeResults[name]; nr.Status == StatusFailed {
				result.Duration = time.Since(start)
				return result, nr.Error
			}
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) executeLevel(ctx context.Context, g *Graph, state *State, names []string, result *Result) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, e.concurrency(len(names)))

	for _, name := range names {
		wg.Add(1)
		go func(nodeName string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			nr := e.executeNode(ctx, g.nodes[nodeName], state)
			mu.Lock()
			result.NodeResults[nodeName] = nr
			mu.Unlock()
		}(name)
	}

	wg.Wait()
}

func (e *Engine) executeNode(ctx context.Context, node Node, state *State) NodeResult {
	start := time.Now()
	output, err := node.Run(ctx, state)
	duration := time.Since(start)

	if err != nil {
		return NodeResult{
			Name:     node.Name(),
			Status:   StatusFailed,
			Duration: duration,
			Error:    err,
		}
	}

	return NodeResult{
		Name:     node.Name(),
		Status:   StatusCompleted,
		Duration: duration,
		Output:   output,
	}
}

func (e *Engine) concurrency(levelSize int) int {
	if e.MaxParallel <= 0 || e.MaxParallel > levelSize {
		return levelSize
	}
	return e.MaxParallel
}
