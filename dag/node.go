package dag

import "context"

// Node is the execution unit in a DAG.
type Node interface {
	Name() string
	Run(ctx context.Context, state *State) (any, error)
}

// RunFunc is the body of a function-backed node.
type RunFunc func(ctx context.Context, state *State) (any, error)

// Func adapts a function into a Node.
func Func(name string, fn RunFunc) Node {
	return &funcNode{name: name, fn: fn}
}

type funcNode struct {
	name string
	fn   RunFunc
}

func (n *funcNode) Name() string { return n.name }

func (n *funcNode) Run(ctx context.Context, state *State) (any, error) {
	return n.fn(ctx, state)
}
