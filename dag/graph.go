package dag

import "slices"

// Graph declares nodes and their dependencies.
// Every listing it returns follows insertion order.
type Graph struct {
	order []string
	index map[string]int
	nodes map[string]Node
	deps  map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
		nodes: make(map[string]Node),
		deps:  make(map[string][]string),
	}
}

// Add declares a node by name with its dependencies. Dependencies may name
// nodes that are added later; Validate reports the ones never added.
func (g *Graph) Add(name string, deps ...string) error {
	if _, exists := g.index[name]; exists {
		return &GraphError{Kind: ErrDuplicateNode, Node: name}
	}
	g.index[name] = len(g.order)
	g.order = append(g.order, name)
	for _, dep := range deps {
		g.AddEdge(dep, name)
	}
	return nil
}

// AddNode declares a node with its implementation.
func (g *Graph) AddNode(n Node, deps ...string) error {
	if err := g.Add(n.Name(), deps...); err != nil {
		return err
	}
	g.nodes[n.Name()] = n
	return nil
}

// Bind attaches an implementation to an already declared node.
func (g *Graph) Bind(n Node) error {
	if _, ok := g.index[n.Name()]; !ok {
		return &GraphError{Kind: ErrUnknownNode, Node: n.Name()}
	}
	g.nodes[n.Name()] = n
	return nil
}

// AddEdge records that to depends on from. Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	if slices.Contains(g.deps[to], from) {
		return
	}
	g.deps[to] = append(g.deps[to], from)
}

// Has reports whether name was declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Node returns the implementation bound to name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns the declared node names.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// Dependencies returns the dependencies of name in declaration order.
func (g *Graph) Dependencies(name string) []string {
	return slices.Clone(g.deps[name])
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int { return len(g.order) }

// Validate reports the first dependency on an undeclared node, then the
// first cycle, in insertion order.
func (g *Graph) Validate() error {
	for _, name := range g.order {
		for _, dep := range g.deps[name] {
			if !g.Has(dep) {
				return &GraphError{Kind: ErrUnknownNode, Node: name, Dependency: dep}
			}
		}
	}
	if path := g.FindCycle(); path != nil {
		return &GraphError{Kind: ErrCycle, Node: path[0], Path: path}
	}
	return nil
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Nodes within the same level can execute in parallel and are listed in
// insertion order. Returns an error if the graph is invalid.
func BuildLevels(g *Graph) ([][]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string) // from -> [to...]
	for _, name := range g.order {
		inDegree[name] = len(g.deps[name])
		for _, dep := range g.deps[name] {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	// Collect nodes with no incoming edges (level 0)
	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	for len(queue) > 0 {
		levels = append(levels, queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.SortFunc(next, func(a, b string) int { return g.index[a] - g.index[b] })
		queue = next
	}

	return levels, nil
}

// TopologicalOrder flattens BuildLevels into one order.
func TopologicalOrder(g *Graph) ([]string, error) {
	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, g.Len())
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// FindCycle returns one cycle as a path whose first and last element are
// the same node, following dependency edges, or nil if the graph is acyclic.
// The search is a DFS in insertion order, so the witness is stable.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range g.deps[u] {
			if !g.Has(v) {
				continue
			}
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				start := slices.Index(stack, v)
				cycle = append(slices.Clone(stack[start:]), v)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}

	for _, name := range g.order {
		if color[name] == white && dfs(name) {
			return cycle
		}
	}
	return nil
}
