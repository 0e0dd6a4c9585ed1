package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateNode = errors.New("duplicate node")
	ErrUnknownNode   = errors.New("unknown node")
	ErrMissingNode   = errors.New("node has no implementation")
	ErrCycle         = errors.New("cycle detected")
)

// GraphError describes a structural problem in a Graph.
type GraphError struct {
	Kind error
	// Node is the node the problem was found on.
	Node string
	// Dependency is set for ErrUnknownNode: the missing dependency of Node.
	Dependency string
	// Path is set for ErrCycle: the cycle, first and last element equal.
	Path []string
}

func (e *GraphError) Error() string {
	switch {
	case len(e.Path) > 0:
		return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(e.Path, " -> "))
	case e.Dependency != "":
		return fmt.Sprintf("%s: %q depends on %q", e.Kind.Error(), e.Node, e.Dependency)
	case e.Node != "":
		return fmt.Sprintf("%s: %q", e.Kind.Error(), e.Node)
	default:
		return e.Kind.Error()
	}
}

func (e *GraphError) Unwrap() error { return e.Kind }
