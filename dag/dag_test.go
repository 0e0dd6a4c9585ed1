package dag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/hypermodel/logger"
)

// --- test helpers ---

func noop(name string) Node {
	return Func(name, func(context.Context, *State) (any, error) { return name, nil })
}

func mustAdd(t *testing.T, g *Graph, name string, deps ...string) {
	t.Helper()
	if err := g.Add(name, deps...); err != nil {
		t.Fatalf("Add(%q): %v", name, err)
	}
}

// --- State tests ---

func TestState_GetSet(t *testing.T) {
	s := NewState()
	s.Set("key", "value")
	v, ok := s.Get("key")
	if !ok || v != "value" {
		t.Fatalf("expected 'value', got %v (ok=%v)", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected missing key")
	}
}

func TestState_Snapshot(t *testing.T) {
	s := NewState()
	s.Set("a", 1)
	snap := s.Snapshot()
	s.Set("b", 2)
	if len(snap) != 1 || snap["a"] != 1 {
		t.Fatalf("snapshot should not follow later writes: %v", snap)
	}
}

func TestPort_ReadWrite(t *testing.T) {
	s := NewState()
	port := Port[int]{Key: "count"}
	Write(s, port, 42)

	val, err := Read(s, port)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Fatalf("expected 42, got %d", val)
	}

	if _, err := Read(s, Port[int]{Key: "missing"}); err == nil {
		t.Fatal("expected error for missing key")
	}

	s.Set("str", "not-an-int")
	if _, err := Read(s, Port[int]{Key: "str"}); err == nil {
		t.Fatal("expected error for type mismatch")
	}
}

// --- Graph tests ---

func TestGraph_AddDuplicate(t *testing.T) {
	g := New()
	mustAdd(t, g, "a")
	err := g.Add("a")
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestGraph_Order(t *testing.T) {
	g := New()
	mustAdd(t, g, "c")
	mustAdd(t, g, "a", "c")
	mustAdd(t, g, "b", "c", "a", "c")

	if got := g.Names(); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("unexpected names %v", got)
	}
	if got := g.Dependencies("b"); !slices.Equal(got, []string{"c", "a"}) {
		t.Errorf("duplicate edges should collapse, got %v", got)
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Len())
	}
}

func TestGraph_Bind(t *testing.T) {
	g := New()
	mustAdd(t, g, "a")
	if err := g.Bind(noop("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.Node("a"); !ok {
		t.Fatal("expected node to be bound")
	}
	if err := g.Bind(noop("b")); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestGraph_ValidateUnknownDependency(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "ghost")

	err := g.Validate()
	var ge *GraphError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GraphError, got %v", err)
	}
	if ge.Kind != ErrUnknownNode || ge.Node != "a" || ge.Dependency != "ghost" {
		t.Fatalf("unexpected error %+v", ge)
	}
}

func TestGraph_FindCycle(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *Graph)
		want  []string
	}{
		{
			name: "acyclic",
			build: func(g *Graph) {
				_ = g.Add("a")
				_ = g.Add("b", "a")
			},
			want: nil,
		},
		{
			name: "two node cycle",
			build: func(g *Graph) {
				_ = g.Add("a", "b")
				_ = g.Add("b", "a")
			},
			want: []string{"a", "b", "a"},
		},
		{
			name: "self loop",
			build: func(g *Graph) {
				_ = g.Add("a", "a")
			},
			want: []string{"a", "a"},
		},
		{
			name: "cycle behind a prefix",
			build: func(g *Graph) {
				_ = g.Add("root", "x")
				_ = g.Add("x", "y")
				_ = g.Add("y", "z")
				_ = g.Add("z", "x")
			},
			want: []string{"x", "y", "z", "x"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			tc.build(g)
			if got := g.FindCycle(); !slices.Equal(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGraph_ValidateCycle(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "b")
	mustAdd(t, g, "b", "a")

	err := g.Validate()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("expected path in message, got %q", err.Error())
	}
}

// --- BuildLevels tests ---

func TestBuildLevels_Linear(t *testing.T) {
	g := New()
	mustAdd(t, g, "a")
	mustAdd(t, g, "b", "a")
	mustAdd(t, g, "c", "b")

	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if levels[0][0] != "a" || levels[1][0] != "b" || levels[2][0] != "c" {
		t.Fatalf("unexpected level order: %v", levels)
	}
}

func TestBuildLevels_Diamond(t *testing.T) {
	g := New()
	mustAdd(t, g, "a")
	mustAdd(t, g, "c", "a")
	mustAdd(t, g, "b", "a")
	mustAdd(t, g, "d", "b", "c")

	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"a"}, {"c", "b"}, {"d"}}
	if len(levels) != len(want) {
		t.Fatalf("expected %v, got %v", want, levels)
	}
	for i := range want {
		if !slices.Equal(levels[i], want[i]) {
			t.Fatalf("level %d: expected %v, got %v", i, want[i], levels[i])
		}
	}
}

func TestBuildLevels_Errors(t *testing.T) {
	cyclic := New()
	_ = cyclic.Add("a", "b")
	_ = cyclic.Add("b", "a")
	if _, err := BuildLevels(cyclic); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}

	dangling := New()
	_ = dangling.Add("a", "unknown")
	if _, err := BuildLevels(dangling); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected unknown node error, got %v", err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := New()
	mustAdd(t, g, "train-model", "create-training", "create-test")
	mustAdd(t, g, "create-training")
	mustAdd(t, g, "create-test")

	order, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"create-training", "create-test", "train-model"}
	if !slices.Equal(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

// --- Engine tests ---

func TestEngine_Execute(t *testing.T) {
	outPort := Port[string]{Key: "output"}
	g := New()
	_ = g.AddNode(Func("a", func(_ context.Context, s *State) (any, error) {
		s.Set("a_done", true)
		return "a-result", nil
	}))
	_ = g.AddNode(Func("b", func(_ context.Context, s *State) (any, error) {
		if _, ok := s.Get("a_done"); !ok {
			return nil, fmt.Errorf("a should have run first")
		}
		Write(s, outPort, "final")
		return "b-result", nil
	}), "a")

	engine := &Engine{}
	state := NewState()
	result, err := engine.Execute(context.Background(), g, state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NodeResults["a"].Status != StatusCompleted || result.NodeResults["b"].Status != StatusCompleted {
		t.Fatalf("expected both completed, got %+v", result.NodeResults)
	}
	if !slices.Equal(result.Order, []string{"a", "b"}) {
		t.Errorf("unexpected order %v", result.Order)
	}
	if out, _ := Read(state, outPort); out != "final" {
		t.Errorf("expected 'final', got %q", out)
	}
}

func TestEngine_ParallelLevel(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(name string) Node {
		return Func(name, func(context.Context, *State) (any, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		})
	}

	g := New()
	for _, name := range []string{"a", "b", "c"} {
		_ = g.AddNode(slow(name))
	}

	engine := &Engine{MaxParallel: 2}
	if _, err := engine.Execute(context.Background(), g, NewState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent nodes, saw %d", peak.Load())
	}
}

func TestEngine_FailureStopsLaterLevels(t *testing.T) {
	boom := errors.New("boom")
	var ranC atomic.Bool

	g := New()
	_ = g.AddNode(noop("a"))
	_ = g.AddNode(Func("b", func(context.Context, *State) (any, error) { return nil, boom }), "a")
	_ = g.AddNode(Func("c", func(context.Context, *State) (any, error) {
		ranC.Store(true)
		return nil, nil
	}), "b")

	result, err := (&Engine{}).Execute(context.Background(), g, NewState())
	if !errors.Is(err, boom) {
		t.Fatalf("expected node error returned as is, got %v", err)
	}
	if ranC.Load() {
		t.Error("dependent of a failed node must not run")
	}
	failed, ok := result.Failed()
	if !ok || failed.Name != "b" {
		t.Errorf("expected b to be reported failed, got %+v", failed)
	}
}

func TestEngine_Filter(t *testing.T) {
	var calls atomic.Int32
	counted := func(name string) Node {
		return Func(name, func(context.Context, *State) (any, error) {
			calls.Add(1)
			return nil, nil
		})
	}

	g := New()
	_ = g.AddNode(counted("a"))
	_ = g.AddNode(counted("b"), "a")

	skipA := func(name string, _ *State) bool { return name != "a" }
	result, err := (&Engine{}).ExecuteFiltered(context.Background(), g, NewState(), skipA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NodeResults["a"].Status != StatusSkipped {
		t.Errorf("expected a skipped, got %s", result.NodeResults["a"].Status)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestEngine_MissingNode(t *testing.T) {
	g := New()
	mustAdd(t, g, "declared-only")

	_, err := (&Engine{}).Execute(context.Background(), g, NewState())
	if !errors.Is(err, ErrMissingNode) {
		t.Fatalf("expected ErrMissingNode, got %v", err)
	}
}

func TestEngine_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New()
	_ = g.AddNode(Func("a", func(context.Context, *State) (any, error) {
		cancel()
		return nil, nil
	}))
	_ = g.AddNode(noop("b"), "a")

	result, err := (&Engine{}).Execute(ctx, g, NewState())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ran := result.NodeResults["b"]; ran {
		t.Error("b must not start after cancellation")
	}
}

// --- decorator tests ---

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	node := WithLogging(Func("train-model", func(context.Context, *State) (any, error) {
		return nil, errors.New("out of memory")
	}), log)

	if node.Name() != "train-model" {
		t.Errorf("decorator must keep the name, got %q", node.Name())
	}
	_, _ = node.Run(context.Background(), NewState())

	out := buf.String()
	if !strings.Contains(out, `"task":"train-model"`) || !strings.Contains(out, "out of memory") {
		t.Errorf("expected task and error in log output, got %s", out)
	}
}

func TestWithTracing_NoRunContext(t *testing.T) {
	node := WithTracing(noop("a"))
	out, err := node.Run(context.Background(), NewState())
	if err != nil || out != "a" {
		t.Fatalf("expected passthrough, got %v, %v", out, err)
	}
}
