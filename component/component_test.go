package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	"github.com/kbukum/hypermodel/errors"
)

// fakeComponent implements Component for testing.
type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Start(ctx context.Context) error {
	if f.events != nil {
		*f.events = append(*f.events, "start:"+f.name)
	}
	return f.startErr
}
func (f *fakeComponent) Stop(ctx context.Context) error {
	if f.events != nil {
		*f.events = append(*f.events, "stop:"+f.name)
	}
	return f.stopErr
}
func (f *fakeComponent) Health(ctx context.Context) Health { return f.health }

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeComponent{name: "inference"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got := r.Get("inference"); got == nil || got.Name() != "inference" {
		t.Errorf("expected registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}

	err := r.Register(&fakeComponent{name: "inference"})
	if !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS for duplicate, got %v", err)
	}
}

func TestLifecycleOrder(t *testing.T) {
	var events []string
	r := NewRegistry()
	for _, name := range []string{"telemetry", "models", "inference"} {
		_ = r.Register(&fakeComponent{name: name, events: &events})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	// A second StartAll must not restart anything.
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	want := []string{
		"start:telemetry", "start:models", "start:inference",
		"stop:inference", "stop:models", "stop:telemetry",
	}
	if !slices.Equal(events, want) {
		t.Errorf("expected %v, got %v", want, events)
	}
	if names := r.All(); len(names) != 3 || names[0].Name() != "telemetry" {
		t.Errorf("unexpected All() %v", names)
	}
}

func TestStartAllStopsAtFailure(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "telemetry", events: &events})
	_ = r.Register(&fakeComponent{name: "inference", events: &events, startErr: fmt.Errorf("address in use")})
	_ = r.Register(&fakeComponent{name: "never", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected error from StartAll")
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	want := []string{"start:telemetry", "start:inference", "stop:telemetry"}
	if !slices.Equal(events, want) {
		t.Errorf("only started components are stopped: want %v, got %v", want, events)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	first := fmt.Errorf("flush failed")
	second := fmt.Errorf("close failed")
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "a", stopErr: first})
	_ = r.Register(&fakeComponent{name: "b", stopErr: second})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !stderrors.Is(err, first) || !stderrors.Is(err, second) {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "inference", health: Health{Name: "inference", Status: StatusHealthy}})
	_ = r.Register(&fakeComponent{name: "telemetry", health: Health{Name: "telemetry", Status: StatusUnhealthy, Message: "exporter down"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy || results[1].Status != StatusUnhealthy {
		t.Errorf("unexpected health %v", results)
	}
}

func TestLazyLoadsOnce(t *testing.T) {
	loads := 0
	l := NewLazy("titanic-model", func(ctx context.Context) (string, error) {
		loads++
		return "xgb", nil
	})

	if l.Loaded() {
		t.Error("expected not loaded before Get")
	}
	if h := l.Health(context.Background()); h.Status != StatusDegraded {
		t.Errorf("expected degraded before load, got %s", h.Status)
	}
	for i := 0; i < 2; i++ {
		v, err := l.Get(context.Background())
		if err != nil || v != "xgb" {
			t.Fatalf("Get = %q, %v", v, err)
		}
	}
	if loads != 1 {
		t.Errorf("expected one load, got %d", loads)
	}
	if h := l.Health(context.Background()); h.Status != StatusHealthy {
		t.Errorf("expected healthy after load, got %s", h.Status)
	}
}

func TestLazyRetriesFailedLoad(t *testing.T) {
	attempts := 0
	l := NewLazy("model", func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, fmt.Errorf("bucket unavailable")
		}
		return 7, nil
	})

	if _, err := l.Get(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if h := l.Health(context.Background()); h.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy after failed load, got %s", h.Status)
	}
	if v, err := l.Get(context.Background()); err != nil || v != 7 {
		t.Errorf("expected retry to succeed, got %d, %v", v, err)
	}
}

func TestLazyClose(t *testing.T) {
	var closed []string
	l := NewLazy("model", func(ctx context.Context) (string, error) {
		return "weights", nil
	}).WithCloser(func(v string) error {
		closed = append(closed, v)
		return nil
	})

	if err := l.Close(); err != nil || len(closed) != 0 {
		t.Fatalf("closing an unloaded value must be a no-op, got %v %v", err, closed)
	}
	_, _ = l.Get(context.Background())
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !slices.Equal(closed, []string{"weights"}) || l.Loaded() {
		t.Errorf("expected value released, closed=%v loaded=%v", closed, l.Loaded())
	}
}
