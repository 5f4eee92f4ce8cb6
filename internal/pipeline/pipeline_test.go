package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/nao1215/liststat/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *model.Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *model.Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("new pipeline is empty", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if len(p.StepNames()) != 0 {
			t.Errorf("expected no names, got %v", p.StepNames())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		names := p.StepNames()
		want := []string{"first", "second", "third"}
		if len(names) != len(want) {
			t.Fatalf("expected %d names, got %v", len(want), names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("step %d: expected %q, got %q", i, want[i], names[i])
			}
		}
	})
}

// TestPipelineExecute tests step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(_ context.Context, _ *model.Run) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(step("index"), step("months"))

		run := model.NewRun("testlist")
		if err := p.Execute(t.Context(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 2 || order[0] != "index" || order[1] != "months" {
			t.Errorf("unexpected order %v", order)
		}
		if len(run.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", run.PerformedSteps)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
		if run.Failed() {
			t.Error("expected run not to be failed")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		first := &mockStep{name: "index", doFunc: func(_ context.Context, _ *model.Run) error {
			return errBoom
		}}
		second := &mockStep{name: "months"}

		p := New()
		p.AddSteps(first, second)

		run := model.NewRun("testlist")
		err := p.Execute(t.Context(), run)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if !errors.Is(run.Err, errBoom) || run.ErrorMessage != "boom" {
			t.Errorf("expected error on run, got %v / %q", run.Err, run.ErrorMessage)
		}
		if len(run.PerformedSteps) != 0 {
			t.Errorf("expected no performed steps, got %v", run.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "index"}
		p := New()
		p.AddStep(step)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		run := model.NewRun("testlist")
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
		if !run.Failed() {
			t.Error("expected run to be failed")
		}
	})

	t.Run("logs with custom logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		p := New(WithLogger(logger))
		p.AddStep(&mockStep{name: "index"})

		if err := p.Execute(t.Context(), model.NewRun("testlist")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Contains(buf.Bytes(), []byte("list=testlist")) {
			t.Errorf("expected log to name the list, got %s", buf.String())
		}
	})
}

// TestPipelineClose tests resource release.
func TestPipelineClose(t *testing.T) {
	t.Parallel()

	closed := 0
	errClose := errors.New("close failed")

	p := New(
		WithResource(closerFunc(func() error { closed++; return nil })),
		WithResource(closerFunc(func() error { closed++; return errClose })),
	)

	if err := p.Close(); !errors.Is(err, errClose) {
		t.Errorf("expected errClose, got %v", err)
	}
	if closed != 2 {
		t.Errorf("expected both resources closed, got %d", closed)
	}

	if err := p.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
	if closed != 2 {
		t.Errorf("expected resources to be closed once, got %d", closed)
	}
}
