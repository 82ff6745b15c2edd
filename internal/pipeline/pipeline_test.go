package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/socaudit/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, snapshot *model.Snapshot) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, snapshot *model.Snapshot) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, snapshot)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("continueOnError should default to false")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}

		expected := []string{"first", "second", "third"}
		for i, name := range p.StepNames() {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		if names := New().StepNames(); len(names) != 0 {
			t.Errorf("expected no names, got %v", names)
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)
		record := func(name string) func(context.Context, *model.Snapshot) error {
			return func(_ context.Context, _ *model.Snapshot) error {
				executionOrder = append(executionOrder, name)
				return nil
			}
		}

		p := New()
		p.AddSteps(
			&mockStep{name: "step-1", doFunc: record("step-1")},
			&mockStep{name: "step-2", doFunc: record("step-2")},
		)

		snapshot := model.NewSnapshot()
		if err := p.Execute(context.Background(), snapshot); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 || executionOrder[0] != "step-1" || executionOrder[1] != "step-2" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
		if len(snapshot.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", snapshot.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddSteps(
			&mockStep{
				name: "failing-step",
				doFunc: func(_ context.Context, _ *model.Snapshot) error {
					return expectedErr
				},
			},
			second,
		)

		snapshot := model.NewSnapshot()
		err := p.Execute(context.Background(), snapshot)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if snapshot.StepErrors["failing-step"] != "step failed" {
			t.Errorf("StepErrors = %v", snapshot.StepErrors)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true))
		p.AddSteps(
			&mockStep{
				name: "failing-step",
				doFunc: func(_ context.Context, _ *model.Snapshot) error {
					return errors.New("step failed")
				},
			},
			second,
		)

		snapshot := model.NewSnapshot()
		if err := p.Execute(context.Background(), snapshot); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("second step should have been called")
		}
		if len(snapshot.PerformedSteps) != 1 || snapshot.PerformedSteps[0] != "should-run" {
			t.Errorf("failed steps should not be listed as performed: %v", snapshot.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New(WithContinueOnError(true))
		p.AddStep(step)

		snapshot := model.NewSnapshot()
		err := p.Execute(ctx, snapshot)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
		if _, ok := snapshot.StepErrors["should-not-run"]; !ok {
			t.Error("cancellation should be recorded against the pending step")
		}
	})
}

// TestPipelineWithLogger tests that the pipeline logs through the given logger.
func TestPipelineWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := New(WithLogger(logger))
	p.AddStep(&mockStep{name: "logged-step"})

	snapshot := model.NewSnapshot()
	snapshot.Hostname = "ws-01"
	if err := p.Execute(context.Background(), snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "executing step") || !strings.Contains(out, "step=logged-step") {
		t.Errorf("expected step logs, got %s", out)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, "host=ws-01") {
			t.Errorf("expected every line to carry the host, got %s", line)
		}
	}
	if !strings.Contains(out, "collection steps done") || !strings.Contains(out, "performed=1") {
		t.Errorf("expected a summary line, got %s", out)
	}
}
