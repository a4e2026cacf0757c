package batch_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"silkstaff/internal/batch"
	"silkstaff/internal/services"
)

type sleepRecorder struct {
	delays []time.Duration
	events *[]string
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	if s.events != nil {
		*s.events = append(*s.events, "sleep")
	}
	return nil
}

func TestRunInvokesStepsInOrderWithIntervalBetween(t *testing.T) {
	var events []string
	rec := &sleepRecorder{events: &events}
	runner := batch.NewRunner(batch.WithSleep(rec.sleep))

	var seen []int
	err := runner.Run(context.Background(), batch.Plan{Total: 4, Start: 1, Interval: time.Second}, func(_ context.Context, i int) error {
		seen = append(seen, i)
		events = append(events, "step")
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !reflect.DeepEqual(seen, []int{1, 2, 3}) {
		t.Fatalf("unexpected indices: %v", seen)
	}
	if !reflect.DeepEqual(events, []string{"step", "sleep", "step", "sleep", "step"}) {
		t.Fatalf("expected a delay only between steps, got %v", events)
	}
	if len(rec.delays) != 2 || rec.delays[0] != time.Second {
		t.Fatalf("unexpected delays: %v", rec.delays)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	rec := &sleepRecorder{}
	runner := batch.NewRunner(batch.WithSleep(rec.sleep))
	cause := errors.New("upsert rejected")

	var seen []int
	err := runner.Run(context.Background(), batch.Plan{Total: 5, Interval: time.Millisecond}, func(_ context.Context, i int) error {
		seen = append(seen, i)
		if i == 2 {
			return cause
		}
		return nil
	})

	var stepErr *batch.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Index != 2 || !errors.Is(err, cause) {
		t.Fatalf("unexpected step error: %+v", stepErr)
	}
	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Fatalf("expected no steps after the failure, got %v", seen)
	}
	if len(rec.delays) != 2 {
		t.Fatalf("expected no delay after the failing step, got %v", rec.delays)
	}
}

func TestRunEmptyRanges(t *testing.T) {
	runner := batch.NewRunner()
	called := false
	step := func(context.Context, int) error {
		called = true
		return nil
	}
	for _, plan := range []batch.Plan{{Total: 0}, {Total: 3, Start: 3}} {
		if err := runner.Run(context.Background(), plan, step); err != nil {
			t.Fatalf("Run(%+v) returned error: %v", plan, err)
		}
	}
	if called {
		t.Fatal("expected no step invocations")
	}
}

func TestRunZeroIntervalSkipsSleep(t *testing.T) {
	rec := &sleepRecorder{}
	runner := batch.NewRunner(batch.WithSleep(rec.sleep))
	count := 0
	if err := runner.Run(context.Background(), batch.Plan{Total: 3}, func(context.Context, int) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if count != 3 || len(rec.delays) != 0 {
		t.Fatalf("expected 3 back-to-back steps, got count=%d delays=%v", count, rec.delays)
	}
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	runner := batch.NewRunner()
	plans := []batch.Plan{
		{Total: -1},
		{Total: 2, Start: -1},
		{Total: 2, Start: 3},
		{Total: 2, Interval: -time.Second},
	}
	for _, plan := range plans {
		called := false
		err := runner.Run(context.Background(), plan, func(context.Context, int) error {
			called = true
			return nil
		})
		if !errors.Is(err, batch.ErrInvalidPlan) {
			t.Fatalf("Run(%+v): expected ErrInvalidPlan, got %v", plan, err)
		}
		if called {
			t.Fatalf("Run(%+v): step must not run for an invalid plan", plan)
		}
	}
}

func TestRunCancelledDuringInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := batch.NewRunner()

	var seen []int
	err := runner.Run(ctx, batch.Plan{Total: 3, Interval: time.Hour}, func(_ context.Context, i int) error {
		seen = append(seen, i)
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var stepErr *batch.StepError
	if errors.As(err, &stepErr) {
		t.Fatalf("cancellation must not be reported as a step failure: %v", err)
	}
	if !reflect.DeepEqual(seen, []int{0}) {
		t.Fatalf("unexpected steps: %v", seen)
	}
}

func TestRunPassesStepIndexThroughContext(t *testing.T) {
	runner := batch.NewRunner()
	err := runner.Run(context.Background(), batch.Plan{Total: 2}, func(ctx context.Context, i int) error {
		got, ok := services.StepIndexFromContext(ctx)
		if !ok || got != i {
			return fmt.Errorf("context step index %d (ok=%v), want %d", got, ok, i)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := batch.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if err := batch.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
