package job

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/jobbroker/internal/broker"
)

// TestRunLocally_Addition covers scenario 1: Addition(a=3,b=5) returns 8.
func TestRunLocally_Addition(t *testing.T) {
	add := New(Config{
		Name: "Addition",
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			a := args["a"].(int)
			b := args["b"].(int)
			return a + b, nil
		},
	})

	result, err := add.RunLocally(context.Background(), map[string]any{"a": 3, "b": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 8 {
		t.Fatalf("expected 8, got %v", result)
	}
}

// TestRunLocally_FailsAlways covers the raising half of scenario 3, at
// the local-runner layer the worker loop shares.
func TestRunLocally_FailsAlways(t *testing.T) {
	fails := New(Config{
		Name: "FailsAlways",
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	})

	_, err := fails.RunLocally(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, broker.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
}

// TestRunLocally_FailsOnce_ZeroRetries covers scenario 4: with retries=0
// (one attempt per call), the first call to a stateful failing function
// raises and the second call (once the function has "healed") succeeds.
func TestRunLocally_FailsOnce_ZeroRetries(t *testing.T) {
	failed := false
	failsOnce := New(Config{
		Name:    "FailsOnce",
		Retries: 0,
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			if !failed {
				failed = true
				return nil, errors.New("first call fails")
			}
			return 42, nil
		},
	})

	if _, err := failsOnce.RunLocally(context.Background(), nil); err == nil {
		t.Fatal("expected the first call to raise")
	}

	result, err := failsOnce.RunLocally(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

// TestRunLocally_FailsOnceWillRetry covers scenario 5: with retries=3,
// a function failing exactly once and succeeding thereafter returns
// successfully from a single RunLocally call — the retry absorbs the
// failure.
func TestRunLocally_FailsOnceWillRetry(t *testing.T) {
	attempt := 0
	willRetry := New(Config{
		Name:    "FailsOnceWillRetry",
		Retries: 3,
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			attempt++
			if attempt == 1 {
				return nil, errors.New("first attempt fails")
			}
			return 42, nil
		},
	})

	result, err := willRetry.RunLocally(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
	if attempt != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempt)
	}
}

// TestRunLocally_ExhaustsAllAttempts covers the raising half of the
// retry-boundary property: a function failing on every attempt raises
// after retries+1 tries.
func TestRunLocally_ExhaustsAllAttempts(t *testing.T) {
	attempts := 0
	alwaysFails := New(Config{
		Name:    "AlwaysFailsWithRetries",
		Retries: 2,
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			attempts++
			return nil, errors.New("still failing")
		},
	})

	_, err := alwaysFails.RunLocally(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (retries+1), got %d", attempts)
	}
}

// TestRunLocally_PanicIsConvertedToError ensures a panicking user
// routine surfaces as a job failure rather than crashing the caller.
func TestRunLocally_PanicIsConvertedToError(t *testing.T) {
	panics := New(Config{
		Name: "Panics",
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			panic("unexpected")
		},
	})

	_, err := panics.RunLocally(context.Background(), nil)
	if err == nil {
		t.Fatal("expected panic to be converted to an error")
	}
	if !errors.Is(err, broker.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
}

// fakeBroker is a minimal broker.Broker stub exercising only RunJobSync,
// enough to cover the RunRemotely wiring (scenario 2/3 at the
// broker-boundary, without a live AMQP connection).
type fakeBroker struct {
	broker.Broker
	result any
	err    error
}

func (f *fakeBroker) RunJobSync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (any, error) {
	return f.result, f.err
}

func TestRunRemotely_DelegatesToBroker(t *testing.T) {
	reverse := New(Config{
		Name:   "ReverseString",
		Broker: &fakeBroker{result: "cba"},
	})

	result, err := reverse.RunRemotely(context.Background(), map[string]any{"s": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "cba" {
		t.Fatalf("expected cba, got %v", result)
	}
}

func TestRunRemotely_PropagatesJobError(t *testing.T) {
	failsAlways := New(Config{
		Name:   "FailsAlways",
		Broker: &fakeBroker{err: &broker.JobError{Traceback: "Job died: boom"}},
	})

	_, err := failsAlways.RunRemotely(context.Background(), nil)
	var jobErr *broker.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected *broker.JobError, got %v", err)
	}
	if jobErr.Traceback != "Job died: boom" {
		t.Fatalf("unexpected traceback: %s", jobErr.Traceback)
	}
}
