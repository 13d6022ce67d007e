package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTaskEnvelope_RoundTrip(t *testing.T) {
	args := map[string]any{"a": float64(3), "b": float64(5)}
	env := newTaskEnvelope("job-1", "Addition", args, 2)

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := decodeTaskEnvelope(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ID != "job-1" || decoded.Task != "Addition" || decoded.Retries != 2 {
		t.Fatalf("unexpected decoded envelope: %+v", decoded)
	}
	if decoded.Kwargs["a"] != float64(3) || decoded.Kwargs["b"] != float64(5) {
		t.Fatalf("unexpected kwargs: %+v", decoded.Kwargs)
	}
	if !decoded.UTC {
		t.Fatal("expected utc=true")
	}
	if decoded.Expires != nil || decoded.Chord != nil || decoded.Callbacks != nil ||
		decoded.Errbacks != nil || decoded.Taskset != nil || decoded.ETA != nil {
		t.Fatal("expected all optional fields to be null")
	}
}

func TestTaskEnvelope_WireShape(t *testing.T) {
	env := newTaskEnvelope("job-1", "Addition", map[string]any{"a": float64(1)}, 0)
	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	for _, key := range []string{"id", "task", "kwargs", "args", "retries", "expires",
		"utc", "chord", "callbacks", "errbacks", "taskset", "timelimit", "eta"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected wire key %q in envelope, got %v", key, raw)
		}
	}
}

func TestResultEnvelope_SuccessRoundTrip(t *testing.T) {
	env := newSuccessEnvelope("job-1", float64(8))

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := decodeResultEnvelope(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Status != statusSuccess || decoded.TaskID != "job-1" {
		t.Fatalf("unexpected envelope: %+v", decoded)
	}
	if decoded.Result != float64(8) {
		t.Fatalf("expected result 8, got %v", decoded.Result)
	}
	if decoded.Traceback != nil {
		t.Fatal("expected nil traceback on success")
	}
}

func TestResultEnvelope_FailureShape(t *testing.T) {
	env := newFailureEnvelope("job-1", errors.New("boom"))

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := decodeResultEnvelope(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Status != statusFailure {
		t.Fatalf("expected FAILURE status, got %v", decoded.Status)
	}
	if decoded.Traceback == nil || *decoded.Traceback != "Job died: boom" {
		t.Fatalf("unexpected traceback: %v", decoded.Traceback)
	}

	resultMap, ok := decoded.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected result to decode as map, got %T", decoded.Result)
	}
	if resultMap["exc_message"] != "Task has failed" || resultMap["exc_type"] != "Exception" {
		t.Fatalf("unexpected failure payload: %+v", resultMap)
	}
}
