package fingerprint

import (
	"regexp"
	"strings"
	"testing"
)

func TestUniqueJobID_Deterministic(t *testing.T) {
	args := map[string]any{"a": float64(3), "b": float64(5)}

	id1 := UniqueJobID("Addition", args)
	id2 := UniqueJobID("Addition", args)

	if id1 != id2 {
		t.Fatalf("expected deterministic id, got %q and %q", id1, id2)
	}
	if len(id1) != 64 {
		t.Fatalf("expected 64-char hex string, got len %d", len(id1))
	}
	if matched, _ := regexp.MatchString(`^[0-9a-f]{64}$`, id1); !matched {
		t.Fatalf("expected lowercase hex string, got %q", id1)
	}
}

func TestUniqueJobID_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": float64(5), "a": float64(3)}
	b := map[string]any{"a": float64(3), "b": float64(5)}

	if UniqueJobID("Addition", a) != UniqueJobID("Addition", b) {
		t.Fatal("expected key-order-independent hashing")
	}
}

func TestUniqueJobID_UndefRendering(t *testing.T) {
	args := map[string]any{"a": nil}
	id := UniqueJobID("F", args)

	want := UniqueJobID("F", map[string]any{"a": "undef"})
	if id != want {
		t.Fatal("expected nil to render as the literal undef")
	}
}

func TestUniqueJobID_DifferentArgsDifferentHash(t *testing.T) {
	id1 := UniqueJobID("Addition", map[string]any{"a": float64(3)})
	id2 := UniqueJobID("Addition", map[string]any{"a": float64(4)})

	if id1 == id2 {
		t.Fatal("expected different args to hash differently")
	}
}

func TestPathSafeJobID_CharsetAndLength(t *testing.T) {
	id := PathSafeJobID("Addition", map[string]any{"a": float64(3), "b": float64(5)})

	if len(id) > 256 {
		t.Fatalf("expected len <= 256, got %d", len(id))
	}
	if matched, _ := regexp.MatchString(`^[A-Za-z0-9.\-_(),=]+$`, id); !matched {
		t.Fatalf("id contains unsafe characters: %q", id)
	}
}

func TestPathSafeJobID_Unique(t *testing.T) {
	args := map[string]any{"a": float64(3)}

	id1 := PathSafeJobID("Addition", args)
	id2 := PathSafeJobID("Addition", args)

	if id1 == id2 {
		t.Fatal("expected fresh UUID component to make each path-safe id unique")
	}
	if !strings.HasSuffix(id1, UniqueJobID("Addition", args)) {
		t.Fatal("expected path-safe id to end with the fingerprint hash")
	}
}
