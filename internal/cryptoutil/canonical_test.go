package cryptoutil

import (
	"encoding/json"
	"testing"
)

func TestCanonicalizeOrderIndependent(t *testing.T) {
	a := map[string]any{"a": 1.0, "b": 2.0}
	b := map[string]any{"b": 2.0, "a": 1.0}

	canonA, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	canonB, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(canonA) != string(canonB) {
		t.Errorf("expected order-independent canonical forms to match, got %q vs %q", canonA, canonB)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	v := map[string]any{
		"type": "git-status",
		"data": map[string]any{"workdir": "/tmp/x"},
		"nonce": nil,
	}

	first, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded any
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("canonical output is not valid JSON: %v", err)
	}
	second, err := Canonicalize(decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("expected idempotent canonical forms, got %q vs %q", first, second)
	}
}

func TestCanonicalizeNestedArrays(t *testing.T) {
	v := map[string]any{"items": []any{"x", "y", "z"}}
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"items":["x","y","z"]}`
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestCanonicalizeIntegralNumbers(t *testing.T) {
	out, err := Canonicalize(map[string]any{"n": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"n":5}`
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
