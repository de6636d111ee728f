package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCanonicalJSON(t *testing.T) {
	t.Parallel()

	a, err := CanonicalJSON([]byte(`{"b": 1, "a": {"y": [1, 2], "x": "v"}}`))
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	b, err := CanonicalJSON([]byte("{\n  \"a\": {\"x\": \"v\", \"y\": [1,2]},\n  \"b\": 1\n}"))
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("canonical forms differ: %s vs %s", a, b)
	}
	if string(a) != `{"a":{"x":"v","y":[1,2]},"b":1}` {
		t.Fatalf("unexpected canonical form %s", a)
	}

	if out, err := CanonicalJSON(nil); err != nil || out != nil {
		t.Fatalf("empty body: %s, %v", out, err)
	}
	if _, err := CanonicalJSON([]byte(`{"a":`)); !errors.Is(err, ErrInvalidIdempotency) {
		t.Fatalf("expected ErrInvalidIdempotency, got %v", err)
	}
}

func TestCanonicalJSONKeepsLargeIntegers(t *testing.T) {
	t.Parallel()

	out, err := CanonicalJSON([]byte(`{"amount_cents": 900719925474099312}`))
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if !strings.Contains(string(out), "900719925474099312") {
		t.Fatalf("integer precision lost: %s", out)
	}
}

func TestNewIdempotencyKey(t *testing.T) {
	t.Parallel()

	endpoint := "POST /api/v1/groups/g-1/expenses"
	k1, err := NewIdempotencyKey(endpoint, "u-1", "tok-1", []byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("NewIdempotencyKey: %v", err)
	}
	k2, _ := NewIdempotencyKey(endpoint, "u-1", "tok-1", []byte(`{"b":2,"a":1}`))
	if k1 != k2 {
		t.Fatal("key order must not change the key")
	}

	k3, _ := NewIdempotencyKey(endpoint, "u-1", "tok-2", []byte(`{"a":1,"b":2}`))
	if k1 == k3 {
		t.Fatal("different token must give a different key")
	}
	k4, _ := NewIdempotencyKey(endpoint, "u-1", "tok-1", []byte(`{"a":1,"b":3}`))
	if k1 == k4 {
		t.Fatal("different payload must give a different key")
	}
	k5, _ := NewIdempotencyKey(endpoint, "u-2", "tok-1", []byte(`{"a":1,"b":2}`))
	if k1.RequestHash != k5.RequestHash || k1 == k5 {
		t.Fatal("user must scope the key but not the hash")
	}

	if _, err := NewIdempotencyKey(endpoint, "u-1", "", nil); !errors.Is(err, ErrInvalidIdempotency) {
		t.Fatalf("expected ErrInvalidIdempotency, got %v", err)
	}
	if _, err := NewIdempotencyKey(endpoint, "u-1", strings.Repeat("k", MaxIdempotencyTokenLength+1), nil); !errors.Is(err, ErrInvalidIdempotency) {
		t.Fatalf("expected ErrInvalidIdempotency for long token, got %v", err)
	}
	if (IdempotencyKey{}).IsZero() != true || k1.IsZero() {
		t.Fatal("IsZero broken")
	}
}
