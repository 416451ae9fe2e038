package sha256

import "testing"

func TestHashKnownDigest(t *testing.T) {
	t.Parallel()

	h := New()
	// sha256("hello") from a reference implementation.
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := h.Hash([]byte("hello")); got != want {
		t.Fatalf("Hash() = %s, want %s", got, want)
	}
}

func TestHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	a := h.Hash([]byte("same input"))
	b := h.Hash([]byte("same input"))
	if a != b {
		t.Fatalf("expected identical digests, got %s and %s", a, b)
	}
	if a == h.Hash([]byte("different input")) {
		t.Fatal("expected different digests for different inputs")
	}
}
