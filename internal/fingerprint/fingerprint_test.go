package fingerprint

import (
	"strings"
	"testing"
)

func TestBytes(t *testing.T) {
	a := Bytes([]byte("hello"))
	b := Bytes([]byte("hello"))
	if a != b {
		t.Errorf("same content should give same fingerprint: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, prefix) {
		t.Errorf("fingerprint should have prefix %q: got %q", prefix, a)
	}
	if len(a) != len(prefix)+32 {
		t.Errorf("unexpected fingerprint length: %q", a)
	}
	if Bytes([]byte("hello!")) == a {
		t.Error("different content should give different fingerprints")
	}
}

func TestString_matchesBytes(t *testing.T) {
	if String("abc") != Bytes([]byte("abc")) {
		t.Error("String and Bytes disagree")
	}
}

func TestParts_delimited(t *testing.T) {
	if Parts("ab", "c") == Parts("a", "bc") {
		t.Error("part boundaries should affect the fingerprint")
	}
	if Parts("openai", "text") != Parts("openai", "text") {
		t.Error("Parts should be deterministic")
	}
}

func TestSum64(t *testing.T) {
	if Sum64([]byte("x")) != Sum64([]byte("x")) {
		t.Error("Sum64 should be deterministic")
	}
	if Sum64([]byte("x")) == Sum64([]byte("y")) {
		t.Error("Sum64 collision on trivial input")
	}
}
