package names

import (
	"strings"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	seed := SeedFromSession("dev")
	a := Generate(3, seed)
	b := Generate(3, seed)
	if a != b {
		t.Fatalf("same inputs gave %q and %q", a, b)
	}
}

func TestGenerateShape(t *testing.T) {
	name := Generate(0, SeedFromSession("dev"))
	parts := strings.SplitN(name, " ", 3)
	if len(parts) != 3 {
		t.Fatalf("name %q is not emoji adjective noun", name)
	}
	foundAdj := false
	for _, a := range adjectives {
		if a == parts[1] {
			foundAdj = true
			break
		}
	}
	if !foundAdj {
		t.Fatalf("%q is not a known adjective", parts[1])
	}
}

func TestNeighboringTabsGetDistinctEmojis(t *testing.T) {
	seed := SeedFromSession("dev")
	seen := make(map[string]int)
	for i := 0; i < len(emojis); i++ {
		emoji := strings.SplitN(Generate(i, seed), " ", 2)[0]
		if prev, dup := seen[emoji]; dup {
			t.Fatalf("tabs %d and %d share emoji %q", prev, i, emoji)
		}
		seen[emoji] = i
	}
}

func TestSessionsDiverge(t *testing.T) {
	if SeedFromSession("alpha") == SeedFromSession("beta") {
		t.Fatalf("different sessions produced the same seed")
	}
}

func TestCacheStable(t *testing.T) {
	c := NewCache("dev")
	first := c.Get(7)
	for i := 0; i < 5; i++ {
		if got := c.Get(7); got != first {
			t.Fatalf("cache returned %q after %q", got, first)
		}
	}
	if c.Get(8) == first {
		t.Fatalf("distinct indexes returned the same name")
	}
}
