package memory

import (
	"strings"
	"testing"
)

func newTestUserFacts(t *testing.T) *UserFacts {
	t.Helper()
	ltm, err := NewLongTermMemory(tempDBPath(t))
	if err != nil {
		t.Fatalf("NewLongTermMemory: %v", err)
	}
	t.Cleanup(func() { ltm.Close() })

	uf, err := NewUserFacts(ltm.DB())
	if err != nil {
		t.Fatalf("NewUserFacts: %v", err)
	}
	return uf
}

func TestUserFacts_ExtractHeuristic_Name(t *testing.T) {
	uf := newTestUserFacts(t)
	uf.ExtractHeuristic("Hi, I'm Dana and I love hiking.")

	ctx := uf.ContextForPrompt()
	if !strings.Contains(ctx, "Dana") {
		t.Errorf("ContextForPrompt() = %q, want it to mention Dana", ctx)
	}
}

func TestUserFacts_ExtractHeuristic_Interests(t *testing.T) {
	uf := newTestUserFacts(t)
	uf.ExtractHeuristic("I've been getting into guitar and spotify playlists lately.")

	byCategory, err := uf.factsByCategory()
	if err != nil {
		t.Fatalf("factsByCategory: %v", err)
	}
	if _, ok := byCategory["interests"]; !ok {
		t.Errorf("expected an interests fact, got %v", byCategory)
	}
}

func TestUserFacts_StoreDedupsNearDuplicates(t *testing.T) {
	uf := newTestUserFacts(t)
	uf.Store("location", "San Francisco", 0.7, "llm_extract")
	uf.Store("location", "san francisco", 0.9, "llm_extract") // near-dup, should bump confidence not add a row

	byCategory, err := uf.factsByCategory()
	if err != nil {
		t.Fatalf("factsByCategory: %v", err)
	}
	if len(byCategory["location"]) != 1 {
		t.Errorf("expected 1 deduped location fact, got %v", byCategory["location"])
	}
}

func TestUserFacts_ContextForPrompt_EmptyProfile(t *testing.T) {
	uf := newTestUserFacts(t)
	ctx := uf.ContextForPrompt()
	if !strings.Contains(ctx, "getting to know you") {
		t.Errorf("ContextForPrompt() = %q, want the no-profile fallback", ctx)
	}
}

func TestUserFacts_PreferenceRoundTrip(t *testing.T) {
	uf := newTestUserFacts(t)
	if got := uf.GetPreference("assistant_name", "default"); got != "default" {
		t.Errorf("GetPreference before Set = %q, want default", got)
	}

	if err := uf.SetPreference("assistant_name", "Otto"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if got := uf.GetPreference("assistant_name", "default"); got != "Otto" {
		t.Errorf("GetPreference after Set = %q, want Otto", got)
	}

	// Upsert overwrites rather than erroring.
	if err := uf.SetPreference("assistant_name", "Nova"); err != nil {
		t.Fatalf("SetPreference overwrite: %v", err)
	}
	if got := uf.GetPreference("assistant_name", "default"); got != "Nova" {
		t.Errorf("GetPreference after overwrite = %q, want Nova", got)
	}
}

func TestSimilar(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"San Francisco", "san francisco", true},
		{"guitar", "guitar and piano", true},
		{"coding", "cooking", false},
		{"", "anything", false},
	}
	for _, c := range cases {
		if got := similar(c.a, c.b); got != c.want {
			t.Errorf("similar(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
