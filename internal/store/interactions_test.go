package store

import (
	"context"
	"testing"
)

func TestLogInteraction_RoundTrip(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	id, err := st.LogInteraction(ctx, Interaction{
		UserInput: "what's the weather like", Output: "sunny and warm",
		Category: "general_chat", ModelUsed: "llama3.2:3b", Success: true, ToolCalls: 0, DurationMs: 120,
	})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero interaction id")
	}

	recent, err := st.RecentInteractions(ctx, 5)
	if err != nil {
		t.Fatalf("RecentInteractions: %v", err)
	}
	if len(recent) != 1 || recent[0].UserInput != "what's the weather like" {
		t.Fatalf("recent = %+v", recent)
	}
}

func TestSearchInteractions_MatchesWordsInInputOrOutput(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	st.LogInteraction(ctx, Interaction{UserInput: "tell me about golang channels", Output: "channels synchronize goroutines", Success: true})
	st.LogInteraction(ctx, Interaction{UserInput: "recommend a pasta recipe", Output: "try cacio e pepe", Success: true})

	results, err := st.SearchInteractions(ctx, "golang channels", 5)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if len(results) != 1 || results[0].UserInput != "tell me about golang channels" {
		t.Fatalf("results = %+v", results)
	}
}

func TestSearchInteractions_EmptyQueryReturnsNothing(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	results, err := st.SearchInteractions(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("SearchInteractions: %v", err)
	}
	if results != nil {
		t.Errorf("results = %+v, want nil", results)
	}
}

func TestTodayInteractionCount(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	st.LogInteraction(ctx, Interaction{UserInput: "hi", Output: "hello", Success: true})
	st.LogInteraction(ctx, Interaction{UserInput: "hi again", Output: "hello again", Success: true})

	n, err := st.TodayInteractionCount(ctx)
	if err != nil {
		t.Fatalf("TodayInteractionCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}
