package executor

import "testing"

func TestStripThink(t *testing.T) {
	thinking, reply := stripThink("<think>reasoning here</think>FINAL: done")
	if thinking != "reasoning here" {
		t.Errorf("thinking = %q", thinking)
	}
	if reply != "FINAL: done" {
		t.Errorf("reply = %q", reply)
	}
}

func TestStripThink_NoBlock(t *testing.T) {
	thinking, reply := stripThink("FINAL: done")
	if thinking != "" {
		t.Errorf("thinking = %q, want empty", thinking)
	}
	if reply != "FINAL: done" {
		t.Errorf("reply = %q", reply)
	}
}

func TestParseFinal(t *testing.T) {
	if got := parseFinal("FINAL: the answer"); got != "the answer" {
		t.Errorf("got %q", got)
	}
	if got := parseFinal("no final here"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestParseEscalate(t *testing.T) {
	if got := parseEscalate("ESCALATE: need a bigger model"); got != "need a bigger model" {
		t.Errorf("got %q", got)
	}
	if got := parseEscalate("FINAL: done"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestParseSkillJSON(t *testing.T) {
	reply := `I'll look this up.
SKILL: {"name": "websearch", "args": {"query": "go generics"}}
`
	got := parseSkillJSON(reply)
	if got != `{"name": "websearch", "args": {"query": "go generics"}}` {
		t.Errorf("got %q", got)
	}
}

func TestTruncateSkillResult(t *testing.T) {
	short := "hello"
	if got := truncateSkillResult(short); got != short {
		t.Errorf("short result should pass through unchanged, got %q", got)
	}

	long := make([]byte, 7000)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateSkillResult(string(long))
	if len(got) <= skillResultKeep {
		t.Errorf("expected truncation marker appended, len=%d", len(got))
	}
}

func TestExtractBestOutput(t *testing.T) {
	reply := "<think>hmm</think>SKILL: {\"name\": \"x\"}\nSome useful leftover text."
	got := extractBestOutput(reply)
	if got != "Some useful leftover text." {
		t.Errorf("got %q", got)
	}
}

func TestExtractBestOutput_Empty(t *testing.T) {
	if got := extractBestOutput("<think>only thinking</think>"); got != "No output generated." {
		t.Errorf("got %q", got)
	}
}
