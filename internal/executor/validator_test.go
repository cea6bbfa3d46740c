package executor

import "testing"

func TestValidateResult_EmptyOutput(t *testing.T) {
	ok, reason := ValidateResult(&Result{Output: "   "}, "general_chat")
	if ok || reason != "empty output" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}
}

func TestValidateResult_TooShort(t *testing.T) {
	ok, _ := ValidateResult(&Result{Output: "hi"}, "coding")
	if ok {
		t.Error("expected a 2-char output to fail coding's 100-char minimum")
	}
}

func TestValidateResult_RefusalPhrase(t *testing.T) {
	ok, reason := ValidateResult(&Result{Output: "I'm sorry, but I cannot help with that request at all today"}, "general_chat")
	if ok || reason == "" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}
}

func TestValidateResult_IncompletePhrase(t *testing.T) {
	output := "Here is the plan. To be continued in the next response once I gather more details."
	ok, _ := ValidateResult(&Result{Output: output}, "planning")
	if ok {
		t.Error("expected an incomplete-phrase output to fail")
	}
}

func TestValidateResult_CodingRequiresCodeMarkers(t *testing.T) {
	prose := "This is a long explanation of what the function should do in plain English without any code at all here."
	ok, reason := ValidateResult(&Result{Output: prose}, "coding")
	if ok {
		t.Errorf("expected failure, reason=%q", reason)
	}

	withCode := "```go\nfunc add(a, b int) int { return a + b }\n```\nThis implements addition of two integers and returns their sum to the caller."
	ok, _ = ValidateResult(&Result{Output: withCode}, "coding")
	if !ok {
		t.Error("expected a fenced code block to satisfy the coding check")
	}
}

func TestValidateResult_MathRequiresDigit(t *testing.T) {
	ok, _ := ValidateResult(&Result{Output: "The answer is clearly stated without any numerals whatsoever here."}, "math")
	if ok {
		t.Error("expected failure with no digits present")
	}
	ok, _ = ValidateResult(&Result{Output: "The answer is 42, computed from the given equation."}, "math")
	if !ok {
		t.Error("expected success once a digit is present")
	}
}

func TestValidateResult_SkillWritingRequiresStructure(t *testing.T) {
	ok, _ := ValidateResult(&Result{Output: "Here is a skill idea but no formal structure given at all."}, "skill_writing")
	if ok {
		t.Error("expected failure without DESCRIPTION/command structure")
	}
	valid := "DESCRIPTION: posts a message to the user's desktop notification area when a task finishes\ncommand: [\"/usr/bin/post-message\"]"
	ok, _ = ValidateResult(&Result{Output: valid}, "skill_writing")
	if !ok {
		t.Error("expected success with DESCRIPTION + command present")
	}
}

func TestValidateResult_UnknownCategoryUsesDefaultMinimum(t *testing.T) {
	ok, reason := ValidateResult(&Result{Output: "short"}, "nonexistent_category")
	if ok || reason == "" {
		t.Errorf("ok=%v reason=%q", ok, reason)
	}
}
