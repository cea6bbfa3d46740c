package executor

import (
	"fmt"
	"regexp"
	"strings"
)

// minLength sets per-category minimum acceptable output length in chars.
var minLength = map[string]int{
	"general_chat":       20,
	"coding":             100,
	"debugging":          50,
	"math":               20,
	"reasoning":          50,
	"summarization":      50,
	"web_search":         50,
	"data_analysis":      50,
	"creative_writing":   80,
	"translation":        10,
	"planning":           80,
	"shell_command":      10,
	"file_management":    10,
	"research":           150,
	"skill_writing":      100,
	"structured_output":  10,
	"agentic_task":       30,
}

// failurePhrases flag a model that gave up or refused the task outright.
var failurePhrases = []string{
	"i cannot", "i can't", "i'm unable", "i am unable",
	"as an ai", "i don't have access", "i cannot access",
	"i'm sorry, but", "unfortunately, i cannot",
	"i cannot complete this task",
}

// incompletePhrases flag a response that trails off rather than finishing.
var incompletePhrases = []string{
	"to be continued", "in the next step", "i will now",
	"please wait", "working on it",
}

var funcCallRe = regexp.MustCompile(`[a-zA-Z_]\w*\s*\(`)
var digitRe = regexp.MustCompile(`\d`)

// ValidateResult reports whether result is acceptable for category. On
// failure it returns the reason, which feeds the next retry attempt's
// rewritten prompt.
func ValidateResult(result *Result, category string) (ok bool, reason string) {
	if result == nil {
		return false, "null result"
	}

	output := strings.TrimSpace(result.Output)
	if output == "" {
		return false, "empty output"
	}

	min := minLength[category]
	if min == 0 {
		min = 20
	}
	if len(output) < min {
		return false, fmt.Sprintf("output too short (%d < %d)", len(output), min)
	}

	lower := strings.ToLower(output)
	for _, phrase := range failurePhrases {
		if strings.Contains(lower, phrase) {
			return false, fmt.Sprintf("model refused: %q", phrase)
		}
	}
	for _, phrase := range incompletePhrases {
		if strings.Contains(lower, phrase) {
			return false, fmt.Sprintf("incomplete response: %q", phrase)
		}
	}

	switch category {
	case "coding", "debugging":
		hasCode := strings.Contains(output, "```") ||
			strings.Contains(output, "func ") ||
			strings.Contains(output, "package ") ||
			strings.Contains(output, "import ") ||
			funcCallRe.MatchString(output)
		if !hasCode && len(output) < 200 {
			return false, "coding task produced no code"
		}
	case "skill_writing":
		hasStructure := strings.Contains(output, "DESCRIPTION") &&
			(strings.Contains(output, "func Execute") || strings.Contains(output, "command:"))
		if !hasStructure {
			return false, "skill_writing task produced no valid skill structure"
		}
	case "math":
		if !digitRe.MatchString(output) {
			return false, "math task produced no numbers"
		}
	}

	return true, ""
}
