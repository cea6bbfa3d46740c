package executor

import (
	"fmt"
	"strings"

	"github.com/sentineld/sentinel/internal/gateway"
)

// historyTokenThreshold is the estimated-token point at which history gets
// compressed, matching the prototype's SUMMARY_THRESHOLD.
const historyTokenThreshold = 5500

// compressHistory keeps the first message and the last four verbatim,
// replacing everything in between with a single summary message, once the
// estimated token count crosses historyTokenThreshold. Conversations
// shorter than six messages are left alone — there's nothing useful to
// compress out of them.
func compressHistory(messages []gateway.Message) []gateway.Message {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m.Content)
	}
	if total < historyTokenThreshold || len(messages) < 6 {
		return messages
	}

	first := messages[:1]
	middle := messages[1 : len(messages)-4]
	last := messages[len(messages)-4:]
	if len(middle) == 0 {
		return messages
	}

	var sb strings.Builder
	for _, m := range middle {
		line := fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), truncateRunes(m.Content, 200))
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	summaryBody := truncateRunes(sb.String(), 800)

	summary := gateway.Message{
		Role: "user",
		Content: fmt.Sprintf(
			"[HISTORY SUMMARY — %d earlier messages compressed]\nKey actions taken so far:\n%s\n[End of summary. Continuing from most recent exchange below.]",
			len(middle), summaryBody),
	}

	compressed := make([]gateway.Message, 0, len(first)+1+len(last))
	compressed = append(compressed, first...)
	compressed = append(compressed, summary)
	compressed = append(compressed, last...)
	return compressed
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
