package heartbeat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sentineld/sentinel/internal/skills"
	"github.com/sentineld/sentinel/internal/store"
)

const taskExecutionPrompt = `You are an autonomous background agent working on a task.
You are running silently — the user is NOT watching this interaction.

Your job:
1. Read the task carefully
2. Use your skills to complete it thoroughly
3. Generate follow-up tasks if your work reveals more to do
4. Be self-improving: if you find gaps in your capabilities, write new skills

TASK:
Title: %s
Type: %s
Description: %s

RECENT COMPLETED TASKS (for continuity):
%s

AVAILABLE SKILLS:
%s

SKILL FORMAT: SKILL: {"name": "...", "args": {...}}
FINAL FORMAT: FINAL: <summary of what you did and what you found>

After FINAL, if you want to add follow-up tasks, output:
NEW_TASKS: [
  {"title": "...", "description": "...", "task_type": "...", "priority_name": "normal|low|idle"},
  ...
]

Work autonomously. Use skills. Search the web. Write code. Do real work.`

const reflectPrompt = `Review the agent's recent activity and suggest what it should focus on next.

Recent completed tasks:
%s

Current pending task count: %d

Generate 3-5 new tasks that would make the assistant more useful to this user.
Consider: gaps in skills, things the user will likely ask about, proactive research,
self-improvement opportunities, and maintenance tasks.

Return JSON array:
[{"title": "...", "description": "...", "task_type": "research|self_improve|prepare|reflect|maintain|custom", "priority_name": "normal|low|idle"}]
Return ONLY valid JSON.`

// newTaskSpec is the wire shape of one element of a model-emitted
// NEW_TASKS array.
type newTaskSpec struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TaskType     string `json:"task_type"`
	PriorityName string `json:"priority_name"`
}

var newTasksRe = regexp.MustCompile(`(?s)NEW_TASKS:\s*(\[.*\])`)
var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// splitNewTasks pulls a NEW_TASKS: [...] tail off output (if present),
// returning the prose summary that precedes it and the parsed task specs.
// A malformed or absent NEW_TASKS block just yields no follow-up tasks —
// it never fails the task itself.
func splitNewTasks(output string) (summary string, specs []newTaskSpec) {
	m := newTasksRe.FindStringSubmatchIndex(output)
	if m == nil {
		return strings.TrimSpace(output), nil
	}
	summary = strings.TrimSpace(output[:m[0]])
	var parsed []newTaskSpec
	if err := json.Unmarshal([]byte(output[m[2]:m[3]]), &parsed); err == nil {
		specs = parsed
	}
	return summary, specs
}

// parseReflectionTasks extracts a JSON array of newTaskSpec from a raw
// reflection response, tolerating surrounding prose around the array.
func parseReflectionTasks(text string) []newTaskSpec {
	m := jsonArrayRe.FindString(text)
	if m == "" {
		return nil
	}
	var specs []newTaskSpec
	if err := json.Unmarshal([]byte(m), &specs); err != nil {
		return nil
	}
	return specs
}

func buildExecutionPrompt(task *store.Task, recent []*store.Task, registry *skills.SkillRegistry) string {
	var recentLines []string
	for _, t := range recent {
		recentLines = append(recentLines, fmt.Sprintf("%s: %s", t.Title, truncate(t.ResultSummary, 80)))
	}
	recentText := strings.Join(recentLines, "\n")
	if recentText == "" {
		recentText = "None yet."
	}

	var skillLines []string
	if registry != nil {
		for _, s := range registry.List() {
			skillLines = append(skillLines, fmt.Sprintf("- %s: %s", s.Meta.ID, s.Meta.Name))
		}
	}
	skillText := strings.Join(skillLines, "\n")
	if skillText == "" {
		skillText = "None available."
	}

	return fmt.Sprintf(taskExecutionPrompt, task.Title, task.TaskType, task.Description, recentText, skillText)
}

func buildReflectPrompt(completed []*store.Task, pendingCount int) string {
	var lines []string
	for _, t := range completed {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Title, truncate(t.ResultSummary, 80)))
	}
	text := strings.Join(lines, "\n")
	if text == "" {
		text = "None yet."
	}
	return fmt.Sprintf(reflectPrompt, text, pendingCount)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
