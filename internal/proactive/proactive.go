// Package proactive watches what the assistant knows about the user and
// surfaces useful suggestions, reminders, and follow-ups without being
// asked — the difference between a chatbot and a personal assistant.
// Grounded on the prototype's proactive/engine.py.
package proactive

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/memory"
	"github.com/sentineld/sentinel/internal/observability"
)

// Suggestion is one sidebar card: something the assistant could help with
// right now, specific to what it knows about the user.
type Suggestion struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Action   string `json:"action"`
}

const sidebarCacheTTL = 15 * time.Minute
const pushCooldown = 5 * time.Minute
const suggestionModel = "qwen2.5:0.5b"

var arrayRe = regexp.MustCompile(`(?s)\[.*\]`)
var objectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Engine decides what, if anything, the assistant should volunteer.
type Engine struct {
	facts *memory.UserFacts
	log   *observability.Logger
	gw    *gateway.Gateway

	mu              sync.Mutex
	lastPush        map[string]time.Time
	sidebarCache    []Suggestion
	sidebarCachedAt time.Time
}

// New creates an Engine bound to a Gateway for its suggestion/push model
// calls and a UserFacts store for its profile lookups.
func New(gw *gateway.Gateway, facts *memory.UserFacts, log *observability.Logger) *Engine {
	if log == nil {
		log = observability.NewLogger("proactive", nil)
	}
	return &Engine{gw: gw, facts: facts, log: log, lastPush: make(map[string]time.Time)}
}

// SidebarSuggestions returns 3-4 context-aware suggestions for display
// alongside the chat, refreshed at most every 15 minutes.
func (e *Engine) SidebarSuggestions(ctx context.Context) []Suggestion {
	now := time.Now()

	e.mu.Lock()
	if !e.sidebarCachedAt.IsZero() && now.Sub(e.sidebarCachedAt) < sidebarCacheTTL {
		cached := e.sidebarCache
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	userCtx := e.facts.ContextForPrompt()
	if strings.Contains(userCtx, "getting to know you") {
		return genericSuggestions(now)
	}

	prompt := fmt.Sprintf(sidebarPrompt, truncate(userCtx, 600), now.Format("Monday, January 2 at 3:04 PM"))
	resp, err := e.gw.Generate(ctx, prompt, func(r *gateway.LLMRequest) {
		r.Model = suggestionModel
		r.MaxTokens = 400
	})
	if err != nil {
		e.log.Warn("proactive: sidebar generation failed", "error", err)
		return genericSuggestions(now)
	}

	m := arrayRe.FindString(resp.Content)
	if m == "" {
		return genericSuggestions(now)
	}
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(m), &suggestions); err != nil {
		return genericSuggestions(now)
	}
	if len(suggestions) > 4 {
		suggestions = suggestions[:4]
	}

	e.mu.Lock()
	e.sidebarCache = suggestions
	e.sidebarCachedAt = now
	e.mu.Unlock()
	return suggestions
}

func genericSuggestions(now time.Time) []Suggestion {
	switch hour := now.Hour(); {
	case hour < 10:
		return []Suggestion{
			{Category: "Morning", Text: "Get a summary of today's priorities", Action: "What should I focus on today?"},
			{Category: "Research", Text: "Check the news", Action: "What's happening in the news today?"},
			{Category: "Task", Text: "Set up your day", Action: "Help me plan my day"},
		}
	case hour < 17:
		return []Suggestion{
			{Category: "Task", Text: "Something you need to look up?", Action: "I need help researching "},
			{Category: "Code", Text: "Write or debug code", Action: "Help me with some code: "},
			{Category: "Research", Text: "Deep dive on a topic", Action: "Tell me everything about "},
		}
	default:
		return []Suggestion{
			{Category: "Evening", Text: "Reflect on today", Action: "Help me summarise what I accomplished today"},
			{Category: "Tomorrow", Text: "Plan for tomorrow", Action: "Help me plan tomorrow"},
			{Category: "Creative", Text: "Explore something interesting", Action: "Tell me something fascinating I probably don't know"},
		}
	}
}

// CheckAfterMessage decides, after a chat turn completes, whether the
// assistant should volunteer something extra. Rate-limited to once every
// five minutes and skipped entirely until the user has a profile.
func (e *Engine) CheckAfterMessage(ctx context.Context, userMessage, response string) (string, bool) {
	now := time.Now()

	e.mu.Lock()
	if last, ok := e.lastPush["general"]; ok && now.Sub(last) < pushCooldown {
		e.mu.Unlock()
		return "", false
	}
	e.mu.Unlock()

	userCtx := e.facts.ContextForPrompt()
	if strings.Contains(userCtx, "getting to know you") {
		return "", false
	}

	prompt := fmt.Sprintf(pushPrompt, truncate(userCtx, 400), truncate(userMessage, 200), truncate(response, 200))
	resp, err := e.gw.Generate(ctx, prompt, func(r *gateway.LLMRequest) {
		r.Model = suggestionModel
		r.MaxTokens = 200
	})
	if err != nil {
		return "", false
	}

	m := objectRe.FindString(resp.Content)
	if m == "" {
		return "", false
	}
	var result struct {
		Push    bool   `json:"push"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(m), &result); err != nil || !result.Push || result.Message == "" {
		return "", false
	}

	e.mu.Lock()
	e.lastPush["general"] = now
	e.mu.Unlock()
	return result.Message, true
}

// PushMessage is called periodically by the UI to check for time-based
// pushes: a morning briefing, an end-of-day check-in, a Sunday review.
// Each fires at most once per day via an internal cooldown key.
func (e *Engine) PushMessage(name string) (string, bool) {
	now := time.Now()
	hour, minute, weekday := now.Hour(), now.Minute(), now.Weekday()

	if hour == 8 && minute < 10 {
		return e.morningBriefing(name, now)
	}
	if weekday >= time.Monday && weekday <= time.Friday && hour == 17 && minute >= 30 && minute < 40 {
		return e.endOfDay(now)
	}
	if weekday == time.Sunday && hour == 19 && minute < 10 {
		return e.onceToday("weekly_review_"+now.Format("2006-01-02"), now,"It's Sunday evening — want me to help you prepare for the week ahead?")
	}
	return "", false
}

func (e *Engine) morningBriefing(name string, now time.Time) (string, bool) {
	key := "morning_" + now.Format("2006-01-02")
	greeting := "Good morning"
	if now.Hour() >= 12 {
		greeting = "Good afternoon"
	}
	who := ""
	if name != "" {
		who = ", " + name
	}
	return e.onceToday(key, now, fmt.Sprintf(
		"%s%s! I'm here and ready. Would you like a briefing on anything, or shall we dive straight into your day?",
		greeting, who,
	))
}

func (e *Engine) endOfDay(now time.Time) (string, bool) {
	return e.onceToday("eod_"+now.Format("2006-01-02"), now,
		"You've had a few conversations with me today. Want to wrap up or work on anything else before you finish?")
}

func (e *Engine) onceToday(key string, now time.Time, message string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.lastPush[key]; ok {
		return "", false
	}
	e.lastPush[key] = now
	return message, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const sidebarPrompt = `Based on what you know about this user, generate 3-4 genuinely useful suggestions for things the assistant could help with right now.

User profile:
%s

Current time: %s

Generate suggestions that are:
- Specific to this user's life, not generic
- Immediately actionable
- Varied in type (task, information, reminder, creative)

Return JSON array: [{"category": "Reminder|Research|Task|Insight", "text": "Natural description", "action": "The message to pre-fill when clicked"}]
Return ONLY valid JSON.`

const pushPrompt = `You are a proactive personal assistant that knows this user well.

User profile:
%s

Recent exchange:
User said: %s
You responded about: %s

Should you proactively add something useful right now?
Think about: follow-up info, related reminders, useful context they might not know, next steps.

If YES: return {"push": true, "message": "Your proactive message here"}
If NO: return {"push": false}
Be selective — only push if genuinely valuable. Don't be annoying.
Return ONLY valid JSON.`
