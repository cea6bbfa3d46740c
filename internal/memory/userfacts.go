package memory

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Fact is one piece of learned information about the user.
type Fact struct {
	ID         int64     `json:"id"`
	Category   string    `json:"category"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"` // "heuristic" or "llm_extract"
	UpdatedAt  time.Time `json:"updated_at"`
}

// factPriority controls which categories surface first when building
// prompt context — name and location matter more than a passing interest.
var factPriority = []string{
	"name", "location", "occupation", "goals", "projects",
	"preferences", "interests", "family", "health", "schedule",
}

// UserFacts learns and recalls facts and preferences about the user,
// backed by the same SQLite database as LongTermMemory.
type UserFacts struct {
	db *sql.DB
}

// NewUserFacts creates the user_facts/user_preferences tables if they do
// not exist and returns a ready-to-use store.
func NewUserFacts(db *sql.DB) (*UserFacts, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS user_facts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		category    TEXT NOT NULL,
		value       TEXT NOT NULL,
		confidence  REAL NOT NULL DEFAULT 1.0,
		source      TEXT NOT NULL DEFAULT '',
		updated_at  DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS user_preferences (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("user facts: create tables: %w", err)
	}
	return &UserFacts{db: db}, nil
}

// namePatterns/locationPatterns/occupationPatterns mirror the prototype's
// quick regex-only extraction, run on every message with no model call.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi'?m ([A-Z][a-z]+)\b`),
		regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-z]+)\b`),
		regexp.MustCompile(`(?i)\bcall me ([A-Z][a-z]+)\b`),
	}
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi (?:live|am) in ([A-Z][a-zA-Z ]+)`),
		regexp.MustCompile(`(?i)\bbased in ([A-Z][a-zA-Z, ]+)`),
	}
	occupationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi(?:'m| am) (?:an? )?([a-z]+ (?:developer|engineer|designer|teacher|doctor|lawyer|student|manager|founder))`),
		regexp.MustCompile(`(?i)\bi work as a?n? ([a-z ]+)`),
	}
	interestSignals = map[string][]string{
		"coding":   {"python", "javascript", "programming", "coding", "software"},
		"music":    {"music", "guitar", "piano", "spotify", "playlist"},
		"fitness":  {"gym", "running", "workout", "exercise", "yoga"},
		"cooking":  {"recipe", "cooking", "food", "chef", "kitchen"},
		"reading":  {"book", "reading", "novel", "author", "library"},
		"gaming":   {"game", "gaming", "steam", "playstation", "xbox"},
	}
)

// ExtractHeuristic runs fast, no-model regex extraction over a single
// user message — called early in the turn, before any LLM involvement.
func (u *UserFacts) ExtractHeuristic(text string) {
	lower := strings.ToLower(text)

	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			u.store("name", m[1], 0.9, "heuristic")
		}
	}
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			u.store("location", strings.TrimSpace(m[1]), 0.8, "heuristic")
		}
	}
	for _, re := range occupationPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			u.store("occupation", strings.TrimSpace(m[1]), 0.8, "heuristic")
		}
	}
	for interest, keywords := range interestSignals {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				u.store("interests", interest, 0.6, "heuristic")
				break
			}
		}
	}
}

// Store records a fact from deeper extraction (e.g. an LLM-based pass
// over the full exchange), with the same dedup behavior as ExtractHeuristic.
func (u *UserFacts) Store(category, value string, confidence float64, source string) {
	u.store(category, value, confidence, source)
}

// store dedups against the five most recent facts in the same category,
// bumping confidence on a near-duplicate instead of inserting a new row.
func (u *UserFacts) store(category, value string, confidence float64, source string) {
	rows, err := u.db.Query(
		"SELECT id, value FROM user_facts WHERE category=? ORDER BY updated_at DESC LIMIT 5", category)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var id int64
			var existing string
			if rows.Scan(&id, &existing) != nil {
				continue
			}
			if similar(existing, value) {
				u.db.Exec("UPDATE user_facts SET confidence=MAX(confidence, ?), updated_at=? WHERE id=?",
					confidence, time.Now(), id)
				return
			}
		}
	}

	u.db.Exec(
		`INSERT INTO user_facts (category, value, confidence, source, updated_at) VALUES (?, ?, ?, ?, ?)`,
		category, value, confidence, source, time.Now())
}

// ContextForPrompt builds a compact profile summary for injection into
// the system prompt, prioritizing the categories a conversation partner
// would want to know first.
func (u *UserFacts) ContextForPrompt() string {
	byCategory, err := u.factsByCategory()
	if err != nil || len(byCategory) == 0 {
		return "I'm still getting to know you."
	}

	var lines []string
	seen := make(map[string]bool)
	for _, cat := range factPriority {
		if vals, ok := byCategory[cat]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(cat), strings.Join(capList(vals, 3), ", ")))
			seen[cat] = true
		}
	}
	for cat, vals := range byCategory {
		if seen[cat] {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(cat), strings.Join(capList(vals, 2), ", ")))
	}
	return strings.Join(lines, "\n")
}

// Profile returns every known fact grouped by category, confidence-sorted
// within each group — the shape the HTTP API's profile endpoint exposes.
func (u *UserFacts) Profile() (map[string][]string, error) {
	return u.factsByCategory()
}

func (u *UserFacts) factsByCategory() (map[string][]string, error) {
	rows, err := u.db.Query(
		"SELECT category, value FROM user_facts WHERE confidence > 0.5 ORDER BY confidence DESC, updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var cat, val string
		if rows.Scan(&cat, &val) != nil {
			continue
		}
		out[cat] = append(out[cat], val)
	}
	return out, rows.Err()
}

// SetPreference upserts a user preference (e.g. assistant_name).
func (u *UserFacts) SetPreference(key, value string) error {
	_, err := u.db.Exec(
		"INSERT INTO user_preferences (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now())
	return err
}

// GetPreference returns a stored preference, or fallback if unset.
func (u *UserFacts) GetPreference(key, fallback string) string {
	var value string
	err := u.db.QueryRow("SELECT value FROM user_preferences WHERE key=?", key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func capList(vals []string, n int) []string {
	if len(vals) > n {
		return vals[:n]
	}
	return vals
}

// similar is a rough duplicate check: exact match, substring containment,
// or >70% word overlap.
func similar(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	overlap := 0
	for w := range wordsA {
		if wordsB[w] {
			overlap++
		}
	}
	maxLen := len(wordsA)
	if len(wordsB) > maxLen {
		maxLen = len(wordsB)
	}
	return float64(overlap)/float64(maxLen) > 0.7
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}
