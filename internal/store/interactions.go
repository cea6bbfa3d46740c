package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Interaction is one logged chat turn: what the user said and what the
// assistant answered, plus the routing/outcome metadata needed to build
// "recent activity" context for later turns.
type Interaction struct {
	ID         int64  `json:"id"`
	UserInput  string `json:"user_input"`
	Output     string `json:"output"`
	Category   string `json:"category,omitempty"`
	ModelUsed  string `json:"model_used,omitempty"`
	Success    bool   `json:"success"`
	ToolCalls  int    `json:"tool_calls"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// LogInteraction records one completed chat turn.
func (s *Store) LogInteraction(ctx context.Context, in Interaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (user_input, output, category, model_used, success, tool_calls, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.UserInput, in.Output, in.Category, in.ModelUsed, boolToInt(in.Success), in.ToolCalls, in.DurationMs, now)
	if err != nil {
		return 0, fmt.Errorf("log interaction: %w", err)
	}
	return res.LastInsertId()
}

// SearchInteractions finds past turns whose input or output match query,
// newest first — a full-text approximation of semantic search, since
// embeddings are out of scope for the core.
func (s *Store) SearchInteractions(ctx context.Context, query string, limit int) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.user_input, i.output, i.category, i.model_used, i.success, i.tool_calls, i.duration_ms, i.created_at
		FROM interactions_fts f
		JOIN interactions i ON i.id = f.rowid
		WHERE interactions_fts MATCH ?
		ORDER BY i.id DESC
		LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// RecentInteractions returns the most recently logged turns, newest first.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_input, output, category, model_used, success, tool_calls, duration_ms, created_at
		FROM interactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// TodayInteractionCount counts interactions logged since midnight UTC,
// used by the proactive engine's end-of-day check-in.
func (s *Store) TodayInteractionCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	today := time.Now().UTC().Format("2006-01-02")
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interactions WHERE created_at LIKE ?", today+"%").Scan(&n)
	return n, err
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var out []Interaction
	for rows.Next() {
		var in Interaction
		var category, modelUsed sql.NullString
		var success int
		if err := rows.Scan(&in.ID, &in.UserInput, &in.Output, &category, &modelUsed,
			&success, &in.ToolCalls, &in.DurationMs, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.Category = category.String
		in.ModelUsed = modelUsed.String
		in.Success = success != 0
		out = append(out, in)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ftsQuery escapes query for use as an fts5 MATCH argument: each word is
// quoted so punctuation in free-form chat text doesn't break the query
// syntax, then OR'd together so any matching word ranks the row.
func ftsQuery(query string) string {
	var out string
	word := ""
	flush := func() {
		if word != "" {
			if out != "" {
				out += " OR "
			}
			out += `"` + word + `"`
			word = ""
		}
	}
	for _, r := range query {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			word += string(r)
		} else {
			flush()
		}
	}
	flush()
	if out == "" {
		return `""`
	}
	return out
}
