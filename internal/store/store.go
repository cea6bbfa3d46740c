package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the agent's single SQLite-backed database: tasks, task_log,
// interactions, embeddings, user_facts, user_preferences, skills_log and
// agent_state all live in one file opened in WAL mode, following the
// storage layer's existing modernc.org/sqlite + WAL pattern.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open creates or opens the database at path and ensures its schema exists.
// Use ":memory:" for an ephemeral store, primarily for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL,
		task_type       TEXT DEFAULT 'custom',
		priority        INTEGER DEFAULT 2,
		priority_name   TEXT DEFAULT 'normal',
		status          TEXT DEFAULT 'pending',
		created_at      TEXT,
		scheduled_at    TEXT,
		started_at      TEXT,
		completed_at    TEXT,
		result_summary  TEXT,
		retry_count     INTEGER DEFAULT 0,
		max_retries     INTEGER DEFAULT 2,
		parent_id       INTEGER,
		tags            TEXT DEFAULT '[]',
		context         TEXT DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status_priority
		ON tasks(status, priority, scheduled_at);

	CREATE TABLE IF NOT EXISTS task_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     INTEGER NOT NULL,
		timestamp   TEXT,
		event       TEXT,
		detail      TEXT,
		FOREIGN KEY(task_id) REFERENCES tasks(id)
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_input  TEXT NOT NULL,
		output      TEXT NOT NULL,
		category    TEXT,
		model_used  TEXT,
		success     INTEGER DEFAULT 0,
		tool_calls  INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE VIRTUAL TABLE IF NOT EXISTS interactions_fts USING fts5(
		user_input, output, content='interactions', content_rowid='id'
	);
	CREATE TRIGGER IF NOT EXISTS interactions_ai AFTER INSERT ON interactions BEGIN
		INSERT INTO interactions_fts(rowid, user_input, output) VALUES (new.id, new.user_input, new.output);
	END;

	CREATE TABLE IF NOT EXISTS embeddings (
		key         TEXT PRIMARY KEY,
		vector      BLOB NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_facts (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		category    TEXT,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_preferences (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS skills_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     INTEGER,
		skill_name  TEXT NOT NULL,
		input       TEXT,
		output      TEXT,
		success     INTEGER,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_state (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts the five bootstrap onboarding tasks when the task
// table is completely empty, mirroring the original prototype's
// first-run seed set so a fresh install has something to work on.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	n, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM tasks")
	if err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	var count int
	for n.Next() {
		n.Scan(&count)
	}
	n.Close()
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	seeds := []NewTaskParams{
		{
			Title: "Introduce myself to the user",
			Description: "Send a warm welcome message to the user explaining what I can do, " +
				"that I'm running privately on their device, and ask them a few questions " +
				"to start building my understanding of them.",
			TaskType: TaskPrepare,
			Priority: PriorityHigh,
			Tags:     []string{"onboarding"},
		},
		{
			Title: "Learn about my own hardware and capabilities",
			Description: "Research what I can do on this hardware. Check available disk space, " +
				"RAM, which models are loaded, what skills I have. Build a self-inventory " +
				"so I can accurately describe my capabilities to the user.",
			TaskType: TaskReflect,
			Priority: PriorityNormal,
			Tags:     []string{"self-awareness"},
		},
		{
			Title: "Write a 'send_notification' skill",
			Description: "Write a skill that can send desktop or browser notifications to the user. " +
				"This will let me proactively alert the user to things they care about.",
			TaskType: TaskSelfImprove,
			Priority: PriorityNormal,
			Tags:     []string{"skills"},
		},
		{
			Title: "Write a 'calendar_check' skill",
			Description: "Write a skill that can read local calendar files (iCal format) or " +
				"query a CalDAV server. This enables reminders and schedule awareness.",
			TaskType: TaskSelfImprove,
			Priority: PriorityLow,
			Tags:     []string{"skills", "calendar"},
		},
		{
			Title: "Reflect on what I know and what I should learn next",
			Description: "Review my current skill set, the user profile so far, and recent interactions. " +
				"Generate 5 new tasks that would make me more useful to this specific user.",
			TaskType:    TaskReflect,
			Priority:    PriorityLow,
			ScheduledAt: now.Add(2 * time.Hour).Format(time.RFC3339),
			Tags:        []string{"meta"},
		},
	}

	for _, p := range seeds {
		if _, err := s.Add(ctx, p); err != nil {
			return fmt.Errorf("seed task %q: %w", p.Title, err)
		}
	}
	return nil
}

// Add inserts a new pending task and returns its ID.
func (s *Store) Add(ctx context.Context, p NewTaskParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.TaskType == "" {
		p.TaskType = TaskCustom
	}
	now := time.Now().UTC().Format(time.RFC3339)
	scheduledAt := p.ScheduledAt
	if scheduledAt == "" {
		scheduledAt = now
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 2
	}
	tagsJSON, _ := json.Marshal(p.Tags)
	if p.Tags == nil {
		tagsJSON = []byte("[]")
	}
	ctxJSON, _ := json.Marshal(p.Context)
	if p.Context == nil {
		ctxJSON = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks
			(title, description, task_type, priority, priority_name,
			 status, created_at, scheduled_at, tags, context, parent_id, max_retries)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, string(p.TaskType), int(p.Priority), p.Priority.String(),
		now, scheduledAt, string(tagsJSON), string(ctxJSON), p.ParentID, p.MaxRetries,
	)
	if err != nil {
		return 0, fmt.Errorf("add task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add task: %w", err)
	}
	s.appendLog(ctx, id, "created", fmt.Sprintf("priority=%s, type=%s", p.Priority, p.TaskType))
	return id, nil
}

// NextPending returns the highest-priority pending task that is due now,
// or nil if none is ready.
func (s *Store) NextPending(ctx context.Context) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, task_type, priority, priority_name, status,
		       created_at, scheduled_at, started_at, completed_at, result_summary,
		       retry_count, max_retries, parent_id, tags, context
		FROM tasks
		WHERE status='pending' AND scheduled_at <= ?
		ORDER BY priority ASC, created_at ASC
		LIMIT 1`, now)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ErrTaskRaced is returned by Start when another claimer already moved the
// task out of pending between NextPending and Start.
var ErrTaskRaced = fmt.Errorf("task was claimed by another runner")

// Start marks a task as running. The UPDATE predicate requires the task to
// still be pending: if a concurrent claimer already started it, zero rows
// change and Start reports ErrTaskRaced instead of logging a second "started"
// entry for the same row.
func (s *Store) Start(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='running', started_at=? WHERE id=? AND status='pending'", now, id)
	if err != nil {
		return fmt.Errorf("start task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("start task %d: %w", id, err)
	}
	if n == 0 {
		return ErrTaskRaced
	}
	s.appendLog(ctx, id, "started", "")
	return nil
}

// Complete marks a task done, truncating the summary to 1000 characters
// the way the task_log detail is truncated to 200. The UPDATE predicate
// requires the task to still be running: a complete for a row that was
// paused or already finished by another writer is a silent no-op, never
// an overwrite.
func (s *Store) Complete(ctx context.Context, id int64, resultSummary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	summary := truncate(resultSummary, 1000)
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='done', completed_at=?, result_summary=? WHERE id=? AND status='running'",
		now, summary, id)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	s.appendLog(ctx, id, "completed", truncate(resultSummary, 200))
	return nil
}

// Fail records a failure. If the task has retries remaining it is
// rescheduled with exponential backoff (5 * 2^retry_count minutes);
// otherwise it is marked permanently failed. Both UPDATEs require the row
// to still be running, so a fail reported after the task was paused or
// already completed by another writer is a no-op rather than corrupting it.
func (s *Store) Fail(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retryCount, maxRetries int
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT retry_count, max_retries, status FROM tasks WHERE id=?", id).
		Scan(&retryCount, &maxRetries, &status)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail task %d: %w", id, err)
	}
	if status != string(StatusRunning) {
		return nil
	}

	if retryCount < maxRetries {
		delay := time.Duration(5*(1<<uint(retryCount))) * time.Minute
		retryAt := time.Now().UTC().Add(delay).Format(time.RFC3339)
		res, err := s.db.ExecContext(ctx,
			"UPDATE tasks SET status='pending', retry_count=retry_count+1, scheduled_at=? WHERE id=? AND status='running'",
			retryAt, id)
		if err != nil {
			return fmt.Errorf("fail task %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		s.appendLog(ctx, id, "retry_scheduled",
			fmt.Sprintf("attempt %d, retry in %s", retryCount+1, delay))
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='failed', completed_at=?, result_summary=? WHERE id=? AND status='running'",
		now, "FAILED: "+reason, id)
	if err != nil {
		return fmt.Errorf("fail task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	s.appendLog(ctx, id, "failed", reason)
	return nil
}

// Cancel marks a task cancelled, which spec.md classifies as not an error.
func (s *Store) Cancel(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='cancelled', completed_at=? WHERE id=?", now, id); err != nil {
		return fmt.Errorf("cancel task %d: %w", id, err)
	}
	s.appendLog(ctx, id, "cancelled", reason)
	return nil
}

// Reschedule moves a task to a new scheduled_at and reopens it as pending.
func (s *Store) Reschedule(ctx context.Context, id int64, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := when.UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='pending', scheduled_at=? WHERE id=?", w, id); err != nil {
		return fmt.Errorf("reschedule task %d: %w", id, err)
	}
	s.appendLog(ctx, id, "rescheduled", w)
	return nil
}

// PauseRunning returns any currently running task to pending. The
// heartbeat calls this the moment a user-facing chat turn starts, so the
// foreground request always wins the shared worker.
func (s *Store) PauseRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status='pending', started_at=NULL WHERE status='running'")
	if err != nil {
		return fmt.Errorf("pause running: %w", err)
	}
	return nil
}

// PendingCount returns the number of pending tasks.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE status='pending'").Scan(&n)
	return n, err
}

// GetAll lists tasks, optionally filtered by status, newest-priority first.
func (s *Store) GetAll(ctx context.Context, status Status, limit int) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	const cols = `id, title, description, task_type, priority, priority_name, status,
		created_at, scheduled_at, started_at, completed_at, result_summary,
		retry_count, max_retries, parent_id, tags, context`
	if status != "" {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+cols+" FROM tasks WHERE status=? ORDER BY priority ASC, created_at ASC LIMIT ?",
			string(status), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+cols+" FROM tasks ORDER BY priority ASC, created_at DESC LIMIT ?", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetRecentCompleted returns the n most recently completed tasks, ordered by
// completed_at descending — distinct from GetAll, which orders by priority
// and is unsuitable for "what just finished" prompts like reflection.
func (s *Store) GetRecentCompleted(ctx context.Context, n int) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		n = 10
	}

	const cols = `id, title, description, task_type, priority, priority_name, status,
		created_at, scheduled_at, started_at, completed_at, result_summary,
		retry_count, max_retries, parent_id, tags, context`
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+cols+` FROM tasks WHERE status='done' ORDER BY completed_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent completed tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get fetches a single task by ID, or nil if it doesn't exist.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, task_type, priority, priority_name, status,
		       created_at, scheduled_at, started_at, completed_at, result_summary,
		       retry_count, max_retries, parent_id, tags, context
		FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Summary returns the count of tasks in each terminal/non-terminal status.
func (s *Store) Summary(ctx context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, st := range []Status{StatusPending, StatusRunning, StatusDone, StatusFailed, StatusCancelled} {
		var n int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tasks WHERE status=?", string(st)).Scan(&n); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		counts[st] = n
	}
	return counts, nil
}

// Log returns the audit trail for a task, oldest first.
func (s *Store) Log(ctx context.Context, taskID int64) ([]TaskLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, task_id, timestamp, event, detail FROM task_log WHERE task_id=? ORDER BY id ASC",
		taskID)
	if err != nil {
		return nil, fmt.Errorf("task log %d: %w", taskID, err)
	}
	defer rows.Close()
	var out []TaskLogEntry
	for rows.Next() {
		var e TaskLogEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Timestamp, &e.Event, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) appendLog(ctx context.Context, taskID int64, event, detail string) {
	now := time.Now().UTC().Format(time.RFC3339)
	s.db.ExecContext(ctx,
		"INSERT INTO task_log (task_id, timestamp, event, detail) VALUES (?, ?, ?, ?)",
		taskID, now, event, detail)
}

// Close shuts down the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	return scanTaskRows(row)
}

func scanTaskRows(row rowScanner) (*Task, error) {
	var t Task
	var taskType, priorityName, status string
	var startedAt, completedAt, resultSummary, tagsJSON, contextJSON sql.NullString
	var parentID sql.NullInt64
	var priority int

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &taskType, &priority, &priorityName, &status,
		&t.CreatedAt, &t.ScheduledAt, &startedAt, &completedAt, &resultSummary,
		&t.RetryCount, &t.MaxRetries, &parentID, &tagsJSON, &contextJSON,
	)
	if err != nil {
		return nil, err
	}

	t.TaskType = TaskType(taskType)
	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.ResultSummary = resultSummary.String
	if startedAt.Valid {
		t.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	t.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &t.Tags)
	}
	t.Context = map[string]any{}
	if contextJSON.Valid && contextJSON.String != "" {
		json.Unmarshal([]byte(contextJSON.String), &t.Context)
	}
	return &t, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
