// Package store implements the agent's persistent Task Store: the single
// SQLite database backing the task queue, its audit trail, and the
// supporting tables (interactions, embeddings, user facts/preferences,
// skill invocation log, and miscellaneous agent state).
//
// Tasks move through a small state machine:
//
//	pending → running → done
//	                  → failed → pending (retry, exponential backoff)
//	                  → cancelled
//
// Every transition appends an entry to task_log so the heartbeat's
// decisions stay auditable.
package store

import (
	"encoding/json"
	"fmt"
)

// Priority is the urgency of a task. Lower numeric value runs first.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityNormal   Priority = 2
	PriorityLow      Priority = 3
	PriorityIdle     Priority = 4 // only runs when nothing else is due
)

var priorityNames = map[Priority]string{
	PriorityCritical: "critical",
	PriorityHigh:     "high",
	PriorityNormal:   "normal",
	PriorityLow:      "low",
	PriorityIdle:     "idle",
}

var priorityValues = map[string]Priority{
	"critical": PriorityCritical,
	"high":     PriorityHigh,
	"normal":   PriorityNormal,
	"low":      PriorityLow,
	"idle":     PriorityIdle,
}

// String returns the lower-case label stored in priority_name.
func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return "normal"
}

// ParsePriority converts a priority_name column value into a Priority,
// defaulting to PriorityNormal for anything unrecognized.
func ParsePriority(name string) Priority {
	if p, ok := priorityValues[name]; ok {
		return p
	}
	return PriorityNormal
}

// MarshalJSON encodes a Priority as its string label.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a Priority from its string label.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := priorityValues[s]; ok {
		*p = v
		return nil
	}
	return fmt.Errorf("unknown priority: %s", s)
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TaskResearch     TaskType = "research"
	TaskSelfImprove  TaskType = "self_improve"
	TaskPrepare      TaskType = "prepare"
	TaskRemind       TaskType = "remind"
	TaskReflect      TaskType = "reflect"
	TaskMaintain     TaskType = "maintain"
	TaskCustom       TaskType = "custom"
)

// Status is a task's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Task is one unit of work the heartbeat scheduler or a chat turn can
// enqueue and later execute.
type Task struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	TaskType      TaskType       `json:"task_type"`
	Priority      Priority       `json:"priority"`
	Status        Status         `json:"status"`
	CreatedAt     string         `json:"created_at"`
	ScheduledAt   string         `json:"scheduled_at"`
	StartedAt     *string        `json:"started_at,omitempty"`
	CompletedAt   *string        `json:"completed_at,omitempty"`
	ResultSummary string         `json:"result_summary,omitempty"`
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	ParentID      *int64         `json:"parent_id,omitempty"`
	Tags          []string       `json:"tags"`
	Context       map[string]any `json:"context"`
}

// TaskLogEntry is one append-only audit record for a task transition.
type TaskLogEntry struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Detail    string `json:"detail"`
}

// NewTaskParams are the arguments to Add; everything but Title and
// Description has a sensible zero value.
type NewTaskParams struct {
	Title       string
	Description string
	TaskType    TaskType
	Priority    Priority
	ScheduledAt string // RFC3339; empty means "now"
	Tags        []string
	Context     map[string]any
	ParentID    *int64
	MaxRetries  int
}
