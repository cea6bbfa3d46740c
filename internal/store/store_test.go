package store

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedIfEmptyInsertsFiveTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("SeedIfEmpty: %v", err)
	}
	all, err := s.GetAll(ctx, "", 50)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("want 5 seeded tasks, got %d", len(all))
	}

	if err := s.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("second SeedIfEmpty: %v", err)
	}
	all, _ = s.GetAll(ctx, "", 50)
	if len(all) != 5 {
		t.Fatalf("seeding twice should be a no-op, got %d tasks", len(all))
	}
}

func TestAddAndNextPendingOrdersByPriorityThenAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lowID, _ := s.Add(ctx, NewTaskParams{Title: "low", Description: "d", Priority: PriorityLow})
	highID, _ := s.Add(ctx, NewTaskParams{Title: "high", Description: "d", Priority: PriorityHigh})

	next, err := s.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != highID {
		t.Fatalf("expected high-priority task %d first, got %+v", highID, next)
	}
	_ = lowID
}

func TestNextPendingRespectsScheduledAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	s.Add(ctx, NewTaskParams{Title: "future", Description: "d", ScheduledAt: future})

	next, err := s.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no due task, got %+v", next)
	}
}

func TestFailSchedulesRetryWithBackoffThenFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.Add(ctx, NewTaskParams{Title: "t", Description: "d", MaxRetries: 1})

	if err := s.Start(ctx, id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Fail(ctx, id, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	task, _ := s.Get(ctx, id)
	if task.Status != StatusPending {
		t.Fatalf("want pending after first failure (retry), got %s", task.Status)
	}
	if task.RetryCount != 1 {
		t.Fatalf("want retry_count=1, got %d", task.RetryCount)
	}

	if err := s.Start(ctx, id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Fail(ctx, id, "boom again"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	task, _ = s.Get(ctx, id)
	if task.Status != StatusFailed {
		t.Fatalf("want failed after exhausting retries, got %s", task.Status)
	}

	logs, err := s.Log(ctx, id)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	var sawRetry, sawFailed bool
	for _, e := range logs {
		if e.Event == "retry_scheduled" {
			sawRetry = true
		}
		if e.Event == "failed" {
			sawFailed = true
		}
	}
	if !sawRetry || !sawFailed {
		t.Fatalf("expected retry_scheduled and failed log entries, got %+v", logs)
	}
}

func TestPauseRunningReturnsTaskToPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.Add(ctx, NewTaskParams{Title: "t", Description: "d"})
	if err := s.Start(ctx, id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	task, _ := s.Get(ctx, id)
	if task.Status != StatusRunning {
		t.Fatalf("want running, got %s", task.Status)
	}

	if err := s.PauseRunning(ctx); err != nil {
		t.Fatalf("PauseRunning: %v", err)
	}
	task, _ = s.Get(ctx, id)
	if task.Status != StatusPending {
		t.Fatalf("want pending after pause, got %s", task.Status)
	}
	if task.StartedAt != nil {
		t.Fatalf("want started_at cleared, got %v", *task.StartedAt)
	}
}

func TestCancelIsNotTreatedAsFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.Add(ctx, NewTaskParams{Title: "t", Description: "d"})
	if err := s.Cancel(ctx, id, "user said stop"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	task, _ := s.Get(ctx, id)
	if task.Status != StatusCancelled {
		t.Fatalf("want cancelled, got %s", task.Status)
	}
	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary[StatusFailed] != 0 {
		t.Fatalf("cancellation must not count as failure, got failed=%d", summary[StatusFailed])
	}
}

func TestCompleteTruncatesSummaryAndLogsDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.Add(ctx, NewTaskParams{Title: "t", Description: "d"})

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	if err := s.Start(ctx, id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Complete(ctx, id, string(long)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	task, _ := s.Get(ctx, id)
	if len(task.ResultSummary) != 1000 {
		t.Fatalf("want summary truncated to 1000 chars, got %d", len(task.ResultSummary))
	}

	logs, err := s.Log(ctx, id)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	var detail string
	for _, e := range logs {
		if e.Event == "completed" {
			detail = e.Detail
		}
	}
	if len(detail) != 200 {
		t.Fatalf("want completed log detail truncated to 200 chars, got %d", len(detail))
	}
}
