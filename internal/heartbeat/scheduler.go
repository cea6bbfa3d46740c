// Package heartbeat drives the assistant's autonomous background loop: a
// cron-scheduled tick pulls the next due task from the Task Store, runs it
// through the executor, and reschedules or retires it depending on the
// outcome. When the queue is empty it reflects on recent activity and
// seeds new tasks instead of idling silently.
package heartbeat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sentineld/sentinel/internal/events"
	"github.com/sentineld/sentinel/internal/executor"
	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/observability"
	"github.com/sentineld/sentinel/internal/skills"
	"github.com/sentineld/sentinel/internal/store"
)

// taskTimeout bounds how long a single background task may run before the
// scheduler gives up on it and marks it failed.
const taskTimeout = 10 * time.Minute

// recentTaskWindow is how many of the most recently completed tasks are
// fed back into prompts for continuity.
const recentTaskWindow = 5

// backgroundTokenBudget is the tight budget every heartbeat-driven
// execution gets, per spec — background work always runs on the smallest
// model with a constrained reply length regardless of task category.
const backgroundTokenBudget = 1500

// Config controls tick cadence and which model a background task runs on.
type Config struct {
	Spec          string   // cron spec, e.g. "@every 5m"
	Model         string   // model to run background tasks on
	FallbackChain []string // models to escalate to on ESCALATE/OOM
}

// DefaultConfig ticks every five minutes, matching the prototype's default
// heartbeat interval.
func DefaultConfig() Config {
	return Config{Spec: "@every 5m"}
}

// Scheduler is the autonomous tick loop: cron drives it, the Task Store
// feeds it, and the executor does the work.
type Scheduler struct {
	store    *store.Store
	skills   *skills.SkillRegistry
	exec     *executor.Executor
	gateway  *gateway.Gateway
	sink     *events.Sink
	log      *observability.Logger
	metrics  *observability.Metrics
	cfg      Config
	cron     *cron.Cron

	mu         sync.Mutex
	paused     bool
	pauseUntil time.Time
}

// New wires a Scheduler from its collaborators. sink may be nil if no one
// is listening for heartbeat events yet.
func New(st *store.Store, registry *skills.SkillRegistry, exec *executor.Executor, gw *gateway.Gateway, sink *events.Sink, log *observability.Logger, metrics *observability.Metrics, cfg Config) *Scheduler {
	if log == nil {
		log = observability.NewLogger("heartbeat", nil)
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0, nil)
	}
	if sink == nil {
		sink = events.NewSink()
	}
	if cfg.Spec == "" {
		cfg.Spec = DefaultConfig().Spec
	}
	return &Scheduler{
		store:   st,
		skills:  registry,
		exec:    exec,
		gateway: gw,
		sink:    sink,
		log:     log,
		metrics: metrics,
		cfg:     cfg,
		cron:    cron.New(),
	}
}

// Events exposes the scheduler's event sink so an HTTP layer can subscribe.
func (s *Scheduler) Events() *events.Sink { return s.sink }

// Start registers the tick job and starts the cron runner. It returns
// immediately — cron runs its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Spec, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("heartbeat: schedule tick: %w", err)
	}
	s.cron.Start()
	s.log.HeartbeatEvent("started", "spec", s.cfg.Spec)
	return nil
}

// Stop halts the cron runner, blocking until the in-flight tick (if any)
// finishes.
func (s *Scheduler) Stop() {
	c := s.cron.Stop()
	<-c.Done()
	s.log.HeartbeatEvent("stopped")
}

// PauseForUser suspends ticking for d and returns any currently running
// background task to pending, so a foreground chat turn always gets the
// shared worker. Call this the moment a user-facing request starts.
func (s *Scheduler) PauseForUser(ctx context.Context, d time.Duration) {
	s.mu.Lock()
	s.paused = true
	s.pauseUntil = time.Now().Add(d)
	s.mu.Unlock()

	if err := s.store.PauseRunning(ctx); err != nil {
		s.log.Warn("heartbeat: pause running task", "error", err)
	}
	s.log.HeartbeatEvent("paused", "until", s.pauseUntil)
}

// ResumeAfterUser clears any pause set by PauseForUser immediately,
// without waiting for its duration to elapse.
func (s *Scheduler) ResumeAfterUser() {
	s.mu.Lock()
	s.paused = false
	s.pauseUntil = time.Time{}
	s.mu.Unlock()
	s.log.HeartbeatEvent("resumed")
}

func (s *Scheduler) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return false
	}
	if time.Now().After(s.pauseUntil) {
		s.paused = false
		return false
	}
	return true
}

// tick is the unit of work cron invokes on every schedule firing: pull one
// task and run it, or reflect if the queue is empty. A single tick never
// runs more than one task — ticking again is how the rest of the queue
// gets worked through.
func (s *Scheduler) tick(ctx context.Context) {
	if s.isPaused() {
		return
	}

	task, err := s.store.NextPending(ctx)
	if err != nil {
		s.log.Error("heartbeat: fetch next task", "error", err)
		return
	}

	if task == nil {
		if n, err := s.store.PendingCount(ctx); err == nil && n > 0 {
			s.sink.Publish(events.Event{Type: "heartbeat_idle", Message: "scheduled"})
			return
		}
		s.reflect(ctx)
		return
	}

	s.executeTask(ctx, task)
}

func (s *Scheduler) executeTask(ctx context.Context, task *store.Task) {
	runCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := s.store.Start(runCtx, task.ID); err != nil {
		if err == store.ErrTaskRaced {
			s.log.HeartbeatEvent("task_raced", "task_id", task.ID)
			return
		}
		s.log.Error("heartbeat: start task", "task_id", task.ID, "error", err)
		return
	}
	s.sink.Publish(events.Event{Type: "heartbeat_working", TaskTitle: task.Title, TaskType: string(task.TaskType)})
	s.log.HeartbeatEvent("task_started", "task_id", task.ID, "title", task.Title)

	recent, err := s.store.GetRecentCompleted(runCtx, recentTaskWindow)
	if err != nil {
		recent = nil
	}
	prompt := buildExecutionPrompt(task, recent, s.skills)

	res, err := s.exec.RunValidated(runCtx, executor.ValidatedRequest{
		RunRequest: executor.RunRequest{
			Prompt:        prompt,
			Model:         s.cfg.Model,
			FallbackChain: s.cfg.FallbackChain,
			Category:      "agentic_task",
			TokenBudget:   backgroundTokenBudget,
			PauseCheck:    s.isPaused,
		},
		MaxRetries: executor.DefaultBackgroundRetries,
	})
	if err != nil {
		s.failTask(runCtx, task, err.Error())
		return
	}
	if strings.Contains(res.Output, "Task paused") {
		// The row is already back in pending via PauseRunning — nothing
		// more to do until the next tick picks it up again.
		s.log.HeartbeatEvent("task_paused", "task_id", task.ID, "title", task.Title)
		return
	}
	if !res.Success {
		s.failTask(runCtx, task, res.FailureReason)
		return
	}

	summary, specs := splitNewTasks(res.Output)
	if err := s.store.Complete(runCtx, task.ID, summary); err != nil {
		s.log.Error("heartbeat: complete task", "task_id", task.ID, "error", err)
	}
	s.metrics.Increment("heartbeat.task_done")
	s.sink.Publish(events.Event{Type: "heartbeat_task_done", TaskTitle: task.Title, Message: summary})

	s.enqueueFollowups(runCtx, task, specs)
}

func (s *Scheduler) failTask(ctx context.Context, task *store.Task, reason string) {
	if err := s.store.Fail(ctx, task.ID, reason); err != nil {
		s.log.Error("heartbeat: fail task", "task_id", task.ID, "error", err)
	}
	s.metrics.Increment("heartbeat.task_failed")
	s.sink.Publish(events.Event{Type: "heartbeat_task_failed", TaskTitle: task.Title, Message: reason})
	s.log.HeartbeatEvent("task_failed", "task_id", task.ID, "reason", reason)
}

// reflect runs when the queue is empty: one model call reviews recent
// activity and proposes what the assistant should work on next.
func (s *Scheduler) reflect(ctx context.Context) {
	recent, err := s.store.GetRecentCompleted(ctx, recentTaskWindow)
	if err != nil {
		recent = nil
	}
	pending, _ := s.store.PendingCount(ctx)

	s.sink.Publish(events.Event{Type: "heartbeat_idle", Message: "reflecting"})
	resp, err := s.gateway.Generate(ctx, buildReflectPrompt(recent, pending), func(r *gateway.LLMRequest) {
		r.Model = s.cfg.Model
	})
	if err != nil {
		s.log.Warn("heartbeat: reflection call failed", "error", err)
		return
	}

	specs := parseReflectionTasks(resp.Content)
	s.enqueueFollowups(ctx, nil, specs)
	s.metrics.Increment("heartbeat.reflection")
}

func (s *Scheduler) enqueueFollowups(ctx context.Context, parent *store.Task, specs []newTaskSpec) {
	var parentID *int64
	if parent != nil {
		parentID = &parent.ID
	}
	for _, spec := range specs {
		if spec.Title == "" {
			continue
		}
		id, err := s.store.Add(ctx, store.NewTaskParams{
			Title:       spec.Title,
			Description: spec.Description,
			TaskType:    store.TaskType(spec.TaskType),
			Priority:    store.ParsePriority(spec.PriorityName),
			ParentID:    parentID,
		})
		if err != nil {
			s.log.Warn("heartbeat: enqueue follow-up task", "title", spec.Title, "error", err)
			continue
		}
		s.log.HeartbeatEvent("task_enqueued", "task_id", id, "title", spec.Title)
	}
}
