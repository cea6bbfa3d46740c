// Package observability provides structured logging and metrics for the
// assistant core: the Logger wraps zerolog with persistent per-component
// fields, and Metrics records run counts, costs, and skill fitness via
// OpenTelemetry instruments.
package observability

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with persistent component context.
type Logger struct {
	mu        sync.RWMutex
	inner     zerolog.Logger
	component string
}

// NewLogger creates a structured logger for a given component. Output
// defaults to os.Stderr if w is nil.
func NewLogger(component string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	inner := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &Logger{inner: inner, component: component}
}

// NewLoggerFromZerolog wraps an already-configured zerolog.Logger, used
// when a caller wants a shared console writer across components.
func NewLoggerFromZerolog(component string, base zerolog.Logger) *Logger {
	return &Logger{inner: base.With().Str("component", component).Logger(), component: component}
}

// With returns a new Logger carrying one additional persistent field.
func (l *Logger) With(key string, value any) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		inner:     l.inner.With().Interface(key, value).Logger(),
		component: l.component,
	}
}

// Debug logs at debug level with optional key/value pairs.
func (l *Logger) Debug(msg string, kv ...any) { l.log(l.inner.Debug(), msg, kv) }

// Info logs at info level with optional key/value pairs.
func (l *Logger) Info(msg string, kv ...any) { l.log(l.inner.Info(), msg, kv) }

// Warn logs at warn level with optional key/value pairs.
func (l *Logger) Warn(msg string, kv ...any) { l.log(l.inner.Warn(), msg, kv) }

// Error logs at error level with optional key/value pairs.
func (l *Logger) Error(msg string, kv ...any) { l.log(l.inner.Error(), msg, kv) }

func (l *Logger) log(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

// Stage logs one pipeline/executor stage transition.
func (l *Logger) Stage(stage string, step, total int, msg string, kv ...any) {
	ev := l.inner.Info().Str("stage", stage).Int("step", step).Int("total_steps", total)
	l.log(ev, msg, kv)
}

// SkillEvent logs a skill invocation lifecycle event.
func (l *Logger) SkillEvent(event, skillName string, kv ...any) {
	ev := l.inner.Info().Str("event", event).Str("skill", skillName)
	l.log(ev, "skill", kv)
}

// HeartbeatEvent logs a heartbeat tick/task/reflection event.
func (l *Logger) HeartbeatEvent(event string, kv ...any) {
	ev := l.inner.Info().Str("event", event)
	l.log(ev, "heartbeat", kv)
}

// Component returns the component name associated with this logger.
func (l *Logger) Component() string {
	return l.component
}
