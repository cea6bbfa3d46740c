// Package events implements a bounded, in-process broadcast sink: every
// meaningful state transition (a heartbeat tick, a skill call, a task
// completing) is published once and fanned out to every connected
// listener, the way the teacher's APISense keeps a map of per-request
// response channels guarded by a mutex — generalized here from a 1:1
// correlation-ID lookup to a 1:N broadcast.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one broadcastable state transition.
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	TaskTitle string    `json:"task_title,omitempty"`
	TaskType  string    `json:"task_type,omitempty"`
}

// defaultBufferSize is how many events a slow subscriber can lag behind
// before newly published events are dropped for it rather than blocking
// the publisher — the heartbeat loop must never stall on a stuck SSE client.
const defaultBufferSize = 32

// Sink fans a stream of Events out to any number of subscribers.
type Sink struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{subscribers: make(map[string]chan Event), bufferSize: defaultBufferSize}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function the caller must call when done listening.
func (s *Sink) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, s.bufferSize)

	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if ch, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish fans ev out to every current subscriber. A subscriber whose
// buffer is full has the event dropped for it rather than blocking the
// publisher.
func (s *Sink) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are currently connected.
func (s *Sink) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
