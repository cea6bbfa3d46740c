package httpapi

import (
	"net/http"
	"time"

	"github.com/sentineld/sentinel/internal/store"
)

const eventPingInterval = 30 * time.Second

// handleEvents serves the global SSE stream: a connected event carrying
// the queue summary and assistant name, then every heartbeat/task event
// the Sink publishes, with a ping comment every 30s to keep idle
// connections (and their proxies) alive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	summary, _ := s.deps.Store.Summary(ctx)
	cfg := s.deps.Persona.Get()
	sse.send("", map[string]any{
		"type":           "connected",
		"queue_summary":  queueSummaryJSON(summary),
		"assistant_name": s.deps.Persona.Name(),
		"configured":     cfg.Configured,
	})

	ch, unsubscribe := s.deps.Sink.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			sse.send("", ev)
		case <-ticker.C:
			sse.comment("ping")
		}
	}
}

// queueSummaryJSON converts a store.Status-keyed summary into a plain
// string-keyed map for stable JSON output regardless of the Status type's
// representation.
func queueSummaryJSON(summary map[store.Status]int) map[string]int {
	out := make(map[string]int, len(summary))
	for k, v := range summary {
		out[string(k)] = v
	}
	return out
}
