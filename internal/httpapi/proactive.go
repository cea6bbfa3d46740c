package httpapi

import "net/http"

// handleProactiveSuggestions serves GET /proactive: the sidebar cards
// shown alongside the chat.
func (s *Server) handleProactiveSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions := s.deps.Proactive.SidebarSuggestions(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// handleProactivePush serves GET /proactive/push: a poll the UI makes
// periodically to check for a time-based briefing or check-in.
func (s *Server) handleProactivePush(w http.ResponseWriter, r *http.Request) {
	name := s.deps.Persona.Name()
	message, ok := s.deps.Proactive.PushMessage(name)
	writeJSON(w, http.StatusOK, map[string]any{
		"push":    ok,
		"message": message,
	})
}
