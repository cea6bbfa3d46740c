package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sentineld/sentinel/internal/persona"
	"github.com/sentineld/sentinel/internal/store"
)

// handleGetPersonality serves GET /personality.
func (s *Server) handleGetPersonality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Persona.Get())
}

// handleSavePersonality serves POST /personality: onboarding or an edit
// to the assistant's configured character. Saving triggers a one-off
// background task asking the assistant to compose an in-character
// greeting, the way the prototype's onboarding flow announced the new
// personality back to the user instead of waiting for the next message.
func (s *Server) handleSavePersonality(w http.ResponseWriter, r *http.Request) {
	var cfg persona.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := s.deps.Persona.Save(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cfg.Name != "" {
		s.deps.Facts.SetPreference("assistant_name", cfg.Name)
	}

	_, err := s.deps.Store.Add(r.Context(), store.NewTaskParams{
		Title:       "Greet the user in character",
		Description: "Personality was just configured or changed. Compose a short, in-character greeting introducing yourself under the new personality.",
		TaskType:    store.TaskPrepare,
		Priority:    store.PriorityHigh,
	})
	if err != nil {
		s.deps.Log.Warn("personality: failed to enqueue greeting task", "error", err)
	}

	writeJSON(w, http.StatusOK, s.deps.Persona.Get())
}
