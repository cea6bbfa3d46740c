package httpapi

import "net/http"

// handleProfile serves GET /profile, mirroring the prototype's
// get_display_profile: everything learned about the user, plus the
// assistant's own configured identity.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	facts, err := s.deps.Facts.Profile()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cfg := s.deps.Persona.Get()

	writeJSON(w, http.StatusOK, map[string]any{
		"facts":          facts,
		"assistant_name": s.deps.Persona.Name(),
		"configured":     cfg.Configured,
		"profile":        cfg.Profile,
	})
}
