// Package persona manages the assistant's configured character: a
// personality prompt plus a handful of flavor sliders (humor, warmth,
// sass, verbosity, chaos); the verbosity and chaos sliders are turned into
// tone notes woven into every system prompt, the way the teacher's soul package kept identity
// state in a file the rest of the system read from.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Flavors are 0-100 sliders controlling tone. Zero value means "unset";
// DefaultFlavors fills in the baseline.
type Flavors struct {
	Humor     int `json:"humor"`
	Warmth    int `json:"warmth"`
	Sass      int `json:"sass"`
	Verbosity int `json:"verbosity"`
	Chaos     int `json:"chaos"`
}

// DefaultFlavors matches the out-of-the-box character: warm, moderately
// verbose, a little sass, not much chaos.
func DefaultFlavors() Flavors {
	return Flavors{Humor: 40, Warmth: 60, Sass: 30, Verbosity: 50, Chaos: 20}
}

// Config is the persisted personality blob.
type Config struct {
	Name              string    `json:"name"`
	Flavors           Flavors   `json:"flavors"`
	PersonalityPrompt string    `json:"personality_prompt"`
	Profile           string    `json:"profile"`
	Configured        bool      `json:"configured"`
	SavedAt           time.Time `json:"saved_at,omitempty"`
}

const defaultPersonalityPrompt = "You are a helpful, warm, and capable assistant. " +
	"You communicate clearly and are genuinely interested in helping."

// DefaultConfig is served until the user completes onboarding.
func DefaultConfig() Config {
	return Config{
		Flavors:           DefaultFlavors(),
		PersonalityPrompt: defaultPersonalityPrompt,
		Profile:           "Balanced",
		Configured:        false,
	}
}

// Persona loads, persists, and renders the assistant's configured
// character. It is safe for concurrent use.
type Persona struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// New loads a Persona from path, falling back to DefaultConfig if the
// file doesn't exist or fails to parse — mirroring the prototype's
// silent fallback-to-default behavior so a corrupt config never blocks
// startup.
func New(path string) *Persona {
	p := &Persona{path: path, cfg: DefaultConfig()}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return p
	}
	cfg.Configured = true
	p.cfg = cfg
	return p
}

// Save persists cfg as the active configuration, marking it configured
// and stamping the save time — called when the user confirms onboarding
// or edits their personality.
func (p *Persona) Save(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg.Configured = true
	cfg.SavedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("persona: create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("persona: marshal config: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("persona: write config: %w", err)
	}
	p.cfg = cfg
	return nil
}

// Get returns the current configuration.
func (p *Persona) Get() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// IsConfigured reports whether onboarding has completed.
func (p *Persona) IsConfigured() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Configured
}

// Name returns the assistant's configured name, or "Assistant" if unset.
func (p *Persona) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg.Name == "" {
		return "Assistant"
	}
	return p.cfg.Name
}

// toneNotes derives tone guidance from the flavor sliders. Only
// verbosity and chaos produce a note in either direction — the others
// flavor the personality_prompt text itself rather than the instructions.
func toneNotes(f Flavors) []string {
	var notes []string
	switch {
	case f.Verbosity < 30:
		notes = append(notes, "Be concise. Short answers unless depth is essential.")
	case f.Verbosity > 70:
		notes = append(notes, "Be thorough. Don't truncate useful context.")
	}
	if f.Chaos > 65 {
		notes = append(notes, "Creative approaches are encouraged. Don't always take the obvious path.")
	}
	return notes
}

// SystemPrompt builds the foreground system prompt for a user-facing
// turn: personality, known user context, relevant past interactions, the
// turn's category/model, and tone notes, all wrapped in the persona's
// character.
func (p *Persona) SystemPrompt(model, category, userContext, pastContext string) string {
	p.mu.RLock()
	cfg := p.cfg
	p.mu.RUnlock()

	name := cfg.Name
	if name == "" {
		name = "Assistant"
	}
	var tone string
	if notes := toneNotes(cfg.Flavors); len(notes) > 0 {
		for i, n := range notes {
			if i > 0 {
				tone += "\n"
			}
			tone += n
		}
	}

	return fmt.Sprintf(`%s

WHAT YOU KNOW ABOUT THIS USER:
%s

RELEVANT PAST INTERACTIONS:
%s

CURRENT TASK: %s
RUNNING ON: %s

%s

SKILL FORMAT: SKILL: {"name": "...", "args": {...}}
FINAL FORMAT: FINAL: <your complete response>

Remember: you are %s. Never break character. Never say "As an AI."
`, cfg.PersonalityPrompt, userContext, pastContext, category, model, tone, name)
}

// BackgroundSystemPrompt builds the system prompt a heartbeat task runs
// under — same character, but explicit that no one is watching and that
// the reply may end with a NEW_TASKS follow-up block.
func (p *Persona) BackgroundSystemPrompt(userContext string) string {
	p.mu.RLock()
	cfg := p.cfg
	p.mu.RUnlock()

	return fmt.Sprintf(`%s

You are running a background task. The user is not watching.
Do real work. Use skills. Be thorough.

USER CONTEXT:
%s

SKILL FORMAT: SKILL: {"name": "...", "args": {...}}
FINAL FORMAT: FINAL: <summary of what you did>
NEW_TASKS: [{"title":"...","description":"...","task_type":"...","priority_name":"..."}]
`, cfg.PersonalityPrompt, userContext)
}
