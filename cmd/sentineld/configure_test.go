package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestPersistedConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	cfg := &persistedConfig{
		Provider: "openai",
		APIKey:   "sk-test-key-12345",
		Model:    "gpt-4o",
		Name:     "TestBot",
	}

	if err := savePersistedConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perms := info.Mode().Perm(); perms != 0o600 {
		t.Errorf("permissions = %o, want 600", perms)
	}

	loaded, err := loadPersistedConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("loaded config is nil")
	}
	if loaded.Provider != "openai" {
		t.Errorf("provider = %q", loaded.Provider)
	}
	if loaded.APIKey != "sk-test-key-12345" {
		t.Errorf("api_key = %q", loaded.APIKey)
	}
	if loaded.Model != "gpt-4o" {
		t.Errorf("model = %q", loaded.Model)
	}
	if loaded.Name != "TestBot" {
		t.Errorf("name = %q", loaded.Name)
	}
}

func TestPersistedConfig_LoadMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	cfg, err := loadPersistedConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Error("expected nil for missing config")
	}
}

func TestPersistedConfig_LoadInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte("not json{"), 0o600)

	_, err := loadPersistedConfig()
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadConfig_FromConfigJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("SENTINEL_NAME", "")
	t.Setenv("SENTINEL_API_ADDR", "")

	cfg := persistedConfig{
		Provider: "openai",
		APIKey:   "sk-from-config",
		Model:    "gpt-4o-mini",
		Name:     "ConfigBot",
		APIAddr:  "0.0.0.0:7070",
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600)

	loaded := loadConfig()

	if loaded.LLMProvider != "openai" {
		t.Errorf("provider = %q, want openai", loaded.LLMProvider)
	}
	if loaded.LLMAPIKey != "sk-from-config" {
		t.Errorf("api_key = %q, want sk-from-config", loaded.LLMAPIKey)
	}
	if loaded.OpenAIKey != "sk-from-config" {
		t.Errorf("openai_key = %q, want sk-from-config", loaded.OpenAIKey)
	}
	if loaded.LLMModel != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", loaded.LLMModel)
	}
	if loaded.AgentName != "ConfigBot" {
		t.Errorf("name = %q, want ConfigBot", loaded.AgentName)
	}
	if loaded.APIAddr != "0.0.0.0:7070" {
		t.Errorf("api_addr = %q, want 0.0.0.0:7070", loaded.APIAddr)
	}
}

func TestLoadConfig_EnvOverridesConfigJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	cfg := persistedConfig{
		Provider: "openai",
		APIKey:   "sk-from-config",
		Model:    "gpt-4o",
		Name:     "ConfigBot",
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600)

	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	t.Setenv("LLM_MODEL", "claude-opus-4-20250514")
	t.Setenv("SENTINEL_NAME", "EnvBot")

	loaded := loadConfig()

	if loaded.LLMProvider != "claude" {
		t.Errorf("provider = %q, want claude (env override)", loaded.LLMProvider)
	}
	if loaded.ClaudeKey != "sk-ant-from-env" {
		t.Errorf("claude_key = %q, want sk-ant-from-env", loaded.ClaudeKey)
	}
	if loaded.LLMModel != "claude-opus-4-20250514" {
		t.Errorf("model = %q, want claude-opus-4-20250514", loaded.LLMModel)
	}
	if loaded.AgentName != "EnvBot" {
		t.Errorf("name = %q, want EnvBot", loaded.AgentName)
	}
}

func TestLoadConfig_OllamaFromConfigJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_HOME", dir)

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("SENTINEL_NAME", "")
	t.Setenv("SENTINEL_API_ADDR", "")

	cfg := persistedConfig{
		Provider: "ollama",
		Model:    "llama3.3",
		BaseURL:  "http://localhost:11434",
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600)

	loaded := loadConfig()

	if loaded.LLMProvider != "ollama" {
		t.Errorf("provider = %q, want ollama", loaded.LLMProvider)
	}
	if loaded.LLMBaseURL != "http://localhost:11434" {
		t.Errorf("base_url = %q", loaded.LLMBaseURL)
	}
	if loaded.LLMModel != "llama3.3" {
		t.Errorf("model = %q, want llama3.3", loaded.LLMModel)
	}
}

func TestConfigFilePath(t *testing.T) {
	t.Setenv("AGENT_HOME", "/tmp/test-sentineld")
	path := configFilePath()
	if path != "/tmp/test-sentineld/config.json" {
		t.Errorf("path = %q, want /tmp/test-sentineld/config.json", path)
	}
}

func TestTestProviderConnection_InvalidURL(t *testing.T) {
	cfg := &persistedConfig{
		Provider: "custom",
		BaseURL:  "",
	}
	err := testProviderConnection(cfg)
	if err == nil {
		t.Error("expected error for custom with no base URL")
	}
}

func TestTestProviderConnection_UnknownProvider(t *testing.T) {
	cfg := &persistedConfig{Provider: "not-a-real-provider"}
	err := testProviderConnection(cfg)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

// --- Model parsing tests ---

func modelIDs(models []modelOption) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.id
	}
	return ids
}

func TestParseOpenAIModels(t *testing.T) {
	body := []byte(`{
		"object": "list",
		"data": [
			{"id": "o4-mini", "object": "model", "owned_by": "openai", "created": 1700000003},
			{"id": "o3", "object": "model", "owned_by": "openai", "created": 1700000002},
			{"id": "text-embedding-3-small", "object": "model", "owned_by": "openai", "created": 1700000001},
			{"id": "whisper-1", "object": "model", "owned_by": "openai", "created": 1600000000},
			{"id": "gpt-4.1", "object": "model", "owned_by": "openai", "created": 1700000001},
			{"id": "gpt-3.5-turbo", "object": "model", "owned_by": "openai", "created": 1500000000},
			{"id": "gpt-4", "object": "model", "owned_by": "openai", "created": 1500000000},
			{"id": "gpt-4o", "object": "model", "owned_by": "openai", "created": 1500000000},
			{"id": "gpt-5-2025-08-07", "object": "model", "owned_by": "openai", "created": 1500000000}
		]
	}`)

	models := parseOpenAIModels(body, "openai")
	if len(models) != 3 {
		t.Fatalf("expected 3 current models, got %d: %v", len(models), modelIDs(models))
	}

	ids := map[string]bool{}
	for _, m := range models {
		ids[m.id] = true
	}
	if !ids["o4-mini"] || !ids["o3"] || !ids["gpt-4.1"] {
		t.Error("missing expected current models")
	}
	for _, bad := range []string{
		"text-embedding-3-small", "whisper-1", "gpt-3.5-turbo", "gpt-4",
		"gpt-4o", "gpt-5-2025-08-07",
	} {
		if ids[bad] {
			t.Errorf("should not include deprecated/non-chat model %q", bad)
		}
	}
}

func TestParseAnthropicModels(t *testing.T) {
	body := []byte(`{
		"data": [
			{"id": "claude-opus-4-20250514", "display_name": "Claude Opus 4", "created_at": "2025-05-14"},
			{"id": "claude-instant-1.2", "display_name": "Claude Instant", "created_at": "2023-01-01"}
		]
	}`)

	models := parseAnthropicModels(body)
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if models[0].id != "claude-opus-4-20250514" {
		t.Errorf("id = %q", models[0].id)
	}
}

func TestParseOllamaModels(t *testing.T) {
	body := []byte(`{
		"models": [
			{"name": "llama3.3", "details": {"parameter_size": "70B", "quantization_level": "Q4_0"}},
			{"name": "qwen2.5-coder", "details": {"parameter_size": "32B"}}
		]
	}`)

	models := parseOllamaModels(body)
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].id != "llama3.3" {
		t.Errorf("id = %q", models[0].id)
	}
}

func TestIsDateStamped(t *testing.T) {
	cases := map[string]bool{
		"gpt-5-2025-08-07":        true,
		"claude-opus-4-20250514":  false,
		"gpt-4o":                  false,
		"gpt-4o-2024-11-20":       true,
		"o3":                      false,
	}
	for id, want := range cases {
		if got := isDateStamped(id); got != want {
			t.Errorf("isDateStamped(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestFormatTaskSummary(t *testing.T) {
	got := formatTaskSummary(nil)
	if got != "tasks: " {
		t.Errorf("formatTaskSummary(nil) = %q", got)
	}
}
