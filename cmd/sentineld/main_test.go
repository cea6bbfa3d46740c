package main

import (
	"os"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Unsetenv("AGENT_HOME")
	os.Unsetenv("AGENT_WORKSPACE")
	os.Unsetenv("SENTINEL_API_ADDR")
	os.Unsetenv("SENTINEL_NAME")
	os.Unsetenv("LLM_PROVIDER")

	cfg := loadConfig()

	if cfg.APIAddr != "127.0.0.1:9090" {
		t.Errorf("APIAddr = %q, want 127.0.0.1:9090", cfg.APIAddr)
	}
	if cfg.AgentName != "Sentinel" {
		t.Errorf("AgentName = %q, want Sentinel", cfg.AgentName)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if cfg.Workspace == "" {
		t.Error("Workspace should not be empty")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AGENT_HOME", "/tmp/test-sentineld")
	t.Setenv("AGENT_WORKSPACE", "/tmp/test-sentineld/work")
	t.Setenv("SENTINEL_API_ADDR", "0.0.0.0:8888")
	t.Setenv("SENTINEL_NAME", "TestBot")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-123")

	cfg := loadConfig()

	if cfg.Workspace != "/tmp/test-sentineld/work" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.APIAddr != "0.0.0.0:8888" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.AgentName != "TestBot" {
		t.Errorf("AgentName = %q", cfg.AgentName)
	}
	if cfg.ClaudeKey != "sk-test-123" {
		t.Errorf("ClaudeKey = %q", cfg.ClaudeKey)
	}
}

func TestTaskDBPath_Default(t *testing.T) {
	os.Unsetenv("AGENT_DB")
	cfg := Config{DataDir: "/tmp/test-data"}
	if got := taskDBPath(cfg); got != "/tmp/test-data/sentinel.db" {
		t.Errorf("taskDBPath = %q", got)
	}
}

func TestTaskDBPath_EnvOverride(t *testing.T) {
	t.Setenv("AGENT_DB", "/tmp/custom.db")
	cfg := Config{DataDir: "/tmp/test-data"}
	if got := taskDBPath(cfg); got != "/tmp/custom.db" {
		t.Errorf("taskDBPath = %q", got)
	}
}

func TestCreateLLMProvider_NoneConfigured(t *testing.T) {
	cfg := Config{}
	_, _, err := createLLMProvider(cfg)
	if err == nil {
		t.Fatal("expected error when no provider is configured")
	}
}

func TestCreateLLMProvider_ClaudeKey(t *testing.T) {
	cfg := Config{ClaudeKey: "test-key"}
	p, name, err := createLLMProvider(cfg)
	if err != nil {
		t.Fatalf("createLLMProvider: %v", err)
	}
	if name != "claude" {
		t.Errorf("name = %q, want claude", name)
	}
	if p == nil {
		t.Error("provider should not be nil")
	}
}

func TestCreateLLMProvider_OpenAIKey(t *testing.T) {
	cfg := Config{OpenAIKey: "test-openai-key"}
	p, name, err := createLLMProvider(cfg)
	if err != nil {
		t.Fatalf("createLLMProvider: %v", err)
	}
	if name != "openai" {
		t.Errorf("name = %q, want openai", name)
	}
	if p == nil {
		t.Error("provider should not be nil")
	}
}

func TestCreateLLMProvider_NamedOllama(t *testing.T) {
	cfg := Config{LLMProvider: "ollama", LLMModel: "llama3.3"}
	p, name, err := createLLMProvider(cfg)
	if err != nil {
		t.Fatalf("createLLMProvider: %v", err)
	}
	if name != "ollama" {
		t.Errorf("name = %q, want ollama", name)
	}
	if p == nil {
		t.Error("provider should not be nil")
	}
}

func TestCreateLLMProvider_NamedCustomRequiresBaseURL(t *testing.T) {
	cfg := Config{LLMProvider: "custom"}
	_, _, err := createLLMProvider(cfg)
	if err == nil {
		t.Fatal("expected error when custom provider has no base URL")
	}
}

func TestCreateLLMProvider_UnknownProvider(t *testing.T) {
	cfg := Config{LLMProvider: "not-a-real-provider"}
	_, _, err := createLLMProvider(cfg)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCreateLLMBackends_AddsSecondaryFallback(t *testing.T) {
	cfg := Config{
		LLMProvider: "openai",
		OpenAIKey:   "test-openai-key",
		ClaudeKey:   "test-claude-key",
	}
	backends, primary, err := createLLMBackends(cfg)
	if err != nil {
		t.Fatalf("createLLMBackends: %v", err)
	}
	if primary != "openai" {
		t.Errorf("primary = %q, want openai", primary)
	}
	if len(backends) != 2 {
		t.Fatalf("backends = %d, want 2 (primary + claude fallback)", len(backends))
	}
}

func TestBootstrap_NoProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	cfg := Config{
		DataDir:   dir,
		Workspace: dir + "/workspace",
		AgentName: "TestAgent",
	}

	_, err := bootstrap(cfg)
	if err == nil {
		t.Fatal("expected error when no LLM provider is configured")
	}
}

func TestBootstrap_WithClaudeKey(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DataDir:   dir,
		Workspace: dir + "/workspace",
		AgentName: "TestAgent",
		ClaudeKey: "test-key",
	}

	d, err := bootstrap(cfg)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer d.close()

	if d.gw == nil {
		t.Error("gateway should not be nil")
	}
	if d.router == nil {
		t.Error("router should not be nil")
	}
	if d.pre == nil {
		t.Error("pre-pipeline should not be nil")
	}
	if d.exec == nil {
		t.Error("executor should not be nil")
	}
	if d.heartbeat == nil {
		t.Error("heartbeat should not be nil")
	}
	if d.persona == nil {
		t.Error("persona should not be nil")
	}
	if d.facts == nil {
		t.Error("facts should not be nil")
	}
	if d.shortTerm == nil {
		t.Error("shortTerm should not be nil")
	}
	if d.embedCache == nil {
		t.Error("embedCache should not be nil")
	}
	if d.registry == nil {
		t.Error("skill registry should not be nil")
	}
	if d.persona.Name() != "TestAgent" {
		t.Errorf("persona name = %q, want TestAgent", d.persona.Name())
	}
}

func TestBootstrap_Reinitialization(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DataDir:   dir,
		Workspace: dir + "/workspace",
		AgentName: "TestAgent",
		ClaudeKey: "test-key",
	}

	d1, err := bootstrap(cfg)
	if err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	d1.close()

	d2, err := bootstrap(cfg)
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	d2.close()
}
