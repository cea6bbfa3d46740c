// Package main is the entry point for the Sentinel daemon.
//
// Usage:
//
//	sentineld start      — daemon mode (HTTP API + heartbeat)
//	sentineld cli        — interactive CLI mode (stdin/stdout)
//	sentineld configure  — interactive setup wizard
//	sentineld doctor      — diagnose configuration and report task store state
//	sentineld status      — check daemon health
//	sentineld version     — print version
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sentineld/sentinel/internal/events"
	"github.com/sentineld/sentinel/internal/executor"
	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/heartbeat"
	"github.com/sentineld/sentinel/internal/httpapi"
	"github.com/sentineld/sentinel/internal/mcp"
	"github.com/sentineld/sentinel/internal/memory"
	"github.com/sentineld/sentinel/internal/observability"
	"github.com/sentineld/sentinel/internal/persona"
	"github.com/sentineld/sentinel/internal/prepipeline"
	"github.com/sentineld/sentinel/internal/proactive"
	"github.com/sentineld/sentinel/internal/router"
	"github.com/sentineld/sentinel/internal/senses"
	"github.com/sentineld/sentinel/internal/skills"
	"github.com/sentineld/sentinel/internal/storage"
	"github.com/sentineld/sentinel/internal/store"
)

const (
	version = "0.1.0"
	appName = "sentineld"
)

// Config holds the daemon configuration.
type Config struct {
	DataDir        string
	Workspace      string
	ScreenshotsDir string
	AgentName      string
	APIAddr        string
	ClaudeKey      string
	OpenAIKey      string

	// Universal provider settings.
	LLMProvider string // "openai", "claude", "ollama", "lmstudio", "groq", "together", "openrouter", "bedrock", "custom"
	LLMBaseURL  string // Custom base URL (for "custom" or override)
	LLMModel    string // Default model override
	LLMAPIKey   string // API key (for custom/groq/together/openrouter providers)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "cli":
		ensureConfigured()
		runCLI()
	case "start":
		ensureConfigured()
		runDaemon()
	case "configure", "config", "setup":
		runConfigure()
	case "doctor":
		runDoctor()
	case "version":
		fmt.Printf("%s v%s\n", appName, version)
	case "status":
		runStatus()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s v%s — locally-hosted personal assistant core

Usage:
  %s <command>

Commands:
  configure  Interactive setup wizard (API keys, provider, model)
  cli        Interactive CLI mode (stdin/stdout)
  start      Start daemon (HTTP API + heartbeat scheduler)
  status     Check daemon health (requires running daemon)
  doctor     Diagnose configuration issues
  version    Print version

Environment variables (override config.json):
  ANTHROPIC_API_KEY   Claude API key (auto-detected)
  OPENAI_API_KEY      OpenAI API key (auto-detected)
  AGENT_HOME          Data directory (default: ~/.sentineld)
  AGENT_DB            Task store database path override
  AGENT_WORKSPACE     Skill file-operations workspace (default: $AGENT_HOME/workspace)
  AGENT_SCREENSHOTS   Screenshot output directory (default: $AGENT_HOME/screenshots)
  SENTINEL_API_ADDR   API listen address (default: 127.0.0.1:9090)
  SENTINEL_NAME       Agent name (default: Sentinel)
  LLM_PROVIDER        Provider: openai, claude, ollama, lmstudio, groq, together, openrouter, bedrock, custom
  LLM_BASE_URL        Custom API base URL (e.g., http://localhost:11434 for Ollama)
  LLM_MODEL           Default model override (e.g., llama3.3, gpt-4o, claude-sonnet-4-20250514)
  LLM_API_KEY         API key for custom/groq/together/openrouter providers

`, appName, version, appName)
}

func loadConfig() Config {
	dataDir := os.Getenv("AGENT_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dataDir = filepath.Join(home, ".sentineld")
	}

	// Defaults.
	cfg := Config{
		DataDir:        dataDir,
		Workspace:      filepath.Join(dataDir, "workspace"),
		ScreenshotsDir: filepath.Join(dataDir, "screenshots"),
		AgentName:      "Sentinel",
		APIAddr:        "127.0.0.1:9090",
	}

	// Layer 1: load from config.json (persistent settings).
	if persisted, err := loadPersistedConfig(); err == nil && persisted != nil {
		if persisted.Provider != "" {
			cfg.LLMProvider = persisted.Provider
		}
		if persisted.APIKey != "" {
			cfg.LLMAPIKey = persisted.APIKey
			switch persisted.Provider {
			case "claude", "anthropic":
				cfg.ClaudeKey = persisted.APIKey
			case "openai":
				cfg.OpenAIKey = persisted.APIKey
			}
		}
		if persisted.Model != "" {
			cfg.LLMModel = persisted.Model
		}
		if persisted.BaseURL != "" {
			cfg.LLMBaseURL = persisted.BaseURL
		}
		if persisted.Name != "" {
			cfg.AgentName = persisted.Name
		}
		if persisted.APIAddr != "" {
			cfg.APIAddr = persisted.APIAddr
		}
	}

	// Layer 2: environment variables override config.json.
	if v := os.Getenv("AGENT_WORKSPACE"); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv("AGENT_SCREENSHOTS"); v != "" {
		cfg.ScreenshotsDir = v
	}
	if v := os.Getenv("SENTINEL_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("SENTINEL_NAME"); v != "" {
		cfg.AgentName = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.ClaudeKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}

	return cfg
}

// taskDBPath returns the task store's database path, honoring AGENT_DB.
func taskDBPath(cfg Config) string {
	if v := os.Getenv("AGENT_DB"); v != "" {
		return v
	}
	return filepath.Join(cfg.DataDir, "sentinel.db")
}

// ensureConfigured checks if the system is configured and guides the user if not.
func ensureConfigured() {
	cfg := loadConfig()

	hasProvider := cfg.LLMProvider != "" || cfg.ClaudeKey != "" || cfg.OpenAIKey != ""
	if hasProvider {
		return
	}

	persisted, _ := loadPersistedConfig()
	if persisted != nil && persisted.Provider != "" {
		return
	}

	fmt.Printf("\nWelcome to %s v%s!\n\n", appName, version)
	fmt.Println("  No LLM provider configured. Let's set one up.")
	fmt.Println()
	fmt.Println("  Quick options:")
	fmt.Println("    1) Run the setup wizard:  sentineld configure")
	fmt.Println("    2) Set an env variable:   export OPENAI_API_KEY=sk-...")
	fmt.Println("    3) Use a local model:     export LLM_PROVIDER=ollama")
	fmt.Println()

	if isTerminal() {
		fmt.Print("  Start setup wizard now? [Y/n]: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(strings.ToLower(line))
		if line == "" || line == "y" || line == "yes" {
			fmt.Println()
			runConfigure()
			return
		}
	}

	fmt.Fprintf(os.Stderr, "  Run '%s configure' to set up your provider.\n\n", appName)
	os.Exit(1)
}

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// deps bundles every subsystem runCLI/runDaemon need, torn down via close().
type deps struct {
	store   *store.Store
	ltm     *memory.LongTermMemory
	skillDB *storage.SQLiteStore

	gw         *gateway.Gateway
	router     *router.DynamicRouter
	pre        *prepipeline.PrePipeline
	exec       *executor.Executor
	heartbeat  *heartbeat.Scheduler
	persona    *persona.Persona
	facts      *memory.UserFacts
	shortTerm  *memory.ShortTermMemory
	embedCache *memory.EmbedCache
	proactive  *proactive.Engine
	sink       *events.Sink
	log        *observability.Logger
	metrics    *observability.Metrics

	registry *skills.SkillRegistry
	mcpReg   *mcp.Registry
}

func (d *deps) close() {
	d.heartbeat.Stop()
	d.mcpReg.DisconnectAll()
	d.skillDB.Close()
	d.ltm.Close()
	d.store.Close()
}

// bootstrap initializes every subsystem and wires them into a deps bundle.
func bootstrap(cfg Config) (*deps, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	log := observability.NewLogger("sentineld", nil)
	metrics := observability.NewMetrics(0, nil)

	backends, primaryName, err := createLLMBackends(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("bootstrap: LLM backends ready", "primary", primaryName, "count", len(backends))
	gw := gateway.New(log, metrics, backends...)

	st, err := store.Open(taskDBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("task store: %w", err)
	}
	if err := st.SeedIfEmpty(context.Background()); err != nil {
		log.Warn("bootstrap: seed tasks", "error", err)
	}

	ltm, err := memory.NewLongTermMemory(filepath.Join(cfg.DataDir, "memory.db"))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("long-term memory: %w", err)
	}

	facts, err := memory.NewUserFacts(ltm.DB())
	if err != nil {
		ltm.Close()
		st.Close()
		return nil, fmt.Errorf("user facts: %w", err)
	}
	shortTerm := memory.NewShortTermMemory(100)
	embedCache := memory.NewEmbedCache(500)

	skillDB, err := storage.NewSQLiteStore(filepath.Join(cfg.DataDir, "skills.db"))
	if err != nil {
		ltm.Close()
		st.Close()
		return nil, fmt.Errorf("skill storage: %w", err)
	}

	sandbox := skills.NewDockerSandbox(skills.DefaultSandboxConfig())
	registry := skills.NewSkillRegistry()
	registered := skills.RegisterAll(registry, skills.Config{
		DataDir: cfg.Workspace,
		Store:   skillDB,
		Sandbox: sandbox,
	})
	log.Info("bootstrap: starter skills registered", "count", registered)

	mcpReg := mcp.NewRegistry()
	if errs := mcpReg.ConnectAll(context.Background()); len(errs) > 0 {
		for _, e := range errs {
			log.Warn("bootstrap: mcp connect failed", "error", e.Error())
		}
	}
	bridged := mcp.RegisterTools(mcpReg, registry)
	log.Info("bootstrap: mcp tools bridged", "count", bridged)

	rtr := router.NewDynamicRouter()

	pre, err := prepipeline.New(gw, cfg.LLMModel, log)
	if err != nil {
		skillDB.Close()
		ltm.Close()
		st.Close()
		return nil, fmt.Errorf("pre-pipeline: %w", err)
	}

	exec := executor.New(gw, registry, log, metrics)

	sink := events.NewSink()
	hb := heartbeat.New(st, registry, exec, gw, sink, log, metrics, heartbeat.DefaultConfig())

	pers := persona.New(filepath.Join(cfg.DataDir, "persona.json"))
	if pers.Name() == "" && cfg.AgentName != "" {
		pcfg := pers.Get()
		pcfg.Name = cfg.AgentName
		_ = pers.Save(pcfg)
	}

	pro := proactive.New(gw, facts, log)

	return &deps{
		store:     st,
		ltm:       ltm,
		skillDB:   skillDB,
		gw:        gw,
		router:    rtr,
		pre:       pre,
		exec:      exec,
		heartbeat: hb,
		persona:    pers,
		facts:      facts,
		shortTerm:  shortTerm,
		embedCache: embedCache,
		proactive:  pro,
		sink:       sink,
		log:        log,
		metrics:    metrics,
		registry:  registry,
		mcpReg:    mcpReg,
	}, nil
}

// createLLMBackends builds the Gateway's ordered backend chain: the
// explicitly configured (or auto-detected) provider first, followed by any
// other provider whose credentials happen to be present in the
// environment, so the fallback chain the Gateway documents actually has
// more than one link to fall through in a typical multi-key setup.
func createLLMBackends(cfg Config) ([]gateway.LLMProvider, string, error) {
	primary, primaryName, err := createLLMProvider(cfg)
	if err != nil {
		return nil, "", err
	}
	backends := []gateway.LLMProvider{primary}

	if primaryName != "claude" && cfg.ClaudeKey != "" {
		backends = append(backends, gateway.NewClaudeProvider(cfg.ClaudeKey))
	}
	if primaryName != "openai" && cfg.OpenAIKey != "" {
		backends = append(backends, gateway.NewOpenAIProvider(cfg.OpenAIKey))
	}
	return backends, primaryName, nil
}

// createLLMProvider creates the appropriate LLM provider based on config.
// Priority: LLM_PROVIDER env > ANTHROPIC_API_KEY > OPENAI_API_KEY.
func createLLMProvider(cfg Config) (gateway.LLMProvider, string, error) {
	if cfg.LLMProvider != "" {
		return createNamedProvider(cfg)
	}

	if cfg.ClaudeKey != "" {
		return gateway.NewClaudeProvider(cfg.ClaudeKey), "claude", nil
	}
	if cfg.OpenAIKey != "" {
		opts := []gateway.OpenAIOption{}
		if cfg.LLMModel != "" {
			opts = append(opts, gateway.WithOpenAIDefaultModel(cfg.LLMModel))
		}
		return gateway.NewOpenAIProvider(cfg.OpenAIKey, opts...), "openai", nil
	}

	return nil, "", fmt.Errorf("no LLM provider configured.\n\nSet one of:\n" +
		"  export OPENAI_API_KEY=sk-...          # OpenAI\n" +
		"  export ANTHROPIC_API_KEY=sk-ant-...   # Claude\n" +
		"  export LLM_PROVIDER=ollama            # Local Ollama\n" +
		"  export LLM_PROVIDER=custom LLM_BASE_URL=http://... LLM_MODEL=...\n")
}

// createNamedProvider creates a provider by name.
func createNamedProvider(cfg Config) (gateway.LLMProvider, string, error) {
	apiKey := cfg.LLMAPIKey
	model := cfg.LLMModel

	switch cfg.LLMProvider {
	case "openai":
		if apiKey == "" {
			apiKey = cfg.OpenAIKey
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("openai: set OPENAI_API_KEY or LLM_API_KEY")
		}
		opts := []gateway.OpenAIOption{}
		if model != "" {
			opts = append(opts, gateway.WithOpenAIDefaultModel(model))
		}
		return gateway.NewOpenAIProvider(apiKey, opts...), "openai", nil

	case "claude", "anthropic":
		if apiKey == "" {
			apiKey = cfg.ClaudeKey
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("claude: set ANTHROPIC_API_KEY or LLM_API_KEY")
		}
		opts := []gateway.ClaudeOption{}
		if model != "" {
			opts = append(opts, gateway.WithClaudeDefaultModel(model))
		}
		return gateway.NewClaudeProvider(apiKey, opts...), "claude", nil

	case "bedrock":
		region := cfg.LLMBaseURL
		if region == "" {
			region = "us-east-1"
		}
		p, err := gateway.NewBedrockProvider(context.Background(), region, model)
		if err != nil {
			return nil, "", fmt.Errorf("bedrock: %w", err)
		}
		return p, "bedrock", nil

	case "ollama":
		pcfg := gateway.OllamaConfig(model)
		if cfg.LLMBaseURL != "" {
			pcfg.BaseURL = cfg.LLMBaseURL
		}
		return gateway.NewUniversalProvider(pcfg), "ollama", nil

	case "lmstudio":
		pcfg := gateway.LMStudioConfig(model)
		if cfg.LLMBaseURL != "" {
			pcfg.BaseURL = cfg.LLMBaseURL
		}
		return gateway.NewUniversalProvider(pcfg), "lmstudio", nil

	case "groq":
		if apiKey == "" {
			return nil, "", fmt.Errorf("groq: set LLM_API_KEY")
		}
		pcfg := gateway.GroqConfig(apiKey)
		if model != "" {
			pcfg.DefaultModel = model
		}
		return gateway.NewUniversalProvider(pcfg), "groq", nil

	case "together":
		if apiKey == "" {
			return nil, "", fmt.Errorf("together: set LLM_API_KEY")
		}
		pcfg := gateway.TogetherConfig(apiKey)
		if model != "" {
			pcfg.DefaultModel = model
		}
		return gateway.NewUniversalProvider(pcfg), "together", nil

	case "openrouter":
		if apiKey == "" {
			return nil, "", fmt.Errorf("openrouter: set LLM_API_KEY")
		}
		pcfg := gateway.OpenRouterConfig(apiKey)
		if model != "" {
			pcfg.DefaultModel = model
		}
		return gateway.NewUniversalProvider(pcfg), "openrouter", nil

	case "custom":
		if cfg.LLMBaseURL == "" {
			return nil, "", fmt.Errorf("custom: set LLM_BASE_URL")
		}
		if model == "" {
			model = "default"
		}
		return gateway.NewUniversalProvider(gateway.CustomConfig("custom", cfg.LLMBaseURL, apiKey, model)), "custom", nil

	default:
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER: %q (use: openai, claude, ollama, lmstudio, groq, together, openrouter, bedrock, custom)", cfg.LLMProvider)
	}
}

// runCLI starts the agent in interactive CLI mode: a thin stdin/stdout
// loop over the same Pre-Pipeline/Router/Executor chain the HTTP API
// drives, with no generated UI surface.
func runCLI() {
	cfg := loadConfig()
	d, err := bootstrap(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[cli] bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()

	cli := senses.NewCLISense(os.Stdin, os.Stdout)
	in := make(chan *senses.UnifiedInput, 10)

	go func() {
		if err := cli.Start(ctx, in); err != nil && ctx.Err() == nil {
			d.log.Warn("cli: sense error", "error", err)
		}
		cancel()
	}()

	fmt.Printf("%s v%s — interactive mode (type /quit to exit)\n\n", appName, d.persona.Name())

	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-in:
			if !ok {
				return
			}
			reply := runTurn(ctx, d, input.Payload)
			cli.Send(ctx, "", reply)
		}
	}
}

// runTurn drives one message through the same pipeline the HTTP chat
// handler uses, returning the assistant's final text.
func runTurn(ctx context.Context, d *deps, message string) string {
	d.facts.ExtractHeuristic(message)
	userCtx := d.facts.ContextForPrompt()

	pre := d.pre.Run(ctx, message)
	decision := d.router.RouteToModel(ctx, pre.Category, false)
	fallback := decision.FallbackChain(d.router.GetFallback(ctx, decision.Model))

	past, _ := d.store.SearchInteractions(ctx, message, 3)
	pastCtx := formatPastTurns(past)

	systemPrompt := d.persona.SystemPrompt(decision.Model, pre.Category, userCtx, pastCtx)
	prompt := message
	if pre.Rewritten != "" {
		prompt = pre.Rewritten
	}

	res, err := d.exec.RunValidated(ctx, executor.ValidatedRequest{
		RunRequest: executor.RunRequest{
			Prompt:        prompt,
			System:        systemPrompt,
			Model:         decision.Model,
			FallbackChain: fallback,
			Category:      pre.Category,
			TokenBudget:   decision.TokenBudget,
		},
		MaxRetries: executor.DefaultUserRetries,
	})
	if err != nil {
		return "Something went wrong on my end: " + err.Error()
	}

	d.store.LogInteraction(ctx, store.Interaction{
		UserInput: message,
		Output:    res.Output,
		Category:  pre.Category,
		ModelUsed: res.Model,
		Success:   res.Success,
		ToolCalls: res.ToolCalls,
	})
	return res.Output
}

func formatPastTurns(past []store.Interaction) string {
	if len(past) == 0 {
		return "No relevant past interactions."
	}
	var b strings.Builder
	for _, in := range past {
		fmt.Fprintf(&b, "- User: %s\n  You: %s\n", in.UserInput, in.Output)
	}
	return b.String()
}

// runDaemon starts the full daemon: HTTP API plus heartbeat scheduler.
func runDaemon() {
	cfg := loadConfig()
	d, err := bootstrap(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[daemon] bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.heartbeat.Start(ctx); err != nil {
		d.log.Warn("daemon: heartbeat failed to start", "error", err)
	}

	srv := httpapi.NewServer(cfg.APIAddr, httpapi.Deps{
		Store:      d.store,
		Exec:       d.exec,
		Gateway:    d.gw,
		Router:     d.router,
		Pre:        d.pre,
		Persona:    d.persona,
		Heartbeat:  d.heartbeat,
		Facts:      d.facts,
		ShortTerm:  d.shortTerm,
		EmbedCache: d.embedCache,
		Proactive:  d.proactive,
		Sink:       d.sink,
		Log:        d.log,
		Metrics:    d.metrics,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		d.log.Info("daemon: API listening", "addr", cfg.APIAddr)
		if err := srv.Start(); err != nil {
			d.log.Warn("daemon: API server stopped", "error", err)
		}
	}()

	d.log.Info("daemon started", "agent", d.persona.Name(), "version", version)

	<-sigCh
	d.log.Info("daemon: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("daemon: api shutdown error", "error", err)
	}
	d.log.Info("daemon: shutdown complete")
}

// runStatus checks if the daemon is running by hitting the health endpoint.
func runStatus() {
	cfg := loadConfig()
	addr := cfg.APIAddr

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		fmt.Printf("daemon is NOT running at %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("daemon is running at %s\n", addr)
	} else {
		fmt.Printf("daemon returned status %d\n", resp.StatusCode)
		os.Exit(1)
	}
}
