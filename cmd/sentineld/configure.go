package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/sentineld/sentinel/internal/security"
	"github.com/sentineld/sentinel/internal/store"
)

// persistedConfig is the JSON structure stored in ~/.sentineld/config.json.
type persistedConfig struct {
	Provider string `json:"provider,omitempty"` // "openai", "claude", "ollama", etc.
	APIKey   string `json:"api_key,omitempty"`  // API key (stored with 0600 permissions)
	Model    string `json:"model,omitempty"`    // Model override
	BaseURL  string `json:"base_url,omitempty"` // Custom base URL
	Name     string `json:"name,omitempty"`     // Agent name
	APIAddr  string `json:"api_addr,omitempty"` // API listen address
}

// configFilePath returns the path to config.json.
func configFilePath() string {
	dataDir := os.Getenv("AGENT_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataDir = filepath.Join(home, ".sentineld")
	}
	return filepath.Join(dataDir, "config.json")
}

// configKeyPath returns the path to the local passphrase file used to
// encrypt the API key at rest in config.json. It lives next to config.json
// so a copy of one without the other is just inert ciphertext.
func configKeyPath() string {
	path := configFilePath()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "config.key")
}

// loadOrCreateEncryptor loads the local passphrase file, generating one on
// first run, and returns an Encryptor wrapping it. The key never leaves
// this machine and is never logged or transmitted — it exists solely so
// config.json's API key isn't sitting in plaintext on disk.
func loadOrCreateEncryptor() (*security.Encryptor, error) {
	path := configKeyPath()
	if path == "" {
		return nil, fmt.Errorf("cannot determine config key path")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return security.NewEncryptor(strings.TrimSpace(string(data)))
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate config key: %w", err)
	}
	passphrase := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(passphrase+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return security.NewEncryptor(passphrase)
}

// loadPersistedConfig reads config.json if it exists, decrypting the API
// key if it was stored encrypted.
func loadPersistedConfig() (*persistedConfig, error) {
	path := configFilePath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg persistedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if enc, err := loadOrCreateEncryptor(); err == nil && enc.IsEncrypted(cfg.APIKey) {
		plain, err := enc.Decrypt(cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt api key: %w", err)
		}
		cfg.APIKey = plain
	}

	return &cfg, nil
}

// savePersistedConfig writes config.json with 0600 permissions, encrypting
// the API key at rest with the local config key.
func savePersistedConfig(cfg *persistedConfig) error {
	path := configFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	toWrite := *cfg
	if toWrite.APIKey != "" {
		enc, err := loadOrCreateEncryptor()
		if err != nil {
			return fmt.Errorf("load config key: %w", err)
		}
		ciphertext, err := enc.Encrypt(toWrite.APIKey)
		if err != nil {
			return fmt.Errorf("encrypt api key: %w", err)
		}
		toWrite.APIKey = ciphertext
	}

	data, err := json.MarshalIndent(toWrite, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// runConfigure runs the interactive configuration wizard.
func runConfigure() {
	fmt.Printf("\n%s v%s — Configuration Wizard\n\n", appName, version)

	reader := bufio.NewReader(os.Stdin)

	existing, _ := loadPersistedConfig()
	if existing == nil {
		existing = &persistedConfig{}
	}

	// Step 1: choose provider.
	fmt.Println("Select your LLM provider (up/down to move, Enter to select):")
	fmt.Println()

	type providerEntry struct {
		key  string
		name string
		desc string
	}
	providers := []providerEntry{
		{"openai", "OpenAI", "Requires API key"},
		{"claude", "Anthropic Claude", "Requires API key"},
		{"ollama", "Ollama", "Local models, free, no API key"},
		{"lmstudio", "LM Studio", "Local models via GUI, free"},
		{"groq", "Groq", "Fast cloud inference, requires API key"},
		{"together", "Together AI", "Open-source models hosted, requires API key"},
		{"openrouter", "OpenRouter", "Multi-provider gateway, requires API key"},
		{"bedrock", "AWS Bedrock", "Claude via Bedrock runtime, uses AWS credentials"},
		{"custom", "Custom endpoint", "Any OpenAI-compatible API"},
	}

	providerItems := make([]selectItem, len(providers))
	defaultProviderIdx := 0
	for i, p := range providers {
		providerItems[i] = selectItem{label: p.name, desc: p.desc}
		if existing.Provider == p.key {
			defaultProviderIdx = i
		}
	}

	providerIdx := interactiveSelect(providerItems, defaultProviderIdx)
	if providerIdx < 0 {
		fmt.Println("  Cancelled.")
		return
	}
	selectedProvider := providers[providerIdx]
	fmt.Printf("  selected: %s\n\n", selectedProvider.name)

	cfg := &persistedConfig{
		Provider: selectedProvider.key,
	}

	// Step 2: API key, where the provider needs one.
	needsKey := selectedProvider.key != "ollama" && selectedProvider.key != "lmstudio" && selectedProvider.key != "bedrock"
	if needsKey {
		existingKey := existing.APIKey
		masked := ""
		if existingKey != "" {
			masked = security.MaskSecret(existingKey, 4)
		}

		if masked != "" {
			fmt.Printf("  Current API key: %s\n", masked)
			fmt.Print("  Enter new API key (or press Enter to keep current): ")
		} else {
			fmt.Print("  Enter your API key: ")
		}

		key := readSecretLine(reader)
		if key == "" && existingKey != "" {
			key = existingKey
			fmt.Println("  keeping existing key")
		} else if key != "" {
			fmt.Println("  API key saved")
		} else {
			fmt.Println("  no API key provided, set it later")
		}
		cfg.APIKey = key
		fmt.Println()
	}

	// Step 3: base URL (ollama, lmstudio, bedrock region, custom).
	needsURL := selectedProvider.key == "ollama" || selectedProvider.key == "lmstudio" ||
		selectedProvider.key == "custom" || selectedProvider.key == "bedrock"
	if needsURL {
		defaultURL := ""
		switch selectedProvider.key {
		case "ollama":
			defaultURL = "http://localhost:11434"
		case "lmstudio":
			defaultURL = "http://localhost:1234"
		case "bedrock":
			defaultURL = "us-east-1"
		}
		if existing.BaseURL != "" {
			defaultURL = existing.BaseURL
		}

		label := "Base URL"
		if selectedProvider.key == "bedrock" {
			label = "AWS region"
		}
		url := promptString(reader, label, defaultURL)
		cfg.BaseURL = url
		fmt.Printf("  %s: %s\n\n", label, url)
	}

	// Step 4: model selection, fetched live where the provider supports it.
	if selectedProvider.key == "bedrock" {
		defaultModel := existing.Model
		if defaultModel == "" {
			defaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
		}
		cfg.Model = promptString(reader, "Model ID", defaultModel)
		fmt.Printf("  model: %s\n\n", cfg.Model)
	} else {
		fmt.Print("  Connecting to provider... ")
		models := fetchModelsFromAPI(selectedProvider.key, cfg.APIKey, cfg.BaseURL)
		if len(models) > 0 {
			fmt.Printf("OK, %d models available\n\n", len(models))
			fmt.Println("Select default model (up/down to move, Enter to select):")
			fmt.Println()

			modelItems := make([]selectItem, len(models)+1)
			defaultModelIdx := 0
			for i, m := range models {
				modelItems[i] = selectItem{label: m.id, desc: m.desc}
				if existing.Model == m.id {
					defaultModelIdx = i
				}
			}
			modelItems[len(models)] = selectItem{label: "Other...", desc: "enter model name manually"}

			modelIdx := interactiveSelect(modelItems, defaultModelIdx)
			if modelIdx < 0 {
				fmt.Println("  Cancelled.")
				return
			}

			if modelIdx == len(models) {
				cfg.Model = promptString(reader, "Model name", "")
			} else {
				cfg.Model = models[modelIdx].id
			}
			fmt.Printf("  model: %s\n\n", cfg.Model)
		} else {
			fmt.Println("could not reach provider")
			fmt.Println("  Check your API key and network connection.")
			fmt.Println()
			defaultModel := existing.Model
			cfg.Model = promptString(reader, "Model name", defaultModel)
			fmt.Printf("  model: %s\n\n", cfg.Model)
		}
	}

	// Step 5: agent name.
	defaultName := "Sentinel"
	if existing.Name != "" {
		defaultName = existing.Name
	}
	cfg.Name = promptString(reader, "Agent name", defaultName)
	fmt.Printf("  agent name: %s\n\n", cfg.Name)

	if err := savePersistedConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	path := configFilePath()
	fmt.Printf("  configuration saved to %s\n\n", path)

	if selectedProvider.key != "bedrock" {
		fmt.Print("  Testing connection... ")
		if err := testProviderConnection(cfg); err != nil {
			fmt.Printf("warning: %v\n", err)
			fmt.Printf("  You can fix this later and re-run: %s configure\n", appName)
		} else {
			fmt.Println("connected")
		}
	}

	fmt.Printf("\n  Ready! Run: %s cli\n\n", appName)
}

// testProviderConnection attempts a basic health check against the provider.
func testProviderConnection(cfg *persistedConfig) error {
	var url string
	switch cfg.Provider {
	case "openai":
		url = "https://api.openai.com/v1/models"
	case "claude", "anthropic":
		url = "https://api.anthropic.com/v1/models"
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		url = baseURL + "/api/tags"
	case "lmstudio":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:1234"
		}
		url = baseURL + "/v1/models"
	case "groq":
		url = "https://api.groq.com/openai/v1/models"
	case "together":
		url = "https://api.together.xyz/v1/models"
	case "openrouter":
		url = "https://openrouter.ai/api/v1/models"
	case "custom":
		if cfg.BaseURL == "" {
			return fmt.Errorf("no base URL configured")
		}
		url = strings.TrimRight(cfg.BaseURL, "/") + "/v1/models"
	default:
		return fmt.Errorf("unknown provider")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if cfg.APIKey != "" {
		switch cfg.Provider {
		case "claude", "anthropic":
			req.Header.Set("x-api-key", cfg.APIKey)
			req.Header.Set("anthropic-version", "2023-06-01")
		default:
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("authentication failed (HTTP %d) — check your API key", resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	}

	return nil
}

// runDoctor checks the configuration for issues and, where a task store
// already exists, reports its status summary — echoing the prototype's
// startup log line pairing skill and task counts.
func runDoctor() {
	fmt.Printf("\n%s v%s — Doctor\n\n", appName, version)

	issues := 0
	checks := 0

	checks++
	dataDir := os.Getenv("AGENT_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".sentineld")
	}
	if info, err := os.Stat(dataDir); err != nil {
		fmt.Printf("  [ ] Data directory: %s (does not exist)\n", dataDir)
		issues++
	} else if !info.IsDir() {
		fmt.Printf("  [ ] Data directory: %s (not a directory)\n", dataDir)
		issues++
	} else {
		fmt.Printf("  [x] Data directory: %s\n", dataDir)
	}

	checks++
	cfgPath := configFilePath()
	cfg, err := loadPersistedConfig()
	if err != nil {
		fmt.Printf("  [ ] Config file: %s (%v)\n", cfgPath, err)
		issues++
	} else if cfg == nil {
		fmt.Printf("  [ ] Config file: not found — run: %s configure\n", appName)
		issues++
	} else {
		info, _ := os.Stat(cfgPath)
		perms := info.Mode().Perm()
		if perms&0o077 != 0 {
			fmt.Printf("  [!] Config file: %s (permissions %o — should be 600)\n", cfgPath, perms)
			issues++
		} else {
			fmt.Printf("  [x] Config file: %s (permissions %o)\n", cfgPath, perms)
		}
	}

	checks++
	if cfg != nil && cfg.Provider != "" {
		fmt.Printf("  [x] Provider: %s\n", cfg.Provider)
	} else if os.Getenv("LLM_PROVIDER") != "" {
		fmt.Printf("  [x] Provider: %s (from env)\n", os.Getenv("LLM_PROVIDER"))
	} else if os.Getenv("ANTHROPIC_API_KEY") != "" {
		fmt.Printf("  [x] Provider: claude (from env ANTHROPIC_API_KEY)\n")
	} else if os.Getenv("OPENAI_API_KEY") != "" {
		fmt.Printf("  [x] Provider: openai (from env OPENAI_API_KEY)\n")
	} else {
		fmt.Printf("  [ ] Provider: not configured\n")
		issues++
	}

	checks++
	hasKey := false
	if cfg != nil && cfg.APIKey != "" {
		fmt.Printf("  [x] API key: %s (from config)\n", security.MaskSecret(cfg.APIKey, 4))
		hasKey = true
	}
	if !hasKey {
		for _, envKey := range []string{"LLM_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY"} {
			if v := os.Getenv(envKey); v != "" {
				fmt.Printf("  [x] API key: %s (from env %s)\n", security.MaskSecret(v, 4), envKey)
				hasKey = true
				break
			}
		}
	}
	if !hasKey && cfg != nil && (cfg.Provider == "ollama" || cfg.Provider == "lmstudio" || cfg.Provider == "bedrock") {
		fmt.Printf("  [x] API key: not needed (%s)\n", cfg.Provider)
		hasKey = true
	}
	if !hasKey {
		fmt.Printf("  [ ] API key: not found\n")
		issues++
	}

	checks++
	if cfg != nil && cfg.Provider != "" && cfg.Provider != "bedrock" {
		fmt.Print("  Testing connection... ")
		if err := testProviderConnection(cfg); err != nil {
			fmt.Printf("failed: %v\n", err)
			issues++
		} else {
			fmt.Println("ok")
		}
	}

	checks++
	personaPath := filepath.Join(dataDir, "persona.json")
	if _, err := os.Stat(personaPath); err == nil {
		fmt.Printf("  [x] Persona: %s\n", personaPath)
	} else {
		fmt.Printf("  [.] Persona: not initialized (will be created on first run)\n")
	}

	checks++
	dbPath := taskDBPath(Config{DataDir: dataDir})
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  [x] Task store: %s (%d KB)\n", dbPath, info.Size()/1024)
		if st, err := store.Open(dbPath); err == nil {
			if summary, err := st.Summary(context.Background()); err == nil {
				fmt.Printf("      %s\n", formatTaskSummary(summary))
			}
			st.Close()
		}
	} else {
		fmt.Printf("  [.] Task store: not created yet (will be created on first run)\n")
	}

	fmt.Println()
	if issues == 0 {
		fmt.Printf("  all %d checks passed\n\n", checks)
	} else {
		fmt.Printf("  %d/%d checks passed, %d issue(s) found\n\n", checks-issues, checks, issues)
	}
}

func formatTaskSummary(summary map[store.Status]int) string {
	var parts []string
	for status, count := range summary {
		parts = append(parts, fmt.Sprintf("%s=%d", status, count))
	}
	sort.Strings(parts)
	return "tasks: " + strings.Join(parts, " ")
}

// --- Model discovery ---

type modelOption struct {
	id   string
	desc string
}

// fetchModelsFromAPI queries the provider's API for available models.
// Returns nil if the API is unreachable or returns an error.
func fetchModelsFromAPI(provider, apiKey, baseURL string) []modelOption {
	var reqURL string
	switch provider {
	case "openai":
		reqURL = "https://api.openai.com/v1/models"
	case "claude", "anthropic":
		reqURL = "https://api.anthropic.com/v1/models?limit=100"
	case "ollama":
		base := baseURL
		if base == "" {
			base = "http://localhost:11434"
		}
		reqURL = strings.TrimRight(base, "/") + "/api/tags"
	case "lmstudio":
		base := baseURL
		if base == "" {
			base = "http://localhost:1234"
		}
		reqURL = strings.TrimRight(base, "/") + "/v1/models"
	case "groq":
		reqURL = "https://api.groq.com/openai/v1/models"
	case "together":
		reqURL = "https://api.together.xyz/v1/models"
	case "openrouter":
		reqURL = "https://openrouter.ai/api/v1/models"
	case "custom":
		if baseURL == "" {
			return nil
		}
		reqURL = strings.TrimRight(baseURL, "/") + "/v1/models"
	default:
		return nil
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil
	}

	if apiKey != "" {
		switch provider {
		case "claude", "anthropic":
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
		default:
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	return parseModelsResponse(provider, body)
}

// parseModelsResponse parses the JSON response from a provider's model list API.
func parseModelsResponse(provider string, body []byte) []modelOption {
	switch provider {
	case "ollama":
		return parseOllamaModels(body)
	case "claude", "anthropic":
		return parseAnthropicModels(body)
	case "together":
		return parseTogetherModels(body)
	case "openrouter":
		return parseOpenRouterModels(body)
	case "lmstudio":
		return parseLMStudioModels(body)
	default:
		// OpenAI, Groq, custom — all use OpenAI-compatible format.
		return parseOpenAIModels(body, provider)
	}
}

// parseOpenAIModels parses OpenAI-compatible model list (OpenAI, Groq, custom).
func parseOpenAIModels(body []byte, provider string) []modelOption {
	var resp struct {
		Data []struct {
			ID            string `json:"id"`
			OwnedBy       string `json:"owned_by"`
			Created       int64  `json:"created,omitempty"`
			ContextWindow int    `json:"context_window,omitempty"` // Groq extension
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	type modelWithTime struct {
		opt     modelOption
		created int64
	}

	var models []modelWithTime
	for _, m := range resp.Data {
		id := strings.ToLower(m.ID)

		if strings.HasPrefix(id, "text-embedding") ||
			strings.HasPrefix(id, "whisper") ||
			strings.HasPrefix(id, "tts") ||
			strings.HasPrefix(id, "dall-e") ||
			strings.Contains(id, "embed") ||
			strings.Contains(id, "moderation") ||
			strings.HasPrefix(id, "babbage") ||
			strings.HasPrefix(id, "davinci") {
			continue
		}

		if provider == "openai" {
			if strings.HasPrefix(id, "gpt-3.5") ||
				strings.HasPrefix(id, "gpt-4-") ||
				strings.HasPrefix(id, "gpt-4o-") ||
				strings.HasPrefix(id, "ft:") ||
				strings.HasPrefix(id, "chatgpt-") ||
				strings.HasPrefix(id, "sora") ||
				strings.HasPrefix(id, "gpt-image") ||
				strings.Contains(id, "-realtime") ||
				strings.Contains(id, "-audio") ||
				strings.Contains(id, "-transcribe") ||
				strings.Contains(id, "-tts") ||
				strings.Contains(id, "codex") ||
				strings.Contains(id, "-chat-latest") ||
				strings.Contains(id, "deep-research") ||
				strings.Contains(id, "-search") ||
				isDateStamped(id) ||
				id == "gpt-4" || id == "gpt-4-turbo" || id == "gpt-4o" || id == "gpt-4o-mini" {
				continue
			}
		}

		desc := ""
		if m.ContextWindow > 0 {
			desc = fmt.Sprintf("%dk context", m.ContextWindow/1000)
		}
		if m.OwnedBy != "" && m.OwnedBy != "system" && m.OwnedBy != "openai" {
			if desc != "" {
				desc += ", "
			}
			desc += m.OwnedBy
		}
		models = append(models, modelWithTime{
			opt:     modelOption{id: m.ID, desc: desc},
			created: m.Created,
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].created > models[j].created
	})

	result := make([]modelOption, 0, len(models))
	for _, m := range models {
		result = append(result, m.opt)
	}

	return result
}

// isDateStamped returns true if the model ID ends with a date suffix like "-2025-08-07".
func isDateStamped(id string) bool {
	if len(id) < 11 {
		return false
	}
	suffix := id[len(id)-11:]
	if suffix[0] != '-' {
		return false
	}
	date := suffix[1:]
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return false
	}
	for _, i := range []int{0, 1, 2, 3, 5, 6, 8, 9} {
		if date[i] < '0' || date[i] > '9' {
			return false
		}
	}
	return true
}

// parseAnthropicModels parses Anthropic's model list response.
func parseAnthropicModels(body []byte) []modelOption {
	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			CreatedAt   string `json:"created_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	var models []modelOption
	for _, m := range resp.Data {
		id := strings.ToLower(m.ID)
		if strings.HasPrefix(id, "claude-1") ||
			strings.HasPrefix(id, "claude-2") ||
			strings.HasPrefix(id, "claude-instant") {
			continue
		}
		models = append(models, modelOption{id: m.ID, desc: m.DisplayName})
	}

	return models
}

// parseOllamaModels parses Ollama's /api/tags response.
func parseOllamaModels(body []byte) []modelOption {
	var resp struct {
		Models []struct {
			Name    string `json:"name"`
			Details struct {
				ParameterSize     string `json:"parameter_size"`
				QuantizationLevel string `json:"quantization_level"`
				Family            string `json:"family"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	var models []modelOption
	for _, m := range resp.Models {
		desc := ""
		if m.Details.ParameterSize != "" {
			desc = m.Details.ParameterSize
		}
		if m.Details.QuantizationLevel != "" {
			if desc != "" {
				desc += " "
			}
			desc += m.Details.QuantizationLevel
		}
		models = append(models, modelOption{id: m.Name, desc: desc})
	}
	return models
}

// parseLMStudioModels parses LM Studio's model list.
func parseLMStudioModels(body []byte) []modelOption {
	var resp struct {
		Data []struct {
			ID           string `json:"id"`
			Type         string `json:"type"`
			Arch         string `json:"arch"`
			Quantization string `json:"quantization"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	var models []modelOption
	for _, m := range resp.Data {
		if m.Type == "embeddings" {
			continue
		}
		desc := ""
		if m.Arch != "" {
			desc = m.Arch
		}
		if m.Quantization != "" {
			if desc != "" {
				desc += " "
			}
			desc += m.Quantization
		}
		models = append(models, modelOption{id: m.ID, desc: desc})
	}
	return models
}

// parseTogetherModels parses Together AI's model list (bare JSON array).
func parseTogetherModels(body []byte) []modelOption {
	var resp []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Type        string `json:"type"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	var models []modelOption
	for _, m := range resp {
		if m.Type != "" && m.Type != "chat" && m.Type != "language" && m.Type != "code" {
			continue
		}
		models = append(models, modelOption{id: m.ID, desc: m.DisplayName})
	}

	return models
}

// parseOpenRouterModels parses OpenRouter's model list.
func parseOpenRouterModels(body []byte) []modelOption {
	var resp struct {
		Data []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Architecture struct {
				OutputModalities []string `json:"output_modalities"`
			} `json:"architecture"`
			ContextLength int `json:"context_length"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	var models []modelOption
	for _, m := range resp.Data {
		hasText := false
		for _, mod := range m.Architecture.OutputModalities {
			if mod == "text" {
				hasText = true
				break
			}
		}
		if !hasText {
			continue
		}

		desc := m.Name
		if m.ContextLength > 0 {
			desc += fmt.Sprintf(" (%dk)", m.ContextLength/1000)
		}
		models = append(models, modelOption{id: m.ID, desc: desc})
	}

	return models
}

// --- Terminal helpers ---

// selectItem is one entry in an interactive selector.
type selectItem struct {
	label string
	desc  string
}

// interactiveSelect shows an arrow-key navigable menu.
// Returns the 0-based index of the selected item, or -1 if cancelled.
// If the terminal doesn't support raw mode, falls back to numbered input.
func interactiveSelect(items []selectItem, defaultIdx int) int {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fallbackSelect(items, defaultIdx)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fallbackSelect(items, defaultIdx)
	}
	defer term.Restore(fd, oldState)

	cursor := defaultIdx
	if cursor < 0 || cursor >= len(items) {
		cursor = 0
	}

	renderSelectFull(items, cursor)

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			continue
		}

		switch {
		case n == 1 && (buf[0] == '\r' || buf[0] == '\n'):
			fmt.Printf("\r\033[%dB", len(items)-cursor)
			fmt.Print("\r\n")
			return cursor

		case n == 1 && buf[0] == 3:
			fmt.Printf("\r\033[%dB", len(items)-cursor)
			fmt.Print("\r\n")
			return -1

		case n == 1 && buf[0] == 'q':
			fmt.Printf("\r\033[%dB", len(items)-cursor)
			fmt.Print("\r\n")
			return -1

		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			if cursor > 0 {
				cursor--
				renderSelect(items, cursor)
			}

		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			if cursor < len(items)-1 {
				cursor++
				renderSelect(items, cursor)
			}

		case n == 1 && buf[0] == 'k':
			if cursor > 0 {
				cursor--
				renderSelect(items, cursor)
			}

		case n == 1 && buf[0] == 'j':
			if cursor < len(items)-1 {
				cursor++
				renderSelect(items, cursor)
			}
		}
	}
}

// renderSelectFull draws the menu for the first time (no cursor movement up).
func renderSelectFull(items []selectItem, cursor int) {
	for i, item := range items {
		fmt.Print("\r\033[K")
		if i == cursor {
			if item.desc != "" {
				fmt.Printf("  \033[1;36m> %-38s\033[0m \033[90m%s\033[0m", item.label, item.desc)
			} else {
				fmt.Printf("  \033[1;36m> %s\033[0m", item.label)
			}
		} else {
			if item.desc != "" {
				fmt.Printf("    %-38s \033[90m%s\033[0m", item.label, item.desc)
			} else {
				fmt.Printf("    %s", item.label)
			}
		}
		if i < len(items)-1 {
			fmt.Print("\n")
		}
	}
	if cursor < len(items)-1 {
		fmt.Printf("\033[%dA", len(items)-1-cursor)
	}
}

// renderSelect redraws the menu in-place (subsequent renders after first).
func renderSelect(items []selectItem, cursor int) {
	if cursor > 0 {
		fmt.Printf("\033[%dA", cursor)
	}

	for i, item := range items {
		fmt.Print("\r\033[K")
		if i == cursor {
			if item.desc != "" {
				fmt.Printf("  \033[1;36m> %-38s\033[0m \033[90m%s\033[0m", item.label, item.desc)
			} else {
				fmt.Printf("  \033[1;36m> %s\033[0m", item.label)
			}
		} else {
			if item.desc != "" {
				fmt.Printf("    %-38s \033[90m%s\033[0m", item.label, item.desc)
			} else {
				fmt.Printf("    %s", item.label)
			}
		}
		if i < len(items)-1 {
			fmt.Print("\n")
		}
	}

	if cursor < len(items)-1 {
		fmt.Printf("\033[%dA", len(items)-1-cursor)
	}
}

// fallbackSelect is a numbered-input fallback for non-TTY environments.
func fallbackSelect(items []selectItem, defaultIdx int) int {
	reader := bufio.NewReader(os.Stdin)
	for i, item := range items {
		marker := "  "
		if i == defaultIdx {
			marker = "> "
		}
		if item.desc != "" {
			fmt.Printf("  %s%d) %-38s %s\n", marker, i+1, item.label, item.desc)
		} else {
			fmt.Printf("  %s%d) %s\n", marker, i+1, item.label)
		}
	}
	fmt.Println()

	defaultStr := ""
	if defaultIdx >= 0 {
		defaultStr = fmt.Sprintf("%d", defaultIdx+1)
	}

	for {
		if defaultStr != "" {
			fmt.Printf("  Choose [%s]: ", defaultStr)
		} else {
			fmt.Print("  Choose: ")
		}

		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && defaultStr != "" {
			line = defaultStr
		}

		var choice int
		if _, err := fmt.Sscanf(line, "%d", &choice); err == nil && choice >= 1 && choice <= len(items) {
			return choice - 1
		}
		fmt.Printf("  Enter a number between 1 and %d.\n", len(items))
	}
}

// promptString asks for a string input with a default value.
func promptString(reader *bufio.Reader, prompt, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("  %s: ", prompt)
	}

	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

// readSecretLine reads a line without echoing (for API keys).
func readSecretLine(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}

	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
