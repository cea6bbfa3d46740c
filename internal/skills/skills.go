// The 20 starter skills available to every agent. Each implements
// SkillExecutor and registers into a SkillRegistry, organized into 5
// categories:
//
//   - Development & Code: CodeExec, Git, Testing, Browser, Database
//   - Communication: Email, Calendar, Messaging, Documents
//   - Research & Information: WebSearch, PDFAnalysis, DataAggregation, Monitoring
//   - File & Data: FileOps, DataAnalysis, KnowledgeSearch
//   - Automation & Security: APIIntegration, Scheduler, Audit, Credentials
//
// Skills that require external services (APIs, binaries) are implemented
// as stubs that return descriptive errors when their backend is not configured.
package skills

import (
	"github.com/sentineld/sentinel/internal/storage"
)

// Config holds configuration for all starter skills.
type Config struct {
	DataDir     string           // Base directory for file operations
	Store       storage.Store    // Persistent storage for credentials, audit, etc.
	Sandbox     *DockerSandbox // Docker sandbox for code execution
}

// SkillDef describes a starter skill for registration.
type SkillDef struct {
	ID          string
	Name        string
	Category    string
	Description string
	Type        SkillType
	Executor    SkillExecutor
}

// RegisterAll creates and registers all 20 starter skills.
// Returns the number of skills registered.
func RegisterAll(registry *SkillRegistry, cfg Config) int {
	defs := AllSkills(cfg)
	count := 0
	for _, d := range defs {
		if registry.Get(d.ID) != nil {
			continue // Skip already registered.
		}
		skill := &Skill{
			Executor: d.Executor,
			Meta: SkillMeta{
				ID:     d.ID,
				Name:   d.Name,
				Type:   d.Type,
				Status: SkillStatusActive,
			},
		}
		registry.Register(skill)
		count++
	}
	return count
}

// AllSkills returns definitions for all 20 starter skills.
func AllSkills(cfg Config) []SkillDef {
	return []SkillDef{
		// --- Development & Code (5) ---
		{ID: "skill_code_exec", Name: "Code Execution", Category: "dev", Description: "Run Python/JS/Bash in Docker sandbox", Type: SkillTypeCode, Executor: NewCodeExecSkill(cfg.Sandbox)},
		{ID: "skill_git", Name: "Git Management", Category: "dev", Description: "Clone, branch, commit, push, PR", Type: SkillTypeCode, Executor: NewGitSkill(cfg.DataDir)},
		{ID: "skill_testing", Name: "Testing & QA", Category: "dev", Description: "Generate and run tests, coverage", Type: SkillTypeHybrid, Executor: NewTestingSkill(cfg.Sandbox)},
		{ID: "skill_browser", Name: "Browser Automation", Category: "dev", Description: "Playwright UI tests, screenshots", Type: SkillTypeCode, Executor: NewStubSkill("browser", "Browser automation requires Playwright")},
		{ID: "skill_database", Name: "Database Query", Category: "dev", Description: "SQL queries, migrations, schema analysis", Type: SkillTypeCode, Executor: NewStubSkill("database", "Database requires connection config")},

		// --- Communication (4) ---
		{ID: "skill_email", Name: "Email Management", Category: "comm", Description: "Read/draft/send via IMAP/SMTP", Type: SkillTypeCode, Executor: NewStubSkill("email", "Email requires IMAP/SMTP config")},
		{ID: "skill_calendar", Name: "Calendar Integration", Category: "comm", Description: "Schedule, check slots, invitations", Type: SkillTypeCode, Executor: NewStubSkill("calendar", "Calendar requires CalDAV/API config")},
		{ID: "skill_messaging", Name: "Messaging", Category: "comm", Description: "Slack/Discord/Telegram messaging", Type: SkillTypeCode, Executor: NewStubSkill("messaging", "Messaging requires platform tokens")},
		{ID: "skill_docs", Name: "Document Collaboration", Category: "comm", Description: "Google Docs, Notion read/edit", Type: SkillTypeCode, Executor: NewStubSkill("docs", "Document collaboration requires API tokens")},

		// --- Research & Information (4) ---
		{ID: "skill_websearch", Name: "Web Search", Category: "research", Description: "Search + extract data from web", Type: SkillTypeCode, Executor: NewWebSearchSkill()},
		{ID: "skill_pdf", Name: "PDF & Document Analysis", Category: "research", Description: "Extract text, tables, analyze content", Type: SkillTypeCode, Executor: NewStubSkill("pdf", "PDF analysis requires poppler or similar")},
		{ID: "skill_aggregation", Name: "Data Aggregation", Category: "research", Description: "Collect data from sources, normalize", Type: SkillTypeCode, Executor: NewAPIIntegrationSkill()},
		{ID: "skill_monitoring", Name: "Real-time Monitoring", Category: "research", Description: "Track website changes, RSS, prices", Type: SkillTypeCode, Executor: NewStubSkill("monitoring", "Monitoring requires scheduler + targets config")},

		// --- File & Data Management (3) ---
		{ID: "skill_fileops", Name: "File Operations", Category: "data", Description: "Read/write, organize, pattern search", Type: SkillTypeCode, Executor: NewFileOpsSkill(cfg.DataDir)},
		{ID: "skill_data_analysis", Name: "Data Analysis", Category: "data", Description: "CSV/JSON processing, statistics", Type: SkillTypeCode, Executor: NewDataAnalysisSkill()},
		{ID: "skill_knowledge", Name: "Knowledge Base Search", Category: "data", Description: "RAG over documents with semantic search", Type: SkillTypeCode, Executor: NewKnowledgeSearchSkill(cfg.Store)},

		// --- Automation & Security (4) ---
		{ID: "skill_api", Name: "API Integration", Category: "auto", Description: "REST calls, webhook handling", Type: SkillTypeCode, Executor: NewAPIIntegrationSkill()},
		{ID: "skill_scheduler", Name: "Scheduled Tasks", Category: "auto", Description: "Cron tasks, reminders, triggers", Type: SkillTypeCode, Executor: NewSchedulerSkill(cfg.Store)},
		{ID: "skill_audit", Name: "Audit & Logging", Category: "auto", Description: "Action logging, audit trail", Type: SkillTypeCode, Executor: NewAuditSkill(cfg.Store)},
		{ID: "skill_credentials", Name: "Credential Management", Category: "auto", Description: "Secure API key and token storage", Type: SkillTypeCode, Executor: NewCredentialSkill(cfg.Store)},
	}
}
