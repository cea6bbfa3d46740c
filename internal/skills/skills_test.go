package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSkillRegistry_RegisterAndGet(t *testing.T) {
	r := NewSkillRegistry()
	r.Register(&Skill{
		Meta:     SkillMeta{ID: "skill_test", Name: "Test Skill", Type: SkillTypeCode, Status: SkillStatusActive},
		Executor: NewStubSkill("test", "not configured"),
	})

	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}
	if got := r.Get("skill_test"); got == nil || got.Meta.Name != "Test Skill" {
		t.Errorf("Get returned %+v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered skill")
	}
}

func TestSkill_RecordRun(t *testing.T) {
	s := &Skill{Meta: SkillMeta{ID: "x"}}
	s.RecordRun(&SkillOutput{Success: true, CostUSD: 0.01, ElapsedMs: 100})
	s.RecordRun(&SkillOutput{Success: false, CostUSD: 0.02, ElapsedMs: 200})

	if s.Meta.TotalRuns != 2 {
		t.Errorf("TotalRuns = %d, want 2", s.Meta.TotalRuns)
	}
	if s.Meta.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %f, want 0.5", s.Meta.SuccessRate)
	}
	if s.Meta.AvgCostUSD != 0.015 {
		t.Errorf("AvgCostUSD = %f, want 0.015", s.Meta.AvgCostUSD)
	}
}

func TestRegisterAll_SkipsDuplicates(t *testing.T) {
	r := NewSkillRegistry()
	first := RegisterAll(r, Config{DataDir: t.TempDir()})
	if first == 0 {
		t.Fatal("expected starter skills to register")
	}
	second := RegisterAll(r, Config{DataDir: t.TempDir()})
	if second != 0 {
		t.Errorf("re-registering should skip all, got %d new", second)
	}
}

func TestStubSkill_ReturnsDescriptiveFailure(t *testing.T) {
	s := NewStubSkill("browser", "requires Playwright")
	out, err := s.Execute(context.Background(), SkillInput{Goal: "take a screenshot"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Error("stub skill should never report success")
	}
	if out.Error == "" {
		t.Error("expected a descriptive error message")
	}
}

func TestFileOpsSkill_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	s := NewFileOpsSkill(dir)

	_, err := s.Execute(context.Background(), SkillInput{
		Goal: "write",
		Parameters: map[string]string{
			"action":  "write",
			"path":    "notes.txt",
			"content": "hello world",
		},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := s.Execute(context.Background(), SkillInput{
		Goal: "read",
		Parameters: map[string]string{
			"action": "read",
			"path":    "notes.txt",
		},
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Result != "hello world" {
		t.Errorf("result = %q, want %q", out.Result, "hello world")
	}
}

func TestCodeExecSkill_NoSandboxConfigured(t *testing.T) {
	s := NewCodeExecSkill(nil)
	out, err := s.Execute(context.Background(), SkillInput{Goal: "print(1)"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Error("expected failure with no sandbox configured")
	}
}

// --- CommandSkill / manifest loading ---

func TestLoadManifestDir_ParsesValidManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "echo.yaml", `
id: skill_echo
name: Echo
type: CODE
command: ["/bin/echo"]
`)

	manifests, errs := LoadManifestDir(dir)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(manifests) != 1 || manifests[0].ID != "skill_echo" {
		t.Fatalf("manifests = %+v", manifests)
	}
}

func TestLoadManifestDir_SkipsMalformedFilesButKeepsGoodOnes(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "good.yaml", `
id: skill_good
command: ["/bin/echo"]
`)
	writeManifest(t, dir, "bad.yaml", `
name: missing id and command
`)

	manifests, errs := LoadManifestDir(dir)
	if len(manifests) != 1 {
		t.Fatalf("expected 1 valid manifest, got %d", len(manifests))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for the malformed file, got %d: %v", len(errs), errs)
	}
}

func TestCommandSkill_Execute(t *testing.T) {
	s := NewCommandSkill(ExternalSkillManifest{
		ID:      "skill_echo",
		Command: []string{"/bin/echo", "-n"},
	})
	out, err := s.Execute(context.Background(), SkillInput{Goal: "hello from command skill"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Errorf("expected success, got error: %s", out.Error)
	}
	if out.Result != "hello from command skill" {
		t.Errorf("result = %q", out.Result)
	}
}

func TestCommandSkill_NoCommandConfigured(t *testing.T) {
	s := NewCommandSkill(ExternalSkillManifest{ID: "skill_empty"})
	out, err := s.Execute(context.Background(), SkillInput{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Error("expected failure with no command configured")
	}
}

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}
