package skills

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExternalSkillManifest describes a skill defined outside the Go binary —
// typically one the skill_writing task category generates at runtime as a
// small script plus a YAML descriptor, the Go analogue of the prototype's
// habit of dropping a new .py file into its skills directory and hot
// reloading it.
type ExternalSkillManifest struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Category    string    `yaml:"category"`
	Description string    `yaml:"description"`
	Type        SkillType `yaml:"type"`
	Command     []string  `yaml:"command"`
	WorkDir     string    `yaml:"work_dir"`
	TimeoutSecs int       `yaml:"timeout_secs"`
}

// LoadManifestDir reads every *.yaml file in dir and parses it as an
// ExternalSkillManifest. Malformed files are skipped with their error
// returned alongside any manifests that did parse, so one bad file never
// blocks the rest from loading.
func LoadManifestDir(dir string) ([]ExternalSkillManifest, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("skills: read manifest dir: %w", err)}
	}

	var manifests []ExternalSkillManifest
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("skills: read %s: %w", entry.Name(), err))
			continue
		}
		var m ExternalSkillManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			errs = append(errs, fmt.Errorf("skills: parse %s: %w", entry.Name(), err))
			continue
		}
		if m.ID == "" || len(m.Command) == 0 {
			errs = append(errs, fmt.Errorf("skills: %s missing id or command", entry.Name()))
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, errs
}

// CommandSkill runs an external command as a skill, passing the skill
// input's goal as its final argument and its parameters as KEY=VALUE
// environment variables.
type CommandSkill struct {
	command []string
	workDir string
	timeout time.Duration
}

// NewCommandSkill creates a skill backed by an external command.
func NewCommandSkill(m ExternalSkillManifest) *CommandSkill {
	timeout := 30 * time.Second
	if m.TimeoutSecs > 0 {
		timeout = time.Duration(m.TimeoutSecs) * time.Second
	}
	return &CommandSkill{command: m.Command, workDir: m.WorkDir, timeout: timeout}
}

// Execute runs the command, capturing combined stdout/stderr as the result.
func (s *CommandSkill) Execute(ctx context.Context, input SkillInput) (*SkillOutput, error) {
	if len(s.command) == 0 {
		return &SkillOutput{Success: false, Error: "command skill has no command configured"}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append([]string{}, s.command[1:]...)
	if input.Goal != "" {
		args = append(args, input.Goal)
	}
	cmd := exec.CommandContext(runCtx, s.command[0], args...)
	if s.workDir != "" {
		cmd.Dir = s.workDir
	}
	for k, v := range input.Parameters {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", strings.ToUpper(k), v))
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return &SkillOutput{
			Result:    out.String(),
			Success:   false,
			Error:     err.Error(),
			ElapsedMs: elapsed,
		}, nil
	}
	return &SkillOutput{Result: out.String(), Success: true, ElapsedMs: elapsed}, nil
}
