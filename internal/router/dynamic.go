package router

import (
	"context"
	"os/exec"
	"strings"
)

// LocalClass groups locally-installed models by how expensive they are to
// run, mirroring the speed tiers the bootstrap prototype used when picking
// an Ollama model for a given category of work.
type LocalClass string

const (
	ClassFast   LocalClass = "fast"
	ClassNormal LocalClass = "normal"
	ClassCoding LocalClass = "coding"
	ClassSlow   LocalClass = "slow"
)

// tierPreferences lists, per class, the preferred model names in priority
// order. The first one actually installed wins.
var tierPreferences = map[LocalClass][]string{
	ClassFast:   {"llama3.2:3b", "llama3.2:1b", "qwen2.5:3b", "qwen2.5:0.5b"},
	ClassNormal: {"llama3.1:8b", "mistral:7b", "qwen2.5:7b", "llama3.2:3b"},
	ClassCoding: {"qwen2.5-coder:7b", "qwen2.5-coder:14b", "llama3.1:8b", "llama3.2:3b"},
	ClassSlow:   {"qwen2.5:14b", "phi4:14b", "deepseek-r1:14b", "llama3.1:8b", "llama3.2:3b"},
}

// CategoryClass maps a task category to the local model class that should
// serve it. Categories absent from the map default to ClassFast.
var CategoryClass = map[string]LocalClass{
	"general_chat":       ClassFast,
	"summarization":      ClassFast,
	"translation":        ClassFast,
	"sentiment_analysis": ClassFast,
	"web_search":         ClassNormal,
	"research":           ClassNormal,
	"planning":           ClassNormal,
	"data_analysis":      ClassNormal,
	"file_management":    ClassNormal,
	"task_management":    ClassNormal,
	"creative_writing":   ClassNormal,
	"coding":             ClassCoding,
	"debugging":          ClassCoding,
	"shell_command":      ClassCoding,
	"math":               ClassCoding,
	"skill_writing":      ClassSlow,
	"agentic_task":       ClassSlow,
	"reasoning":          ClassSlow,
}

// defaultFallbackModel is returned when nothing else can be determined —
// the first model in ClassFast's preference list.
const defaultFallbackModel = "llama3.2:3b"

// Tier names the closed set of routing tiers a RouteDecision can carry.
// 3b/8b/14b are the three installed-model classes; the "_with_escalation"
// variants additionally carry an EscalationTarget the Executor can restart
// against on an ESCALATE: reply. 14b_direct never escalates further.
type Tier string

const (
	Tier3B            Tier = "3b"
	Tier3BEscalation  Tier = "3b_with_escalation"
	Tier8B            Tier = "8b"
	Tier8BEscalation  Tier = "8b_with_escalation"
	Tier14BDirect     Tier = "14b_direct"
)

// classTier maps a LocalClass to its base tier name before any escalation
// suffix is applied.
var classTier = map[LocalClass]Tier{
	ClassFast:   Tier3B,
	ClassNormal: Tier8B,
	ClassCoding: Tier8B,
	ClassSlow:   Tier14BDirect,
}

// escalatesTo maps a class to the next class up the Executor may escalate
// to. ClassSlow has no entry: 14b_direct is the top of the chain.
var escalatesTo = map[LocalClass]LocalClass{
	ClassFast:   ClassNormal,
	ClassNormal: ClassSlow,
	ClassCoding: ClassSlow,
}

// AlwaysLargeCategories bypass the smaller candidate model entirely and
// route straight to the largest tier — code that must be correct on the
// first try, where a failed smaller attempt just wastes a round trip.
var AlwaysLargeCategories = map[string]bool{
	"skill_writing":  true,
	"error_recovery": true,
}

// NeverLargeCategories never escalate, even when the smaller model asks to —
// chat-like categories where a bigger model wouldn't meaningfully help.
var NeverLargeCategories = map[string]bool{
	"general_chat":  true,
	"summarization": true,
	"translation":   true,
}

// ExpansiveCategories override the tier-derived token budget with a larger
// one even at a low tier, because their output is naturally long (generated
// code, research writeups, plans) regardless of which model produces it.
var ExpansiveCategories = map[string]bool{
	"skill_writing":    true,
	"coding":           true,
	"research":         true,
	"planning":         true,
	"debugging":        true,
	"agentic_task":     true,
	"data_analysis":    true,
	"creative_writing": true,
}

// tierBudget gives the default token budget and context window for each
// base tier; higher tiers get more of both.
var tierBudget = map[Tier]struct {
	tokens  int
	context int
}{
	Tier3B:           {800, 4096},
	Tier3BEscalation: {800, 4096},
	Tier8B:           {1500, 8192},
	Tier8BEscalation: {1500, 8192},
	Tier14BDirect:    {3000, 16384},
}

// expansiveTokenBudget is the token budget an expansive category gets
// regardless of tier.
const expansiveTokenBudget = 4000

// backgroundTokenBudget is the tight budget every heartbeat-driven
// execution gets, per spec §4.5.
const backgroundTokenBudget = 1500

// InstalledModelLister reports which Ollama models are currently pulled.
// Abstracted behind an interface so tests don't need a real `ollama`
// binary on PATH.
type InstalledModelLister interface {
	List(ctx context.Context) ([]string, error)
}

// OllamaCLILister lists installed models by shelling out to `ollama list`.
type OllamaCLILister struct{}

// List runs `ollama list` and parses the model name column, skipping the
// header row. Any failure (binary missing, daemon not running) yields an
// empty list rather than an error, matching the prototype's best-effort
// behavior — routing always has a hardcoded fallback to fall back to.
func (OllamaCLILister) List(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "ollama", "list").Output()
	if err != nil {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) <= 1 {
		return nil, nil
	}
	var models []string
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		models = append(models, fields[0])
	}
	return models, nil
}

// DynamicRouter routes a task category to a locally-installed Ollama model,
// falling back through progressively smaller models when the preferred
// ones aren't pulled.
type DynamicRouter struct {
	lister InstalledModelLister
}

// NewDynamicRouter creates a router backed by the real `ollama` CLI.
func NewDynamicRouter() *DynamicRouter {
	return &DynamicRouter{lister: OllamaCLILister{}}
}

// NewDynamicRouterWithLister creates a router backed by a custom lister,
// used in tests to avoid depending on an installed Ollama daemon.
func NewDynamicRouterWithLister(lister InstalledModelLister) *DynamicRouter {
	return &DynamicRouter{lister: lister}
}

// Decision is the outcome of routing a category to an installed model —
// the Go shape of the spec's RouteDecision record.
type Decision struct {
	Model            string
	Class            LocalClass
	Tier             Tier
	EscalationTarget string // model ID to restart with on ESCALATE:, "" if none
	TokenBudget      int
	ContextWindow    int
}

// RouteToModel picks the best installed model for a task category.
// Background ties every decision to the smallest tier with a tight token
// budget regardless of category, matching the heartbeat's "always the
// smallest available model" rule.
func (r *DynamicRouter) RouteToModel(ctx context.Context, category string, background bool) Decision {
	if background {
		model, _ := r.pickForClass(ctx, ClassFast)
		return Decision{
			Model:         model,
			Class:         ClassFast,
			Tier:          Tier3B,
			TokenBudget:   backgroundTokenBudget,
			ContextWindow: tierBudget[Tier3B].context,
		}
	}

	class, ok := CategoryClass[category]
	if !ok {
		class = ClassFast
	}
	if AlwaysLargeCategories[category] {
		class = ClassSlow
	}

	model, _ := r.pickForClass(ctx, class)
	tier := classTier[class]

	var escalationTarget string
	if !AlwaysLargeCategories[category] && !NeverLargeCategories[category] {
		if escClass, ok := escalatesTo[class]; ok {
			if escModel, ok := r.pickForClass(ctx, escClass); ok {
				escalationTarget = escModel
				if esc, ok := classEscalationTier[tier]; ok {
					tier = esc
				}
			}
		}
	}

	budget := tierBudget[tier]
	tokenBudget := budget.tokens
	if ExpansiveCategories[category] {
		tokenBudget = expansiveTokenBudget
	}

	return Decision{
		Model:            model,
		Class:            class,
		Tier:             tier,
		EscalationTarget: escalationTarget,
		TokenBudget:      tokenBudget,
		ContextWindow:    budget.context,
	}
}

// classEscalationTier maps a base tier to its "_with_escalation" variant.
// Tier14BDirect has no entry: it's already the top of the chain.
var classEscalationTier = map[Tier]Tier{
	Tier3B: Tier3BEscalation,
	Tier8B: Tier8BEscalation,
}

// pickForClass returns the best installed model for class, and whether any
// installed model was found at all (false means the hardcoded fallback was
// used).
func (r *DynamicRouter) pickForClass(ctx context.Context, class LocalClass) (string, bool) {
	installed, _ := r.lister.List(ctx)
	installedSet := make(map[string]bool, len(installed))
	for _, m := range installed {
		installedSet[m] = true
	}

	for _, candidate := range tierPreferences[class] {
		if installedSet[candidate] {
			return candidate, true
		}
	}
	if len(installed) > 0 {
		return installed[0], true
	}
	return defaultFallbackModel, false
}

// FallbackChain prepends the decision's EscalationTarget (if any) onto an
// installed-model fallback list, deduping it if already present, so the
// Executor's ESCALATE: handling and its OOM fallback share one ordered list.
func (d Decision) FallbackChain(fallback []string) []string {
	if d.EscalationTarget == "" {
		return fallback
	}
	out := make([]string, 0, len(fallback)+1)
	out = append(out, d.EscalationTarget)
	for _, m := range fallback {
		if m != d.EscalationTarget {
			out = append(out, m)
		}
	}
	return out
}

// GetFallback returns every installed model other than the one currently
// in use, in the order `ollama list` reported them, so the executor can
// retry against a different model after a failure.
func (r *DynamicRouter) GetFallback(ctx context.Context, model string) []string {
	installed, _ := r.lister.List(ctx)
	var fallback []string
	for _, m := range installed {
		if m != model {
			fallback = append(fallback, m)
		}
	}
	return fallback
}
