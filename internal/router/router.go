// Package router selects which model should serve a request, independent
// of which Gateway backend ultimately executes it. It supports two modes:
// a static cost/complexity router for cloud backends (Claude, OpenAI,
// Bedrock), and a dynamic router that asks a local Ollama daemon what it
// has installed and routes by category.
package router

import (
	"github.com/sentineld/sentinel/internal/gateway"
)

// StaticRouter picks the best model based on task complexity and remaining
// budget from a fixed catalog of cloud models. It never inspects what's
// actually installed anywhere — it assumes every entry in its catalog is
// reachable through the Gateway.
type StaticRouter struct {
	models   []gateway.ModelEntry
	provider string // active provider filter ("claude", "openai", "" for any)
}

// NewStaticRouter creates a router with the default cloud model catalog.
func NewStaticRouter() *StaticRouter {
	return &StaticRouter{
		models: []gateway.ModelEntry{
			{ID: "claude-haiku-3-5-20241022", Provider: "claude", Tier: gateway.TierCheap, CostPer1K: 0.00075},
			{ID: "gpt-4o-mini", Provider: "openai", Tier: gateway.TierCheap, CostPer1K: 0.000375},
			{ID: "claude-sonnet-4-20250514", Provider: "claude", Tier: gateway.TierMid, CostPer1K: 0.009},
			{ID: "gpt-4o", Provider: "openai", Tier: gateway.TierMid, CostPer1K: 0.00625},
			{ID: "claude-opus-4-20250514", Provider: "claude", Tier: gateway.TierPowerful, CostPer1K: 0.045},
		},
	}
}

// NewStaticRouterWithModels creates a router with a custom model catalog,
// typically assembled from the Gateway's configured backends'
// ModelEntries().
func NewStaticRouterWithModels(models []gateway.ModelEntry) *StaticRouter {
	return &StaticRouter{models: models}
}

// SetProvider restricts Select to models from a single provider. Pass ""
// to disable filtering.
func (r *StaticRouter) SetProvider(provider string) {
	r.provider = provider
}

// Provider returns the current provider filter.
func (r *StaticRouter) Provider() string {
	return r.provider
}

// Select picks a model ID given task complexity ("simple", "moderate",
// "complex") and the remaining budget in USD. Budget pressure downgrades
// the target tier before the catalog is even consulted.
func (r *StaticRouter) Select(complexity string, budgetRemaining float64) string {
	targetTier := complexityToTier(complexity)

	if budgetRemaining < 0.10 {
		targetTier = gateway.TierCheap
	} else if budgetRemaining < 1.0 && targetTier == gateway.TierPowerful {
		targetTier = gateway.TierMid
	}

	if m := r.firstMatching(targetTier); m != "" {
		return m
	}
	for _, tier := range tierFallback(targetTier) {
		if m := r.firstMatching(tier); m != "" {
			return m
		}
	}
	for _, m := range r.models {
		if r.matchesProvider(m) {
			return m.ID
		}
	}
	if len(r.models) > 0 {
		return r.models[0].ID
	}
	return ""
}

func (r *StaticRouter) firstMatching(tier gateway.Tier) string {
	for _, m := range r.models {
		if r.matchesProvider(m) && m.Tier == tier {
			return m.ID
		}
	}
	return ""
}

func (r *StaticRouter) matchesProvider(m gateway.ModelEntry) bool {
	return r.provider == "" || m.Provider == r.provider
}

func complexityToTier(complexity string) gateway.Tier {
	switch complexity {
	case "simple":
		return gateway.TierCheap
	case "complex":
		return gateway.TierPowerful
	default:
		return gateway.TierMid
	}
}

func tierFallback(tier gateway.Tier) []gateway.Tier {
	switch tier {
	case gateway.TierPowerful:
		return []gateway.Tier{gateway.TierMid, gateway.TierCheap}
	case gateway.TierCheap:
		return []gateway.Tier{gateway.TierMid, gateway.TierPowerful}
	default:
		return []gateway.Tier{gateway.TierCheap, gateway.TierPowerful}
	}
}
