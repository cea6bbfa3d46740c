package executor

import (
	"context"
	"fmt"
)

// DefaultUserRetries and DefaultBackgroundRetries are the max_retries
// defaults named in the spec: user-facing turns get more attempts than
// unattended background tasks.
const (
	DefaultUserRetries       = 8
	DefaultBackgroundRetries = 1
)

// ValidatedRequest adds a validation-driven retry budget on top of RunRequest.
type ValidatedRequest struct {
	RunRequest
	MaxRetries int // falls back to DefaultUserRetries if <= 0
}

// RunValidated runs req, and on a category-validation failure re-invokes
// Run with a different model from the fallback chain and a prompt
// rewritten to include the failure reason and the rejected output — up
// to MaxRetries attempts total. The last attempt's Result is returned
// even if it never validates, so the caller always has something to show.
func (e *Executor) RunValidated(ctx context.Context, req ValidatedRequest) (*Result, error) {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultUserRetries
	}

	models := append([]string{req.Model}, req.FallbackChain...)
	prompt := req.Prompt

	var last *Result
	for attempt := 0; attempt < maxRetries; attempt++ {
		idx := attempt
		if idx >= len(models) {
			idx = len(models) - 1
		}
		model := models[idx]
		remaining := []string(nil)
		if attempt+1 < len(models) {
			remaining = models[attempt+1:]
		}

		res, err := e.Run(ctx, RunRequest{
			Prompt:        prompt,
			System:        req.System,
			Model:         model,
			FallbackChain: remaining,
			Category:      req.Category,
			TokenBudget:   req.TokenBudget,
			Stream:        req.Stream,
			PauseCheck:    req.PauseCheck,
		})
		if err != nil {
			return nil, err
		}
		last = res

		if res.Output == pausedOutput {
			// A user pre-emption, not a model failure — retrying on another
			// model would just get paused again.
			return res, nil
		}

		if !res.Success {
			// The turn itself failed (OOM/budget exhausted) — still worth a
			// retry on the next model, but there's no rejected output to quote.
			continue
		}

		ok, reason := ValidateResult(res, req.Category)
		if ok {
			return res, nil
		}
		res.Success = false
		res.FailureReason = reason
		prompt = fmt.Sprintf(
			"%s\n\n[Previous attempt was rejected: %s]\nPrevious output:\n%s\n\nTry again, addressing the issue.",
			req.Prompt, reason, res.Output)
	}

	return last, nil
}
