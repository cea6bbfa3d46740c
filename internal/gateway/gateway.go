package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sentineld/sentinel/internal/observability"
)

// StreamChunk is one piece of a chat_streaming response.
type StreamChunk struct {
	Delta string
	Done  bool
	Final *LLMResponse
	Err   error
}

// Gateway is the Model Gateway: a single entry point over an ordered chain
// of LLMProvider backends. Callers never talk to Claude/OpenAI/Bedrock/a
// local server directly — they ask the Gateway for a completion or an
// embedding, and it walks the chain until one backend serves the request.
type Gateway struct {
	backends []LLMProvider
	log      *observability.Logger
	metrics  *observability.Metrics
}

// New builds a Gateway over backends, tried in the order given. The first
// backend is the preferred one; later entries are fallbacks used only when
// an earlier one fails.
func New(log *observability.Logger, metrics *observability.Metrics, backends ...LLMProvider) *Gateway {
	if log == nil {
		log = observability.NewLogger("gateway", nil)
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0, nil)
	}
	return &Gateway{backends: backends, log: log, metrics: metrics}
}

// Backends returns the configured provider chain, in fallback order.
func (g *Gateway) Backends() []LLMProvider {
	return g.backends
}

// Generate runs a single-shot completion from a plain prompt string, the
// simplest of the gateway's four operations.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...func(*LLMRequest)) (*LLMResponse, error) {
	req := LLMRequest{Messages: []Message{{Role: "user", Content: prompt}}}
	for _, opt := range opts {
		opt(&req)
	}
	return g.Chat(ctx, req)
}

// Chat sends a multi-turn request, falling back across backends on failure.
// A backend failure classified as OOM or timeout moves immediately to the
// next backend; other errors are recorded and also fall through, since a
// locally-hosted assistant has no one backend it can assume is always up.
func (g *Gateway) Chat(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	if len(g.backends) == 0 {
		return nil, fmt.Errorf("gateway: no backends configured")
	}

	var lastErr error
	for _, backend := range g.backends {
		start := time.Now()
		resp, err := backend.Complete(ctx, req)
		latency := time.Since(start).Milliseconds()

		if err == nil {
			g.metrics.Record(observability.MetricLatency, float64(latency), observability.Labels{"provider": backend.Name()})
			g.metrics.Record(observability.MetricCost, resp.CostUSD, observability.Labels{"provider": backend.Name()})
			g.metrics.Record(observability.MetricTokens, float64(resp.InputTokens+resp.OutputTokens), observability.Labels{"provider": backend.Name()})
			g.metrics.Increment("gateway.chat.ok")
			g.log.Info("chat completed", "provider", backend.Name(), "model", resp.Model, "latency_ms", latency, "cost_usd", resp.CostUSD)
			return resp, nil
		}

		lastErr = err
		g.metrics.Increment("gateway.chat.error")
		switch {
		case IsOOM(err):
			g.log.Warn("backend out of memory, falling back", "provider", backend.Name(), "err", err.Error())
		case strings.Contains(err.Error(), "context deadline exceeded"):
			g.log.Warn("backend timed out, falling back", "provider", backend.Name(), "err", err.Error())
		default:
			g.log.Warn("backend failed, falling back", "provider", backend.Name(), "err", err.Error())
		}
	}

	return nil, fmt.Errorf("gateway: all %d backends failed: %w", len(g.backends), lastErr)
}

// ChatStream mimics streaming delivery of a chat response over a channel.
// None of the wired backends expose token-level streaming through their
// SDKs here, so the gateway synthesizes a stream by completing the call
// normally and emitting it as word-sized deltas — callers that only care
// about incremental UI updates get the same shape without a dependency on
// each vendor's separate streaming transport.
func (g *Gateway) ChatStream(ctx context.Context, req LLMRequest) <-chan StreamChunk {
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		resp, err := g.Chat(ctx, req)
		if err != nil {
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		words := strings.Fields(resp.Content)
		for i, w := range words {
			chunk := w
			if i < len(words)-1 {
				chunk += " "
			}
			select {
			case out <- StreamChunk{Delta: chunk}:
			case <-ctx.Done():
				out <- StreamChunk{Err: ctx.Err(), Done: true}
				return
			}
		}
		out <- StreamChunk{Done: true, Final: resp}
	}()
	return out
}

// Embed returns an embedding vector, falling back across backends that
// support Embed (many local/chat-only backends return ErrNotSupported).
func (g *Gateway) Embed(ctx context.Context, text string) (*EmbedResponse, error) {
	if len(g.backends) == 0 {
		return nil, fmt.Errorf("gateway: no backends configured")
	}

	var lastErr error
	for _, backend := range g.backends {
		resp, err := backend.Embed(ctx, text)
		if err == nil {
			g.metrics.Increment("gateway.embed.ok")
			return resp, nil
		}
		lastErr = err
		if err != ErrNotSupported {
			g.metrics.Increment("gateway.embed.error")
			g.log.Warn("embed backend failed, falling back", "provider", backend.Name(), "err", err.Error())
		}
	}
	return nil, fmt.Errorf("gateway: no backend supports embedding: %w", lastErr)
}
