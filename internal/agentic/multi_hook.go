package agentic

import (
	"context"
	"time"
)

// Hooks fans a hook invocation out to every registered hook in order.
type Hooks []Hook

func (hs Hooks) OnTurnStart(ctx context.Context, rc *RunContext) {
	for _, h := range hs {
		h.OnTurnStart(ctx, rc)
	}
}
func (hs Hooks) OnModelResponse(ctx context.Context, rc *RunContext, resp ModelResponse) {
	for _, h := range hs {
		h.OnModelResponse(ctx, rc, resp)
	}
}
func (hs Hooks) OnToolStart(ctx context.Context, rc *RunContext, req ToolRequest) {
	for _, h := range hs {
		h.OnToolStart(ctx, rc, req)
	}
}
func (hs Hooks) OnToolEnd(ctx context.Context, rc *RunContext, req ToolRequest, result string, err error) {
	for _, h := range hs {
		h.OnToolEnd(ctx, rc, req, result, err)
	}
}
func (hs Hooks) OnTurnEnd(ctx context.Context, rc *RunContext) {
	for _, h := range hs {
		h.OnTurnEnd(ctx, rc)
	}
}
func (hs Hooks) OnRetryAttempt(ctx context.Context, rc *RunContext, attempt int, maxAttempts int, delay time.Duration, err error) {
	for _, h := range hs {
		h.OnRetryAttempt(ctx, rc, attempt, maxAttempts, delay, err)
	}
}
func (hs Hooks) OnCompaction(ctx context.Context, rc *RunContext, beforeTokens, afterTokens int, belowThreshold bool) {
	for _, h := range hs {
		h.OnCompaction(ctx, rc, beforeTokens, afterTokens, belowThreshold)
	}
}
func (hs Hooks) OnDone(ctx context.Context, rc *RunContext, res *Result) {
	for _, h := range hs {
		h.OnDone(ctx, rc, res)
	}
}
