// agentic/hooks.go
package agentic

import (
	"context"
	"time"
)

// Hook observes the loop at defined points. Implementations are invoked
// synchronously and must not mutate the run context.
type Hook interface {
	OnTurnStart(ctx context.Context, rc *RunContext)
	OnModelResponse(ctx context.Context, rc *RunContext, resp ModelResponse)
	OnToolStart(ctx context.Context, rc *RunContext, req ToolRequest)
	OnToolEnd(ctx context.Context, rc *RunContext, req ToolRequest, result string, err error)
	// OnTurnEnd fires once per turn: after all of the turn's tool calls
	// resolve but before their results join the transcript, and immediately
	// for a turn that carries the final answer.
	OnTurnEnd(ctx context.Context, rc *RunContext)
	OnRetryAttempt(ctx context.Context, rc *RunContext, attempt int, maxAttempts int, delay time.Duration, err error)
	OnCompaction(ctx context.Context, rc *RunContext, beforeTokens, afterTokens int, belowThreshold bool)
	OnDone(ctx context.Context, rc *RunContext, res *Result)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnTurnStart(context.Context, *RunContext)                                  {}
func (NopHook) OnModelResponse(context.Context, *RunContext, ModelResponse)               {}
func (NopHook) OnToolStart(context.Context, *RunContext, ToolRequest)                     {}
func (NopHook) OnToolEnd(context.Context, *RunContext, ToolRequest, string, error)        {}
func (NopHook) OnTurnEnd(context.Context, *RunContext)                                    {}
func (NopHook) OnRetryAttempt(context.Context, *RunContext, int, int, time.Duration, error) {
}
func (NopHook) OnCompaction(context.Context, *RunContext, int, int, bool) {}
func (NopHook) OnDone(context.Context, *RunContext, *Result)              {}
