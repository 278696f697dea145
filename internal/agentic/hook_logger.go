// agentic/hook_logger.go
package agentic

import (
	"context"
	"log"
	"time"
)

// LoggerHook logs loop progress through a stdlib logger.
type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnTurnStart(_ context.Context, rc *RunContext) {
	h.L.Printf("turn=%d fullness=%.2f elapsed=%s", rc.Turns, rc.Fullness(), rc.Elapsed().Round(time.Millisecond))
}
func (h LoggerHook) OnModelResponse(_ context.Context, rc *RunContext, resp ModelResponse) {
	h.L.Printf("model: tool_requests=%d tokens=%d cost=$%.4f (cumulative tokens=%d cost=$%.4f)",
		len(resp.ToolRequests), resp.Usage.TotalTokens, resp.Usage.CostUSD,
		rc.Totals.TotalTokens, rc.Totals.CostUSD)
}
func (h LoggerHook) OnToolStart(_ context.Context, _ *RunContext, req ToolRequest) {
	h.L.Printf("tool → %s args=%v", req.Name, req.Args)
}
func (h LoggerHook) OnToolEnd(_ context.Context, _ *RunContext, req ToolRequest, result string, err error) {
	if err != nil {
		h.L.Printf("tool %s error: %v", req.Name, err)
		return
	}
	preview := result
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	h.L.Printf("tool %s result: %s", req.Name, preview)
}
func (h LoggerHook) OnTurnEnd(_ context.Context, rc *RunContext) {
	h.L.Printf("turn %d done: cumulative cost=$%.4f", rc.Turns, rc.Totals.CostUSD)
}
func (h LoggerHook) OnRetryAttempt(_ context.Context, _ *RunContext, attempt int, maxAttempts int, delay time.Duration, err error) {
	h.L.Printf("retry attempt=%d/%d delay=%v error=%v", attempt, maxAttempts, delay, err)
}
func (h LoggerHook) OnCompaction(_ context.Context, _ *RunContext, beforeTokens, afterTokens int, belowThreshold bool) {
	if !belowThreshold {
		h.L.Printf("compaction: before=%d after=%d (still above threshold, proceeding anyway)", beforeTokens, afterTokens)
		return
	}
	h.L.Printf("compaction: before=%d after=%d reduction=%.1f%%",
		beforeTokens, afterTokens, float64(beforeTokens-afterTokens)/float64(beforeTokens)*100)
}
func (h LoggerHook) OnDone(_ context.Context, _ *RunContext, res *Result) {
	h.L.Printf("done: reason=%s turns=%d tokens=%d cost=$%.4f",
		res.Reason, res.Turns, res.Totals.TotalTokens, res.Totals.CostUSD)
}

// DefaultHooks returns the default hook set for interactive use.
func DefaultHooks() Hooks {
	return Hooks{LoggerHook{L: log.Default()}}
}
