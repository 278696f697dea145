package agentic

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// toolResult carries one resolved tool call back to the driving goroutine.
type toolResult struct {
	idx     int
	req     ToolRequest
	content string
	err     error
}

// dispatchTools resolves all tool calls requested in one model turn and
// returns their results in request order, regardless of completion order.
// Only the loop goroutine touches the transcript; workers report through the
// results slice. Folding the results back in is recordResults's job, after
// the turn-end hook has fired.
func (l *Loop) dispatchTools(ctx context.Context, rc *RunContext, reqs []ToolRequest) []toolResult {
	if len(reqs) == 0 {
		return nil
	}

	// Record the requested calls before execution so the transcript shows
	// what the model asked for even if the run dies mid-dispatch.
	for _, req := range reqs {
		rc.appendTurn(Turn{Kind: TurnToolCall, CallID: req.ID, Name: req.Name, Args: req.Args})
	}

	results := make([]toolResult, len(reqs))

	if l.cfg.ParallelToolCalls && len(reqs) > 1 {
		var wg sync.WaitGroup
		for i, req := range reqs {
			wg.Add(1)
			go func(i int, req ToolRequest) {
				defer wg.Done()
				content, err := l.executeCall(ctx, rc, req)
				results[i] = toolResult{idx: i, req: req, content: content, err: err}
			}(i, req)
		}
		wg.Wait()
	} else {
		for i, req := range reqs {
			content, err := l.executeCall(ctx, rc, req)
			results[i] = toolResult{idx: i, req: req, content: content, err: err}
		}
	}

	return results
}

// recordResults appends resolved tool results to the transcript in request
// order. The returned error is non-nil only for a fatal tool error, which
// must end the run. Every other failure is recorded as an error-flagged tool
// result for the model to react to.
func (l *Loop) recordResults(rc *RunContext, results []toolResult) error {
	var fatal error
	for _, res := range results {
		content := res.content
		isErr := res.err != nil
		if isErr {
			content = "ERROR: " + res.err.Error()
			if fatal == nil && IsFatalToolError(res.err) {
				fatal = res.err
			}
		}
		rc.appendTurn(Turn{
			Kind:    TurnToolResult,
			CallID:  res.req.ID,
			Name:    res.req.Name,
			Content: content,
			IsError: isErr,
		})
	}

	return fatal
}

// executeCall runs one tool call under the configured retry policy.
func (l *Loop) executeCall(ctx context.Context, rc *RunContext, req ToolRequest) (string, error) {
	tool, ok := rc.visible[req.Name]
	if !ok {
		// Unknown or out-of-scope tool: a per-call error the model can
		// correct, never a run failure.
		return "", fmt.Errorf("tool not found: %s (available tools: %v)", req.Name, rc.visible.Names())
	}

	l.hooks.OnToolStart(ctx, rc, req)

	policy := DefaultToolRetryPolicy()
	policy.MaxRetries = l.cfg.MaxRetriesPerTool
	if !l.cfg.RetryOnError || !tool.Retryable {
		policy.MaxRetries = 0
	}

	content, err := RetryWithPolicy(
		ctx,
		policy,
		func(ctx context.Context) (string, error) {
			if verr := tool.ValidateArgs(req.Args); verr != nil {
				return "", verr
			}
			return tool.Fn(ctx, req.Args)
		},
		func(err error) RetryClass {
			return ClassifyToolError(err, tool.Retryable)
		},
		func(attempt int, delay time.Duration, retryErr error) {
			l.hooks.OnRetryAttempt(ctx, rc, attempt, policy.MaxRetries, delay, retryErr)
		},
	)

	l.hooks.OnToolEnd(ctx, rc, req, content, err)
	return content, err
}
