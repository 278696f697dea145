package agentic

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Loop drives one multi-turn run: it repeatedly queries the model client,
// dispatches requested tool calls through the registry, folds results back
// into the run context, and decides whether to continue, compact, or
// terminate. A Loop instance performs exactly one run.
type Loop struct {
	model ModelClient
	tools ToolRegistry
	cfg   Config
	hooks Hooks

	consumed atomic.Bool
}

// New validates the configuration against the registry and constructs a
// loop. All validation failures are *ConfigError; the caller never receives
// a half-started run.
func New(model ModelClient, tools ToolRegistry, cfg Config) (*Loop, error) {
	if model == nil {
		return nil, &ConfigError{Field: "ModelClient", Reason: "must not be nil"}
	}
	if tools == nil {
		tools = ToolRegistry{}
	}
	if err := cfg.Validate(tools); err != nil {
		return nil, err
	}
	return &Loop{
		model: model,
		tools: tools,
		cfg:   cfg,
		hooks: cfg.Hooks,
	}, nil
}

// Run executes the loop until a terminal condition is met and returns the
// run's Result. Budget violations (turns, cost, timeout) are normal
// termination reasons carried in the Result, not errors; the only error Run
// itself returns is reuse of a consumed loop.
//
// The Result always includes the transcript and usage accumulated so far,
// whatever the termination reason.
func (l *Loop) Run(ctx context.Context, goal string) (*Result, error) {
	if !l.consumed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("loop instance already consumed")
	}

	visible, err := l.tools.Restrict(l.cfg.AllowedTools)
	if err != nil {
		// Validated in New; a failure here means the registry changed.
		return nil, &ConfigError{Field: "AllowedTools", Reason: err.Error()}
	}

	rc := newRunContext(goal, visible, l.model.ContextWindow(l.cfg.Tier))

	runCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	var (
		reason TerminationReason
		final  string
		runErr error
	)

loop:
	for {
		// Cooperative deadline and cancellation check at every transition.
		if cerr := ctx.Err(); cerr != nil {
			reason, runErr = ReasonCancelled, cerr
			break loop
		}
		if rc.Elapsed() >= l.cfg.Timeout {
			reason = ReasonTimeout
			break loop
		}
		if rc.Turns >= l.cfg.MaxTurns {
			reason = ReasonMaxTurnsExceeded
			break loop
		}

		l.maybeCompact(runCtx, rc)

		// Summarization spend is billed to the run, so the ceiling can be
		// crossed between queries.
		if rc.Totals.CostUSD >= l.cfg.MaxCostUSD {
			reason = ReasonCostExceeded
			break loop
		}

		l.hooks.OnTurnStart(runCtx, rc)

		resp, qerr := l.queryModel(runCtx, rc)
		rc.Totals.Add(resp.Usage) // partial usage counts even on failure
		if qerr != nil {
			switch {
			case ctx.Err() != nil:
				reason, runErr = ReasonCancelled, ctx.Err()
			case runCtx.Err() != nil:
				reason = ReasonTimeout
			default:
				reason, runErr = ReasonModelUnavailable, qerr
			}
			break loop
		}
		rc.Turns++
		l.hooks.OnModelResponse(runCtx, rc, resp)

		if resp.Text != "" || len(resp.ToolRequests) == 0 {
			rc.appendTurn(Turn{Kind: TurnAssistant, Content: resp.Text})
		}

		// A final answer with no tool requests completes the run, whatever
		// the budget state after this call.
		if len(resp.ToolRequests) == 0 {
			l.hooks.OnTurnEnd(runCtx, rc)
			reason, final = ReasonCompleted, resp.Text
			break loop
		}

		// Budget violations always win over continuing with tool calls.
		if rc.Totals.CostUSD >= l.cfg.MaxCostUSD {
			reason = ReasonCostExceeded
			break loop
		}
		if rc.Elapsed() >= l.cfg.Timeout {
			reason = ReasonTimeout
			break loop
		}

		results := l.dispatchTools(runCtx, rc, resp.ToolRequests)

		// The turn boundary is observed once all calls resolve, before their
		// results fold back into the transcript.
		l.hooks.OnTurnEnd(runCtx, rc)

		if fatal := l.recordResults(rc, results); fatal != nil {
			reason, runErr = ReasonToolFatalError, fatal
			break loop
		}
		if runCtx.Err() != nil {
			// A tool execution outlived the deadline; record it now and do
			// not start a new transition.
			if ctx.Err() != nil {
				reason, runErr = ReasonCancelled, ctx.Err()
			} else {
				reason = ReasonTimeout
			}
			break loop
		}
	}

	res := rc.result(reason, final, runErr)
	l.hooks.OnDone(ctx, rc, res)
	return res, nil
}

// queryModel performs one model query under the loop's retry policy.
// Usage from failed attempts is still billed to the run.
func (l *Loop) queryModel(ctx context.Context, rc *RunContext) (ModelResponse, error) {
	policy := DefaultModelRetryPolicy()
	if l.cfg.ModelRetryPolicy != nil {
		policy = *l.cfg.ModelRetryPolicy
	}

	var reported Usage
	resp, err := RetryWithPolicy(
		ctx,
		policy,
		func(ctx context.Context) (ModelResponse, error) {
			r, qerr := l.model.Query(ctx, QueryRequest{
				Transcript:  rc.Transcript,
				Tools:       rc.visible.Schemas(),
				Tier:        l.cfg.Tier,
				Temperature: l.cfg.Temperature,
				MaxTokens:   l.cfg.MaxTokens,
			})
			reported.Add(r.Usage)
			return r, qerr
		},
		ClassifyModelError,
		func(attempt int, delay time.Duration, retryErr error) {
			l.hooks.OnRetryAttempt(ctx, rc, attempt, policy.MaxRetries, delay, retryErr)
		},
	)
	resp.Usage = reported
	return resp, err
}

// RunStream executes the loop while emitting intermediate events on the
// returned channel. The sequence is finite and non-restartable: it ends
// with an EventResult carrying the final Result, after which the channel
// is closed.
func (l *Loop) RunStream(ctx context.Context, goal string) <-chan Event {
	ch := make(chan Event, 16)
	l.hooks = append(l.hooks, eventHook{ch: ch})

	go func() {
		defer close(ch)
		res, err := l.Run(ctx, goal)
		if err != nil {
			// Construction-time misuse; surface it as a cancelled result so
			// the stream still terminates with EventResult.
			res = &Result{Reason: ReasonCancelled, Err: err, Goal: goal}
		}
		ch <- Event{Kind: EventResult, Result: res}
	}()

	return ch
}
