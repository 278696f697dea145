package agentic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// scriptedModel replays a fixed sequence of responses, one per query.
type scriptedModel struct {
	steps []scriptedStep

	window  int
	summary string
	sumErr  error
	sumCost float64

	queries    int
	summarized int
}

type scriptedStep struct {
	resp  ModelResponse
	err   error
	sleep time.Duration
}

func (m *scriptedModel) Query(ctx context.Context, req QueryRequest) (ModelResponse, error) {
	if m.queries >= len(m.steps) {
		return ModelResponse{}, fmt.Errorf("unexpected query %d", m.queries)
	}
	step := m.steps[m.queries]
	m.queries++
	if step.sleep > 0 {
		time.Sleep(step.sleep)
	}
	return step.resp, step.err
}

func (m *scriptedModel) Summarize(ctx context.Context, turns []Turn, tier Tier) (string, Usage, error) {
	m.summarized++
	if m.sumErr != nil {
		return "", Usage{}, m.sumErr
	}
	return m.summary, Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostUSD: m.sumCost}, nil
}

func (m *scriptedModel) ContextWindow(tier Tier) int {
	if m.window > 0 {
		return m.window
	}
	return 128_000
}

func fastRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func echoRegistry() ToolRegistry {
	reg := ToolRegistry{}
	reg.Register(Tool{
		Name:        "echo",
		Description: "echoes its input",
		SchemaJSON:  `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return text, nil
		},
		Retryable: true,
	})
	return reg
}

func toolCallResp(callID, text string) ModelResponse {
	return ModelResponse{
		ToolRequests: []ToolRequest{
			{ID: callID, Name: "echo", Args: map[string]any{"text": text}},
		},
		Usage: Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120, CostUSD: 0.001},
	}
}

func finalResp(text string) ModelResponse {
	return ModelResponse{
		Text:  text,
		Usage: Usage{InputTokens: 100, OutputTokens: 10, TotalTokens: 110, CostUSD: 0.001},
	}
}

func TestRunCompletes(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		{resp: toolCallResp("c1", "2+2")},
		{resp: finalResp("4")},
	}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "what is 2+2?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ReasonCompleted {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCompleted)
	}
	if res.FinalText != "4" {
		t.Errorf("final text = %q, want %q", res.FinalText, "4")
	}
	if res.Turns != 2 {
		t.Errorf("turns = %d, want 2", res.Turns)
	}
	if res.Totals.CostUSD != 0.002 {
		t.Errorf("cost = %f, want 0.002", res.Totals.CostUSD)
	}

	// user goal, tool_call, tool_result, assistant answer
	if len(res.Transcript) != 4 {
		t.Fatalf("transcript has %d turns, want 4", len(res.Transcript))
	}
	if res.Transcript[0].Kind != TurnUser || res.Transcript[0].Content != "what is 2+2?" {
		t.Errorf("transcript[0] = %+v, want goal user turn", res.Transcript[0])
	}
	if res.Transcript[1].Kind != TurnToolCall {
		t.Errorf("transcript[1].Kind = %s, want tool_call", res.Transcript[1].Kind)
	}
	if res.Transcript[2].Kind != TurnToolResult || res.Transcript[2].Content != "2+2" {
		t.Errorf("transcript[2] = %+v, want echoed tool result", res.Transcript[2])
	}
	if res.Transcript[3].Kind != TurnAssistant {
		t.Errorf("transcript[3].Kind = %s, want assistant", res.Transcript[3].Kind)
	}
}

func TestRunMaxTurnsExceeded(t *testing.T) {
	// The model asks for a tool on every turn and never answers.
	model := &scriptedModel{steps: []scriptedStep{
		{resp: toolCallResp("c1", "a")},
		{resp: toolCallResp("c2", "b")},
	}}

	cfg := DefaultConfig()
	cfg.MaxTurns = 2
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ReasonMaxTurnsExceeded {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonMaxTurnsExceeded)
	}
	if model.queries != 2 {
		t.Errorf("model queried %d times, want exactly 2", model.queries)
	}

	// Both turns' tool calls and results must be in the transcript.
	var calls, results int
	for _, turn := range res.Transcript {
		switch turn.Kind {
		case TurnToolCall:
			calls++
		case TurnToolResult:
			results++
		}
	}
	if calls != 2 || results != 2 {
		t.Errorf("transcript has %d calls / %d results, want 2 / 2", calls, results)
	}
}

func TestRunCostExceededSkipsDispatch(t *testing.T) {
	resp := toolCallResp("c1", "x")
	resp.Usage.CostUSD = 0.02

	model := &scriptedModel{steps: []scriptedStep{{resp: resp}}}

	cfg := DefaultConfig()
	cfg.MaxCostUSD = 0.01
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "expensive")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ReasonCostExceeded {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCostExceeded)
	}
	// The violation is detected before dispatch: no tool turns at all.
	for _, turn := range res.Transcript {
		if turn.Kind == TurnToolCall || turn.Kind == TurnToolResult {
			t.Errorf("transcript contains %s turn after cost violation", turn.Kind)
		}
	}
	if res.Totals.CostUSD != 0.02 {
		t.Errorf("cost = %f, want 0.02", res.Totals.CostUSD)
	}
}

func TestRunCostExceededAfterCompaction(t *testing.T) {
	// Summarization spend counts against the ceiling before the next query.
	model := &scriptedModel{
		steps:   []scriptedStep{{resp: toolCallResp("c1", "x")}},
		window:  10,
		summary: "condensed",
		sumCost: 5.0,
	}

	cfg := DefaultConfig()
	cfg.MaxCostUSD = 1.0
	cfg.CompactionThreshold = 0.1
	cfg.CompactionKeepRecent = 1
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "pricy summary")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ReasonCostExceeded {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCostExceeded)
	}
	if model.summarized != 1 {
		t.Fatalf("Summarize called %d times, want 1", model.summarized)
	}
	// The query that triggered compaction is the last one allowed.
	if model.queries != 1 {
		t.Errorf("model queried %d times after the ceiling was crossed, want 1", model.queries)
	}
	if res.Totals.CostUSD < 5.0 {
		t.Errorf("cost = %f, want summarization spend included", res.Totals.CostUSD)
	}
}

func TestRunFinalAnswerBeatsBudget(t *testing.T) {
	// The answer arrives on the same call that blows the cost budget;
	// completed wins.
	resp := finalResp("done")
	resp.Usage.CostUSD = 5.0

	model := &scriptedModel{steps: []scriptedStep{{resp: resp}}}

	cfg := DefaultConfig()
	cfg.MaxCostUSD = 0.01
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "quick")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonCompleted {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCompleted)
	}
	if res.FinalText != "done" {
		t.Errorf("final text = %q, want %q", res.FinalText, "done")
	}
}

func TestRunTimeout(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		{resp: toolCallResp("c1", "x"), sleep: 60 * time.Millisecond},
	}}

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonTimeout {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonTimeout)
	}
}

func TestRunCancelled(t *testing.T) {
	model := &scriptedModel{}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := loop.Run(ctx, "never starts")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonCancelled {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCancelled)
	}
	if res.Err == nil {
		t.Error("cancelled result should carry the context error")
	}
	if model.queries != 0 {
		t.Errorf("model queried %d times, want 0", model.queries)
	}
}

func TestRunModelUnavailable(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		{err: &ModelClientError{Err: errors.New("invalid api key"), HTTPStatus: 401}},
	}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "doomed")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonModelUnavailable {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonModelUnavailable)
	}
	if res.Err == nil {
		t.Error("model_unavailable result should carry the error")
	}
	if model.queries != 1 {
		t.Errorf("non-retryable error queried %d times, want 1", model.queries)
	}
}

func TestRunModelRetrySucceeds(t *testing.T) {
	failing := scriptedStep{
		resp: ModelResponse{Usage: Usage{TotalTokens: 5, CostUSD: 0.0005}},
		err:  &ModelClientError{Err: errors.New("overloaded"), HTTPStatus: 503},
	}
	model := &scriptedModel{steps: []scriptedStep{
		failing,
		{resp: finalResp("recovered")},
	}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "flaky")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonCompleted {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCompleted)
	}
	if res.Turns != 1 {
		t.Errorf("turns = %d, want 1 (retries are not turns)", res.Turns)
	}
	// Usage from the failed attempt still counts.
	if res.Totals.TotalTokens != 115 {
		t.Errorf("total tokens = %d, want 115", res.Totals.TotalTokens)
	}
}

func TestRunToolFatalError(t *testing.T) {
	reg := ToolRegistry{}
	reg.Register(Tool{
		Name:       "detonate",
		SchemaJSON: `{"type":"object"}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "", Fatalf("detonate", "unrecoverable state")
		},
		Retryable: true,
	})

	model := &scriptedModel{steps: []scriptedStep{
		{resp: ModelResponse{
			ToolRequests: []ToolRequest{{ID: "c1", Name: "detonate", Args: map[string]any{}}},
			Usage:        Usage{TotalTokens: 50, CostUSD: 0.001},
		}},
	}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, reg, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := loop.Run(context.Background(), "boom")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonToolFatalError {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonToolFatalError)
	}
	if !IsFatalToolError(res.Err) {
		t.Errorf("result error = %v, want fatal tool error", res.Err)
	}

	// The failure is still recorded in the transcript before termination.
	last := res.Transcript[len(res.Transcript)-1]
	if last.Kind != TurnToolResult || !last.IsError {
		t.Errorf("last turn = %+v, want error-flagged tool result", last)
	}
	if !strings.HasPrefix(last.Content, "ERROR: ") {
		t.Errorf("error result content = %q, want ERROR: prefix", last.Content)
	}
}

func TestRunLoopConsumedOnce(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{{resp: finalResp("once")}}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := loop.Run(context.Background(), "first"); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := loop.Run(context.Background(), "second"); err == nil {
		t.Fatal("second Run should fail on a consumed loop")
	}
}

func TestNewRejectsNilModel(t *testing.T) {
	_, err := New(nil, echoRegistry(), DefaultConfig())
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
}

// turnEndRecorder snapshots, at each turn boundary, how many tool results
// the transcript holds so far.
type turnEndRecorder struct {
	NopHook
	resultsSeen []int
}

func (h *turnEndRecorder) OnTurnEnd(_ context.Context, rc *RunContext) {
	n := 0
	for _, turn := range rc.Transcript {
		if turn.Kind == TurnToolResult {
			n++
		}
	}
	h.resultsSeen = append(h.resultsSeen, n)
}

func TestRunTurnEndFiresPerTurn(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		{resp: toolCallResp("c1", "hi")},
		{resp: finalResp("done")},
	}}

	rec := &turnEndRecorder{}
	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()
	cfg.Hooks = Hooks{rec}

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := loop.Run(context.Background(), "greet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonCompleted {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCompleted)
	}

	// Once for the tool turn, once for the final answer turn.
	if len(rec.resultsSeen) != 2 {
		t.Fatalf("on_turn_end fired %d times, want 2", len(rec.resultsSeen))
	}
	// The first boundary is observed before the turn's results join the
	// transcript; by the second, they are in.
	if rec.resultsSeen[0] != 0 {
		t.Errorf("first turn boundary saw %d results, want 0", rec.resultsSeen[0])
	}
	if rec.resultsSeen[1] != 1 {
		t.Errorf("second turn boundary saw %d results, want 1", rec.resultsSeen[1])
	}
}

func TestRunStreamEndsWithResult(t *testing.T) {
	model := &scriptedModel{steps: []scriptedStep{
		{resp: toolCallResp("c1", "hi")},
		{resp: finalResp("hello")},
	}}

	cfg := DefaultConfig()
	cfg.ModelRetryPolicy = fastRetryPolicy()

	loop, err := New(model, echoRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []Event
	for ev := range loop.RunStream(context.Background(), "greet") {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("stream produced no events")
	}
	last := events[len(events)-1]
	if last.Kind != EventResult {
		t.Fatalf("last event = %s, want %s", last.Kind, EventResult)
	}
	if last.Result == nil || last.Result.Reason != ReasonCompleted {
		t.Errorf("stream result = %+v, want completed", last.Result)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Kind == EventResult {
			t.Error("EventResult appeared before the end of the stream")
		}
	}

	var sawToolStart, sawToolEnd bool
	for _, ev := range events {
		switch ev.Kind {
		case EventToolStart:
			sawToolStart = true
		case EventToolEnd:
			sawToolEnd = true
		}
	}
	if !sawToolStart || !sawToolEnd {
		t.Error("stream missing tool start/end events")
	}
}
