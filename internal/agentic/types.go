package agentic

import (
	"context"
	"fmt"
)

// TurnKind identifies the kind of a transcript entry.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnAssistant  TurnKind = "assistant"
	TurnToolCall   TurnKind = "tool_call"
	TurnToolResult TurnKind = "tool_result"
	TurnSummary    TurnKind = "summary" // produced by compaction only
)

// Turn is one entry of the conversation transcript.
// Which fields are meaningful depends on Kind:
//   - TurnUser / TurnAssistant / TurnSummary: Content
//   - TurnToolCall: CallID, Name, Args
//   - TurnToolResult: CallID, Name, Content, IsError
type Turn struct {
	Kind    TurnKind       `json:"kind"`
	Content string         `json:"content,omitempty"`
	CallID  string         `json:"call_id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
}

// Validate checks that the turn is well-formed for its kind.
func (t Turn) Validate() error {
	switch t.Kind {
	case TurnUser, TurnAssistant, TurnSummary:
		// Content-only kinds, nothing else required
	case TurnToolCall:
		if t.Name == "" {
			return fmt.Errorf("tool_call turns must have a Name")
		}
	case TurnToolResult:
		if t.CallID == "" {
			return fmt.Errorf("tool_result turns must have a CallID")
		}
	default:
		return fmt.Errorf("invalid turn kind: %s", t.Kind)
	}
	return nil
}

// Usage holds token and cost accounting returned by model clients.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add accumulates another usage sample into u.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
	u.CostUSD += o.CostUSD
}

// ToolRequest is a tool invocation requested by the model.
type ToolRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// ModelResponse is the normalized result of one model query.
// Exactly one of Text / ToolRequests is expected to be meaningful: a
// response with no tool requests is a final answer.
type ModelResponse struct {
	Text         string
	ToolRequests []ToolRequest
	Usage        Usage
}

// QueryRequest carries everything a model client needs for one query.
type QueryRequest struct {
	Transcript  []Turn
	Tools       []ToolSchema
	Tier        Tier
	Temperature float32
	MaxTokens   int
}

// ModelClient abstracts the underlying LLM vendor (OpenAI, Anthropic, etc.)
// behind the two capabilities the loop needs. Implementations must honor
// context cancellation and should report whatever usage they observed even
// when returning an error.
type ModelClient interface {
	Query(ctx context.Context, req QueryRequest) (ModelResponse, error)

	// Summarize compresses a window of old turns into a short prose summary
	// for compaction. The returned usage counts toward the run's budget.
	Summarize(ctx context.Context, turns []Turn, tier Tier) (string, Usage, error)

	// ContextWindow reports the context capacity, in tokens, of the model
	// class backing the given tier.
	ContextWindow(tier Tier) int
}

// Tier selects a model class, trading latency and cost for quality.
type Tier string

const (
	TierFast     Tier = "fast"
	TierSmart    Tier = "smart"
	TierCreative Tier = "creative"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierSmart, TierCreative:
		return true
	}
	return false
}
