package providers

import (
	"fmt"
	"strings"

	"github.com/nogbrian/agentloop/internal/agentic"
)

// summarizeMaxTokens bounds the size of a compaction summary so the rewrite
// always frees context instead of trading one large block for another.
const summarizeMaxTokens = 1024

const defaultSystemPrompt = `You are an autonomous agent working toward a single goal.

You operate in a loop: inspect the conversation, decide on the next step,
and either call one or more of the available tools or produce a final
answer. Call tools when you need information or side effects; answer in
plain text only when the goal is fully resolved.

Rules:
- Prefer small, verifiable steps over large speculative ones.
- When a tool returns an error, read the error and adjust the call
  instead of repeating it unchanged.
- When you have enough information, stop calling tools and give the
  final answer directly.`

const summarizeSystem = `You compress agent conversation history. Produce a dense
summary of the turns you are given: the decisions made, tool calls issued and
their outcomes, facts learned, and anything still unresolved. Keep exact values
(paths, numbers, identifiers) verbatim. Output only the summary text.`

// summarizeUser renders evicted turns into a single prompt for the
// summarization call.
func summarizeUser(turns []agentic.Turn) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation turns:\n\n")
	for _, t := range turns {
		switch t.Kind {
		case agentic.TurnToolCall:
			fmt.Fprintf(&b, "[tool_call %s] %s(%v)\n", t.CallID, t.Name, t.Args)
		case agentic.TurnToolResult:
			fmt.Fprintf(&b, "[tool_result %s] %s\n", t.CallID, t.Content)
		default:
			fmt.Fprintf(&b, "[%s] %s\n", t.Kind, t.Content)
		}
	}
	return b.String()
}
