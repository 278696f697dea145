package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nogbrian/agentloop/internal/agentic"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements agentic.ModelClient by calling the Anthropic
// Messages API directly.
type AnthropicClient struct {
	client       *anthropic.Client
	tierModels   map[agentic.Tier]string
	systemPrompt string
}

var defaultAnthropicTiers = map[agentic.Tier]string{
	agentic.TierFast:     "claude-3-5-haiku-20241022",
	agentic.TierSmart:    "claude-3-5-sonnet-20241022",
	agentic.TierCreative: "claude-3-opus-20240229",
}

// NewAnthropicClient creates an Anthropic-backed model client.
// tierModels may be nil to use the defaults.
func NewAnthropicClient(apiKey string, tierModels map[agentic.Tier]string) *AnthropicClient {
	if tierModels == nil {
		tierModels = defaultAnthropicTiers
	}
	return &AnthropicClient{
		client:       anthropic.NewClient(apiKey),
		tierModels:   tierModels,
		systemPrompt: defaultSystemPrompt,
	}
}

func (c *AnthropicClient) model(tier agentic.Tier) string {
	if m, ok := c.tierModels[tier]; ok {
		return m
	}
	return c.tierModels[agentic.TierSmart]
}

// Query implements agentic.ModelClient.
func (c *AnthropicClient) Query(ctx context.Context, req agentic.QueryRequest) (agentic.ModelResponse, error) {
	model := c.model(req.Tier)

	systemParts, msgs, err := toAnthropicMessages(req.Transcript, c.systemPrompt)
	if err != nil {
		return agentic.ModelResponse{}, err
	}

	var toolDefs []anthropic.ToolDefinition
	for _, ts := range req.Tools {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return agentic.ModelResponse{}, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		toolDefs = append(toolDefs, anthropic.ToolDefinition{
			Name:        ts.Name,
			Description: ts.Description,
			InputSchema: schemaObj,
		})
	}

	maxTokens := 4096
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	mreq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		mreq.Temperature = &temp
	}
	if len(systemParts) > 0 {
		mreq.MultiSystem = systemParts
	}
	if len(toolDefs) > 0 {
		mreq.Tools = toolDefs
	}

	resp, err := c.client.CreateMessages(ctx, mreq)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return agentic.ModelResponse{}, &agentic.ModelClientError{Err: err, HTTPStatus: httpStatus, RetryAfter: retryAfter}
	}

	var textContent string
	var toolRequests []agentic.ToolRequest

	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				textContent += *block.Text
			}
		case "tool_use":
			if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
				continue
			}
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = make(map[string]any)
				}
			} else {
				args = make(map[string]any)
			}
			toolRequests = append(toolRequests, agentic.ToolRequest{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}

	usage := agentic.Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		CostUSD:      EstimateCostUSD(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}

	return agentic.ModelResponse{
		Text:         textContent,
		ToolRequests: toolRequests,
		Usage:        usage,
	}, nil
}

// Summarize implements agentic.ModelClient using the fast tier's model.
func (c *AnthropicClient) Summarize(ctx context.Context, turns []agentic.Turn, tier agentic.Tier) (string, agentic.Usage, error) {
	model := c.model(agentic.TierFast)

	mreq := anthropic.MessagesRequest{
		Model: anthropic.Model(model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(summarizeUser(turns))},
			},
		},
		MaxTokens: summarizeMaxTokens,
		MultiSystem: []anthropic.MessageSystemPart{
			{Type: "text", Text: summarizeSystem},
		},
	}

	resp, err := c.client.CreateMessages(ctx, mreq)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return "", agentic.Usage{}, &agentic.ModelClientError{Err: err, HTTPStatus: httpStatus, RetryAfter: retryAfter}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}

	usage := agentic.Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		CostUSD:      EstimateCostUSD(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}

	return text, usage, nil
}

// ContextWindow implements agentic.ModelClient.
func (c *AnthropicClient) ContextWindow(tier agentic.Tier) int {
	return ContextWindowTokens(c.model(tier))
}

// toAnthropicMessages converts a transcript to the Anthropic message shape.
// Tool-call turns fold into the preceding assistant message as tool_use
// blocks; tool results become user messages carrying tool_result blocks,
// which is the ordering the API requires.
func toAnthropicMessages(transcript []agentic.Turn, systemPrompt string) ([]anthropic.MessageSystemPart, []anthropic.Message, error) {
	var systemParts []anthropic.MessageSystemPart
	if systemPrompt != "" {
		systemParts = append(systemParts, anthropic.MessageSystemPart{Type: "text", Text: systemPrompt})
	}

	var msgs []anthropic.Message

	for _, t := range transcript {
		switch t.Kind {
		case agentic.TurnUser:
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(t.Content)},
			})
		case agentic.TurnSummary:
			systemParts = append(systemParts, anthropic.MessageSystemPart{
				Type: "text",
				Text: "<history_summary>\n" + t.Content + "\n</history_summary>",
			})
		case agentic.TurnAssistant:
			var content []anthropic.MessageContent
			if t.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(t.Content))
			}
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
		case agentic.TurnToolCall:
			argsJSON, _ := json.Marshal(t.Args)
			toolUse := anthropic.NewToolUseMessageContent(t.CallID, t.Name, json.RawMessage(argsJSON))
			if n := len(msgs); n > 0 && msgs[n-1].Role == anthropic.RoleAssistant {
				msgs[n-1].Content = append(msgs[n-1].Content, toolUse)
			} else {
				msgs = append(msgs, anthropic.Message{
					Role:    anthropic.RoleAssistant,
					Content: []anthropic.MessageContent{toolUse},
				})
			}
		case agentic.TurnToolResult:
			content := t.Content
			if content == "" {
				content = "{}"
			}
			toolResult := anthropic.NewToolResultMessageContent(t.CallID, content, t.IsError)
			// Consecutive results collapse into one user message; the API
			// rejects back-to-back messages with the same role.
			if n := len(msgs); n > 0 && msgs[n-1].Role == anthropic.RoleUser && len(msgs[n-1].Content) > 0 && msgs[n-1].Content[0].Type == "tool_result" {
				msgs[n-1].Content = append(msgs[n-1].Content, toolResult)
			} else {
				msgs = append(msgs, anthropic.Message{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{toolResult},
				})
			}
		default:
			return nil, nil, fmt.Errorf("invalid turn kind: %s", t.Kind)
		}
	}

	return systemParts, msgs, nil
}
