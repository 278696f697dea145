package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nogbrian/agentloop/internal/agentic"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient implements agentic.ModelClient against the OpenAI chat
// completions API. Setting a base URL makes it work with any
// OpenAI-compatible endpoint (Kimi, DeepSeek, Ollama, LM Studio, ...).
type OpenAIClient struct {
	client       *openai.Client
	tierModels   map[agentic.Tier]string
	systemPrompt string
}

// defaultOpenAITiers maps tiers to OpenAI model classes.
var defaultOpenAITiers = map[agentic.Tier]string{
	agentic.TierFast:     "gpt-4o-mini",
	agentic.TierSmart:    "gpt-4o",
	agentic.TierCreative: "gpt-4o",
}

// NewOpenAIClient creates an OpenAI-backed model client.
// tierModels may be nil to use the defaults.
func NewOpenAIClient(apiKey, baseURL string, tierModels map[agentic.Tier]string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	if tierModels == nil {
		tierModels = defaultOpenAITiers
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(config),
		tierModels:   tierModels,
		systemPrompt: defaultSystemPrompt,
	}
}

func (c *OpenAIClient) model(tier agentic.Tier) string {
	if m, ok := c.tierModels[tier]; ok {
		return m
	}
	return c.tierModels[agentic.TierSmart]
}

// Query implements agentic.ModelClient.
func (c *OpenAIClient) Query(ctx context.Context, req agentic.QueryRequest) (agentic.ModelResponse, error) {
	model := c.model(req.Tier)

	msgs, err := toOpenAIMessages(req.Transcript, c.systemPrompt)
	if err != nil {
		return agentic.ModelResponse{}, err
	}

	var tools []openai.Tool
	for _, ts := range req.Tools {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return agentic.ModelResponse{}, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  schemaObj,
			},
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		chatReq.Tools = tools
		chatReq.ToolChoice = "auto"
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		chatReq.Temperature = &temp
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return agentic.ModelResponse{}, &agentic.ModelClientError{Err: err, HTTPStatus: httpStatus, RetryAfter: retryAfter}
	}

	if len(resp.Choices) == 0 {
		return agentic.ModelResponse{}, fmt.Errorf("empty response from OpenAI")
	}

	choice := resp.Choices[0]

	var toolRequests []agentic.ToolRequest
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = make(map[string]any)
			}
		} else {
			args = make(map[string]any)
		}
		toolRequests = append(toolRequests, agentic.ToolRequest{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	usage := agentic.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      EstimateCostUSD(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}

	return agentic.ModelResponse{
		Text:         choice.Message.Content,
		ToolRequests: toolRequests,
		Usage:        usage,
	}, nil
}

// Summarize implements agentic.ModelClient by asking the fast tier's model
// to compress old turns.
func (c *OpenAIClient) Summarize(ctx context.Context, turns []agentic.Turn, tier agentic.Tier) (string, agentic.Usage, error) {
	model := c.model(agentic.TierFast)

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summarizeSystem},
		{Role: openai.ChatMessageRoleUser, Content: summarizeUser(turns)},
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: summarizeMaxTokens,
	})
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return "", agentic.Usage{}, &agentic.ModelClientError{Err: err, HTTPStatus: httpStatus, RetryAfter: retryAfter}
	}
	if len(resp.Choices) == 0 {
		return "", agentic.Usage{}, fmt.Errorf("empty response from OpenAI")
	}

	usage := agentic.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      EstimateCostUSD(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}

	return resp.Choices[0].Message.Content, usage, nil
}

// ContextWindow implements agentic.ModelClient.
func (c *OpenAIClient) ContextWindow(tier agentic.Tier) int {
	return ContextWindowTokens(c.model(tier))
}

// toOpenAIMessages converts a transcript to OpenAI chat messages.
// Tool-call turns fold into the preceding assistant message (synthesizing
// one when the model produced calls without text), because the API requires
// tool results to follow an assistant message carrying tool_calls.
func toOpenAIMessages(transcript []agentic.Turn, systemPrompt string) ([]openai.ChatCompletionMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, t := range transcript {
		switch t.Kind {
		case agentic.TurnUser:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: t.Content,
			})
		case agentic.TurnSummary:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: "<history_summary>\n" + t.Content + "\n</history_summary>",
			})
		case agentic.TurnAssistant:
			content := t.Content
			if content == "" {
				// The SDK serializes empty string as null, which the API
				// rejects; a single space is semantically equivalent.
				content = " "
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			})
		case agentic.TurnToolCall:
			argsJSON, _ := json.Marshal(t.Args)
			call := openai.ToolCall{
				ID:   t.CallID,
				Type: "function",
				Function: openai.FunctionCall{
					Name:      t.Name,
					Arguments: string(argsJSON),
				},
			}
			if n := len(msgs); n > 0 && msgs[n-1].Role == openai.ChatMessageRoleAssistant {
				msgs[n-1].ToolCalls = append(msgs[n-1].ToolCalls, call)
			} else {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:      openai.ChatMessageRoleAssistant,
					Content:   " ",
					ToolCalls: []openai.ToolCall{call},
				})
			}
		case agentic.TurnToolResult:
			content := t.Content
			if content == "" {
				content = "{}"
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: t.CallID,
				Content:    content,
			})
		default:
			return nil, fmt.Errorf("invalid turn kind: %s", t.Kind)
		}
	}

	return msgs, nil
}

// extractErrorMetadata extracts HTTP status code and Retry-After header
// from an SDK error message.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	errStr := err.Error()
	var httpStatus int
	var retryAfter string

	switch {
	case strings.Contains(errStr, "429"):
		httpStatus = http.StatusTooManyRequests
	case strings.Contains(errStr, "500"):
		httpStatus = http.StatusInternalServerError
	case strings.Contains(errStr, "502"):
		httpStatus = http.StatusBadGateway
	case strings.Contains(errStr, "503"):
		httpStatus = http.StatusServiceUnavailable
	case strings.Contains(errStr, "504"):
		httpStatus = http.StatusGatewayTimeout
	case strings.Contains(errStr, "401"):
		httpStatus = http.StatusUnauthorized
	case strings.Contains(errStr, "403"):
		httpStatus = http.StatusForbidden
	case strings.Contains(errStr, "400"):
		httpStatus = http.StatusBadRequest
	case strings.Contains(errStr, "402"):
		httpStatus = http.StatusPaymentRequired
	}

	if idx := strings.Index(strings.ToLower(errStr), "retry-after"); idx != -1 {
		remaining := strings.TrimLeft(errStr[idx+len("retry-after"):], ": \t")
		if parts := strings.Fields(remaining); len(parts) > 0 {
			retryAfter = strings.TrimSuffix(parts[0], ",")
		}
	}

	return httpStatus, retryAfter
}
