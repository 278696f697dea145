package providers

import (
	"fmt"
	"os"

	"github.com/nogbrian/agentloop/internal/agentic"
)

// NewClientFromEnv creates an agentic.ModelClient based on environment
// variables. LLM_PROVIDER selects the vendor; each vendor reads its own
// API key, optional model override, and optional base URL.
//
// OpenAI-compatible vendors (kimi, deepseek, ollama, lmstudio, groq) reuse
// the OpenAI client with a different base URL, mapping the single MODEL
// override to every tier.
func NewClientFromEnv() (agentic.ModelClient, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		baseURL := os.Getenv("OPENAI_BASE_URL")
		return NewOpenAIClient(apiKey, baseURL, tierOverride(os.Getenv("OPENAI_MODEL"))), nil

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return NewAnthropicClient(apiKey, tierOverride(os.Getenv("ANTHROPIC_MODEL"))), nil

	case "kimi":
		// BytePlus ModelArk endpoint, OpenAI-compatible.
		apiKey := os.Getenv("KIMI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("KIMI_API_KEY not set")
		}
		model := os.Getenv("KIMI_MODEL")
		if model == "" {
			model = "kimi-k2-250711"
		}
		baseURL := os.Getenv("KIMI_BASE_URL")
		if baseURL == "" {
			baseURL = "https://ark.ap-southeast.bytepluses.com/api/v3"
		}
		return NewOpenAIClient(apiKey, baseURL, tierOverride(model)), nil

	case "deepseek":
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY not set")
		}
		model := os.Getenv("DEEPSEEK_MODEL")
		if model == "" {
			model = "deepseek-chat"
		}
		return NewOpenAIClient(apiKey, "https://api.deepseek.com/v1", tierOverride(model)), nil

	case "groq":
		apiKey := os.Getenv("GROQ_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY not set")
		}
		model := os.Getenv("GROQ_MODEL")
		if model == "" {
			model = "llama-3.1-70b-versatile"
		}
		return NewOpenAIClient(apiKey, "https://api.groq.com/openai/v1", tierOverride(model)), nil

	case "ollama":
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.1"
		}
		// Local servers accept any key.
		return NewOpenAIClient("ollama", baseURL, tierOverride(model)), nil

	case "lmstudio":
		baseURL := os.Getenv("LMSTUDIO_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:1234/v1"
		}
		model := os.Getenv("LMSTUDIO_MODEL")
		if model == "" {
			model = "local-model"
		}
		return NewOpenAIClient("lm-studio", baseURL, tierOverride(model)), nil

	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s (supported: openai, anthropic, kimi, deepseek, groq, ollama, lmstudio)", provider)
	}
}

// tierOverride maps a single model name to all tiers, or returns nil to
// keep the provider's defaults.
func tierOverride(model string) map[agentic.Tier]string {
	if model == "" {
		return nil
	}
	return map[agentic.Tier]string{
		agentic.TierFast:     model,
		agentic.TierSmart:    model,
		agentic.TierCreative: model,
	}
}
