package providers

import (
	"testing"

	"github.com/nogbrian/agentloop/internal/agentic"
)

func TestNewClientFromEnv(t *testing.T) {
	t.Run("defaults to openai", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		client, err := NewClientFromEnv()
		if err != nil {
			t.Fatalf("NewClientFromEnv: %v", err)
		}
		if _, ok := client.(*OpenAIClient); !ok {
			t.Errorf("client = %T, want *OpenAIClient", client)
		}
	})

	t.Run("missing key fails", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "")
		if _, err := NewClientFromEnv(); err == nil {
			t.Error("want error without OPENAI_API_KEY")
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "anthropic")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		client, err := NewClientFromEnv()
		if err != nil {
			t.Fatalf("NewClientFromEnv: %v", err)
		}
		if _, ok := client.(*AnthropicClient); !ok {
			t.Errorf("client = %T, want *AnthropicClient", client)
		}
	})

	t.Run("model override applies to every tier", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
		client, err := NewClientFromEnv()
		if err != nil {
			t.Fatalf("NewClientFromEnv: %v", err)
		}
		oc := client.(*OpenAIClient)
		for _, tier := range []agentic.Tier{agentic.TierFast, agentic.TierSmart, agentic.TierCreative} {
			if m := oc.model(tier); m != "gpt-4o-mini" {
				t.Errorf("tier %s = %s, want override", tier, m)
			}
		}
	})

	t.Run("local provider needs no key", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "ollama")
		if _, err := NewClientFromEnv(); err != nil {
			t.Errorf("ollama should not require a key: %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "fortune-teller")
		if _, err := NewClientFromEnv(); err == nil {
			t.Error("want error for unknown provider")
		}
	})
}
