// agentic/tokenizer.go
package agentic

import (
	"fmt"
	"strings"
)

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))

	// Whitespace-heavy text has fewer tokens per character.
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)

	if estimated < 1 {
		return 1
	}

	return estimated
}

// turnTokens estimates the token footprint of a single turn, including
// formatting overhead (role markers, separators).
func turnTokens(t Turn) int {
	total := EstimateTokens(string(t.Kind))
	total += EstimateTokens(t.Content)
	total += EstimateTokens(t.Name)

	if len(t.Args) > 0 {
		total += EstimateTokens(fmt.Sprintf("%v", t.Args))
	}

	// per-turn formatting overhead, approximately 4 tokens
	total += 4

	return total
}

// CountTranscriptTokens estimates the token footprint of a transcript.
func CountTranscriptTokens(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += turnTokens(t)
	}
	return total
}
