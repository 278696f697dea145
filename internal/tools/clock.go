package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nogbrian/agentloop/internal/agentic"
)

// NewClockTool reports the current time, optionally in a named IANA zone.
func NewClockTool() agentic.Tool {
	return agentic.Tool{
		Name:        "clock",
		Description: "Returns the current date and time. Optionally provide an IANA timezone name (e.g. 'Europe/Paris'); defaults to UTC.",
		SchemaJSON:  `{"type":"object","properties":{"timezone":{"type":"string","description":"IANA timezone name, defaults to UTC"}},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			loc := time.UTC
			if tz, ok := args["timezone"].(string); ok && tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
				}
				loc = l
			}

			now := time.Now().In(loc)
			result := map[string]any{
				"rfc3339":  now.Format(time.RFC3339),
				"unix":     now.Unix(),
				"timezone": loc.String(),
				"weekday":  now.Weekday().String(),
			}
			resultJSON, err := json.Marshal(result)
			if err != nil {
				return "", err
			}
			return string(resultJSON), nil
		},
		Retryable: true,
	}
}
