package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nogbrian/agentloop/internal/agentic"
)

const (
	fetchTimeout = 20 * time.Second
	// fetchMaxBytes caps the body so a large page cannot blow up the
	// transcript and trigger immediate compaction.
	fetchMaxBytes = 64 * 1024
)

// NewHTTPGetTool fetches a URL over HTTP(S) and returns the response body.
func NewHTTPGetTool() agentic.Tool {
	client := &http.Client{Timeout: fetchTimeout}

	return agentic.Tool{
		Name:        "http_get",
		Description: "Performs an HTTP GET request and returns the response body (truncated to 64KB). Only http and https URLs are allowed.",
		SchemaJSON:  `{"type":"object","properties":{"url":{"type":"string","description":"The URL to fetch"}},"required":["url"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			url, ok := args["url"].(string)
			if !ok {
				return "", fmt.Errorf("url must be a string")
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return "", fmt.Errorf("unsupported URL scheme in %q (only http and https)", url)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			req.Header.Set("User-Agent", "agentloop/1.0")

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
			if err != nil {
				return "", fmt.Errorf("reading response body: %w", err)
			}

			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, truncate(string(body), 200))
			}

			result := map[string]any{
				"url":          url,
				"status":       resp.StatusCode,
				"content_type": resp.Header.Get("Content-Type"),
				"body":         string(body),
				"truncated":    len(body) == fetchMaxBytes,
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
