package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nogbrian/agentloop/internal/agentic"
)

const readFileMaxBytes = 256 * 1024

// NewReadFileTool reads files under root. Paths are resolved relative to
// root and must stay inside it.
func NewReadFileTool(root string) agentic.Tool {
	return agentic.Tool{
		Name:        "read_file",
		Description: "Reads the content of a text file. Provide the path relative to the working directory.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string","description":"Path to the file relative to the working directory"}},"required":["path"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}

			filePath := filepath.Clean(filepath.Join(root, path))
			if !strings.HasPrefix(filePath, filepath.Clean(root)) {
				return "", fmt.Errorf("path %s is outside the working directory", path)
			}

			info, err := os.Stat(filePath)
			if err != nil {
				return "", err
			}
			if info.IsDir() {
				return "", fmt.Errorf("%s is a directory", path)
			}
			if info.Size() > readFileMaxBytes {
				return "", fmt.Errorf("%s is %d bytes, larger than the %d byte limit", path, info.Size(), readFileMaxBytes)
			}

			contentBytes, err := os.ReadFile(filePath)
			if err != nil {
				return "", err
			}

			content := string(contentBytes)
			result := map[string]any{
				"path":       path,
				"content":    content,
				"line_count": strings.Count(content, "\n") + 1,
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

// NewListFilesTool lists a directory under root.
func NewListFilesTool(root string) agentic.Tool {
	return agentic.Tool{
		Name:        "list_files",
		Description: "Lists the entries of a directory. Provide the path relative to the working directory; defaults to the working directory itself.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string","description":"Directory path relative to the working directory, defaults to '.'"}},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path := "."
			if p, ok := args["path"].(string); ok && p != "" {
				path = p
			}

			dirPath := filepath.Clean(filepath.Join(root, path))
			if !strings.HasPrefix(dirPath, filepath.Clean(root)) {
				return "", fmt.Errorf("path %s is outside the working directory", path)
			}

			entries, err := os.ReadDir(dirPath)
			if err != nil {
				return "", err
			}

			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}

			result := map[string]any{
				"path":    path,
				"entries": names,
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
