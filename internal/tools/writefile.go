package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileTool creates or overwrites a file.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string                     { return "write_file" }
func (t *WriteFileTool) IsReadOnly() bool                 { return false }
func (t *WriteFileTool) PermissionLevel() PermissionLevel { return PermissionWrite }

func (t *WriteFileTool) Description() string {
	return "Write content to a file, creating parent directories as needed. " +
		"Overwrites the file if it already exists."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path of the file to write",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "Full content of the file",
		},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Path == "" {
		return ToolResult{}, fmt.Errorf("path is required")
	}

	if dir := filepath.Dir(p.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ToolResult{Content: fmt.Sprintf("cannot create %s: %v", dir, err), IsError: true}, nil
		}
	}

	existed := false
	if _, err := os.Stat(p.Path); err == nil {
		existed = true
	}

	if err := os.WriteFile(p.Path, []byte(p.Content), 0o644); err != nil {
		return ToolResult{Content: fmt.Sprintf("cannot write %s: %v", p.Path, err), IsError: true}, nil
	}

	verb := "Created"
	if existed {
		verb = "Overwrote"
	}
	lines := strings.Count(p.Content, "\n") + 1
	return ToolResult{Content: fmt.Sprintf("%s %s (%d lines)", verb, p.Path, lines)}, nil
}
