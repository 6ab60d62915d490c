package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ReadFileTool reads a file with line numbers, optionally windowed by
// offset/limit for large files.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string                     { return "read_file" }
func (t *ReadFileTool) IsReadOnly() bool                 { return true }
func (t *ReadFileTool) PermissionLevel() PermissionLevel { return PermissionRead }

func (t *ReadFileTool) Description() string {
	return "Read a file and return its contents with line numbers. " +
		"Use offset and limit to read a window of a large file."
}

const readDefaultLimit = 2000

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path of the file to read",
		},
		"offset": map[string]any{
			"type":        "integer",
			"description": "1-based line number to start reading from",
		},
		"limit": map[string]any{
			"type":        "integer",
			"description": fmt.Sprintf("Maximum number of lines to return (default %d)", readDefaultLimit),
		},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Path   string `json:"path"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Path == "" {
		return ToolResult{}, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("cannot read %s: %v", p.Path, err), IsError: true}, nil
	}

	lines := strings.Split(string(data), "\n")
	start := 0
	if p.Offset > 1 {
		start = p.Offset - 1
	}
	if start >= len(lines) {
		return ToolResult{Content: fmt.Sprintf("offset %d is past the end of %s (%d lines)", p.Offset, p.Path, len(lines)), IsError: true}, nil
	}

	limit := p.Limit
	if limit <= 0 {
		limit = readDefaultLimit
	}
	end := start + limit
	truncated := false
	if end < len(lines) {
		truncated = true
	} else {
		end = len(lines)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i+1, lines[i])
	}
	if truncated {
		fmt.Fprintf(&sb, "[%d more lines, call again with offset=%d]\n", len(lines)-end, end+1)
	}
	return ToolResult{Content: sb.String(), Truncated: truncated}, nil
}
