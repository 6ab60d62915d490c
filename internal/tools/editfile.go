package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EditFileTool replaces an exact text span in an existing file.
type EditFileTool struct{}

func (t *EditFileTool) Name() string                     { return "edit_file" }
func (t *EditFileTool) IsReadOnly() bool                 { return false }
func (t *EditFileTool) PermissionLevel() PermissionLevel { return PermissionWrite }

func (t *EditFileTool) Description() string {
	return "Replace an exact occurrence of old_text with new_text in a file. " +
		"old_text must match the file contents exactly, including whitespace, " +
		"and must occur exactly once unless replace_all is set."
}

func (t *EditFileTool) Parameters() map[string]any {
	return map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path of the file to edit",
		},
		"old_text": map[string]any{
			"type":        "string",
			"description": "Exact text to replace",
		},
		"new_text": map[string]any{
			"type":        "string",
			"description": "Replacement text",
		},
		"replace_all": map[string]any{
			"type":        "boolean",
			"description": "Replace every occurrence instead of requiring a unique match",
		},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Path       string `json:"path"`
		OldText    string `json:"old_text"`
		NewText    string `json:"new_text"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Path == "" {
		return ToolResult{}, fmt.Errorf("path is required")
	}
	if p.OldText == "" {
		return ToolResult{}, fmt.Errorf("old_text is required")
	}
	if p.OldText == p.NewText {
		return ToolResult{}, fmt.Errorf("old_text and new_text are identical")
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("cannot read %s: %v", p.Path, err), IsError: true}, nil
	}
	content := string(data)

	count := strings.Count(content, p.OldText)
	if count == 0 {
		return ToolResult{Content: fmt.Sprintf("old_text not found in %s", p.Path), IsError: true}, nil
	}
	if count > 1 && !p.ReplaceAll {
		return ToolResult{
			Content: fmt.Sprintf("old_text occurs %d times in %s; add more context or set replace_all", count, p.Path),
			IsError: true,
		}, nil
	}

	updated := strings.Replace(content, p.OldText, p.NewText, count)
	if err := os.WriteFile(p.Path, []byte(updated), 0o644); err != nil {
		return ToolResult{Content: fmt.Sprintf("cannot write %s: %v", p.Path, err), IsError: true}, nil
	}

	if count == 1 {
		return ToolResult{Content: fmt.Sprintf("Edited %s", p.Path)}, nil
	}
	return ToolResult{Content: fmt.Sprintf("Edited %s (%d replacements)", p.Path, count)}, nil
}
