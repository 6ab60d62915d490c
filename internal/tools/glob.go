package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// GlobTool finds files matching a glob pattern.
type GlobTool struct{}

func (t *GlobTool) Name() string                     { return "glob" }
func (t *GlobTool) IsReadOnly() bool                 { return true }
func (t *GlobTool) PermissionLevel() PermissionLevel { return PermissionRead }

func (t *GlobTool) Description() string {
	return "Find files whose paths match a glob pattern. " +
		"Supports ** for recursive matching, e.g. internal/**/*.go."
}

const globMaxResults = 500

func (t *GlobTool) Parameters() map[string]any {
	return map[string]any{
		"pattern": map[string]any{
			"type":        "string",
			"description": "Glob pattern to match",
		},
		"dir": map[string]any{
			"type":        "string",
			"description": "Directory to search in (default current directory)",
		},
	}
}

func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Pattern string `json:"pattern"`
		Dir     string `json:"dir"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Pattern == "" {
		return ToolResult{}, fmt.Errorf("pattern is required")
	}
	root := p.Dir
	if root == "" {
		root = "."
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if matchGlob(p.Pattern, rel) {
			matches = append(matches, rel)
		}
		if len(matches) >= globMaxResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return ToolResult{Content: fmt.Sprintf("glob failed: %v", err), IsError: true}, nil
	}
	if ctx.Err() != nil {
		return ToolResult{}, ctx.Err()
	}

	if len(matches) == 0 {
		return ToolResult{Content: "No files matched"}, nil
	}
	sort.Strings(matches)
	out := strings.Join(matches, "\n")
	if len(matches) >= globMaxResults {
		out += fmt.Sprintf("\n[result capped at %d files]", globMaxResults)
	}
	return ToolResult{Content: out}, nil
}

// matchGlob matches a relative path against a pattern, treating ** as
// "any number of path segments".
func matchGlob(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		ok, _ := filepath.Match(pattern, path)
		if ok {
			return true
		}
		// Bare patterns like "*.go" should match at any depth.
		ok, _ = filepath.Match(pattern, filepath.Base(path))
		return ok && !strings.Contains(pattern, "/")
	}

	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")
	return matchSegs(patSegs, pathSegs)
}

func matchSegs(pat, segs []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if matchSegs(pat[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	if ok, _ := filepath.Match(pat[0], segs[0]); !ok {
		return false
	}
	return matchSegs(pat[1:], segs[1:])
}
