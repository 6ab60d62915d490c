package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// GrepTool searches file contents with a regular expression.
type GrepTool struct{}

func (t *GrepTool) Name() string                     { return "grep" }
func (t *GrepTool) IsReadOnly() bool                 { return true }
func (t *GrepTool) PermissionLevel() PermissionLevel { return PermissionRead }

func (t *GrepTool) Description() string {
	return "Search file contents for a regular expression. " +
		"Returns matching lines as path:line:text. " +
		"Use include to restrict the search to files matching a glob, e.g. *.go."
}

const (
	grepMaxMatches  = 200
	grepMaxFileSize = 1 << 20 // binary blobs and bundles are not worth scanning
)

func (t *GrepTool) Parameters() map[string]any {
	return map[string]any{
		"pattern": map[string]any{
			"type":        "string",
			"description": "Regular expression to search for",
		},
		"dir": map[string]any{
			"type":        "string",
			"description": "Directory to search in (default current directory)",
		},
		"include": map[string]any{
			"type":        "string",
			"description": "Only search files whose name matches this glob",
		},
	}
}

func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Pattern string `json:"pattern"`
		Dir     string `json:"dir"`
		Include string `json:"include"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Pattern == "" {
		return ToolResult{}, fmt.Errorf("pattern is required")
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("invalid pattern: %v", err), IsError: true}, nil
	}
	root := p.Dir
	if root == "" {
		root = "."
	}

	var out strings.Builder
	matches := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
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
		if p.Include != "" {
			if ok, _ := filepath.Match(p.Include, name); !ok {
				return nil
			}
		}
		if info, err := d.Info(); err != nil || info.Size() > grepMaxFileSize {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 256*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if strings.ContainsRune(line, 0) {
				return nil // binary file
			}
			if re.MatchString(line) {
				fmt.Fprintf(&out, "%s:%d:%s\n", rel, lineNo, line)
				matches++
				if matches >= grepMaxMatches {
					return fs.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != context.Canceled {
		return ToolResult{Content: fmt.Sprintf("grep failed: %v", walkErr), IsError: true}, nil
	}
	if ctx.Err() != nil {
		return ToolResult{}, ctx.Err()
	}

	if matches == 0 {
		return ToolResult{Content: "No matches found"}, nil
	}
	result := out.String()
	if matches >= grepMaxMatches {
		result += fmt.Sprintf("[result capped at %d matches]", grepMaxMatches)
	}
	return ToolResult{Content: strings.TrimRight(result, "\n")}, nil
}
