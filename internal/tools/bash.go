package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/quill-ai/quill/internal/permission"
)

// BashTool executes shell commands.
type BashTool struct{}

func (t *BashTool) Name() string                     { return permission.ShellToolName }
func (t *BashTool) IsReadOnly() bool                 { return false }
func (t *BashTool) PermissionLevel() PermissionLevel { return PermissionExecute }

func (t *BashTool) Description() string {
	return "Execute a shell command and return its combined stdout and stderr output. " +
		"stdin is disconnected, so interactive commands will fail. " +
		"Set timeout (seconds) for commands that may run long."
}

const (
	defaultBashTimeout = 120 * time.Second
	maxBashTimeout     = 600 * time.Second
)

func (t *BashTool) Parameters() map[string]any {
	return map[string]any{
		"command": map[string]any{
			"type":        "string",
			"description": "The shell command to execute",
		},
		"timeout": map[string]any{
			"type":        "integer",
			"description": "Timeout in seconds (default 120, max 600)",
		},
	}
}

func (t *BashTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	if p.Command == "" {
		return ToolResult{}, fmt.Errorf("command is required")
	}

	timeout := defaultBashTimeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Second
	}
	if timeout > maxBashTimeout {
		timeout = maxBashTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shellBin(), "-c", p.Command)
	// Close stdin so interactive commands fail fast with EOF.
	cmd.Stdin = nil
	// New process group so the whole tree can be killed on cancel.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var buf lockedBuffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()

	if ctx.Err() == context.DeadlineExceeded {
		return ToolResult{
			Content: fmt.Sprintf("%s\n[killed: timeout after %s]", output, timeout),
			IsError: true,
		}, nil
	}
	if ctx.Err() == context.Canceled {
		return ToolResult{}, ctx.Err()
	}
	if err != nil {
		return ToolResult{
			Content: fmt.Sprintf("%s\n[exit error: %v]", output, err),
			IsError: true,
		}, nil
	}
	return ToolResult{Content: strings.TrimRight(output, "\n")}, nil
}

func shellBin() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// lockedBuffer is a bytes.Buffer safe for the concurrent stdout/stderr
// writes exec produces.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
