package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quill-ai/quill/internal/permission"
)

// AuditEntry is one settled permission request, as written to the JSONL
// audit log.
type AuditEntry struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Tool      string    `json:"tool"`
	Outcome   string    `json:"outcome"` // allow, deny, cancel
	Message   string    `json:"message,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Mode      string    `json:"mode,omitempty"`
}

// AuditLog records every permission decision to a JSONL file, one file per
// session. It implements permission.DecisionObserver and is registered on
// the coordinator at startup.
type AuditLog struct {
	mu        sync.Mutex
	file      *os.File
	enc       *json.Encoder
	sessionID string
	logPath   string
}

var _ permission.DecisionObserver = (*AuditLog)(nil)

// NewAuditLog opens the audit log for a session. Entries are written to
// ~/.local/share/quill/audit/{session_id}.jsonl.
func NewAuditLog(sessionID string) (*AuditLog, error) {
	var lastErr error
	for _, dir := range auditLogDirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			lastErr = fmt.Errorf("create audit directory %s: %w", dir, err)
			continue
		}

		logPath := filepath.Join(dir, sessionID+".jsonl")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			lastErr = fmt.Errorf("open audit log %s: %w", logPath, err)
			continue
		}

		return &AuditLog{
			file:      f,
			enc:       json.NewEncoder(f),
			sessionID: sessionID,
			logPath:   logPath,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no writable audit directory found")
	}
	return nil, lastErr
}

// auditLogDirs returns candidate directories in priority order.
// 1) QUILL_AUDIT_DIR (explicit override)
// 2) ~/.local/share/quill/audit (default)
// 3) $TMPDIR/quill/audit (fallback for restricted environments)
func auditLogDirs() []string {
	seen := make(map[string]bool)
	var dirs []string

	add := func(dir string) {
		dir = strings.TrimSpace(dir)
		if dir == "" || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	add(os.Getenv("QUILL_AUDIT_DIR"))

	if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, ".local", "share", "quill", "audit"))
	}

	add(filepath.Join(os.TempDir(), "quill", "audit"))
	return dirs
}

// ObserveDecision records one settled permission request.
func (l *AuditLog) ObserveDecision(toolName string, out permission.Outcome) {
	entry := AuditEntry{
		Timestamp: time.Now(),
		SessionID: l.sessionID,
		Tool:      toolName,
	}
	switch {
	case out.Err != nil:
		entry.Outcome = "cancel"
	case out.Decision.Behavior == permission.BehaviorDeny:
		entry.Outcome = "deny"
		entry.Message = out.Decision.Message
	default:
		entry.Outcome = "allow"
		entry.Rule = out.Decision.NewPermissionRule
		entry.Mode = string(out.Decision.NewPermissionMode)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(entry)
}

// ReadRecent reads the last n entries from the log file.
func (l *AuditLog) ReadRecent(n int) ([]AuditEntry, error) {
	l.mu.Lock()
	path := l.logPath
	l.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		var e AuditEntry
		if json.Unmarshal(scanner.Bytes(), &e) == nil {
			entries = append(entries, e)
		}
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Close flushes and closes the audit log file.
func (l *AuditLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// FormatAuditEntries formats audit entries for display.
func FormatAuditEntries(entries []AuditEntry) string {
	if len(entries) == 0 {
		return "No permission decisions recorded."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Permission decisions (%d):\n", len(entries)))
	for _, e := range entries {
		detail := ""
		switch {
		case e.Rule != "":
			detail = "rule=" + e.Rule
		case e.Mode != "":
			detail = "mode=" + e.Mode
		case e.Message != "":
			detail = truncate(e.Message, 60)
		}
		if detail != "" {
			sb.WriteString(fmt.Sprintf("  %s  %-7s %-16s %s\n",
				e.Timestamp.Format("15:04:05"), e.Outcome, e.Tool, detail))
		} else {
			sb.WriteString(fmt.Sprintf("  %s  %-7s %s\n",
				e.Timestamp.Format("15:04:05"), e.Outcome, e.Tool))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
