package agent

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/provider"
	"github.com/quill-ai/quill/internal/session"
)

// memStore is an in-memory session.Store for command tests.
type memStore struct {
	sessions map[string]*session.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*session.Session)}
}

func (m *memStore) Save(s *session.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) Load(id string) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

func (m *memStore) List() ([]session.SessionInfo, error) {
	var infos []session.SessionInfo
	for _, s := range m.sessions {
		infos = append(infos, session.SessionInfo{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			Messages:  len(s.Messages),
			Tokens:    s.TokensUsed,
		})
	}
	return infos, nil
}

func (m *memStore) Delete(id string) error { delete(m.sessions, id); return nil }
func (m *memStore) Close() error           { return nil }

func TestHandleMode_SwitchAndReport(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)

	handled, quit := a.handleSlashCommand("/mode acceptEdits")
	if !handled || quit {
		t.Fatalf("handled=%v quit=%v", handled, quit)
	}
	if a.executor.Policy().Mode() != permission.ModeAcceptEdits {
		t.Errorf("mode = %q", a.executor.Policy().Mode())
	}
	if ui.mode != permission.ModeAcceptEdits {
		t.Error("status bar was not told about the mode switch")
	}

	a.handleSlashCommand("/mode nonsense")
	if len(ui.errors) == 0 {
		t.Error("invalid mode should report an error")
	}
	if a.executor.Policy().Mode() != permission.ModeAcceptEdits {
		t.Error("invalid mode must not change the policy")
	}
}

func TestHandlePlan_Toggles(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)

	a.handleSlashCommand("/plan")
	if a.executor.Policy().Mode() != permission.ModePlan {
		t.Fatalf("mode after /plan = %q", a.executor.Policy().Mode())
	}
	a.handleSlashCommand("/plan")
	if a.executor.Policy().Mode() != permission.ModeDefault {
		t.Fatalf("mode after second /plan = %q", a.executor.Policy().Mode())
	}
}

func TestHandleModel_RebuildsPrompt(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)

	a.handleSlashCommand("/model new-model")
	if a.config.Model != "new-model" {
		t.Errorf("config model = %q", a.config.Model)
	}
	if want := "powered by new-model"; !strings.Contains(a.systemPrompt, want) {
		t.Errorf("system prompt missing %q", want)
	}
}

func TestHandleClear_ResetsSession(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)
	a.session.AddMessage(provider.Message{Role: provider.RoleUser})
	a.session.AddUsage(&provider.Usage{InputTokens: 10, OutputTokens: 5})

	a.handleSlashCommand("/clear")
	if len(a.session.Messages) != 0 || a.session.TokensUsed != 0 {
		t.Errorf("session not cleared: %d messages, %d tokens",
			len(a.session.Messages), a.session.TokensUsed)
	}
}

func TestHandleResume_PrefixMatching(t *testing.T) {
	ui := &recordingIO{}
	store := newMemStore()
	saved := &session.Session{ID: "abcdef1234567890", CreatedAt: time.Now(), TokensUsed: 42}
	saved.AddMessage(provider.Message{Role: provider.RoleUser})
	store.Save(saved)
	other := &session.Session{ID: "abzzzz1234567890", CreatedAt: time.Now()}
	store.Save(other)

	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)
	a.store = store

	// Ambiguous prefix: session unchanged.
	before := a.session.ID
	a.handleSlashCommand("/resume ab")
	if a.session.ID != before {
		t.Error("ambiguous prefix must not switch sessions")
	}

	a.handleSlashCommand("/resume abc")
	if a.session.ID != "abcdef1234567890" {
		t.Errorf("resumed session = %q", a.session.ID)
	}
	if a.session.TokensUsed != 42 {
		t.Errorf("resumed tokens = %d", a.session.TokensUsed)
	}

	a.handleSlashCommand("/resume nope")
	if len(ui.errors) == 0 {
		t.Error("unknown prefix should report an error")
	}
}

func TestHandleAudit_ShowsDecisions(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)

	// Without a log wired, the command still answers.
	a.handleSlashCommand("/audit")
	if !ui.hasSystem("not available") {
		t.Error("expected not-available notice without a log")
	}

	l := newTestAuditLog(t)
	l.ObserveDecision("bash", permission.Outcome{Decision: permission.Allowed()})
	a.SetAuditLog(l)

	a.handleSlashCommand("/audit")
	if !ui.hasSystem("Permission decisions") {
		t.Error("expected audit entries in output")
	}
}

func TestHandleUnknownCommand_FallsThrough(t *testing.T) {
	ui := &recordingIO{}
	a := newTestAgent(&scriptedProvider{turns: [][]provider.Event{textTurn("x")}},
		&stubTool{}, ui)

	handled, quit := a.handleSlashCommand("/definitely-not-a-command")
	if handled || quit {
		t.Errorf("unknown command: handled=%v quit=%v", handled, quit)
	}
}
