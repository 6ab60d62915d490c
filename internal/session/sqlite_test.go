package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/quill-ai/quill/internal/provider"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	s := New()
	s.AddMessage(provider.Message{Role: provider.RoleUser, Content: []provider.Content{{Type: provider.ContentTypeText, Text: "hello"}}})
	s.AddMessage(provider.Message{Role: provider.RoleAssistant, Content: []provider.Content{
		{Type: provider.ContentTypeToolUse, ToolUseID: "call_1", ToolName: "bash", ToolInput: []byte(`{"command":"ls"}`)},
	}})
	s.AddUsage(&provider.Usage{InputTokens: 60, OutputTokens: 40})

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TokensUsed != 100 || loaded.PromptTokens != 60 || loaded.CompletionTokens != 40 {
		t.Errorf("token counts = %d/%d/%d", loaded.TokensUsed, loaded.PromptTokens, loaded.CompletionTokens)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages len = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Content[0].Text != "hello" {
		t.Errorf("first message text = %q", loaded.Messages[0].Content[0].Text)
	}
	if loaded.Messages[1].Content[0].ToolName != "bash" {
		t.Errorf("tool call did not survive the round trip: %+v", loaded.Messages[1].Content[0])
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set after Save")
	}
}

func TestSQLiteStore_SaveTwiceReplacesTranscript(t *testing.T) {
	store := newTestStore(t)

	s := New()
	s.AddMessage(provider.Message{Role: provider.RoleUser, Content: []provider.Content{{Type: provider.ContentTypeText, Text: "first"}}})
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.AddMessage(provider.Message{Role: provider.RoleAssistant, Content: []provider.Content{{Type: provider.ContentTypeText, Text: "second"}}})
	if err := store.Save(s); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages len = %d, want 2 (transcript must be replaced, not appended)", len(loaded.Messages))
	}
	if loaded.Messages[0].Content[0].Text != "first" || loaded.Messages[1].Content[0].Text != "second" {
		t.Errorf("transcript order lost: %q, %q",
			loaded.Messages[0].Content[0].Text, loaded.Messages[1].Content[0].Text)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Messages != 2 {
		t.Errorf("List = %+v, want one session with 2 messages", infos)
	}
}

func TestSQLiteStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("nonexistent"); err == nil {
		t.Fatal("expected error for nonexistent session")
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	older := &Session{ID: "older", CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := &Session{ID: "newer", CreatedAt: time.Now().Add(-time.Hour)}

	if err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond) // distinct updated_at
	if err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List len = %d, want 2", len(infos))
	}
	if infos[0].ID != "newer" || infos[1].ID != "older" {
		t.Errorf("order = %s, %s", infos[0].ID, infos[1].ID)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)

	s := &Session{ID: "del-me", CreatedAt: time.Now()}
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("del-me"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("del-me"); err == nil {
		t.Fatal("expected error after delete")
	}
	if err := store.Delete("nonexistent"); err == nil {
		t.Fatal("expected error for nonexistent delete")
	}
}

func TestSession_NewHasUniqueID(t *testing.T) {
	a, b := New(), New()
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs = %q, %q", a.ID, b.ID)
	}
}

func TestSession_Clear(t *testing.T) {
	s := New()
	s.AddMessage(provider.Message{Role: provider.RoleUser})
	s.AddUsage(&provider.Usage{InputTokens: 10, OutputTokens: 5})
	s.Clear()
	if len(s.Messages) != 0 || s.TokensUsed != 0 || s.PromptTokens != 0 {
		t.Errorf("Clear left state behind: %+v", s)
	}
}
