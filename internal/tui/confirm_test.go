package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-ai/quill/internal/permission"
)

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func typeText(c *confirmModel, text string) {
	for _, r := range text {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{r}}
		}
		c.Update(msg)
	}
}

func bashRequest(command, prefix string) *permission.Request {
	return &permission.Request{Ask: permission.Ask{
		ToolName:        permission.ShellToolName,
		ToolInput:       map[string]any{"command": command},
		SuggestedPrefix: prefix,
	}}
}

func TestConfirm_EnterAllowsOnce(t *testing.T) {
	c := newConfirmModel(bashRequest("git status", "git "))
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.Behavior != permission.BehaviorAllow {
		t.Errorf("Behavior = %q", d.Behavior)
	}
	if d.NewPermissionRule != "" || d.NewPermissionMode != "" {
		t.Errorf("one-shot allow must not persist anything: %+v", d)
	}
}

func TestConfirm_AutoSynthesizesPrefixRule(t *testing.T) {
	c := newConfirmModel(bashRequest("git status", "git "))
	c.Update(keyMsg(tea.KeyDown))
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.NewPermissionRule != "Bash(git *)" {
		t.Errorf("NewPermissionRule = %q, want %q", d.NewPermissionRule, "Bash(git *)")
	}
}

func TestConfirm_AutoExactRuleWithoutPrefix(t *testing.T) {
	c := newConfirmModel(bashRequest("ls -la", ""))
	c.Update(keyMsg(tea.KeyDown))
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.NewPermissionRule != "Bash(ls -la)" {
		t.Errorf("NewPermissionRule = %q, want %q", d.NewPermissionRule, "Bash(ls -la)")
	}
}

func TestConfirm_AutoSwitchesModeForNonShellTool(t *testing.T) {
	c := newConfirmModel(&permission.Request{Ask: permission.Ask{ToolName: "edit_file"}})
	c.Update(keyMsg(tea.KeyDown))
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.NewPermissionMode != permission.ModeAcceptEdits {
		t.Errorf("NewPermissionMode = %q, want %q", d.NewPermissionMode, permission.ModeAcceptEdits)
	}
	if d.NewPermissionRule != "" {
		t.Errorf("non-shell auto must not persist a rule, got %q", d.NewPermissionRule)
	}
}

func TestConfirm_TypingSwitchesToAlternative(t *testing.T) {
	c := newConfirmModel(bashRequest("rm -rf build", ""))
	typeText(c, "use make clean instead")
	if c.choice != choiceAlternative {
		t.Fatalf("choice = %v, want alternative", c.choice)
	}
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	if d.Behavior != permission.BehaviorDeny {
		t.Errorf("Behavior = %q, want deny", d.Behavior)
	}
	if d.Message != "use make clean instead" {
		t.Errorf("Message = %q", d.Message)
	}
}

func TestConfirm_EmptyRejectionIsNoOp(t *testing.T) {
	c := newConfirmModel(bashRequest("ls", ""))
	c.Update(keyMsg(tea.KeyDown))
	c.Update(keyMsg(tea.KeyDown)) // now on the alternative entry
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d != nil {
		t.Errorf("empty rejection should keep the dialog open, got %+v", d)
	}
}

func TestConfirm_HidePersistentSkipsAuto(t *testing.T) {
	c := newConfirmModel(&permission.Request{Ask: permission.Ask{
		ToolName:             permission.ShellToolName,
		ToolInput:            map[string]any{"command": "rm -rf /tmp/x"},
		HidePersistentOption: true,
	}})
	c.Update(keyMsg(tea.KeyDown))
	if c.choice != choiceAlternative {
		t.Errorf("down should skip the persistent option, got %v", c.choice)
	}
	c.Update(keyMsg(tea.KeyUp))
	if c.choice != choiceAllow {
		t.Errorf("up should skip the persistent option, got %v", c.choice)
	}
}

func TestConfirm_NavigationWraps(t *testing.T) {
	c := newConfirmModel(bashRequest("ls", ""))
	c.Update(keyMsg(tea.KeyUp))
	if c.choice != choiceAlternative {
		t.Errorf("up from the top should wrap to the bottom, got %v", c.choice)
	}
	c.Update(keyMsg(tea.KeyDown))
	if c.choice != choiceAllow {
		t.Errorf("down from the bottom should wrap to the top, got %v", c.choice)
	}
}

func TestConfirm_PlanExitDecisions(t *testing.T) {
	req := &permission.Request{Ask: permission.Ask{ToolName: permission.PlanExitToolName}}

	c := newConfirmModel(req)
	d, _ := c.Update(keyMsg(tea.KeyEnter))
	if d == nil || d.NewPermissionMode != permission.ModeDefault {
		t.Errorf("plan exit allow should return to default mode, got %+v", d)
	}

	c = newConfirmModel(req)
	c.Update(keyMsg(tea.KeyDown))
	d, _ = c.Update(keyMsg(tea.KeyEnter))
	if d == nil || d.NewPermissionMode != permission.ModeAcceptEdits {
		t.Errorf("plan exit auto should switch to acceptEdits, got %+v", d)
	}
}
