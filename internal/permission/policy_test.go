package permission

import "testing"

func TestPolicy_ReadOnlyAutoAllowed(t *testing.T) {
	p := NewPolicy(PolicySettings{})
	if v := p.Check("read_file", true, ""); v != VerdictAllow {
		t.Errorf("read-only tool should be allowed, got %v", v)
	}
}

func TestPolicy_MutatingToolNeedsConfirmation(t *testing.T) {
	p := NewPolicy(PolicySettings{})
	if v := p.Check("edit_file", false, ""); v != VerdictConfirm {
		t.Errorf("edit_file should need confirmation, got %v", v)
	}
}

func TestPolicy_AcceptEditsMode(t *testing.T) {
	p := NewPolicy(PolicySettings{Mode: ModeAcceptEdits})

	if v := p.Check("edit_file", false, ""); v != VerdictAllow {
		t.Errorf("edit_file should be auto-approved in acceptEdits, got %v", v)
	}
	if v := p.Check(ShellToolName, false, "rm -rf build"); v != VerdictConfirm {
		t.Errorf("bash should still need confirmation in acceptEdits, got %v", v)
	}
}

func TestPolicy_BypassMode(t *testing.T) {
	p := NewPolicy(PolicySettings{Mode: ModeBypass})
	if v := p.Check(ShellToolName, false, "rm -rf build"); v != VerdictAllow {
		t.Errorf("bypassPermissions should approve everything, got %v", v)
	}
}

func TestPolicy_PlanModeBlocksMutationsButConfirmsExit(t *testing.T) {
	p := NewPolicy(PolicySettings{Mode: ModePlan})

	if v := p.Check("write_file", false, ""); v != VerdictDeny {
		t.Errorf("write_file should be blocked in plan mode, got %v", v)
	}
	if v := p.Check("read_file", true, ""); v != VerdictAllow {
		t.Errorf("read-only tools stay allowed in plan mode, got %v", v)
	}
	if v := p.Check(PlanExitToolName, false, ""); v != VerdictConfirm {
		t.Errorf("exit_plan_mode should ask the operator, got %v", v)
	}
}

func TestPolicy_DeniedCommandsOverrideBypass(t *testing.T) {
	p := NewPolicy(PolicySettings{
		Mode:           ModeBypass,
		DeniedCommands: []string{"sudo", "rm -rf /"},
	})
	if v := p.Check(ShellToolName, false, "sudo apt install foo"); v != VerdictDeny {
		t.Errorf("denied command should be blocked even in bypass, got %v", v)
	}
}

func TestPolicy_AddRuleSkipsLaterConfirmations(t *testing.T) {
	p := NewPolicy(PolicySettings{})

	if v := p.Check(ShellToolName, false, "git status"); v != VerdictConfirm {
		t.Fatalf("expected confirmation before rule exists, got %v", v)
	}

	p.AddRule("Bash(git *)")
	if v := p.Check(ShellToolName, false, "git status"); v != VerdictAllow {
		t.Errorf("git status should match Bash(git *), got %v", v)
	}
	if v := p.Check(ShellToolName, false, "gitk"); v != VerdictConfirm {
		t.Errorf("gitk must not match Bash(git *), got %v", v)
	}

	// Duplicate rules collapse.
	p.AddRule("Bash(git *)")
	if n := len(p.Rules()); n != 1 {
		t.Errorf("expected 1 rule after duplicate add, got %d", n)
	}
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		rule    string
		tool    string
		command string
		want    bool
	}{
		{"Bash(git *)", ShellToolName, "git push origin main", true},
		{"Bash(git *)", ShellToolName, "got it", false},
		{"Bash(ls -la)", ShellToolName, "ls -la", true},
		{"Bash(ls -la)", ShellToolName, "ls -l", false},
		{"Bash(git *)", "edit_file", "", false},
		{"edit_file", "edit_file", "", true},
		{"edit_file", "write_file", "", false},
	}
	for _, tt := range tests {
		if got := MatchRule(tt.rule, tt.tool, tt.command); got != tt.want {
			t.Errorf("MatchRule(%q, %q, %q) = %v, want %v", tt.rule, tt.tool, tt.command, got, tt.want)
		}
	}
}

func TestCommandRule(t *testing.T) {
	if got := CommandRule("git ", "git push"); got != "Bash(git *)" {
		t.Errorf("prefix rule: got %q", got)
	}
	if got := CommandRule("", "ls -la"); got != "Bash(ls -la)" {
		t.Errorf("exact rule: got %q", got)
	}
}

func TestCommandPrefix(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"git status", "git "},
		{"go test ./...", "go "},
		{"ls -la", ""},
		{"git", ""}, // single word: exact rule is narrower anyway
		{"./scripts/deploy.sh prod", ""},
	}
	for _, tt := range tests {
		if got := CommandPrefix(tt.command); got != tt.want {
			t.Errorf("CommandPrefix(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestEncodeAnswers_PreservesOrder(t *testing.T) {
	got := EncodeAnswers([]AnsweredQuestion{
		{Question: "Q1", Answer: "X"},
		{Question: "Q2", Answer: "A, B, extra"},
	})
	want := `{"Q1":"X","Q2":"A, B, extra"}`
	if got != want {
		t.Errorf("EncodeAnswers = %s, want %s", got, want)
	}
}
