package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-ai/quill/internal/permission"
)

func interviewRequest(questions ...permission.Question) *permission.Request {
	return &permission.Request{Ask: permission.Ask{
		ToolName:  "question",
		Questions: questions,
	}}
}

func typeInterview(m *interviewModel, text string) {
	for _, r := range text {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{r}}
		}
		m.Update(msg)
	}
}

func singleQuestion() permission.Question {
	return permission.Question{
		Question: "Which database?",
		Options: []permission.QuestionOption{
			{Label: "SQLite"},
			{Label: "Postgres"},
		},
	}
}

func TestInterview_SelectOption(t *testing.T) {
	m := newInterviewModel(interviewRequest(singleQuestion()))
	m.Update(keyMsg(tea.KeyDown))
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	want := `{"Which database?":"Postgres"}`
	if d.Message != want {
		t.Errorf("Message = %s, want %s", d.Message, want)
	}
}

func TestInterview_TypingIgnoredUnlessOtherHighlighted(t *testing.T) {
	m := newInterviewModel(interviewRequest(singleQuestion()))
	typeInterview(m, "x")
	if m.cursor != 0 {
		t.Fatalf("typing on a regular option must not move the cursor, got %d", m.cursor)
	}
	if m.input.Value() != "" {
		t.Fatalf("typing on a regular option must not reach the free text, got %q", m.input.Value())
	}

	// Navigating to Other routes keystrokes into the free text.
	m.Update(keyMsg(tea.KeyDown))
	m.Update(keyMsg(tea.KeyDown))
	typeInterview(m, "MySQL")
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	want := `{"Which database?":"MySQL"}`
	if d.Message != want {
		t.Errorf("Message = %s, want %s", d.Message, want)
	}
}

func TestInterview_EmptyOtherIsNoOp(t *testing.T) {
	m := newInterviewModel(interviewRequest(singleQuestion()))
	m.Update(keyMsg(tea.KeyDown))
	m.Update(keyMsg(tea.KeyDown)) // on the Other entry, nothing typed
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d != nil {
		t.Errorf("empty free-text answer should keep the question open, got %+v", d)
	}
}

func TestInterview_CursorClamps(t *testing.T) {
	m := newInterviewModel(interviewRequest(singleQuestion()))
	m.Update(keyMsg(tea.KeyUp))
	if m.cursor != 0 {
		t.Errorf("cursor should clamp at 0, got %d", m.cursor)
	}
	for i := 0; i < 10; i++ {
		m.Update(keyMsg(tea.KeyDown))
	}
	if m.cursor != m.otherIndex() {
		t.Errorf("cursor should clamp at the Other entry, got %d", m.cursor)
	}
}

func TestInterview_RecommendedOptionStartsHighlighted(t *testing.T) {
	m := newInterviewModel(interviewRequest(permission.Question{
		Question: "Deploy?",
		Options: []permission.QuestionOption{
			{Label: "Now"},
			{Label: "Later", IsRecommended: true},
		},
	}))
	if m.cursor != 1 {
		t.Errorf("cursor should start on the recommended option, got %d", m.cursor)
	}
}

func TestInterview_MultiSelectRoundTrip(t *testing.T) {
	m := newInterviewModel(interviewRequest(
		permission.Question{
			Question: "Q1",
			Options:  []permission.QuestionOption{{Label: "X"}, {Label: "Y"}},
		},
		permission.Question{
			Question:    "Q2",
			MultiSelect: true,
			Options:     []permission.QuestionOption{{Label: "A"}, {Label: "B"}, {Label: "C"}},
		},
	))

	// Q1: pick "X".
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d != nil {
		t.Fatal("decision must not arrive before the last question")
	}
	if m.index != 1 {
		t.Fatalf("index = %d, want 1", m.index)
	}

	// Q2: toggle A and B, then type a custom addition on the Other entry.
	m.Update(keyMsg(tea.KeySpace)) // toggle A
	m.Update(keyMsg(tea.KeyDown))
	m.Update(keyMsg(tea.KeySpace)) // toggle B
	m.Update(keyMsg(tea.KeyDown))
	m.Update(keyMsg(tea.KeyDown)) // on Other
	typeInterview(m, "extra")
	if !m.selected[m.otherIndex()] {
		t.Fatal("typing on the Other entry should toggle it on")
	}

	d, _ = m.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision after the last question")
	}
	want := `{"Q1":"X","Q2":"A, B, extra"}`
	if d.Message != want {
		t.Errorf("Message = %s, want %s", d.Message, want)
	}
	if d.Behavior != permission.BehaviorAllow {
		t.Errorf("Behavior = %q, want allow", d.Behavior)
	}
}

func TestInterview_MultiSelectNothingChosenIsNoOp(t *testing.T) {
	m := newInterviewModel(interviewRequest(permission.Question{
		Question:    "Pick",
		MultiSelect: true,
		Options:     []permission.QuestionOption{{Label: "A"}},
	}))
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d != nil {
		t.Errorf("no toggles and no text should keep the question open, got %+v", d)
	}
}

func TestInterview_SpaceTogglesOtherOff(t *testing.T) {
	m := newInterviewModel(interviewRequest(permission.Question{
		Question:    "Pick",
		MultiSelect: true,
		Options:     []permission.QuestionOption{{Label: "A"}},
	}))
	m.Update(keyMsg(tea.KeyDown)) // on Other
	typeInterview(m, "hi")
	if !m.selected[m.otherIndex()] {
		t.Fatal("Other should be toggled on by typing")
	}
	m.Update(keyMsg(tea.KeySpace))
	if m.selected[m.otherIndex()] {
		t.Error("space should toggle Other back off")
	}
}

func TestInterview_SpaceOnUntoggledOtherIsTextInput(t *testing.T) {
	m := newInterviewModel(interviewRequest(permission.Question{
		Question:    "Pick",
		MultiSelect: true,
		Options:     []permission.QuestionOption{{Label: "A"}},
	}))
	m.Update(keyMsg(tea.KeyDown)) // on Other, not toggled
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.input.Value() != " " {
		t.Errorf("space on an untoggled Other should type into the free text, got %q", m.input.Value())
	}
	// Once Other is toggled on, space toggles it back off.
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.selected[m.otherIndex()] {
		t.Error("second space should toggle the now-active Other off")
	}
	if m.input.Value() != " " {
		t.Errorf("the toggle must not edit the free text, got %q", m.input.Value())
	}
}

func TestInterview_MultiSelectAnswerOrderFollowsDeclaration(t *testing.T) {
	m := newInterviewModel(interviewRequest(permission.Question{
		Question:    "Pick",
		MultiSelect: true,
		Options:     []permission.QuestionOption{{Label: "A"}, {Label: "B"}},
	}))
	// Toggle B first, then A: the answer still reads "A, B".
	m.Update(keyMsg(tea.KeyDown))
	m.Update(keyMsg(tea.KeySpace))
	m.Update(keyMsg(tea.KeyUp))
	m.Update(keyMsg(tea.KeySpace))
	d, _ := m.Update(keyMsg(tea.KeyEnter))
	if d == nil {
		t.Fatal("expected a decision")
	}
	want := `{"Pick":"A, B"}`
	if d.Message != want {
		t.Errorf("Message = %s, want %s", d.Message, want)
	}
}
