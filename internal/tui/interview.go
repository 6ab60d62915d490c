package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-ai/quill/internal/permission"
)

// interviewModel walks the operator through the question tool's questions
// one at a time. Every question gets a synthetic "Other" entry after its
// declared options, backed by a free-text input. Escape cancels the whole
// interview; the outer model routes that to the coordinator.
type interviewModel struct {
	req       *permission.Request
	questions []permission.Question
	index     int
	cursor    int          // highlighted entry; len(options) means Other
	selected  map[int]bool // multi-select toggles, keyed like cursor
	input     textinput.Model
	answers   []permission.AnsweredQuestion
}

func newInterviewModel(req *permission.Request) *interviewModel {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.Placeholder = "type your own answer"
	ti.CharLimit = 1024
	ti.Focus()

	m := &interviewModel{req: req, questions: req.Questions, input: ti}
	m.resetQuestion()
	return m
}

func (m *interviewModel) question() permission.Question {
	return m.questions[m.index]
}

// otherIndex is the cursor position of the synthetic free-text entry.
func (m *interviewModel) otherIndex() int {
	return len(m.question().Options)
}

func (m *interviewModel) resetQuestion() {
	m.cursor = 0
	for i, opt := range m.question().Options {
		if opt.IsRecommended {
			m.cursor = i
			break
		}
	}
	m.selected = make(map[int]bool)
	m.input.SetValue("")
}

// Update handles one key event. It returns a non-nil decision once every
// question has been answered.
func (m *interviewModel) Update(msg tea.KeyMsg) (*permission.Decision, tea.Cmd) {
	switch msg.String() {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return nil, nil
	case "down":
		if m.cursor < m.otherIndex() {
			m.cursor++
		}
		return nil, nil
	case "enter":
		return m.finishQuestion(), nil
	}

	if msg.Type == tea.KeySpace && m.question().MultiSelect {
		// Space toggles the highlighted option. On an untoggled "Other"
		// it is ordinary text input instead, handled below.
		if m.cursor != m.otherIndex() || m.selected[m.otherIndex()] {
			m.selected[m.cursor] = !m.selected[m.cursor]
			return nil, nil
		}
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace || msg.Type == tea.KeyBackspace {
		// Typing reaches the free text only while "Other" is highlighted;
		// it never steals the cursor from a regular option.
		if m.cursor != m.otherIndex() {
			return nil, nil
		}
		if m.question().MultiSelect {
			// Typing on the free-text entry implies it is part of the answer.
			m.selected[m.otherIndex()] = true
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return nil, cmd
	}
	if m.cursor == m.otherIndex() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return nil, cmd
	}
	return nil, nil
}

// finishQuestion records the current answer and advances. A nil return
// means the question is not answerable yet (nothing chosen or typed) and
// the dialog stays where it is.
func (m *interviewModel) finishQuestion() *permission.Decision {
	q := m.question()
	answer, ok := m.currentAnswer()
	if !ok {
		return nil
	}
	m.answers = append(m.answers, permission.AnsweredQuestion{Question: q.Question, Answer: answer})

	m.index++
	if m.index < len(m.questions) {
		m.resetQuestion()
		return nil
	}
	d := permission.AllowedWithMessage(permission.EncodeAnswers(m.answers))
	return &d
}

func (m *interviewModel) currentAnswer() (string, bool) {
	q := m.question()
	text := strings.TrimSpace(m.input.Value())

	if !q.MultiSelect {
		if m.cursor < m.otherIndex() {
			return q.Options[m.cursor].Label, true
		}
		if text == "" {
			return "", false
		}
		return text, true
	}

	// Multi-select: joined labels in declaration order, free text last.
	var parts []string
	for i, opt := range q.Options {
		if m.selected[i] {
			parts = append(parts, opt.Label)
		}
	}
	if m.selected[m.otherIndex()] && text != "" {
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func (m *interviewModel) View() string {
	q := m.question()
	var lines []string

	if q.Header != "" {
		lines = append(lines, hintStyle.Render(q.Header))
	}
	lines = append(lines, toolNameStyle.Render(q.Question))
	if len(m.questions) > 1 {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("question %d of %d", m.index+1, len(m.questions))))
	}
	lines = append(lines, "")

	for i, opt := range q.Options {
		lines = append(lines, m.renderEntry(i, opt.Label, opt.IsRecommended))
		if opt.Description != "" {
			lines = append(lines, "      "+hintStyle.Render(opt.Description))
		}
	}
	lines = append(lines, m.renderEntry(m.otherIndex(), "Other", false))
	if m.cursor == m.otherIndex() || m.selected[m.otherIndex()] {
		lines = append(lines, "      "+m.input.View())
	}

	return confirmBorderStyle.Render(strings.Join(lines, "\n"))
}

func (m *interviewModel) renderEntry(i int, label string, recommended bool) string {
	var b strings.Builder
	if m.cursor == i {
		b.WriteString("❯ ")
	} else {
		b.WriteString("  ")
	}
	if m.question().MultiSelect {
		if m.selected[i] {
			b.WriteString("◉ ")
		} else {
			b.WriteString("○ ")
		}
	}
	b.WriteString(label)
	if recommended {
		b.WriteString(" " + hintStyle.Render("(recommended)"))
	}
	if m.cursor == i {
		return selectedOptionStyle.Render(b.String())
	}
	return b.String()
}
