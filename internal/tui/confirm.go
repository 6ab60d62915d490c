package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-ai/quill/internal/permission"
)

// confirmChoice is the highlighted option of a confirmation dialog.
type confirmChoice int

const (
	choiceAllow       confirmChoice = iota // approve this one call
	choiceAuto                             // approve and stop asking
	choiceAlternative                      // reject with guidance
)

// confirmModel is the three-way confirmation dialog: allow once, allow
// persistently, or tell the agent to do something else. Escape is not
// handled here; the outer model routes it to the coordinator's cancel.
type confirmModel struct {
	req    *permission.Request
	choice confirmChoice
	input  textinput.Model
}

func newConfirmModel(req *permission.Request) *confirmModel {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.Placeholder = "tell the agent what to do instead"
	ti.CharLimit = 1024
	return &confirmModel{req: req, input: ti}
}

// Update handles one key event. It returns a non-nil decision when the
// dialog is finished; a nil decision means the dialog stays open.
func (c *confirmModel) Update(msg tea.KeyMsg) (*permission.Decision, tea.Cmd) {
	switch msg.String() {
	case "up", "shift+tab":
		c.setChoice(c.prevChoice())
		return nil, nil
	case "down", "tab":
		c.setChoice(c.nextChoice())
		return nil, nil
	case "enter":
		return c.decide(), nil
	}

	// Any other typing means the user wants the free-text option.
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace || msg.Type == tea.KeyBackspace {
		if c.choice != choiceAlternative {
			c.setChoice(choiceAlternative)
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return nil, cmd
	}
	if c.choice == choiceAlternative {
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return nil, cmd
	}
	return nil, nil
}

func (c *confirmModel) setChoice(next confirmChoice) {
	c.choice = next
	if next == choiceAlternative {
		c.input.Focus()
	} else {
		c.input.Blur()
	}
}

func (c *confirmModel) nextChoice() confirmChoice {
	switch c.choice {
	case choiceAllow:
		if c.req.HidePersistentOption {
			return choiceAlternative
		}
		return choiceAuto
	case choiceAuto:
		return choiceAlternative
	default:
		return choiceAllow
	}
}

func (c *confirmModel) prevChoice() confirmChoice {
	switch c.choice {
	case choiceAllow:
		return choiceAlternative
	case choiceAuto:
		return choiceAllow
	default:
		if c.req.HidePersistentOption {
			return choiceAllow
		}
		return choiceAuto
	}
}

// decide turns the highlighted choice into a decision. A nil return with
// the alternative selected and no text typed keeps the dialog open.
func (c *confirmModel) decide() *permission.Decision {
	planExit := c.req.ToolName == permission.PlanExitToolName

	switch c.choice {
	case choiceAllow:
		if planExit {
			// Leaving plan mode lands back in the default mode.
			d := permission.AllowedWithMode(permission.ModeDefault)
			return &d
		}
		d := permission.Allowed()
		return &d

	case choiceAuto:
		// Shell commands persist a command rule; every other tool
		// (plan exit included) switches the session to acceptEdits.
		if c.req.ToolName == permission.ShellToolName {
			d := permission.AllowedWithRule(permission.CommandRule(c.req.SuggestedPrefix, c.req.Command()))
			return &d
		}
		d := permission.AllowedWithMode(permission.ModeAcceptEdits)
		return &d

	default:
		text := strings.TrimSpace(c.input.Value())
		if text == "" {
			// An empty rejection gives the model nothing to act on.
			return nil
		}
		d := permission.Denied(text)
		return &d
	}
}

// autoLabel describes what the persistent choice will cover.
func (c *confirmModel) autoLabel() string {
	if c.req.ToolName == permission.ShellToolName {
		return fmt.Sprintf("Yes, don't ask again for %s", permission.CommandRule(c.req.SuggestedPrefix, c.req.Command()))
	}
	return "Yes, and auto-accept edits"
}

func (c *confirmModel) View() string {
	var lines []string

	title := toolDisplayName(c.req.ToolName)
	if cmd := c.req.Command(); cmd != "" {
		title += toolParamStyle.Render("(" + shortenValue(cmd) + ")")
	} else if p := askPrimaryParam(c.req.Ask); p != "" {
		title += toolParamStyle.Render("(" + shortenValue(p) + ")")
	}
	lines = append(lines, toolNameStyle.Render(title))
	lines = append(lines, "")

	lines = append(lines, c.option(choiceAllow, "1. Yes"))
	if !c.req.HidePersistentOption {
		lines = append(lines, c.option(choiceAuto, "2. "+c.autoLabel()))
	}
	lines = append(lines, c.option(choiceAlternative, "3. No, tell the agent what to do instead"))
	if c.choice == choiceAlternative {
		lines = append(lines, "   "+c.input.View())
	}

	return confirmBorderStyle.Render(strings.Join(lines, "\n"))
}

func (c *confirmModel) option(choice confirmChoice, label string) string {
	if c.choice == choice {
		return selectedOptionStyle.Render("❯ " + label)
	}
	return "  " + label
}

// askPrimaryParam extracts the most relevant parameter for the dialog title.
func askPrimaryParam(a permission.Ask) string {
	for _, key := range []string{"path", "file_path", "pattern", "url", "plan"} {
		if v, ok := a.ToolInput[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func shortenValue(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	if len(v) > 60 {
		return v[:57] + "…"
	}
	return v
}
