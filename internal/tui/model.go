package tui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/quill-ai/quill/internal/permission"
)

// ---------- messages sent from agent goroutine via program.Send() ----------

type readInputMsg struct{}

type inputResult struct {
	text string
	err  error
}

type userMsg struct{ text string }
type thinkingStartMsg struct{}
type textDeltaMsg struct{ delta string }
type textDoneMsg struct{ fullText string }
type toolStartMsg struct{ id, name, params string }
type toolDoneMsg struct {
	id, name, result string
	isErr            bool
}

// permissionMsg carries the request the coordinator promoted to current.
// It is the only way a permission dialog reaches the screen, so dialogs
// can never overlap: the coordinator promotes one request at a time.
type permissionMsg struct {
	req *permission.Request
}

type systemMsg struct{ text string }
type errorMsg struct{ text string }
type tokensMsg struct{ n int }
type modeMsg struct{ mode permission.Mode }
type agentDoneMsg struct{ err error }
type toolTickMsg struct{}

// ---------- spinner activity kinds ----------

type spinnerKind int

const (
	spinnerNone     spinnerKind = iota
	spinnerThinking             // LLM is thinking
	spinnerTool                 // tool is executing
)

// ---------- current tool call state ----------

type toolCallState struct {
	name   string
	params string
}

// TUIConfig carries version/provider info for the welcome page and status bar.
type TUIConfig struct {
	Version     string
	Provider    string
	Model       string
	SessionID   string
	ShowWelcome bool
}

// ---------- styles ----------

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// Tool call dot: orange while running, gray when done.
	dotRunningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	dotDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	resultPrefixStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	toolNameStyle = lipgloss.NewStyle().
			Bold(true)

	toolParamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	toolOutputStyle = lipgloss.NewStyle()

	toolErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	toolSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	statusBarBgStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235"))

	statusModelStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("2")).
				Bold(true)

	statusModeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("214")).
			Bold(true)

	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	welcomeHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	// Permission dialogs: rounded border, blue-purple.
	confirmBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	confirmHintStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("245")).
				Padding(0, 2).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("238"))

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)
)

var quillSpinner = spinner.Spinner{
	Frames: []string{"·", "✢", "✳", "✶", "✻", "✽", "✻", "✶", "✳", "✢"},
	FPS:    120 * time.Millisecond,
}

// ---------- Model ----------

// Model is the bubbletea model managing the full TUI state.
type Model struct {
	textinput   textinput.Model
	spinner     spinner.Model
	width       int
	height      int
	liveContent *strings.Builder
	streaming   bool
	inputMode   bool
	spinnerKind spinnerKind

	currentTool *toolCallState

	// At most one of confirm/interview is non-nil; both nil means no
	// permission dialog is on screen.
	coordinator *permission.Coordinator
	confirm     *confirmModel
	interview   *interviewModel

	inputCh chan inputResult

	noiseDropCount int

	quitting bool

	tokens        int
	mode          permission.Mode
	toolName      string
	toolStartTime time.Time

	cancelToolFn func() bool
	cancelLoopFn func() bool

	cfg TUIConfig

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

// NewModel creates the initial bubbletea model.
func NewModel(inputCh chan inputResult, coordinator *permission.Coordinator, cfg TUIConfig) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = quillSpinner
	sp.Style = spinnerStyle

	return Model{
		textinput:   ti,
		spinner:     sp,
		liveContent: &strings.Builder{},
		inputCh:     inputCh,
		coordinator: coordinator,
		cfg:         cfg,
	}
}

func toolTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return toolTickMsg{} })
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.cfg.ShowWelcome {
		cmds = append(cmds, tea.Println(renderWelcome(m.cfg)))
	}
	return tea.Batch(cmds...)
}

func (m Model) dialogActive() bool {
	return m.confirm != nil || m.interview != nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.spinnerKind != spinnerNone {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		s := msg.String()
		if isTerminalNoiseKey(s) {
			m.noiseDropCount = 4
			return m, nil
		}
		if s == "esc" && m.inputMode && !m.dialogActive() {
			m.noiseDropCount = 4
			return m, nil
		}
		if m.noiseDropCount > 0 && len(s) <= 2 {
			m.noiseDropCount--
			return m, nil
		}

		switch s {
		case "ctrl+c":
			if m.dialogActive() {
				m.coordinator.Cancel()
				m.clearDialog()
			}
			if m.inputMode {
				m.inputCh <- inputResult{err: fmt.Errorf("interrupted")}
				m.inputMode = false
				m.textinput.Blur()
			}
			m.quitting = true
			return m, tea.Quit

		case "esc":
			if m.dialogActive() {
				// Single cancel path for both dialog kinds: the
				// coordinator rejects the current request and the
				// executor translates that for the model.
				m.coordinator.Cancel()
				m.clearDialog()
				cmds = append(cmds, tea.Println(toolErrorStyle.Render("  ✗ cancelled")))
				return m, tea.Batch(cmds...)
			}
			if m.toolName != "" && m.cancelToolFn != nil {
				m.cancelToolFn()
				return m, nil
			}
			if (m.spinnerKind == spinnerThinking || m.streaming) && m.cancelLoopFn != nil {
				m.cancelLoopFn()
				m.spinnerKind = spinnerNone
				m.streaming = false
				m.liveContent.Reset()
				return m, nil
			}
			return m, nil
		}

		if m.dialogActive() {
			return m.updateDialog(msg)
		}

		if s == "enter" && m.inputMode {
			text := strings.TrimSpace(m.textinput.Value())
			m.textinput.SetValue("")
			m.inputCh <- inputResult{text: text}
			m.inputMode = false
			m.textinput.Blur()
			return m, nil
		}

		if m.inputMode {
			if isControlKeyMsg(s) {
				return m, nil
			}
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
		}

	// ---------- custom messages from agent goroutine ----------

	case readInputMsg:
		m.inputMode = true
		m.textinput.Focus()

	case userMsg:
		cmds = append(cmds, tea.Println(userStyle.Render("You: "+msg.text)))

	case thinkingStartMsg:
		m.spinnerKind = spinnerThinking
		m.streaming = false
		cmds = append(cmds, m.spinner.Tick)

	case textDeltaMsg:
		if m.spinnerKind == spinnerThinking {
			m.spinnerKind = spinnerNone
		}
		m.streaming = true
		m.liveContent.WriteString(msg.delta)

	case textDoneMsg:
		m.spinnerKind = spinnerNone
		m.streaming = false
		rendered := m.renderMarkdown(msg.fullText)
		m.liveContent.Reset()
		cmds = append(cmds, tea.Println(rendered))

	case toolTickMsg:
		if m.toolName != "" {
			cmds = append(cmds, toolTickCmd())
		}
		return m, tea.Batch(cmds...)

	case toolStartMsg:
		m.toolName = msg.name
		m.toolStartTime = time.Now()
		m.spinnerKind = spinnerTool
		m.currentTool = &toolCallState{
			name:   msg.name,
			params: msg.params,
		}
		cmds = append(cmds, toolTickCmd(), m.spinner.Tick)

	case toolDoneMsg:
		if m.currentTool != nil {
			elapsed := time.Since(m.toolStartTime)
			cmds = append(cmds, tea.Println(m.renderToolDone(m.currentTool, msg.result, msg.isErr, elapsed)))
		}
		m.toolName = ""
		m.toolStartTime = time.Time{}
		m.spinnerKind = spinnerNone
		m.currentTool = nil

	case permissionMsg:
		return m.presentRequest(msg.req)

	case systemMsg:
		cmds = append(cmds, tea.Println(systemStyle.Render(msg.text)))

	case errorMsg:
		cmds = append(cmds, tea.Println(errorStyle.Render("Error: "+msg.text)))

	case tokensMsg:
		m.tokens = msg.n

	case modeMsg:
		m.mode = msg.mode

	case agentDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

// presentRequest puts the promoted request on screen. Interviews with no
// questions have nothing to show, so they resolve immediately with an
// empty answer object.
func (m Model) presentRequest(req *permission.Request) (tea.Model, tea.Cmd) {
	m.spinnerKind = spinnerNone
	if req.Interview() {
		if len(req.Questions) == 0 {
			m.coordinator.Resolve(permission.AllowedWithMessage("{}"))
			return m, nil
		}
		m.interview = newInterviewModel(req)
		return m, nil
	}
	m.confirm = newConfirmModel(req)
	return m, nil
}

// updateDialog routes a key to whichever permission dialog is active and
// resolves the request when the dialog produces a decision.
func (m Model) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var decision *permission.Decision
	var cmd tea.Cmd

	switch {
	case m.interview != nil:
		decision, cmd = m.interview.Update(msg)
	case m.confirm != nil:
		decision, cmd = m.confirm.Update(msg)
	}
	if decision == nil {
		return m, cmd
	}

	summary := decisionSummary(*decision)
	m.coordinator.Resolve(*decision)
	m.clearDialog()
	return m, tea.Batch(cmd, tea.Println(summary))
}

func (m *Model) clearDialog() {
	m.confirm = nil
	m.interview = nil
}

// decisionSummary is the one-line scrollback record of a settled dialog.
func decisionSummary(d permission.Decision) string {
	if d.Behavior == permission.BehaviorDeny {
		return toolErrorStyle.Render("  ✗ rejected: ") + toolParamStyle.Render(shortenValue(d.Message))
	}
	switch {
	case d.NewPermissionRule != "":
		return toolSuccessStyle.Render("  ✓ allowed, always: ") + toolParamStyle.Render(d.NewPermissionRule)
	case d.NewPermissionMode != "":
		return toolSuccessStyle.Render("  ✓ allowed ") + toolParamStyle.Render("(mode: "+string(d.NewPermissionMode)+")")
	case d.Message != "":
		return toolSuccessStyle.Render("  ✓ answered: ") + toolParamStyle.Render(shortenValue(d.Message))
	default:
		return toolSuccessStyle.Render("  ✓ allowed")
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var live string
	switch m.spinnerKind {
	case spinnerThinking:
		live = dotRunningStyle.Render(m.spinner.View()) + hintStyle.Render(" Thinking…")
	case spinnerTool:
		if m.currentTool != nil {
			live = m.renderToolRunning(m.currentTool)
		}
	default:
		if m.streaming {
			live = m.liveContent.String()
		}
	}

	var input string
	switch {
	case m.interview != nil:
		input = m.interview.View() + "\n" +
			confirmHintStyle.Render(interviewHint(m.interview.question().MultiSelect))
	case m.confirm != nil:
		input = m.confirm.View() + "\n" +
			confirmHintStyle.Render("↑↓ select  enter confirm  esc cancel")
	case m.inputMode:
		input = m.textinput.View()
	default:
		input = systemStyle.Render("❯")
	}

	bar := m.renderStatusBar()

	var parts []string
	if live != "" {
		parts = append(parts, live)
	}
	parts = append(parts, input, bar)
	return strings.Join(parts, "\n")
}

func interviewHint(multiSelect bool) string {
	if multiSelect {
		return "↑↓ select  space toggle  enter confirm  esc cancel"
	}
	return "↑↓ select  enter confirm  esc cancel"
}

// ---------- tool call rendering ----------

// renderToolRunning renders an in-flight tool call (shown in live View area).
//
//	⏺ Read(…/main.go)  3s · esc to cancel
//	  ⎿  Running…
func (m *Model) renderToolRunning(tc *toolCallState) string {
	header := toolHeader(tc.name, tc.params, true)
	elapsed := int(time.Since(m.toolStartTime).Seconds())
	hint := hintStyle.Render(fmt.Sprintf("  %ds · esc to cancel", elapsed))

	prefix := resultPrefixStyle.Render("  ⎿  ")
	runningLine := prefix + hintStyle.Render("Running…")

	return header + hint + "\n" + runningLine
}

// renderToolDone renders a completed tool call (printed to scrollback).
//
// Simple tools (read, glob, grep, write, edit) collapse to one line:
//
//	⏺ Read(…/main.go)  Read 42 lines  0.3s
//
// Complex tools (bash, question) and errors get a result block:
//
//	⏺ Bash(git status)  0.8s
//	  ⎿  output…
func (m *Model) renderToolDone(tc *toolCallState, result string, isErr bool, elapsed time.Duration) string {
	header := toolHeader(tc.name, tc.params, false)
	elapsedStr := hintStyle.Render("  " + formatElapsed(elapsed))

	if !isErr {
		if summary := toolInlineSummary(tc.name, result); summary != "" {
			return header + "  " + summary + elapsedStr
		}
	}

	resultBlock := renderResultBlock(tc.name, result, isErr)
	return header + elapsedStr + "\n" + resultBlock
}

// toolInlineSummary returns a short inline summary for simple tools.
// Returns "" for complex tools that need a full result block.
func toolInlineSummary(name, result string) string {
	switch name {
	case "read_file":
		n := countNonEmptyContent(result)
		return toolParamStyle.Render(fmt.Sprintf("Read %d %s", n, pluralLine(n)))
	case "write_file":
		return toolSuccessStyle.Render(firstLine(result))
	case "edit_file":
		return toolSuccessStyle.Render(firstLine(result))
	case "glob":
		n := countNonEmptyLines(result)
		return toolParamStyle.Render(fmt.Sprintf("Found %d %s", n, pluralFile(n)))
	case "grep":
		n := countNonEmptyLines(result)
		return toolParamStyle.Render(fmt.Sprintf("Found %d %s", n, pluralMatch(n)))
	}
	return ""
}

// renderStatusBar renders the bottom separator + model/tokens/mode bar.
func (m *Model) renderStatusBar() string {
	modelName := m.cfg.Model
	if modelName == "" {
		modelName = "unknown"
	}
	status := statusModelStyle.Render(" "+modelName) +
		statusBarStyle.Render(fmt.Sprintf(" │ tokens: %d", m.tokens))
	if m.mode != "" && m.mode != permission.ModeDefault {
		status += statusModeStyle.Render(fmt.Sprintf(" │ %s", m.mode))
	}
	if m.toolName != "" {
		elapsed := int(time.Since(m.toolStartTime).Seconds())
		status += statusBarStyle.Render(fmt.Sprintf(" │ %s (%ds)", toolDisplayName(m.toolName), elapsed))
	}
	return separatorStyle.Width(m.width).Render(strings.Repeat("─", max(m.width, 0))) + "\n" +
		statusBarBgStyle.Width(m.width).Render(status)
}

// ---------- markdown rendering ----------

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// ---------- welcome page ----------

func renderWelcome(cfg TUIConfig) string {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	lines := []string{
		welcomeLabelStyle.Render("Provider: ") + welcomeValueStyle.Render(cfg.Provider),
		welcomeLabelStyle.Render("Model:    ") + welcomeValueStyle.Render(cfg.Model),
		welcomeLabelStyle.Render("Session:  ") + welcomeValueStyle.Render(cfg.SessionID),
		"",
		welcomeHintStyle.Render("esc to cancel  ctrl+c to quit"),
	}

	inner := strings.Join(lines, "\n")
	title := welcomeTitleStyle.Render(fmt.Sprintf("quill %s", version))
	box := welcomeBorderStyle.Render(inner)
	return title + "\n" + box
}

// ---------- tool display helpers ----------

// toolHeader builds the "⏺ ToolName(param)" header line.
// running=true for the orange dot, false for gray.
func toolHeader(name, rawParams string, running bool) string {
	dot := "⏺"
	var dotStr string
	if running {
		dotStr = dotRunningStyle.Render(dot)
	} else {
		dotStr = dotDoneStyle.Render(dot)
	}

	displayName := toolDisplayName(name)
	param := toolPrimaryParam(name, rawParams)

	var body string
	if param != "" {
		body = toolNameStyle.Render(displayName) + toolParamStyle.Render("("+param+")")
	} else {
		body = toolNameStyle.Render(displayName)
	}
	return dotStr + " " + body
}

// renderResultBlock renders the "  ⎿  ..." result lines.
func renderResultBlock(name, result string, isErr bool) string {
	const resultPrefix = "  ⎿  "
	const contPrefix = "     "

	prefix := resultPrefixStyle.Render(resultPrefix)

	if isErr {
		truncated := truncateResult(result, 10)
		return renderMultiLine(prefix, contPrefix, truncated, toolErrorStyle)
	}

	if strings.TrimSpace(result) == "" {
		return prefix + hintStyle.Render("(no output)")
	}
	truncated := truncateResult(result, 13)
	return renderMultiLine(prefix, contPrefix, truncated, toolOutputStyle)
}

// renderMultiLine renders a (possibly multi-line) string with the given
// prefix on the first line and contPrefix on subsequent lines.
// Lines matching "… +N lines" are rendered in hintStyle.
func renderMultiLine(prefix, contPrefix, text string, style lipgloss.Style) string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return prefix + hintStyle.Render("(no output)")
	}

	var out []string
	for i, line := range lines {
		p := contPrefix
		if i == 0 {
			p = prefix
		}
		if strings.HasPrefix(line, "… +") {
			out = append(out, p+hintStyle.Render(line))
		} else {
			out = append(out, p+style.Render(line))
		}
	}
	return strings.Join(out, "\n")
}

// truncateResult keeps up to maxLines of output using a head + hint + tail format.
//
//	line1
//	line2
//
//	… +47 lines
//
//	last1
//	last2
//	last3
func truncateResult(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}

	const tail = 3
	head := maxLines - tail - 3 // 3 = blank + hint + blank
	if head < 1 {
		head = 1
	}
	skipped := len(lines) - head - tail

	out := make([]string, 0, head+3+tail)
	out = append(out, lines[:head]...)
	out = append(out, "")
	out = append(out, fmt.Sprintf("… +%d lines", skipped))
	out = append(out, "")
	out = append(out, lines[len(lines)-tail:]...)
	return strings.Join(out, "\n")
}

// ---------- tool name / param helpers ----------

var toolDisplayNames = map[string]string{
	"read_file":      "Read",
	"write_file":     "Write",
	"edit_file":      "Edit",
	"bash":           "Bash",
	"glob":           "Glob",
	"grep":           "Search",
	"question":       "Question",
	"exit_plan_mode": "ExitPlanMode",
}

// toolDisplayName converts an internal tool name to a user-facing display name.
func toolDisplayName(name string) string {
	if d, ok := toolDisplayNames[name]; ok {
		return d
	}
	return name
}

// toolPrimaryParam extracts the most relevant single parameter from raw JSON params.
func toolPrimaryParam(name, rawParams string) string {
	if rawParams == "" || rawParams == "{}" {
		return ""
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
		return ""
	}
	strVal := func(key string) string {
		if v, ok := params[key].(string); ok {
			return v
		}
		return ""
	}

	var val string
	switch name {
	case "read_file", "write_file", "edit_file":
		val = strVal("path")
	case "bash":
		val = strVal("command")
	case "glob", "grep":
		val = strVal("pattern")
	default:
		for _, key := range []string{"path", "command", "pattern", "question"} {
			if v := strVal(key); v != "" {
				val = v
				break
			}
		}
	}

	if val == "" {
		return ""
	}

	// Shorten file paths: keep last 2 path components
	if strings.ContainsAny(val, "/\\") {
		parts := strings.Split(filepath.ToSlash(val), "/")
		if len(parts) > 2 {
			val = "…/" + strings.Join(parts[len(parts)-2:], "/")
		}
	}

	if len(val) > 45 {
		val = val[:42] + "…"
	}
	return val
}

// ---------- time / count helpers ----------

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func countNonEmptyContent(s string) int {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return 0
	}
	return len(lines)
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func pluralLine(n int) string {
	if n == 1 {
		return "line"
	}
	return "lines"
}

func pluralFile(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}

func pluralMatch(n int) string {
	if n == 1 {
		return "match"
	}
	return "matches"
}

// ---------- key event helpers ----------

func isTerminalNoiseKey(s string) bool {
	if strings.Contains(s, ";rgb:") || strings.HasPrefix(s, "]") || strings.HasPrefix(s, "alt+]") {
		return true
	}
	if (strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m")) && strings.Contains(s, ";") {
		return true
	}
	if strings.HasPrefix(s, "[<") || strings.HasPrefix(s, "alt+[<") {
		return true
	}
	if strings.HasPrefix(s, "[?") || strings.HasPrefix(s, "alt+[?") {
		return true
	}
	if len(s) > 1 && s[0] == '[' && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	return false
}

func isControlKeyMsg(s string) bool {
	for _, r := range s {
		if r == '\x1b' || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return true
		}
	}
	return false
}
