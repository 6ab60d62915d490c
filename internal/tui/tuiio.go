package tui

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quill-ai/quill/internal/permission"
)

// TuiIO implements the IO interface by sending messages to a bubbletea
// Program. All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult

	mu         sync.Mutex
	cancelTool context.CancelFunc
	cancelLoop context.CancelFunc
}

var _ IO = (*TuiIO)(nil)

// NewProgram builds the bubbletea program and its IO front end. The
// returned TuiIO is also the coordinator presenter: register its Present
// method so promoted permission requests reach the screen.
func NewProgram(coordinator *permission.Coordinator, cfg TUIConfig) (*tea.Program, *TuiIO) {
	inputCh := make(chan inputResult)
	t := &TuiIO{inputCh: inputCh}

	model := NewModel(inputCh, coordinator, cfg)
	model.cancelToolFn = t.CancelRunningTool
	model.cancelLoopFn = t.CancelLoop

	t.program = tea.NewProgram(model)
	return t.program, t
}

// Present is the coordinator presenter callback. The coordinator invokes
// it from its own goroutine, so Send never deadlocks against Update.
func (t *TuiIO) Present(req *permission.Request) {
	t.send(permissionMsg{req: req})
}

// AgentDone tells the TUI the agent loop has exited and the program
// should quit.
func (t *TuiIO) AgentDone(err error) {
	t.send(agentDoneMsg{err: err})
}

// send is a nil-safe helper that sends a message to the bubbletea program.
func (t *TuiIO) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TuiIO) ReadInput() (string, error) {
	if t.program == nil {
		return "", io.EOF
	}
	// Tell the TUI to activate the text input
	t.program.Send(readInputMsg{})

	// Block until the user submits or the TUI exits
	res := <-t.inputCh
	if res.err != nil {
		return "", io.EOF
	}
	return res.text, nil
}

func (t *TuiIO) UserMessage(text string) {
	t.send(userMsg{text: text})
}

func (t *TuiIO) ThinkingStart() {
	t.send(thinkingStartMsg{})
}

func (t *TuiIO) TextDelta(delta string) {
	t.send(textDeltaMsg{delta: delta})
}

func (t *TuiIO) TextDone(fullText string) {
	t.send(textDoneMsg{fullText: fullText})
}

func (t *TuiIO) ToolStart(id, name, params string) {
	t.send(toolStartMsg{id: id, name: name, params: params})
}

func (t *TuiIO) ToolDone(id, name, result string, isErr bool) {
	t.send(toolDoneMsg{id: id, name: name, result: result, isErr: isErr})
}

func (t *TuiIO) SystemMessage(text string) {
	t.send(systemMsg{text: text})
}

func (t *TuiIO) Error(msg string) {
	t.send(errorMsg{text: msg})
}

func (t *TuiIO) SetTokens(n int) {
	t.send(tokensMsg{n: n})
}

func (t *TuiIO) SetMode(mode permission.Mode) {
	t.send(modeMsg{mode: mode})
}

// --- ToolCanceller implementation ---

// SetToolCancel registers the cancel function for the currently running tool.
func (t *TuiIO) SetToolCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTool = cancel
}

// ClearToolCancel clears the cancel function after the tool finishes.
func (t *TuiIO) ClearToolCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTool = nil
}

// CancelRunningTool cancels the currently running tool. Returns true if a
// tool was actually cancelled.
func (t *TuiIO) CancelRunningTool() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelTool != nil {
		t.cancelTool()
		t.cancelTool = nil
		return true
	}
	return false
}

// --- LoopCanceller implementation ---

// SetLoopCancel registers the per-turn cancel function for the agent loop.
func (t *TuiIO) SetLoopCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLoop = cancel
}

// ClearLoopCancel clears the loop cancel function when the turn ends.
func (t *TuiIO) ClearLoopCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLoop = nil
}

// CancelLoop cancels the entire agent loop (per-turn). Returns true if
// the loop was actually cancelled.
func (t *TuiIO) CancelLoop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelLoop != nil {
		t.cancelLoop()
		t.cancelLoop = nil
		return true
	}
	return false
}
