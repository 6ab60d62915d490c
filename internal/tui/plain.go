package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/quill-ai/quill/internal/permission"
)

// PlainIO implements IO using plain terminal output (fmt.Print /
// bufio.Scanner). It is used when TUI mode is disabled or the terminal
// does not support raw mode. Its Present method serves as the coordinator
// presenter, running permission prompts inline on stdin.
type PlainIO struct {
	coordinator *permission.Coordinator
	scanner     *bufio.Scanner
	tokens      int
	mu          sync.Mutex // protects concurrent output during the agent turn
}

var _ IO = (*PlainIO)(nil)

// NewPlainIO creates a PlainIO that reads from stdin.
func NewPlainIO(coordinator *permission.Coordinator) *PlainIO {
	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{coordinator: coordinator, scanner: s}
}

func (p *PlainIO) ReadInput() (string, error) {
	fmt.Print("\n> ")
	return p.readLine()
}

func (p *PlainIO) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) UserMessage(_ string) {
	// Plain terminal: the user already sees what they typed.
}

func (p *PlainIO) ThinkingStart() {
	fmt.Println() // blank line before AI output begins
}

func (p *PlainIO) TextDelta(delta string) {
	fmt.Print(delta)
}

func (p *PlainIO) TextDone(_ string) {
	// Plain terminal: text is already rendered incrementally.
}

func (p *PlainIO) ToolStart(_, name, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Printf("\n%s\n  Executing %s...\n", strings.Repeat("-", 30), name)
}

func (p *PlainIO) ToolDone(_, _, result string, isErr bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if isErr {
		fmt.Printf("    Error: %s\n", truncate(result, 80))
	} else {
		preview := truncate(strings.ReplaceAll(result, "\n", " "), 60)
		fmt.Printf("    Result: %s\n", preview)
	}
}

func (p *PlainIO) SystemMessage(text string) {
	fmt.Println(text)
}

func (p *PlainIO) Error(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

func (p *PlainIO) SetTokens(n int) {
	p.tokens = n
}

func (p *PlainIO) SetMode(_ permission.Mode) {}

// Present is the coordinator presenter for line mode. The coordinator
// calls it from its own goroutine; the agent is blocked on the request,
// so stdin is free.
func (p *PlainIO) Present(req *permission.Request) {
	if req.Interview() {
		p.presentInterview(req)
		return
	}
	p.presentConfirm(req)
}

func (p *PlainIO) presentConfirm(req *permission.Request) {
	fmt.Printf("\n--- Permission: %s ---\n", toolDisplayName(req.ToolName))
	if cmd := req.Command(); cmd != "" {
		fmt.Printf("  $ %s\n", cmd)
	} else if param := askPrimaryParam(req.Ask); param != "" {
		fmt.Printf("  %s\n", param)
	}

	if req.HidePersistentOption {
		fmt.Print("[y = allow, empty = cancel, anything else = instructions] ")
	} else {
		fmt.Print("[y = allow, a = always allow, empty = cancel, anything else = instructions] ")
	}

	answer, err := p.readLine()
	if err != nil || answer == "" {
		p.coordinator.Cancel()
		return
	}

	planExit := req.ToolName == permission.PlanExitToolName
	switch strings.ToLower(answer) {
	case "y", "yes":
		if planExit {
			p.coordinator.Resolve(permission.AllowedWithMode(permission.ModeDefault))
			return
		}
		p.coordinator.Resolve(permission.Allowed())
	case "a", "always":
		if req.HidePersistentOption {
			p.coordinator.Cancel()
			return
		}
		// Shell commands persist a command rule; every other tool
		// (plan exit included) switches the session to acceptEdits.
		if req.ToolName == permission.ShellToolName {
			p.coordinator.Resolve(permission.AllowedWithRule(permission.CommandRule(req.SuggestedPrefix, req.Command())))
			return
		}
		p.coordinator.Resolve(permission.AllowedWithMode(permission.ModeAcceptEdits))
	default:
		p.coordinator.Resolve(permission.Denied(answer))
	}
}

func (p *PlainIO) presentInterview(req *permission.Request) {
	if len(req.Questions) == 0 {
		p.coordinator.Resolve(permission.AllowedWithMessage("{}"))
		return
	}

	var answers []permission.AnsweredQuestion
	for _, q := range req.Questions {
		answer, ok := p.askOne(q)
		if !ok {
			p.coordinator.Cancel()
			return
		}
		answers = append(answers, permission.AnsweredQuestion{Question: q.Question, Answer: answer})
	}
	p.coordinator.Resolve(permission.AllowedWithMessage(permission.EncodeAnswers(answers)))
}

func (p *PlainIO) askOne(q permission.Question) (string, bool) {
	if q.Header != "" {
		fmt.Printf("\n[%s]\n", q.Header)
	}
	fmt.Printf("\n? %s\n", q.Question)
	for i, opt := range q.Options {
		marker := ""
		if opt.IsRecommended {
			marker = " (recommended)"
		}
		fmt.Printf("  %d. %s%s\n", i+1, opt.Label, marker)
	}
	if q.MultiSelect {
		fmt.Print("Enter numbers separated by commas, or type a custom answer: ")
	} else {
		fmt.Print("Enter a number, or type a custom answer: ")
	}

	answer, err := p.readLine()
	if err != nil || answer == "" {
		return "", false
	}

	if q.MultiSelect {
		if labels, ok := pickedLabels(answer, q.Options); ok {
			return strings.Join(labels, ", "), true
		}
		return answer, true
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1].Label, true
	}
	return answer, true
}

// pickedLabels maps "1,3" onto option labels in declaration order.
// Returns false unless every field is a valid option number.
func pickedLabels(answer string, options []permission.QuestionOption) ([]string, bool) {
	picked := make(map[int]bool)
	for _, field := range strings.Split(answer, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 || n > len(options) {
			return nil, false
		}
		picked[n-1] = true
	}
	var labels []string
	for i, opt := range options {
		if picked[i] {
			labels = append(labels, opt.Label)
		}
	}
	return labels, len(labels) > 0
}

// truncate shortens s to maxLen characters, appending "..." if cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
