// Package permission implements the permission confirmation subsystem:
// a FIFO queue of pending approval requests raised by the agent engine,
// a coordinator that bridges the engine's call-and-await style to the
// interactive UI, and the typed Decision returned for every request.
package permission

import (
	"encoding/json"
	"errors"
	"strings"
)

// Mode is the engine-wide permission mode a Decision may switch to.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "acceptEdits"
	ModePlan        Mode = "plan"
	ModeBypass      Mode = "bypassPermissions"
)

// Behavior discriminates the two Decision variants.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// Well-known tool names the confirmation flow special-cases.
const (
	ShellToolName    = "bash"
	PlanExitToolName = "exit_plan_mode"
)

// Decision is the structured outcome of one permission request, returned
// to the agent engine. Exactly one Decision is produced per request.
//
// Wire shape:
//
//	{"behavior":"allow","message":...,"newPermissionMode":...,"newPermissionRule":...}
//	{"behavior":"deny","message":...}
type Decision struct {
	Behavior          Behavior `json:"behavior"`
	Message           string   `json:"message,omitempty"`
	NewPermissionMode Mode     `json:"newPermissionMode,omitempty"`
	NewPermissionRule string   `json:"newPermissionRule,omitempty"`
}

// Allowed returns a plain allow decision.
func Allowed() Decision {
	return Decision{Behavior: BehaviorAllow}
}

// AllowedWithMode returns an allow decision that switches the permission mode.
func AllowedWithMode(m Mode) Decision {
	return Decision{Behavior: BehaviorAllow, NewPermissionMode: m}
}

// AllowedWithRule returns an allow decision that persists an auto-approval rule.
func AllowedWithRule(rule string) Decision {
	return Decision{Behavior: BehaviorAllow, NewPermissionRule: rule}
}

// AllowedWithMessage returns an allow decision carrying a payload message
// (used by the interview flow, where the message is the JSON answers object).
func AllowedWithMessage(msg string) Decision {
	return Decision{Behavior: BehaviorAllow, Message: msg}
}

// Denied returns a deny decision with the operator's reason.
func Denied(msg string) Decision {
	return Decision{Behavior: BehaviorDeny, Message: msg}
}

// CancelMessage is the denial text callers use when translating a cancelled
// request into a deny decision. The literal is part of the engine contract.
const CancelMessage = "Operation cancelled by user"

// ErrCancelled rejects a request's awaitable when the operator presses
// Escape (or the caller's context is cancelled before a decision).
var ErrCancelled = errors.New("permission request cancelled by user")

// QuestionOption is one selectable answer for an interview question.
type QuestionOption struct {
	Label         string `json:"label"`
	Description   string `json:"description,omitempty"`
	IsRecommended bool   `json:"isRecommended,omitempty"`
}

// Question is one step of the structured-interview flow. A synthetic
// trailing "Other" free-text option is appended at render time and is not
// part of Options.
type Question struct {
	Header      string           `json:"header"`
	Question    string           `json:"question"`
	Options     []QuestionOption `json:"options"`
	MultiSelect bool             `json:"multiSelect"`
}

// AnsweredQuestion pairs a question's literal text with the chosen answer.
// Order of answering is preserved.
type AnsweredQuestion struct {
	Question string
	Answer   string
}

// EncodeAnswers serializes interview answers as a JSON object mapping each
// question's text to its answer string, preserving question order.
func EncodeAnswers(answers []AnsweredQuestion) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, qa := range answers {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(qa.Question)
		v, _ := json.Marshal(qa.Answer)
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String()
}
