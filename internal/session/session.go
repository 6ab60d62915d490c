// Package session holds conversation state and its SQLite persistence.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/quill-ai/quill/internal/provider"
)

// Session holds the conversation state for one agent session.
type Session struct {
	ID               string
	Messages         []provider.Message
	CreatedAt        time.Time
	UpdatedAt        time.Time
	TokensUsed       int
	PromptTokens     int
	CompletionTokens int
	Summary          string
}

// New creates a new session with a unique ID.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// AddMessage appends a message to the session history.
func (s *Session) AddMessage(msg provider.Message) {
	s.Messages = append(s.Messages, msg)
}

// AddUsage accumulates token counts from one API call.
func (s *Session) AddUsage(u *provider.Usage) {
	if u == nil {
		return
	}
	s.PromptTokens += u.InputTokens
	s.CompletionTokens += u.OutputTokens
	s.TokensUsed += u.InputTokens + u.OutputTokens
}

// Clear resets the message history and token counters.
func (s *Session) Clear() {
	s.Messages = nil
	s.TokensUsed = 0
	s.PromptTokens = 0
	s.CompletionTokens = 0
}

// EstimateTokens returns a rough token estimate (total chars / 4).
func (s *Session) EstimateTokens() int {
	total := 0
	for _, msg := range s.Messages {
		for _, c := range msg.Content {
			total += len(c.Text)
			total += len(c.ToolResult)
			total += len(c.ToolInput)
		}
	}
	return total / 4
}
