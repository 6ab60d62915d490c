package provider

import (
	"testing"
)

func TestOpenAIProvider_ContextWindow(t *testing.T) {
	tests := []struct {
		model    string
		expected int
	}{
		{"gpt-4o-mini", 128000},
		{"o1-preview", 200000},
		{"o3-mini", 200000},
		{"deepseek-chat", 64000},
		{"some-unknown-model", 128000},
	}
	for _, tt := range tests {
		p := &OpenAIProvider{model: tt.model}
		if got := p.ContextWindow(); got != tt.expected {
			t.Errorf("OpenAI ContextWindow(%q) = %d, want %d", tt.model, got, tt.expected)
		}
	}
}

func TestAnthropicProvider_Metadata(t *testing.T) {
	p := &AnthropicProvider{model: "claude-sonnet-4-20250514"}
	if p.Name() != "anthropic" {
		t.Errorf("expected name 'anthropic', got %q", p.Name())
	}
	if p.DefaultModel() != "claude-sonnet-4-20250514" {
		t.Errorf("expected model 'claude-sonnet-4-20250514', got %q", p.DefaultModel())
	}
	if p.ContextWindow() != 200000 {
		t.Errorf("ContextWindow = %d", p.ContextWindow())
	}
}

func TestOpenAIProvider_NameDetection(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected string
	}{
		{"", "openai"},
		{"https://api.deepseek.com/v1", "deepseek"},
		{"https://api.moonshot.cn/v1", "kimi"},
		{"https://dashscope.aliyuncs.com/v1", "qwen"},
		{"https://custom.api.com/v1", "openai"},
	}
	for _, tt := range tests {
		p := NewOpenAIProvider("test-key", tt.baseURL, "test-model")
		if p.Name() != tt.expected {
			t.Errorf("baseURL=%q: expected name %q, got %q", tt.baseURL, tt.expected, p.Name())
		}
	}
}

func TestOpenAIProvider_BuildMessagesOrdersToolResults(t *testing.T) {
	p := &OpenAIProvider{model: "gpt-4o"}
	req := &ChatRequest{
		SystemPrompt: "be terse",
		Messages: []Message{
			{Role: RoleAssistant, Content: []Content{
				{Type: ContentTypeToolUse, ToolUseID: "call_1", ToolName: "bash", ToolInput: []byte(`{"command":"ls"}`)},
			}},
			{Role: RoleUser, Content: []Content{
				{Type: ContentTypeToolResult, ToolUseID: "call_1", ToolResult: "a.txt"},
			}},
		},
	}
	msgs := p.buildMessages(req)
	// system + assistant + tool result
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil {
		t.Error("first message should be the system prompt")
	}
	if msgs[1].OfAssistant == nil {
		t.Error("second message should be the assistant tool call")
	}
	if msgs[2].OfTool == nil {
		t.Error("third message should be the tool result")
	}
}

func TestBuildTools(t *testing.T) {
	p := &OpenAIProvider{}
	tools := p.buildTools([]ToolSchema{
		{Name: "read_file", Description: "read", Parameters: map[string]any{"path": map[string]any{"type": "string"}}},
	})
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Function.Name != "read_file" {
		t.Errorf("tool name = %q", tools[0].Function.Name)
	}

	a := &AnthropicProvider{}
	atools := a.buildTools([]ToolSchema{{Name: "grep"}})
	if len(atools) != 1 || atools[0].OfTool.Name != "grep" {
		t.Errorf("anthropic tool conversion failed: %+v", atools)
	}
}

func TestExtractReasoningContent(t *testing.T) {
	if got := extractReasoningContent(`{"reasoning_content":"thinking..."}`); got != "thinking..." {
		t.Errorf("got %q", got)
	}
	if got := extractReasoningContent(`{"content":"hi"}`); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
