package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quill-ai/quill/internal/permission"
)

// QuestionTool lets the model interview the operator: one or more
// questions, each with predefined options plus a free-text escape hatch.
// Answers come back as a JSON object keyed by question text.
type QuestionTool struct {
	decider Decider
}

func (t *QuestionTool) Name() string                     { return "question" }
func (t *QuestionTool) IsReadOnly() bool                 { return true }
func (t *QuestionTool) PermissionLevel() PermissionLevel { return PermissionRead }

// SetDecider wires the permission coordinator; the interview travels the
// same queue as confirmation prompts so dialogs never overlap.
func (t *QuestionTool) SetDecider(d Decider) {
	t.decider = d
}

func (t *QuestionTool) Description() string {
	return "Ask the user one or more questions and wait for their answers. " +
		"Each question offers predefined options; the user can always type " +
		"a custom answer instead. Use this when you need a decision or " +
		"clarification you cannot infer. The result is a JSON object " +
		"mapping each question to its answer."
}

func (t *QuestionTool) Parameters() map[string]any {
	return map[string]any{
		"questions": map[string]any{
			"type":        "array",
			"description": "Questions to ask, in order",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"header": map[string]any{
						"type":        "string",
						"description": "Short title shown above the question",
					},
					"question": map[string]any{
						"type":        "string",
						"description": "The full question text",
					},
					"multiSelect": map[string]any{
						"type":        "boolean",
						"description": "Allow choosing several options",
					},
					"options": map[string]any{
						"type":        "array",
						"description": "Predefined answers to offer",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"label": map[string]any{
									"type":        "string",
									"description": "Option text",
								},
								"description": map[string]any{
									"type":        "string",
									"description": "Optional elaboration shown under the label",
								},
								"isRecommended": map[string]any{
									"type":        "boolean",
									"description": "Mark this option as the suggested choice",
								},
							},
							"required": []string{"label"},
						},
					},
				},
				"required": []string{"question", "options"},
			},
		},
	}
}

func (t *QuestionTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	if t.decider == nil {
		return ToolResult{Content: "no interactive session to ask the user", IsError: true}, nil
	}

	var p struct {
		Questions []struct {
			Header      string `json:"header"`
			Question    string `json:"question"`
			MultiSelect bool   `json:"multiSelect"`
			Options     []struct {
				Label         string `json:"label"`
				Description   string `json:"description"`
				IsRecommended bool   `json:"isRecommended"`
			} `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}

	questions := make([]permission.Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		if q.Question == "" {
			return ToolResult{}, fmt.Errorf("question text is required")
		}
		pq := permission.Question{
			Header:      q.Header,
			Question:    q.Question,
			MultiSelect: q.MultiSelect,
		}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, permission.QuestionOption{
				Label:         o.Label,
				Description:   o.Description,
				IsRecommended: o.IsRecommended,
			})
		}
		questions = append(questions, pq)
	}
	// Questions must be non-nil even when empty: its presence is what marks
	// the request as an interview rather than a confirmation.
	if questions == nil {
		questions = []permission.Question{}
	}

	decision, err := t.decider.Request(ctx, permission.Ask{
		ToolName:  t.Name(),
		ToolInput: inputMap(params),
		Questions: questions,
	})
	if err != nil {
		return ToolResult{
			Content:       permission.CancelMessage,
			IsError:       true,
			UserCancelled: true,
		}, nil
	}
	if decision.Behavior == permission.BehaviorDeny {
		return ToolResult{Content: decision.Message, IsError: true}, nil
	}
	return ToolResult{Content: decision.Message}, nil
}
