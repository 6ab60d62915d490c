package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quill-ai/quill/internal/permission"
)

// ExitPlanTool is how the model asks to leave plan mode. The tool body is
// trivial; the interesting part happens in the executor, where the
// confirmation decision carries the mode to switch to.
type ExitPlanTool struct{}

func (t *ExitPlanTool) Name() string                     { return permission.PlanExitToolName }
func (t *ExitPlanTool) IsReadOnly() bool                 { return false }
func (t *ExitPlanTool) PermissionLevel() PermissionLevel { return PermissionWrite }

func (t *ExitPlanTool) Description() string {
	return "Present your implementation plan to the user and ask to exit " +
		"plan mode. Call this only when the plan is complete and you are " +
		"ready to start making changes."
}

func (t *ExitPlanTool) Parameters() map[string]any {
	return map[string]any{
		"plan": map[string]any{
			"type":        "string",
			"description": "The implementation plan, in markdown",
		},
	}
}

func (t *ExitPlanTool) Execute(ctx context.Context, params json.RawMessage) (ToolResult, error) {
	var p struct {
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolResult{}, fmt.Errorf("invalid params: %w", err)
	}
	// Reaching Execute means the operator approved the exit; the mode
	// switch already happened when the decision was applied.
	return ToolResult{Content: "Plan approved. You may now start implementing it."}, nil
}
