package tools

import (
	"context"
	"strings"
)

// AttemptCompletionTool lets the model signal that the current task is done.
// The orchestrator treats the next user submission as a fresh request.
type AttemptCompletionTool struct{}

func NewAttemptCompletionTool() *AttemptCompletionTool {
	return &AttemptCompletionTool{}
}

func (t *AttemptCompletionTool) Name() string  { return "attempt_completion" }
func (t *AttemptCompletionTool) Mutates() bool { return true }

func (t *AttemptCompletionTool) Description() string {
	return "Signal that the requested task is complete, with a short summary of the result."
}

func (t *AttemptCompletionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"result": map[string]any{
				"type":        "string",
				"description": "Summary of what was accomplished",
			},
		},
		"required": []string{"result"},
	}
}

func (t *AttemptCompletionTool) Execute(ctx context.Context, args map[string]any) *Response {
	result, _ := args["result"].(string)
	if strings.TrimSpace(result) == "" {
		return Failed(t.Name(), "BadArgument: result is required")
	}
	return Success(t.Name()).
		Note("Task completed").
		WithContent(result)
}
