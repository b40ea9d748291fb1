package tools

import (
	"context"
)

// WriteFileTool creates or overwrites a file through the integrity write
// protocol (backup, temp write, hash verification, atomic rename).
type WriteFileTool struct {
	guard *Guard
}

func NewWriteFileTool(guard *Guard) *WriteFileTool {
	return &WriteFileTool{guard: guard}
}

func (t *WriteFileTool) Name() string  { return "write_file" }
func (t *WriteFileTool) Mutates() bool { return true }

func (t *WriteFileTool) Description() string {
	return "Write full content to a file, creating it and any parent directories as needed. Overwrites existing content."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content to write",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, resp := requireAbsolutePath(t.Name(), args)
	if resp != nil {
		return resp
	}
	content, ok := args["content"].(string)
	if !ok {
		return Failed(t.Name(), "BadArgument: content is required")
	}

	resolved, err := t.guard.Resolve(path)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	data := []byte(content)
	sum, err := IntegrityWrite(resolved, data)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	return Success(t.Name()).
		WithPath(resolved).
		WithSHA256(sum).
		Note("Successfully wrote file: %s", resolved).
		Note("Total lines: %d", countLines(data)).
		Note("Content size: %d characters", len(content)).
		WithContent(content)
}
