package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ReadFileTool returns file contents with size, mtime and checksum metadata.
type ReadFileTool struct {
	guard *Guard
}

func NewReadFileTool(guard *Guard) *ReadFileTool {
	return &ReadFileTool{guard: guard}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. The path must be absolute and inside the working root."
}

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path to the file to read",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, resp := requireAbsolutePath(t.Name(), args)
	if resp != nil {
		return resp
	}

	resolved, err := t.guard.Resolve(path)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(t.Name(), "NotFound: %s", path)
		}
		if os.IsPermission(err) {
			return Failed(t.Name(), "Denied: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}
	if info.IsDir() {
		return Failed(t.Name(), "BadArgument: %s is a directory", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsPermission(err) {
			return Failed(t.Name(), "Denied: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}

	return Success(t.Name()).
		WithPath(resolved).
		WithSHA256(SHA256Hex(data)).
		Note("File size: %d bytes", info.Size()).
		Note("Last modified: %s", info.ModTime().Format("2006-01-02 15:04:05")).
		Note("Total lines: %d", countLines(data)).
		WithContent(string(data))
}

// requireAbsolutePath validates the file_path argument shared by the
// path-taking tools. Returns a FAILED envelope on bad input.
func requireAbsolutePath(tool string, args map[string]any) (string, *Response) {
	path, _ := args["file_path"].(string)
	if strings.TrimSpace(path) == "" {
		return "", Failed(tool, "BadArgument: file_path is required")
	}
	if strings.ContainsRune(path, 0) {
		return "", Failed(tool, "BadArgument: file_path contains NUL")
	}
	if !filepath.IsAbs(path) {
		return "", Failed(tool, "BadArgument: file_path must be absolute, got %q", path)
	}
	return path, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
