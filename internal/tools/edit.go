package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ReplaceTool performs exact literal string replacement in a file. With an
// empty old_string it is a create operation instead.
type ReplaceTool struct {
	guard *Guard
}

func NewReplaceTool(guard *Guard) *ReplaceTool {
	return &ReplaceTool{guard: guard}
}

func (t *ReplaceTool) Name() string  { return "replace" }
func (t *ReplaceTool) Mutates() bool { return true }

func (t *ReplaceTool) Description() string {
	return "Replace exact literal occurrences of old_string with new_string in a file. An empty old_string creates a new file with new_string as content."
}

func (t *ReplaceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path to the file to modify",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Exact literal text to replace (empty to create a new file)",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
			"expected_replacements": map[string]any{
				"type":        "integer",
				"description": "Exact number of occurrences that must be replaced (default 1)",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

func (t *ReplaceTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, resp := requireAbsolutePath(t.Name(), args)
	if resp != nil {
		return resp
	}
	oldString, _ := args["old_string"].(string)
	newString, _ := args["new_string"].(string)
	expected := intArg(args, "expected_replacements", 1)
	if expected < 1 {
		return Failed(t.Name(), "BadArgument: expected_replacements must be >= 1")
	}

	resolved, err := t.guard.Resolve(path)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	// Empty old_string means create. The target must not exist.
	if oldString == "" {
		if _, err := os.Stat(resolved); err == nil {
			return Failed(t.Name(), "Conflict: file already exists: %s", path)
		}
		sum, err := IntegrityWrite(resolved, []byte(newString))
		if err != nil {
			return FailedErr(t.Name(), err)
		}
		return Success(t.Name()).
			WithPath(resolved).
			WithSHA256(sum).
			Note("Successfully created file: %s", resolved).
			Note("Total lines: %d", countLines([]byte(newString))).
			Note("Content size: %d characters", len(newString)).
			WithContent(newString)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(t.Name(), "NotFound: %s", path)
		}
		if os.IsPermission(err) {
			return Failed(t.Name(), "Denied: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}

	content := normalizeLineEndings(string(raw))
	needle := normalizeLineEndings(oldString)

	count := strings.Count(content, needle)
	if count == 0 {
		return Failed(t.Name(), "Failed to edit, 0 occurrences found of old_string in %s", path)
	}
	if count != expected {
		return Failed(t.Name(), "Failed to edit, expected %d occurrence(s) but found %d", expected, count)
	}

	updated := strings.ReplaceAll(content, needle, normalizeLineEndings(newString))
	sum, err := IntegrityWrite(resolved, []byte(updated))
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	return Success(t.Name()).
		WithPath(resolved).
		WithSHA256(sum).
		Note("Successfully modified file: %s (%d replacement%s)", resolved, expected, plural(expected, "", "s")).
		Note("Total lines: %d", countLines([]byte(updated))).
		Note("Content size: %d characters", len(updated)).
		WithContent(updated)
}

// Diff block markers for replace_in_file.
const (
	markerSearch  = "------- SEARCH"
	markerDivider = "======="
	markerReplace = "+++++++ REPLACE"
)

// ReplaceInFileTool applies a diff document of SEARCH/REPLACE blocks. Every
// SEARCH block must match the file exactly once; blocks apply in order.
type ReplaceInFileTool struct {
	guard *Guard
}

func NewReplaceInFileTool(guard *Guard) *ReplaceInFileTool {
	return &ReplaceInFileTool{guard: guard}
}

func (t *ReplaceInFileTool) Name() string  { return "replace_in_file" }
func (t *ReplaceInFileTool) Mutates() bool { return true }

func (t *ReplaceInFileTool) Description() string {
	return "Apply one or more SEARCH/REPLACE blocks to a file. Blocks are delimited by '------- SEARCH', '=======' and '+++++++ REPLACE' lines; each SEARCH text must match exactly once."
}

func (t *ReplaceInFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path to the file to modify",
			},
			"diff": map[string]any{
				"type":        "string",
				"description": "Diff document containing SEARCH/REPLACE blocks",
			},
		},
		"required": []string{"file_path", "diff"},
	}
}

type searchReplaceBlock struct {
	search  string
	replace string
}

func (t *ReplaceInFileTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, resp := requireAbsolutePath(t.Name(), args)
	if resp != nil {
		return resp
	}
	diff, _ := args["diff"].(string)
	if strings.TrimSpace(diff) == "" {
		return Failed(t.Name(), "BadArgument: diff is required")
	}

	blocks, err := parseSearchReplaceBlocks(diff)
	if err != nil {
		return Failed(t.Name(), "BadArgument: %v", err)
	}

	resolved, rerr := t.guard.Resolve(path)
	if rerr != nil {
		return FailedErr(t.Name(), rerr)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(t.Name(), "NotFound: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}

	content := normalizeLineEndings(string(raw))
	for i, block := range blocks {
		count := strings.Count(content, block.search)
		if count == 0 {
			return Failed(t.Name(), "SEARCH block %d matched 0 times", i+1)
		}
		if count > 1 {
			return Failed(t.Name(), "SEARCH block %d matched %d times, expected exactly 1", i+1, count)
		}
		content = strings.Replace(content, block.search, block.replace, 1)
	}

	sum, err := IntegrityWrite(resolved, []byte(content))
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	return Success(t.Name()).
		WithPath(resolved).
		WithSHA256(sum).
		Note("Successfully modified file: %s (%d block%s applied)", resolved, len(blocks), plural(len(blocks), "", "s")).
		Note("Total lines: %d", countLines([]byte(content))).
		Note("Content size: %d characters", len(content)).
		WithContent(content)
}

// parseSearchReplaceBlocks splits a diff document on its literal markers.
func parseSearchReplaceBlocks(diff string) ([]searchReplaceBlock, error) {
	lines := strings.Split(normalizeLineEndings(diff), "\n")

	var blocks []searchReplaceBlock
	const (
		stateOutside = iota
		stateSearch
		stateReplace
	)
	state := stateOutside
	var search, replace []string

	for _, line := range lines {
		switch strings.TrimRight(line, " \t") {
		case markerSearch:
			if state != stateOutside {
				return nil, fmt.Errorf("unexpected %q marker inside a block", markerSearch)
			}
			state = stateSearch
			search, replace = nil, nil
		case markerDivider:
			if state == stateSearch {
				state = stateReplace
				continue
			}
			// A bare ======= inside replace text is content, not a marker.
			if state == stateReplace {
				replace = append(replace, line)
				continue
			}
			return nil, fmt.Errorf("unexpected %q marker outside a block", markerDivider)
		case markerReplace:
			if state != stateReplace {
				return nil, fmt.Errorf("unexpected %q marker", markerReplace)
			}
			blocks = append(blocks, searchReplaceBlock{
				search:  strings.Join(search, "\n"),
				replace: strings.Join(replace, "\n"),
			})
			state = stateOutside
		default:
			switch state {
			case stateSearch:
				search = append(search, line)
			case stateReplace:
				replace = append(replace, line)
			}
		}
	}
	if state != stateOutside {
		return nil, fmt.Errorf("unterminated SEARCH/REPLACE block")
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no SEARCH/REPLACE blocks found")
	}
	for i, b := range blocks {
		if b.search == "" {
			return nil, fmt.Errorf("SEARCH block %d is empty", i+1)
		}
	}
	return blocks, nil
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// intArg reads an integer argument that JSON decoding may deliver as
// float64, int or a numeric string.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return def
}
