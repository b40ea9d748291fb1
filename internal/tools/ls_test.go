package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListFiles_RecursiveSkipsBlacklist(t *testing.T) {
	g := newTestGuard(t)
	root := g.Root()

	writeTestFile(t, root, "a.txt", "a")
	for _, dir := range []string{"node_modules", "src"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestFile(t, filepath.Join(root, "node_modules"), "x", "x")
	writeTestFile(t, filepath.Join(root, "src"), "b.txt", "b")

	tool := NewListFilesTool(g)
	resp := tool.Execute(context.Background(), map[string]any{
		"path":      ".",
		"recursive": true,
	})
	if resp.IsError() {
		t.Fatalf("list_files failed: %s", resp.Error)
	}

	for _, want := range []string{"a.txt", "node_modules/", "src/", "src/b.txt"} {
		if !strings.Contains(resp.Content, want) {
			t.Errorf("listing missing %q:\n%s", want, resp.Content)
		}
	}
	if strings.Contains(resp.Content, "node_modules/x") {
		t.Errorf("listing descended into node_modules:\n%s", resp.Content)
	}
}

func TestListFiles_NonRecursive(t *testing.T) {
	g := newTestGuard(t)
	root := g.Root()
	writeTestFile(t, root, "a.txt", "a")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(root, "sub"), "deep.txt", "d")

	tool := NewListFilesTool(g)
	resp := tool.Execute(context.Background(), map[string]any{"path": "."})
	if resp.IsError() {
		t.Fatalf("list_files failed: %s", resp.Error)
	}
	if strings.Contains(resp.Content, "deep.txt") {
		t.Errorf("non-recursive listing descended:\n%s", resp.Content)
	}
	if !strings.Contains(resp.Content, "sub/") {
		t.Errorf("directory missing trailing slash:\n%s", resp.Content)
	}
}

func TestListFiles_Errors(t *testing.T) {
	g := newTestGuard(t)
	file := writeTestFile(t, g.Root(), "plain.txt", "x")
	tool := NewListFilesTool(g)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing path", map[string]any{}, "BadArgument"},
		{"not found", map[string]any{"path": "nope"}, "NotFound"},
		{"not a directory", map[string]any{"path": file}, "not a directory"},
		{"outside root", map[string]any{"path": "/etc"}, "OutOfRoot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tool.Execute(context.Background(), tt.args)
			if !resp.IsError() || !strings.Contains(resp.Error, tt.want) {
				t.Errorf("error = %q, want containing %q", resp.Error, tt.want)
			}
		})
	}
}
