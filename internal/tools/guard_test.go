package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGuard_Resolve(t *testing.T) {
	g := newTestGuard(t)
	root := g.Root()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"root itself", root, root, nil},
		{"child", filepath.Join(root, "a.txt"), filepath.Join(root, "a.txt"), nil},
		{"relative", "sub/b.txt", filepath.Join(root, "sub", "b.txt"), nil},
		{"dot", ".", root, nil},
		{"dotdot escape", filepath.Join(root, ".."), "", ErrOutOfRoot},
		{"traversal escape", filepath.Join(root, "a", "..", "..", "etc"), "", ErrOutOfRoot},
		{"absolute outside", "/etc/passwd", "", ErrOutOfRoot},
		{"empty", "", "", ErrBadArgument},
		{"whitespace only", "   ", "", ErrBadArgument},
		{"embedded NUL", "a\x00b", "", ErrBadArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Resolve(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) err = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGuard_SymlinkEscape(t *testing.T) {
	g := newTestGuard(t)
	outside := t.TempDir()

	link := filepath.Join(g.Root(), "sneaky")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := g.Resolve(filepath.Join(link, "x.txt")); !errors.Is(err, ErrOutOfRoot) {
		t.Errorf("symlinked path resolved inside root, err = %v", err)
	}
}

func TestGuard_OutOfRootWritePerformsNoIO(t *testing.T) {
	g := newTestGuard(t)
	tool := NewWriteFileTool(g)

	target := filepath.Join(filepath.Dir(g.Root()), "escape.txt")
	resp := tool.Execute(context.Background(), map[string]any{
		"file_path": target,
		"content":   "x",
	})
	if !resp.IsError() {
		t.Fatalf("expected FAILED, got %+v", resp)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("out-of-root write created %s", target)
	}
}
