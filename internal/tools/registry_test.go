package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/mogzi/internal/config"
)

func TestRootToken(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"ls -la", "ls"},
		{"/usr/bin/git status", "git"},
		{`C:\tools\rg.exe foo`, "rg.exe"},
		{"(cd /tmp; ls)", "cd"},
		{"echo a | grep b", "echo"},
		{"FOO=bar make build", "FOO=bar"},
		{"  git  push", "git"},
		{"", ""},
		{"   ", ""},
		{"(){}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := RootToken(tt.command); got != tt.want {
				t.Errorf("RootToken(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestRegistry_ReadonlyRejectsMutatingTools(t *testing.T) {
	cfg := config.Default()
	g := newTestGuard(t)
	reg := DefaultRegistry(cfg, g)

	resp := reg.Invoke(context.Background(), "write_file", map[string]any{
		"file_path": filepath.Join(g.Root(), "x.txt"),
		"content":   "x",
	})
	if !resp.IsError() || !strings.Contains(resp.Error, "readonly") {
		t.Fatalf("error = %q, want readonly rejection", resp.Error)
	}

	// Read-only tools still run.
	resp = reg.Invoke(context.Background(), "list_files", map[string]any{"path": "."})
	if resp.IsError() {
		t.Errorf("list_files rejected in readonly mode: %s", resp.Error)
	}

	// Flipping approvals live unblocks mutating tools.
	if err := cfg.SetApprovals(config.ApprovalAll); err != nil {
		t.Fatal(err)
	}
	resp = reg.Invoke(context.Background(), "write_file", map[string]any{
		"file_path": filepath.Join(g.Root(), "x.txt"),
		"content":   "x",
	})
	if resp.IsError() {
		t.Errorf("write_file failed after approval: %s", resp.Error)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg := NewRegistry(config.Default())
	resp := reg.Invoke(context.Background(), "bogus", nil)
	if !resp.IsError() {
		t.Fatal("expected FAILED for unknown tool")
	}
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	cfg := config.Default()
	g := newTestGuard(t)
	reg := DefaultRegistry(cfg, g)

	defs := reg.List()
	if len(defs) != 8 {
		t.Fatalf("got %d tool definitions, want 8", len(defs))
	}
	if defs[0].Name != "read_file" {
		t.Errorf("first tool = %s, want read_file", defs[0].Name)
	}
	for _, def := range defs {
		if def.Description == "" || def.Parameters == nil {
			t.Errorf("tool %s missing description or parameters", def.Name)
		}
	}
}

func TestRegistry_AuthorizeShell(t *testing.T) {
	reg := NewRegistry(config.Default())

	var prompts []string
	allow := true
	reg.SetShellConfirmer(func(token, command string) bool {
		prompts = append(prompts, token)
		return allow
	})

	if err := reg.AuthorizeShell("git status"); err != nil {
		t.Fatalf("first use rejected: %v", err)
	}
	if len(prompts) != 1 || prompts[0] != "git" {
		t.Fatalf("prompts = %v, want [git]", prompts)
	}

	// A whitelisted root skips the prompt, even via a different path.
	if err := reg.AuthorizeShell("/usr/bin/git log"); err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 1 {
		t.Errorf("re-prompted for a whitelisted root: %v", prompts)
	}

	// Denial blocks the command and leaves the token unapproved, so the
	// next use prompts again.
	allow = false
	if err := reg.AuthorizeShell("rm -rf x"); err == nil {
		t.Fatal("denied root was admitted")
	}
	if err := reg.AuthorizeShell("rm file"); err == nil {
		t.Fatal("denied root admitted on retry")
	}
	if len(prompts) != 3 {
		t.Errorf("prompts = %v, want three entries", prompts)
	}
}

func TestRegistry_AuthorizeShellWithoutConfirmer(t *testing.T) {
	reg := NewRegistry(config.Default())
	if err := reg.AuthorizeShell("make build"); err != nil {
		t.Fatalf("confirmer-less registry rejected command: %v", err)
	}
	if err := reg.AuthorizeShell(""); err == nil {
		t.Error("empty command produced a root token")
	}
}
