package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/mogzi/internal/config"
	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

// Tool is one callable function advertised to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Response
}

// mutating marks tools that change state. In readonly approval mode these
// are rejected before execution.
type mutating interface {
	Mutates() bool
}

// Registry catalogs tools and dispatches invocations under the approval
// policy. The shell root-token whitelist is process-wide and mutated only
// from the orchestrator task.
type Registry struct {
	tools map[string]Tool
	order []string
	cfg   *config.Config

	shellRoots map[string]bool
	confirm    func(token, command string) bool
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		cfg:        cfg,
		shellRoots: make(map[string]bool),
	}
}

// Register adds a tool. Later registrations with the same name replace
// earlier ones.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tool definitions for function-calling advertisement, in
// registration order.
func (r *Registry) List() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Invoke validates policy and runs the named tool. Failures are always
// envelopes, never errors: the model is expected to recover from them.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) *Response {
	t, ok := r.tools[name]
	if !ok {
		return Failed(name, "unknown tool %q", name)
	}

	if m, isMutating := t.(mutating); isMutating && m.Mutates() {
		if r.cfg != nil && r.cfg.Approvals() == config.ApprovalReadonly {
			return Failed(name, "Tool approvals are set to readonly")
		}
	}

	resp := t.Execute(ctx, args)
	if resp.IsError() {
		slog.Warn("tool failed", "tool", name, "error", resp.Error)
	} else {
		slog.Debug("tool ok", "tool", name)
	}
	return resp
}

// SetShellConfirmer installs the hook consulted on first use of a new shell
// root token. The hook blocks the invoking task until the user answers.
func (r *Registry) SetShellConfirmer(f func(token, command string) bool) {
	r.confirm = f
}

// AuthorizeShell admits a command under the process-wide root-token
// whitelist. First use of a new root consults the confirmer; approved tokens
// skip the prompt on every later use. With no confirmer installed new tokens
// are admitted directly.
func (r *Registry) AuthorizeShell(command string) error {
	token := RootToken(command)
	if token == "" {
		return fmt.Errorf("BadArgument: cannot determine the command's root token")
	}
	if r.shellRoots[token] {
		return nil
	}
	if r.confirm != nil && !r.confirm(token, command) {
		return fmt.Errorf("Denied: command root %q was not approved", token)
	}
	r.shellRoots[token] = true
	slog.Info("shell root whitelisted", "token", token)
	return nil
}

// RootToken extracts a command's root token: strip grouping chars, split on
// whitespace and shell operators, take the first token, then take the last
// path segment.
func RootToken(command string) string {
	cleaned := strings.Map(func(ch rune) rune {
		switch ch {
		case '(', ')', '{', '}':
			return -1
		}
		return ch
	}, command)

	fields := strings.FieldsFunc(cleaned, func(ch rune) bool {
		switch ch {
		case ' ', '\t', ';', '&', '|':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return ""
	}

	first := fields[0]
	segments := strings.FieldsFunc(first, func(ch rune) bool {
		return ch == '/' || ch == '\\'
	})
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
