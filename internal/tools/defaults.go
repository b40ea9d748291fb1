package tools

import "github.com/nextlevelbuilder/mogzi/internal/config"

// DefaultRegistry wires up the built-in tool set over one working root.
func DefaultRegistry(cfg *config.Config, guard *Guard) *Registry {
	r := NewRegistry(cfg)
	r.Register(NewReadFileTool(guard))
	r.Register(NewListFilesTool(guard))
	r.Register(NewWriteFileTool(guard))
	r.Register(NewReplaceTool(guard))
	r.Register(NewReplaceInFileTool(guard))
	r.Register(NewReadImageFileTool(guard))
	r.Register(NewRunShellCommandTool(guard, r))
	r.Register(NewAttemptCompletionTool())
	return r
}
