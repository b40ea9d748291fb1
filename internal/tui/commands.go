package tui

import (
	"fmt"
	"sort"
	"strings"
)

// Command is one slash command. Handlers run entirely inside the TUI; a
// slash command never produces a model request.
type Command struct {
	Name string
	Help string
	// ContinuesInput marks commands whose argument is typed after the
	// suggestion is accepted: the editor is refilled with "name " instead
	// of running the handler.
	ContinuesInput bool
	Run            func(args []string) error
}

// CommandSet is the slash command registry.
type CommandSet struct {
	cmds []Command
}

func (c *CommandSet) Register(cmd Command) {
	c.cmds = append(c.cmds, cmd)
	sort.Slice(c.cmds, func(i, j int) bool { return c.cmds[i].Name < c.cmds[j].Name })
}

// Match returns the commands whose name starts with the typed prefix,
// case-insensitive.
func (c *CommandSet) Match(prefix string) []Command {
	prefix = strings.ToLower(prefix)
	var out []Command
	for _, cmd := range c.cmds {
		if strings.HasPrefix(strings.ToLower(cmd.Name), prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// Dispatch runs the command matching the submitted line. It reports whether
// the line was a slash command at all; unknown commands are handled with an
// error so they still never reach the model.
func (c *CommandSet) Dispatch(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return false, nil
	}
	// Longest name wins so "/session rename" beats a hypothetical "/session".
	var best *Command
	for i := range c.cmds {
		cmd := &c.cmds[i]
		if line == cmd.Name || strings.HasPrefix(line, cmd.Name+" ") {
			if best == nil || len(cmd.Name) > len(best.Name) {
				best = cmd
			}
		}
	}
	if best == nil {
		return true, fmt.Errorf("unknown command %q, try /help", strings.Fields(line)[0])
	}
	args := strings.Fields(strings.TrimPrefix(line, best.Name))
	return true, best.Run(args)
}

// HelpTable renders the command list for /help.
func (c *CommandSet) HelpTable() string {
	width := 0
	for _, cmd := range c.cmds {
		if len(cmd.Name) > width {
			width = len(cmd.Name)
		}
	}
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range c.cmds {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, cmd.Name, cmd.Help)
	}
	return b.String()
}
