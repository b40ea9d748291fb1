package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

var ansiEscapes = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07`)

// RunShellCommandTool executes a command through the platform shell with
// concurrent stdout/stderr capture. Non-zero exit codes are not failures;
// they are reported in the envelope for the model to interpret.
type RunShellCommandTool struct {
	guard    *Guard
	registry *Registry
}

func NewRunShellCommandTool(guard *Guard, registry *Registry) *RunShellCommandTool {
	return &RunShellCommandTool{guard: guard, registry: registry}
}

func (t *RunShellCommandTool) Name() string  { return "run_shell_command" }
func (t *RunShellCommandTool) Mutates() bool { return true }

func (t *RunShellCommandTool) Description() string {
	return "Execute a shell command inside the working root and return its exit code and output. No TTY is allocated and no interactive input is possible."
}

func (t *RunShellCommandTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_directory": map[string]any{
				"type":        "string",
				"description": "Optional working directory relative to the working root",
			},
		},
		"required": []string{"command"},
	}
}

func (t *RunShellCommandTool) Execute(ctx context.Context, args map[string]any) *Response {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return Failed(t.Name(), "BadArgument: command is required")
	}

	cwd := t.guard.Root()
	if wd, _ := args["working_directory"].(string); strings.TrimSpace(wd) != "" {
		resolved, err := t.guard.Resolve(wd)
		if err != nil {
			return FailedErr(t.Name(), err)
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return Failed(t.Name(), "BadArgument: working_directory %s does not exist", wd)
		}
		cwd = resolved
	}

	if t.registry != nil {
		if err := t.registry.AuthorizeShell(command); err != nil {
			return FailedErr(t.Name(), err)
		}
	}

	shell, flag := platformShell()
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Dir = cwd
	configureProcAttr(cmd)
	cmd.Cancel = func() error { return terminateProcessTree(cmd) }

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Failed(t.Name(), "IO: %v", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Failed(t.Name(), "IO: %v", err)
	}

	if err := cmd.Start(); err != nil {
		return Failed(t.Name(), "IO: failed to start command: %v", err)
	}
	pid := cmd.Process.Pid

	// Capture both pipes concurrently so neither can block the process.
	type captured struct {
		data []byte
		err  error
	}
	outCh := make(chan captured, 1)
	errCh := make(chan captured, 1)
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutPipe)
		outCh <- captured{buf.Bytes(), err}
	}()
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrPipe)
		errCh <- captured{buf.Bytes(), err}
	}()

	stdout := <-outCh
	stderr := <-errCh
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return Failed(t.Name(), "Cancelled: command was cancelled")
	}

	exitCode := 0
	if waitErr != nil {
		if ee, ok := waitErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			return Failed(t.Name(), "IO: %v", waitErr)
		}
	}

	outText := stripANSI(string(stdout.data))
	errText := stripANSI(string(stderr.data))

	var combined strings.Builder
	combined.WriteString(outText)
	if errText != "" {
		if combined.Len() > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(errText)
	}

	resp := Success(t.Name()).
		Note("Exit code: %d", exitCode).
		Note("Process id: %d", pid)
	if outText != "" {
		resp.Note("Stdout: %d bytes", len(outText))
	}
	if errText != "" {
		resp.Note("Stderr: %d bytes", len(errText))
	}
	if exitCode != 0 {
		resp.Note("Command exited with non-zero status")
	}

	body := combined.String()
	if body == "" {
		body = "(command completed with no output)"
	}
	if errText != "" && outText != "" {
		body = fmt.Sprintf("%s\nSTDERR:\n%s", outText, errText)
	} else if errText != "" {
		body = "STDERR:\n" + errText
	}
	return resp.WithContent(body)
}

func platformShell() (shell, flag string) {
	switch runtime.GOOS {
	case "windows":
		return "cmd.exe", "/c"
	case "darwin":
		return "/bin/zsh", "-c"
	default:
		return "/bin/bash", "-c"
	}
}

func stripANSI(s string) string {
	return ansiEscapes.ReplaceAllString(s, "")
}
