package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/nextlevelbuilder/mogzi/internal/agent"
	"github.com/nextlevelbuilder/mogzi/internal/config"
	"github.com/nextlevelbuilder/mogzi/internal/providers"
	"github.com/nextlevelbuilder/mogzi/internal/sessions"
	"github.com/nextlevelbuilder/mogzi/internal/tools"
)

// State is the top-level TUI state.
type State int

const (
	StateInput State = iota
	StateThinking
	StateToolExecution
	StateUserSelection
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// App runs the interactive chat session: key handling, state transitions,
// scrollback rendering and turn lifecycle.
type App struct {
	cfg     *config.Config
	client  providers.Client
	store   *sessions.Store
	history *sessions.HistoryManager
	loop    *agent.Loop

	term     *Terminal
	editor   *Editor
	commands *CommandSet

	mu          sync.Mutex
	state       State
	currentTool string
	spinner     int

	events   chan agent.Event
	keys     chan KeyEvent
	turnDone chan error
	confirms chan shellConfirm

	turnCancel   context.CancelFunc
	onPick       func(value string)
	onPickCancel func()
	// Completed messages already flushed to the scrollback.
	printed  int
	quitting bool
}

// shellConfirm asks the user whether a new shell root token may run. The
// turn goroutine blocks on reply.
type shellConfirm struct {
	token   string
	command string
	reply   chan bool
}

// Options configures App construction.
type Options struct {
	Config       *config.Config
	Client       providers.Client
	Store        *sessions.Store
	History      *sessions.HistoryManager
	Registry     *tools.Registry
	SystemPrompt string
}

func NewApp(opts Options) *App {
	a := &App{
		cfg:      opts.Config,
		client:   opts.Client,
		store:    opts.Store,
		history:  opts.History,
		commands: &CommandSet{},
		events:   make(chan agent.Event, 16),
		keys:     make(chan KeyEvent, 16),
		turnDone: make(chan error, 1),
		confirms: make(chan shellConfirm),
		term:     NewTerminal(os.Stdout),
	}
	a.editor = NewEditor(a.commands)
	if opts.Registry != nil {
		opts.Registry.SetShellConfirmer(a.confirmShellRoot)
	}
	a.loop = agent.NewLoop(agent.Config{
		Client:       opts.Client,
		Tools:        opts.Registry,
		History:      opts.History,
		SystemPrompt: opts.SystemPrompt,
		OnEvent:      func(evt agent.Event) { a.events <- evt },
	})
	a.registerCommands()
	return a
}

// Run drives the UI until exit. initialText pre-fills the editor;
// autoSubmit submits it immediately.
func (a *App) Run(ctx context.Context, initialText string, autoSubmit bool) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	a.term.Initialize()
	defer a.term.Shutdown()

	a.banner()
	a.replayHistory()
	a.term.StartDynamic(a.renderDynamic)

	go a.readKeys(ctx)

	if initialText != "" {
		if autoSubmit {
			a.handleSubmit(initialText)
		} else {
			a.mu.Lock()
			a.editor.SetText(initialText)
			a.mu.Unlock()
		}
	}

	for {
		if a.quitting {
			a.cancelTurn()
			return nil
		}
		select {
		case <-ctx.Done():
			a.cancelTurn()
			return nil
		case evt := <-a.keys:
			a.onKey(evt)
		case evt := <-a.events:
			a.onAgentEvent(evt)
		case req := <-a.confirms:
			a.onShellConfirm(req)
		case err := <-a.turnDone:
			a.onTurnDone(err)
		}
	}
}

func (a *App) readKeys(ctx context.Context) {
	reader := NewKeyReader(os.Stdin)
	for {
		evt, err := reader.Read()
		if err != nil {
			return
		}
		select {
		case a.keys <- evt:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *App) getState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) banner() {
	sess := a.history.Session()
	a.term.WriteStatic(fmt.Sprintf(
		"\x1b[1mmogzi\x1b[0m  model %s  session %s\nType /help for commands.\n",
		a.client.Model(), shortID(sess.ID)), false)
}

// replayHistory prints an already-loaded session into the scrollback.
func (a *App) replayHistory() {
	a.flushCompleted()
}

// flushCompleted writes completed messages not yet shown to the scrollback.
func (a *App) flushCompleted() {
	completed, _ := a.history.View()
	for ; a.printed < len(completed); a.printed++ {
		if line := renderMessage(completed[a.printed]); line != "" {
			a.term.WriteStatic(line, false)
		}
	}
}

func renderMessage(m sessions.Message) string {
	switch m.Role {
	case providers.RoleUser:
		return "\x1b[1;36mYou\x1b[0m  " + m.Content + "\n"
	case providers.RoleAssistant:
		if len(m.FunctionCalls) > 0 {
			var b strings.Builder
			for _, call := range m.FunctionCalls {
				fmt.Fprintf(&b, "\x1b[33m⚙ %s\x1b[0m\n", call.Name)
			}
			return b.String()
		}
		return "\x1b[1;32mmogzi\x1b[0m\n" + m.Content + "\n"
	case providers.RoleTool:
		if strings.Contains(m.Content, `status="FAILED"`) {
			return "\x1b[31m  ✗ tool failed\x1b[0m\n"
		}
		return "\x1b[90m  ✓ done\x1b[0m\n"
	}
	return ""
}

// renderDynamic paints the live region for the current state. Called from
// the terminal's repaint goroutine; the mutex also covers the editor, which
// the main loop mutates through HandleKey.
func (a *App) renderDynamic() string {
	a.mu.Lock()
	state := a.state
	tool := a.currentTool
	a.spinner++
	frame := spinnerFrames[a.spinner%len(spinnerFrames)]
	editorView := a.editor.Render()
	a.mu.Unlock()

	footer := "\x1b[90m" + Footer(a.history.Metrics(), a.client.ContextWindow()) + "\x1b[0m\n"

	switch state {
	case StateInput, StateUserSelection:
		return editorView + footer
	case StateThinking:
		tail := pendingTail(a.history, 6)
		return tail + frame + " Thinking... \x1b[90m(Esc to cancel)\x1b[0m\n" + footer
	case StateToolExecution:
		return fmt.Sprintf("%s Running \x1b[33m%s\x1b[0m...\n%s", frame, tool, footer)
	}
	return footer
}

// pendingTail renders the last lines of the streaming assistant message.
func pendingTail(h *sessions.HistoryManager, maxLines int) string {
	_, pending := h.View()
	if pending == nil || pending.Content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(pending.Content, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n") + "\n"
}

func (a *App) onKey(evt KeyEvent) {
	switch a.getState() {
	case StateThinking, StateToolExecution:
		if evt.Key == KeyCtrlC || evt.Key == KeyEsc {
			a.cancelTurn()
		}
		return
	}

	a.mu.Lock()
	if evt.Key == KeyCtrlC && !a.editor.InPicker() {
		a.editor.SetText("")
		a.mu.Unlock()
		return
	}
	res := a.editor.HandleKey(evt)
	a.mu.Unlock()
	switch res.Action {
	case ActSubmit:
		a.handleSubmit(res.Text)
	case ActPicked:
		pick := a.onPick
		a.onPick, a.onPickCancel = nil, nil
		a.setState(StateInput)
		if pick != nil {
			pick(res.Text)
		}
	case ActPickCancelled:
		cancel := a.onPickCancel
		a.onPick, a.onPickCancel = nil, nil
		a.setState(StateInput)
		if cancel != nil {
			cancel()
		}
	case ActExit:
		a.quitting = true
	case ActClearScreen:
		a.redraw()
	}
}

// redraw repaints the whole scrollback from history.
func (a *App) redraw() {
	a.term.Initialize()
	a.printed = 0
	a.banner()
	a.flushCompleted()
}

func (a *App) handleSubmit(text string) {
	if handled, err := a.commands.Dispatch(text); handled {
		if err != nil {
			a.term.WriteStatic("\x1b[31m"+err.Error()+"\x1b[0m\n", false)
		}
		return
	}

	a.term.WriteStatic("\x1b[1;36mYou\x1b[0m  "+text+"\n", false)
	completed, _ := a.history.View()
	// The orchestrator appends the user message itself; skip it on flush.
	a.printed = len(completed) + 1

	ctx, cancel := context.WithCancel(context.Background())
	a.turnCancel = cancel
	a.setState(StateThinking)

	go func() {
		a.turnDone <- a.loop.RunTurn(ctx, text)
	}()
}

func (a *App) cancelTurn() {
	if a.turnCancel != nil {
		a.turnCancel()
	}
}

func (a *App) onAgentEvent(evt agent.Event) {
	a.flushCompleted()
	switch evt.Type {
	case agent.EventToolStarted:
		a.mu.Lock()
		a.currentTool = evt.ToolName
		a.state = StateToolExecution
		a.mu.Unlock()
	case agent.EventToolFinished:
		a.setState(StateThinking)
	case agent.EventTaskComplete:
		a.term.WriteStatic("\x1b[1;32m✔ Task completed.\x1b[0m\n", false)
	}
}

func (a *App) onTurnDone(err error) {
	if a.turnCancel != nil {
		a.turnCancel()
		a.turnCancel = nil
	}
	a.flushCompleted()
	a.setState(StateInput)
	switch {
	case err == nil:
	case err == context.Canceled:
		a.term.WriteStatic("\x1b[90m(cancelled)\x1b[0m\n", false)
	default:
		slog.Error("turn failed", "error", err)
		a.term.WriteStatic("\x1b[31mError: "+err.Error()+"\x1b[0m\n", false)
	}
}

// openPicker enters UserSelection; onPick runs on the main loop when the
// user confirms, onCancel (optional) when the picker is dismissed.
func (a *App) openPicker(p *Picker, onPick func(value string), onCancel func()) {
	a.mu.Lock()
	a.onPick = onPick
	a.onPickCancel = onCancel
	a.editor.OpenPicker(p)
	a.state = StateUserSelection
	a.mu.Unlock()
}

// confirmShellRoot bridges the registry's synchronous confirmation hook to
// the picker. Runs on the turn goroutine and blocks until the user answers.
func (a *App) confirmShellRoot(token, command string) bool {
	req := shellConfirm{token: token, command: command, reply: make(chan bool, 1)}
	a.confirms <- req
	return <-req.reply
}

// onShellConfirm asks the user whether a new shell root may run. Dismissing
// the picker denies the command.
func (a *App) onShellConfirm(req shellConfirm) {
	a.openPicker(&Picker{
		Title: fmt.Sprintf("Allow shell commands rooted at %q?", req.token),
		Options: []PickerOption{
			{Label: "Allow", Detail: truncate(req.command, 60), Value: "allow"},
			{Label: "Deny", Detail: "reject this command", Value: "deny"},
		},
	}, func(value string) {
		req.reply <- value == "allow"
		a.setState(StateToolExecution)
	}, func() {
		req.reply <- false
		a.setState(StateToolExecution)
	})
}

func (a *App) registerCommands() {
	a.commands.Register(Command{
		Name: "/help", Help: "show available commands",
		Run: func([]string) error {
			a.term.WriteStatic(a.commands.HelpTable(), false)
			return nil
		},
	})
	exit := func([]string) error {
		a.quitting = true
		return nil
	}
	a.commands.Register(Command{Name: "/exit", Help: "leave the chat", Run: exit})
	a.commands.Register(Command{Name: "/quit", Help: "leave the chat", Run: exit})
	a.commands.Register(Command{
		Name: "/clear", Help: "clear the screen",
		Run: func([]string) error {
			a.term.Initialize()
			completed, _ := a.history.View()
			a.printed = len(completed)
			a.banner()
			return nil
		},
	})
	a.commands.Register(Command{
		Name: "/tool-approvals", Help: "switch between readonly and all tool approvals",
		Run: func([]string) error {
			a.openPicker(&Picker{
				Title: "Tool approvals",
				Options: []PickerOption{
					{Label: "readonly", Detail: "mutating tools are rejected", Value: string(config.ApprovalReadonly)},
					{Label: "all", Detail: "every tool may run", Value: string(config.ApprovalAll)},
				},
			}, func(value string) {
				a.cfg.SetApprovals(config.ApprovalMode(value))
				a.term.WriteStatic("Tool approvals set to "+value+".\n", false)
			}, nil)
			return nil
		},
	})
	a.commands.Register(Command{
		Name: "/session list", Help: "pick a recent session to load",
		Run:  a.cmdSessionList,
	})
	a.commands.Register(Command{
		Name: "/session clear", Help: "erase this session's history",
		Run: func([]string) error {
			if err := a.store.Clear(a.history.Session()); err != nil {
				return err
			}
			a.history.Swap(a.history.Session())
			a.redraw()
			return nil
		},
	})
	a.commands.Register(Command{
		Name: "/session rename", Help: "rename this session",
		ContinuesInput: true,
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: /session rename <name>")
			}
			name := strings.Join(args, " ")
			if err := a.store.Rename(a.history.Session(), name); err != nil {
				return err
			}
			a.term.WriteStatic("Session renamed to "+name+".\n", false)
			return nil
		},
	})
}

func (a *App) cmdSessionList([]string) error {
	headers, err := a.store.List(a.cfg.SessionListLimit())
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		a.term.WriteStatic("No sessions yet.\n", false)
		return nil
	}
	opts := make([]PickerOption, 0, len(headers))
	for _, h := range headers {
		label := h.Name
		if label == "" {
			label = shortID(h.ID)
		}
		detail := h.LastModifiedAt.Local().Format("2006-01-02 15:04")
		if h.InitialPrompt != "" {
			detail += "  " + truncate(h.InitialPrompt, 40)
		}
		opts = append(opts, PickerOption{Label: label, Detail: detail, Value: h.ID})
	}
	a.openPicker(&Picker{Title: "Recent sessions", Options: opts}, func(id string) {
		sess, err := a.store.Load(id)
		if err != nil {
			a.term.WriteStatic("\x1b[31m"+err.Error()+"\x1b[0m\n", false)
			return
		}
		a.history.Swap(sess)
		a.redraw()
	}, nil)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
