package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Action is what the editor asks the application to do after a key press.
type Action int

const (
	ActNone Action = iota
	// ActSubmit: Text holds the submitted line.
	ActSubmit
	// ActPicked: Text holds the selected picker value.
	ActPicked
	// ActPickCancelled: the picker was dismissed with Esc.
	ActPickCancelled
	// ActExit: Ctrl-D on an empty line.
	ActExit
	// ActClearScreen: Ctrl-L.
	ActClearScreen
)

// EditorResult is the outcome of one key press.
type EditorResult struct {
	Action Action
	Text   string
}

// editorMode is the editor's own sub-state.
type editorMode int

const (
	modeNormal editorMode = iota
	modeAutocomplete
	modeSelect
)

// Editor is the single-line input editor with emacs-style movement, input
// history, slash-command autocomplete and an embedded picker sub-state.
type Editor struct {
	commands *CommandSet

	buf    []rune
	cursor int

	history []string
	histIdx int
	draft   []rune

	mode        editorMode
	suggestions []Command
	selIdx      int
	acDismissed bool

	picker *Picker
}

func NewEditor(commands *CommandSet) *Editor {
	return &Editor{commands: commands}
}

// Text returns the current buffer contents.
func (e *Editor) Text() string { return string(e.buf) }

// SetText replaces the buffer and moves the cursor to the end.
func (e *Editor) SetText(s string) {
	e.buf = []rune(s)
	e.cursor = len(e.buf)
	e.refreshSuggestions()
}

// OpenPicker switches the editor into its selection sub-state.
func (e *Editor) OpenPicker(p *Picker) {
	e.picker = p
	e.mode = modeSelect
}

// InPicker reports whether the selection sub-state is active.
func (e *Editor) InPicker() bool { return e.mode == modeSelect }

// HandleKey processes one key event and returns the resulting action.
func (e *Editor) HandleKey(evt KeyEvent) EditorResult {
	if e.mode == modeSelect {
		return e.handlePickerKey(evt)
	}

	switch evt.Key {
	case KeyRune:
		if evt.Rune == 0 {
			return EditorResult{}
		}
		e.insert(evt.Rune)
	case KeyBackspace:
		if e.cursor > 0 {
			e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
			e.cursor--
			e.refreshSuggestions()
		}
	case KeyDelete:
		if e.cursor < len(e.buf) {
			e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
			e.refreshSuggestions()
		}
	case KeyLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case KeyRight:
		if e.cursor < len(e.buf) {
			e.cursor++
		}
	case KeyHome, KeyCtrlA:
		e.cursor = 0
	case KeyEnd, KeyCtrlE:
		e.cursor = len(e.buf)
	case KeyCtrlU:
		e.buf = append([]rune{}, e.buf[e.cursor:]...)
		e.cursor = 0
		e.refreshSuggestions()
	case KeyCtrlK:
		e.buf = e.buf[:e.cursor]
		e.refreshSuggestions()
	case KeyCtrlW:
		e.deleteWordBack()
	case KeyCtrlL:
		return EditorResult{Action: ActClearScreen}
	case KeyCtrlD:
		if len(e.buf) == 0 {
			return EditorResult{Action: ActExit}
		}
	case KeyUp:
		if e.mode == modeAutocomplete {
			e.moveSelection(-1)
		} else {
			e.historyPrev()
		}
	case KeyDown:
		if e.mode == modeAutocomplete {
			e.moveSelection(1)
		} else {
			e.historyNext()
		}
	case KeyTab:
		if e.mode == modeAutocomplete && len(e.suggestions) > 0 {
			return e.acceptSuggestion(e.suggestions[e.selIdx])
		}
	case KeyEsc:
		if e.mode == modeAutocomplete {
			e.mode = modeNormal
			e.suggestions = nil
			e.acDismissed = true
		}
	case KeyEnter:
		if e.mode == modeAutocomplete && len(e.suggestions) == 1 {
			return e.acceptSuggestion(e.suggestions[0])
		}
		return e.submit()
	}
	return EditorResult{}
}

func (e *Editor) handlePickerKey(evt KeyEvent) EditorResult {
	switch evt.Key {
	case KeyUp:
		e.picker.Move(-1)
	case KeyDown:
		e.picker.Move(1)
	case KeyEnter:
		value := e.picker.Selected()
		e.closePicker()
		return EditorResult{Action: ActPicked, Text: value}
	case KeyEsc, KeyCtrlC:
		e.closePicker()
		return EditorResult{Action: ActPickCancelled}
	}
	return EditorResult{}
}

func (e *Editor) closePicker() {
	e.picker = nil
	e.mode = modeNormal
}

func (e *Editor) insert(r rune) {
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
	e.acDismissed = false
	e.refreshSuggestions()
}

func (e *Editor) deleteWordBack() {
	i := e.cursor
	for i > 0 && e.buf[i-1] == ' ' {
		i--
	}
	for i > 0 && e.buf[i-1] != ' ' {
		i--
	}
	e.buf = append(e.buf[:i], e.buf[e.cursor:]...)
	e.cursor = i
	e.refreshSuggestions()
}

// refreshSuggestions recomputes the autocomplete state after any edit. Input
// starting with "/" enters Autocomplete whenever at least one command
// matches, unless the user dismissed the popup with Esc.
func (e *Editor) refreshSuggestions() {
	text := string(e.buf)
	if !strings.HasPrefix(text, "/") || e.acDismissed {
		e.mode = modeNormal
		e.suggestions = nil
		return
	}
	e.suggestions = e.commands.Match(text)
	if len(e.suggestions) == 0 {
		e.mode = modeNormal
		return
	}
	e.mode = modeAutocomplete
	if e.selIdx >= len(e.suggestions) {
		e.selIdx = 0
	}
}

func (e *Editor) moveSelection(delta int) {
	e.selIdx += delta
	if e.selIdx < 0 {
		e.selIdx = 0
	}
	if e.selIdx >= len(e.suggestions) {
		e.selIdx = len(e.suggestions) - 1
	}
}

// acceptSuggestion resolves Tab (or single-match Enter) on a suggestion.
// Input-continuation commands refill the editor with "name " and return to
// Normal; everything else submits immediately.
func (e *Editor) acceptSuggestion(cmd Command) EditorResult {
	e.suggestions = nil
	e.selIdx = 0
	e.mode = modeNormal
	if cmd.ContinuesInput {
		e.buf = []rune(cmd.Name + " ")
		e.cursor = len(e.buf)
		return EditorResult{}
	}
	e.buf = nil
	e.cursor = 0
	e.pushHistory(cmd.Name)
	return EditorResult{Action: ActSubmit, Text: cmd.Name}
}

func (e *Editor) submit() EditorResult {
	text := strings.TrimSpace(string(e.buf))
	e.buf = nil
	e.cursor = 0
	e.mode = modeNormal
	e.suggestions = nil
	e.acDismissed = false
	if text == "" {
		return EditorResult{}
	}
	e.pushHistory(text)
	return EditorResult{Action: ActSubmit, Text: text}
}

func (e *Editor) pushHistory(text string) {
	if n := len(e.history); n == 0 || e.history[n-1] != text {
		e.history = append(e.history, text)
	}
	e.histIdx = len(e.history)
	e.draft = nil
}

func (e *Editor) historyPrev() {
	if e.histIdx == 0 || len(e.history) == 0 {
		return
	}
	if e.histIdx == len(e.history) {
		e.draft = append([]rune{}, e.buf...)
	}
	e.histIdx--
	e.buf = []rune(e.history[e.histIdx])
	e.cursor = len(e.buf)
}

func (e *Editor) historyNext() {
	if e.histIdx >= len(e.history) {
		return
	}
	e.histIdx++
	if e.histIdx == len(e.history) {
		e.buf = append([]rune{}, e.draft...)
	} else {
		e.buf = []rune(e.history[e.histIdx])
	}
	e.cursor = len(e.buf)
}

// Render draws the prompt line (cursor shown as a reverse-video cell) plus
// the autocomplete popup or picker when active.
func (e *Editor) Render() string {
	if e.mode == modeSelect && e.picker != nil {
		return e.picker.Render()
	}

	var b strings.Builder
	b.WriteString("> ")
	for i, r := range e.buf {
		if i == e.cursor {
			b.WriteString("\x1b[7m" + string(r) + "\x1b[0m")
		} else {
			b.WriteRune(r)
		}
	}
	if e.cursor == len(e.buf) {
		b.WriteString("\x1b[7m \x1b[0m")
	}
	b.WriteString("\n")

	if e.mode == modeAutocomplete {
		nameWidth := 0
		for _, cmd := range e.suggestions {
			if w := runewidth.StringWidth(cmd.Name); w > nameWidth {
				nameWidth = w
			}
		}
		for i, cmd := range e.suggestions {
			line := fmt.Sprintf("%s  %s", runewidth.FillRight(cmd.Name, nameWidth), cmd.Help)
			if i == e.selIdx {
				b.WriteString("\x1b[7m> " + line + "\x1b[0m\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
	}
	return b.String()
}
