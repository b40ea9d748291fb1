package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PickerOption is one selectable row.
type PickerOption struct {
	Label  string
	Detail string
	Value  string
}

// Picker is an interactive list selection rendered in the live region. It is
// a sub-state of the editor, not a separate modal: the selected value is
// handed back to the command handler as if the user had typed it.
type Picker struct {
	Title   string
	Options []PickerOption
	idx     int
}

// Move shifts the highlight by delta, clamped to the list.
func (p *Picker) Move(delta int) {
	p.idx += delta
	if p.idx < 0 {
		p.idx = 0
	}
	if p.idx >= len(p.Options) {
		p.idx = len(p.Options) - 1
	}
}

// Selected returns the highlighted option's value.
func (p *Picker) Selected() string {
	if len(p.Options) == 0 {
		return ""
	}
	return p.Options[p.idx].Value
}

func (p *Picker) Render() string {
	var b strings.Builder
	b.WriteString(p.Title + "\n")
	labelWidth := 0
	for _, opt := range p.Options {
		if w := runewidth.StringWidth(opt.Label); w > labelWidth {
			labelWidth = w
		}
	}
	for i, opt := range p.Options {
		line := runewidth.FillRight(opt.Label, labelWidth)
		if opt.Detail != "" {
			line += "  " + opt.Detail
		}
		if i == p.idx {
			b.WriteString("\x1b[7m> " + line + "\x1b[0m\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("(Up/Down to move, Enter to select, Esc to cancel)\n")
	return b.String()
}
