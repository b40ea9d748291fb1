package tui

import (
	"testing"
)

func typeString(e *Editor, s string) EditorResult {
	var res EditorResult
	for _, r := range s {
		res = e.HandleKey(KeyEvent{Key: KeyRune, Rune: r})
	}
	return res
}

func newTestEditor() *Editor {
	var ran []string
	return NewEditor(testCommandSet(&ran))
}

func TestEditor_TypeAndSubmit(t *testing.T) {
	e := newTestEditor()
	typeString(e, "hello world")

	res := e.HandleKey(KeyEvent{Key: KeyEnter})
	if res.Action != ActSubmit || res.Text != "hello world" {
		t.Fatalf("submit = %+v", res)
	}
	if e.Text() != "" {
		t.Errorf("buffer not cleared: %q", e.Text())
	}
}

func TestEditor_CursorEditing(t *testing.T) {
	e := newTestEditor()
	typeString(e, "abd")
	e.HandleKey(KeyEvent{Key: KeyLeft})
	typeString(e, "c")
	if e.Text() != "abcd" {
		t.Errorf("text = %q, want abcd", e.Text())
	}

	e.HandleKey(KeyEvent{Key: KeyHome})
	e.HandleKey(KeyEvent{Key: KeyDelete})
	if e.Text() != "bcd" {
		t.Errorf("text = %q, want bcd", e.Text())
	}

	e.HandleKey(KeyEvent{Key: KeyEnd})
	e.HandleKey(KeyEvent{Key: KeyBackspace})
	if e.Text() != "bc" {
		t.Errorf("text = %q, want bc", e.Text())
	}
}

func TestEditor_SlashEntersAutocomplete(t *testing.T) {
	e := newTestEditor()
	typeString(e, "/se")
	if e.mode != modeAutocomplete {
		t.Fatalf("mode = %v, want autocomplete", e.mode)
	}
	if len(e.suggestions) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(e.suggestions))
	}

	// Esc dismisses but keeps the text.
	e.HandleKey(KeyEvent{Key: KeyEsc})
	if e.mode != modeNormal || e.Text() != "/se" {
		t.Errorf("after Esc: mode %v text %q", e.mode, e.Text())
	}

	// The popup stays dismissed until the next edit.
	e.HandleKey(KeyEvent{Key: KeyLeft})
	if e.mode != modeNormal {
		t.Error("popup reappeared without an edit")
	}
	typeString(e, "s")
	if e.mode != modeAutocomplete {
		t.Error("popup did not return after typing")
	}
}

func TestEditor_TabAcceptsSuggestion(t *testing.T) {
	e := newTestEditor()
	typeString(e, "/he")

	res := e.HandleKey(KeyEvent{Key: KeyTab})
	if res.Action != ActSubmit || res.Text != "/help" {
		t.Fatalf("tab accept = %+v", res)
	}
}

func TestEditor_EnterWithSingleMatchAccepts(t *testing.T) {
	e := newTestEditor()
	typeString(e, "/ex")

	res := e.HandleKey(KeyEvent{Key: KeyEnter})
	if res.Action != ActSubmit || res.Text != "/exit" {
		t.Fatalf("enter accept = %+v", res)
	}
}

func TestEditor_InputContinuation(t *testing.T) {
	e := newTestEditor()
	typeString(e, "/session ren")

	res := e.HandleKey(KeyEvent{Key: KeyTab})
	if res.Action != ActNone {
		t.Fatalf("continuation submitted early: %+v", res)
	}
	if e.Text() != "/session rename " {
		t.Fatalf("editor text = %q, want command plus trailing space", e.Text())
	}
	if e.mode != modeNormal {
		t.Fatalf("mode = %v, want normal", e.mode)
	}

	typeString(e, "my-project")
	res = e.HandleKey(KeyEvent{Key: KeyEnter})
	if res.Action != ActSubmit || res.Text != "/session rename my-project" {
		t.Errorf("final submit = %+v", res)
	}
}

func TestEditor_HistoryNavigation(t *testing.T) {
	e := newTestEditor()
	typeString(e, "first")
	e.HandleKey(KeyEvent{Key: KeyEnter})
	typeString(e, "second")
	e.HandleKey(KeyEvent{Key: KeyEnter})

	typeString(e, "dra")
	e.HandleKey(KeyEvent{Key: KeyUp})
	if e.Text() != "second" {
		t.Fatalf("up = %q, want second", e.Text())
	}
	e.HandleKey(KeyEvent{Key: KeyUp})
	if e.Text() != "first" {
		t.Fatalf("up up = %q, want first", e.Text())
	}
	e.HandleKey(KeyEvent{Key: KeyDown})
	e.HandleKey(KeyEvent{Key: KeyDown})
	if e.Text() != "dra" {
		t.Errorf("draft not restored: %q", e.Text())
	}
}

func TestEditor_PickerSubState(t *testing.T) {
	e := newTestEditor()
	e.OpenPicker(&Picker{
		Title: "Pick one",
		Options: []PickerOption{
			{Label: "a", Value: "va"},
			{Label: "b", Value: "vb"},
		},
	})
	if !e.InPicker() {
		t.Fatal("picker not active")
	}

	e.HandleKey(KeyEvent{Key: KeyDown})
	res := e.HandleKey(KeyEvent{Key: KeyEnter})
	if res.Action != ActPicked || res.Text != "vb" {
		t.Fatalf("pick = %+v", res)
	}
	if e.InPicker() {
		t.Error("picker still active after selection")
	}
}

func TestEditor_PickerEscCancels(t *testing.T) {
	e := newTestEditor()
	e.OpenPicker(&Picker{Options: []PickerOption{{Label: "a", Value: "va"}}})

	res := e.HandleKey(KeyEvent{Key: KeyEsc})
	if res.Action != ActPickCancelled {
		t.Fatalf("esc = %+v", res)
	}
	if e.InPicker() {
		t.Error("picker still active after Esc")
	}
}

func TestEditor_CtrlDExitsOnlyWhenEmpty(t *testing.T) {
	e := newTestEditor()
	typeString(e, "x")
	if res := e.HandleKey(KeyEvent{Key: KeyCtrlD}); res.Action == ActExit {
		t.Error("Ctrl-D exited with text in the buffer")
	}
	e.HandleKey(KeyEvent{Key: KeyBackspace})
	if res := e.HandleKey(KeyEvent{Key: KeyCtrlD}); res.Action != ActExit {
		t.Error("Ctrl-D on empty buffer did not exit")
	}
}
