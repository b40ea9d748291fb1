package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const dynamicInterval = 33 * time.Millisecond

// Terminal manages a scrollback display: an append-only static region plus
// at most one live region at the bottom that is rewritten in place. All
// writes go through the terminal so cursor bookkeeping stays consistent.
type Terminal struct {
	out io.Writer

	mu        sync.Mutex
	liveLines int
	provider  func() string
	stop      chan struct{}
	stopped   sync.WaitGroup
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Initialize clears the screen and hides the cursor.
func (t *Terminal) Initialize() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, "\x1b[2J\x1b[H\x1b[?25l")
}

// Shutdown stops the dynamic loop and restores the cursor.
func (t *Terminal) Shutdown() {
	t.stopDynamic()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLiveLocked()
	fmt.Fprint(t.out, "\x1b[?25h")
}

// WriteStatic appends content to the scrollback. Non-updatable content
// scrolls away permanently; updatable content replaces any previous
// updatable content and will itself be replaced by the next write.
func (t *Terminal) WriteStatic(content string, updatable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLiveLocked()
	if content == "" {
		return
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	// Raw mode disables output post-processing, so LF needs an explicit CR.
	fmt.Fprint(t.out, strings.ReplaceAll(content, "\n", "\r\n"))
	if updatable {
		t.liveLines = strings.Count(content, "\n")
	} else if t.provider != nil {
		t.paintLocked(t.provider())
	}
}

// StartDynamic begins repainting the live region from the provider at
// roughly 30 Hz until StopDynamic or Shutdown.
func (t *Terminal) StartDynamic(provider func() string) {
	t.stopDynamic()
	t.mu.Lock()
	t.provider = provider
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	t.stopped.Add(1)
	go func() {
		defer t.stopped.Done()
		ticker := time.NewTicker(dynamicInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.Refresh()
			}
		}
	}()
}

// StopDynamic halts the repaint loop and erases the live region.
func (t *Terminal) StopDynamic() {
	t.stopDynamic()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.provider = nil
	t.clearLiveLocked()
}

func (t *Terminal) stopDynamic() {
	t.mu.Lock()
	stop := t.stop
	t.stop = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
		t.stopped.Wait()
	}
}

// Refresh repaints the live region immediately. The provider runs outside
// the terminal lock so it may take its own locks freely.
func (t *Terminal) Refresh() {
	t.mu.Lock()
	provider := t.provider
	t.mu.Unlock()
	if provider == nil {
		return
	}
	content := provider()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider == nil {
		return
	}
	t.paintLocked(content)
}

func (t *Terminal) paintLocked(content string) {
	t.clearLiveLocked()
	if content == "" {
		return
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	fmt.Fprint(t.out, strings.ReplaceAll(content, "\n", "\r\n"))
	t.liveLines = strings.Count(content, "\n")
}

// clearLiveLocked moves the cursor back over the live region and erases to
// the end of the screen.
func (t *Terminal) clearLiveLocked() {
	if t.liveLines == 0 {
		return
	}
	fmt.Fprintf(t.out, "\x1b[%dA\r\x1b[J", t.liveLines)
	t.liveLines = 0
}
