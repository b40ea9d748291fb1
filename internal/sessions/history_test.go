package sessions

import (
	"testing"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

func TestHistoryManager_PendingLifecycle(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	h := NewHistoryManager(store, sess)

	if err := h.AppendUser("hi there", nil); err != nil {
		t.Fatal(err)
	}
	if sess.InitialPrompt != "hi there" {
		t.Errorf("initial prompt = %q", sess.InitialPrompt)
	}

	if err := h.BeginPending(providers.RoleAssistant); err != nil {
		t.Fatal(err)
	}
	h.AppendPendingText("Once upon ")
	h.AppendPendingText("a time")

	// Pending content is visible to the renderer but not persisted.
	completed, pending := h.View()
	if len(completed) != 1 {
		t.Fatalf("completed = %d, want 1", len(completed))
	}
	if pending == nil || pending.Content != "Once upon a time" {
		t.Fatalf("pending = %+v", pending)
	}
	onDisk, err := store.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(onDisk.History) != 1 {
		t.Errorf("pending leaked to disk: %d messages", len(onDisk.History))
	}

	if err := h.FinalizePending(); err != nil {
		t.Fatal(err)
	}
	onDisk, _ = store.Load(sess.ID)
	if len(onDisk.History) != 2 {
		t.Fatalf("finalize not persisted: %d messages", len(onDisk.History))
	}
	if onDisk.History[1].Content != "Once upon a time" {
		t.Errorf("persisted content = %q", onDisk.History[1].Content)
	}
}

func TestHistoryManager_DiscardPending(t *testing.T) {
	store := newTestStore(t)
	h := NewHistoryManager(store, New())

	if err := h.AppendUser("start", nil); err != nil {
		t.Fatal(err)
	}
	if err := h.BeginPending(providers.RoleAssistant); err != nil {
		t.Fatal(err)
	}
	h.AppendPendingText("partial")
	h.DiscardPending()

	completed, pending := h.View()
	if pending != nil {
		t.Error("pending survived discard")
	}
	if len(completed) != 1 {
		t.Errorf("completed = %d, want user message only", len(completed))
	}
}

func TestHistoryManager_EmptyPendingDropped(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	h := NewHistoryManager(store, sess)

	if err := h.BeginPending(providers.RoleAssistant); err != nil {
		t.Fatal(err)
	}
	if err := h.FinalizePending(); err != nil {
		t.Fatal(err)
	}
	if len(sess.History) != 0 {
		t.Errorf("empty pending persisted: %+v", sess.History)
	}
}

func TestHistoryManager_DoubleBeginFails(t *testing.T) {
	h := NewHistoryManager(newTestStore(t), New())
	if err := h.BeginPending(providers.RoleAssistant); err != nil {
		t.Fatal(err)
	}
	if err := h.BeginPending(providers.RoleAssistant); err == nil {
		t.Error("second BeginPending succeeded")
	}
}
