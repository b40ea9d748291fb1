package sessions

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

// HistoryManager owns the in-memory conversation during a turn. Completed
// messages are durable (persisted through the store); at most one pending
// message is being streamed and never touches disk. The mutex lets the
// renderer snapshot history while the orchestrator goroutine mutates it.
type HistoryManager struct {
	mu      sync.Mutex
	store   *Store
	session *Session
	pending *Message
}

func NewHistoryManager(store *Store, session *Session) *HistoryManager {
	return &HistoryManager{store: store, session: session}
}

// Session returns the managed session.
func (h *HistoryManager) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Swap replaces the managed session (session load / clear).
func (h *HistoryManager) Swap(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.session = sess
}

// AppendUser records a completed user message and persists it. The first
// user text also becomes the session's initial prompt.
func (h *HistoryManager) AppendUser(text string, attachments []Attachment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session.InitialPrompt == "" {
		h.session.InitialPrompt = text
	}
	h.session.History = append(h.session.History, Message{
		Role:        providers.RoleUser,
		Content:     text,
		Attachments: attachments,
	})
	h.session.Touch()
	return h.store.Save(h.session)
}

// AppendCompleted records an already-built completed message and persists.
func (h *HistoryManager) AppendCompleted(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.History = append(h.session.History, msg)
	h.session.Touch()
	return h.store.Save(h.session)
}

// AppendCompletedWithImages records a completed message whose images are
// stored as content-addressed attachments under the session directory. The
// attachment records carry the index the message lands at.
func (h *HistoryManager) AppendCompletedWithImages(msg Message, imgs []providers.ImageContent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgIndex := len(h.session.History)
	for i, img := range imgs {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			slog.Warn("skipping undecodable image attachment", "file", img.FileName, "error", err)
			continue
		}
		att, err := h.store.AddAttachment(h.session, msgIndex, i, img.FileName, img.MediaType, data)
		if err != nil {
			return fmt.Errorf("persist attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	h.session.History = append(h.session.History, msg)
	h.session.Touch()
	return h.store.Save(h.session)
}

// BeginPending opens a new pending message for the given role. Any previous
// pending message must have been finalized or discarded first.
func (h *HistoryManager) BeginPending(role string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		return fmt.Errorf("pending message already open")
	}
	h.pending = &Message{Role: role}
	return nil
}

// HasPending reports whether a pending message is open.
func (h *HistoryManager) HasPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

// AppendPendingText appends streamed text to the pending message.
func (h *HistoryManager) AppendPendingText(delta string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		h.pending.Content += delta
	}
}

// AppendPendingCall appends a function call part to the pending message.
func (h *HistoryManager) AppendPendingCall(call providers.FunctionCall) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		h.pending.FunctionCalls = append(h.pending.FunctionCalls, call)
	}
}

// AppendPendingResult appends a function result part to the pending message.
func (h *HistoryManager) AppendPendingResult(res providers.FunctionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		h.pending.FunctionResults = append(h.pending.FunctionResults, res)
	}
}

// PendingIsEmpty reports whether the pending message carries no content.
func (h *HistoryManager) PendingIsEmpty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending == nil ||
		(h.pending.Content == "" && len(h.pending.FunctionCalls) == 0 && len(h.pending.FunctionResults) == 0)
}

// FinalizePending promotes the pending message to completed and persists it.
// An empty pending message is silently dropped.
func (h *HistoryManager) FinalizePending() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return nil
	}
	msg := *h.pending
	h.pending = nil
	if msg.Content == "" && len(msg.FunctionCalls) == 0 && len(msg.FunctionResults) == 0 {
		return nil
	}
	h.session.History = append(h.session.History, msg)
	h.session.Touch()
	return h.store.Save(h.session)
}

// DiscardPending drops the pending message without persisting (cancel or
// stream failure). Completed messages are untouched.
func (h *HistoryManager) DiscardPending() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
}

// View returns the completed history plus the pending message (nil when
// none) for rendering. The slices are snapshots; the renderer never sees
// in-place mutation.
func (h *HistoryManager) View() ([]Message, *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	completed := make([]Message, len(h.session.History))
	copy(completed, h.session.History)
	if h.pending == nil {
		return completed, nil
	}
	pending := *h.pending
	return completed, &pending
}

// AccumulateUsage folds one request's token usage into the session metrics
// and persists.
func (h *HistoryManager) AccumulateUsage(u providers.Usage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.UsageMetrics.Accumulate(u)
	h.session.Touch()
	return h.store.Save(h.session)
}

// Metrics returns a snapshot of the session's usage counters.
func (h *HistoryManager) Metrics() UsageMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.UsageMetrics
}

// ProviderMessages exposes only completed messages for model requests.
func (h *HistoryManager) ProviderMessages() []providers.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.ProviderMessages()
}
