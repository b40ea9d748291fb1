package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

// Session is one persisted conversation. The id is a UUIDv7 so listing by id
// approximates chronological order.
type Session struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastModifiedAt time.Time    `json:"lastModifiedAt"`
	InitialPrompt  string       `json:"initialPrompt"`
	History        []Message    `json:"history"`
	UsageMetrics   UsageMetrics `json:"usageMetrics"`
}

// Message is one history entry. Content carries the plain text; the typed
// parts and attachments are ordered lists.
type Message struct {
	Role            string                     `json:"role"`
	Content         string                     `json:"content"`
	FunctionCalls   []providers.FunctionCall   `json:"functionCalls,omitempty"`
	FunctionResults []providers.FunctionResult `json:"functionResults,omitempty"`
	Attachments     []Attachment               `json:"attachments,omitempty"`
}

// Attachment metadata; the bytes live under the session's attachments/
// directory, content-addressed by the first 16 hex chars of their SHA-256.
type Attachment struct {
	OriginalFileName string `json:"originalFileName"`
	MediaType        string `json:"mediaType"`
	MessageIndex     int    `json:"messageIndex"`
	ContentIndex     int    `json:"contentIndex"`
	StoredFileName   string `json:"storedFileName"`
	ContentHash      string `json:"contentHash"`
	SizeBytes        int64  `json:"sizeBytes"`
}

// UsageMetrics accumulates per-session token counters. Monotonically
// non-decreasing except via Reset.
type UsageMetrics struct {
	InputTokens      int64     `json:"inputTokens"`
	OutputTokens     int64     `json:"outputTokens"`
	CacheReadTokens  int64     `json:"cacheReadTokens"`
	CacheWriteTokens int64     `json:"cacheWriteTokens"`
	RequestCount     int64     `json:"requestCount"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// Accumulate adds one request's usage and bumps the request count.
func (m *UsageMetrics) Accumulate(u providers.Usage) {
	m.InputTokens += int64(u.InputTokens)
	m.OutputTokens += int64(u.OutputTokens)
	m.CacheReadTokens += int64(u.CacheReadTokens)
	m.CacheWriteTokens += int64(u.CacheWriteTokens)
	m.RequestCount++
	m.LastUpdated = time.Now().UTC()
}

// Reset zeroes all counters.
func (m *UsageMetrics) Reset() {
	*m = UsageMetrics{LastUpdated: time.Now().UTC()}
}

// New creates an empty session with a fresh time-ordered id.
func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.Must(uuid.NewV7()).String(),
		CreatedAt:      now,
		LastModifiedAt: now,
		History:        []Message{},
	}
}

// Touch updates the last-modified timestamp.
func (s *Session) Touch() {
	s.LastModifiedAt = time.Now().UTC()
}

// ProviderMessages converts the history into the neutral request form.
func (s *Session) ProviderMessages() []providers.Message {
	out := make([]providers.Message, 0, len(s.History))
	for _, m := range s.History {
		out = append(out, providers.Message{
			Role:            m.Role,
			Content:         m.Content,
			FunctionCalls:   m.FunctionCalls,
			FunctionResults: m.FunctionResults,
		})
	}
	return out
}
