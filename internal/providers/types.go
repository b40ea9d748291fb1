package providers

import (
	"context"
	"errors"
)

// Roles used in conversation messages (lowercase on the wire and on disk).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrTransport marks stream transport failures (connection drop, idle timeout).
// Callers match it with errors.Is.
var ErrTransport = errors.New("transport failure")

// Client is the abstract streaming chat interface. The concrete wire protocol
// lives behind it; the orchestrator only consumes ordered content parts.
type Client interface {
	// StreamChat starts one model turn over an immutable message snapshot.
	StreamChat(ctx context.Context, req Request) (Stream, error)

	// Name returns the provider identifier (e.g. "anthropic").
	Name() string

	// Model returns the model used for requests.
	Model() string

	// ContextWindow returns the model context window in tokens.
	ContextWindow() int
}

// Stream delivers content parts in the exact order the model produced them.
// When a FunctionCall part arrives, the consumer executes the tool and feeds
// the result back through PushResult; the stream then continues. The provider
// may continue the same wire stream or issue a follow-up request; either way
// Next keeps yielding parts until io.EOF.
type Stream interface {
	Next(ctx context.Context) (Part, error)
	PushResult(ctx context.Context, res FunctionResult) error
	Close() error
}

// PartKind tags the variants of a streamed content part.
type PartKind int

const (
	PartText PartKind = iota
	PartFunctionCall
	PartFunctionResult
	PartUsage
)

// Part is one streamed content part (tagged variant).
type Part struct {
	Kind   PartKind
	Text   string
	Call   *FunctionCall
	Result *FunctionResult
	Usage  *Usage
}

// Request contains the input for a streaming turn.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// Message is one conversation message. Content carries the plain text;
// FunctionCalls/FunctionResults carry the structured parts in order.
type Message struct {
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	FunctionCalls   []FunctionCall   `json:"functionCalls,omitempty"`
	FunctionResults []FunctionResult `json:"functionResults,omitempty"`
	Images          []ImageContent   `json:"images,omitempty"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	CallID    string         `json:"callId"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// FunctionResult is the tool output fed back to the model. Images carry
// multimodal blocks delivered alongside the textual result; they travel on
// the wire only, session history records them as attachments instead.
type FunctionResult struct {
	CallID string         `json:"callId"`
	Result string         `json:"result"`
	Images []ImageContent `json:"-"`
}

// ImageContent is a base64-encoded image for multimodal input. FileName is
// the source file's base name, kept for attachment metadata.
type ImageContent struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
	FileName  string `json:"-"`
}

// ToolDefinition describes a tool advertised to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens      int `json:"inputTokens"`
	OutputTokens     int `json:"outputTokens"`
	CacheReadTokens  int `json:"cacheReadTokens"`
	CacheWriteTokens int `json:"cacheWriteTokens"`
}
