package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultClaudeModel  = "claude-sonnet-4-5-20250929"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicClient implements Client against the Anthropic Messages API using
// net/http and hand-rolled SSE parsing.
type AnthropicClient struct {
	apiKey        string
	baseURL       string
	model         string
	contextWindow int
	maxTokens     int
	idleTimeout   time.Duration
	client        *http.Client
}

type AnthropicOption func(*AnthropicClient)

func WithModel(model string) AnthropicOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBaseURL(baseURL string) AnthropicOption {
	return func(c *AnthropicClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithContextWindow(cw int) AnthropicOption {
	return func(c *AnthropicClient) {
		if cw > 0 {
			c.contextWindow = cw
		}
	}
}

func WithMaxTokens(n int) AnthropicOption {
	return func(c *AnthropicClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithIdleTimeout aborts a stream when no event arrives for d.
func WithIdleTimeout(d time.Duration) AnthropicOption {
	return func(c *AnthropicClient) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		apiKey:        apiKey,
		baseURL:       "https://api.anthropic.com",
		model:         defaultClaudeModel,
		contextWindow: 200000,
		maxTokens:     8192,
		idleTimeout:   120 * time.Second,
		// No overall client timeout: streams are open-ended, the idle
		// watchdog bounds them instead.
		client: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *AnthropicClient) Name() string       { return "anthropic" }
func (c *AnthropicClient) Model() string      { return c.model }
func (c *AnthropicClient) ContextWindow() int { return c.contextWindow }

// StreamChat starts a streaming turn. The returned stream transparently
// issues follow-up requests after tool results are pushed, so the consumer
// sees one continuous sequence of parts.
func (c *AnthropicClient) StreamChat(ctx context.Context, req Request) (Stream, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrTransport)
	}
	s := &anthropicStream{
		client:   c,
		system:   req.System,
		tools:    req.Tools,
		messages: append([]Message(nil), req.Messages...),
		parts:    make(chan Part, 16),
		results:  make(chan FunctionResult, 8),
		errCh:    make(chan error, 1),
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

func (c *AnthropicClient) doRequest(ctx context.Context, body map[string]any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: anthropic API %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	return resp.Body, nil
}

// buildRequestBody converts the neutral request form to the Anthropic wire
// format. Tool results become user messages with tool_result blocks.
func (c *AnthropicClient) buildRequestBody(system string, messages []Message, tools []ToolDefinition) map[string]any {
	var wireMsgs []map[string]any

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			if len(msg.Images) > 0 {
				var blocks []map[string]any
				for _, img := range msg.Images {
					blocks = append(blocks, map[string]any{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": img.MediaType,
							"data":       img.Data,
						},
					})
				}
				if msg.Content != "" {
					blocks = append(blocks, map[string]any{"type": "text", "text": msg.Content})
				}
				wireMsgs = append(wireMsgs, map[string]any{"role": "user", "content": blocks})
			} else {
				wireMsgs = append(wireMsgs, map[string]any{"role": "user", "content": msg.Content})
			}

		case RoleAssistant:
			var blocks []map[string]any
			if msg.Content != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": msg.Content})
			}
			for _, fc := range msg.FunctionCalls {
				args := fc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    fc.CallID,
					"name":  fc.Name,
					"input": args,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			wireMsgs = append(wireMsgs, map[string]any{"role": "assistant", "content": blocks})

		case RoleTool:
			var blocks []map[string]any
			for _, fr := range msg.FunctionResults {
				if len(fr.Images) == 0 {
					blocks = append(blocks, map[string]any{
						"type":        "tool_result",
						"tool_use_id": fr.CallID,
						"content":     fr.Result,
					})
					continue
				}
				// Results carrying images use the block form of tool_result
				// content so the bytes reach the model inside this turn.
				inner := []map[string]any{{"type": "text", "text": fr.Result}}
				for _, img := range fr.Images {
					inner = append(inner, map[string]any{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": img.MediaType,
							"data":       img.Data,
						},
					})
				}
				blocks = append(blocks, map[string]any{
					"type":        "tool_result",
					"tool_use_id": fr.CallID,
					"content":     inner,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			wireMsgs = append(wireMsgs, map[string]any{"role": "user", "content": blocks})

		case RoleSystem:
			// folded into the top-level system prompt below
			if system == "" {
				system = msg.Content
			} else {
				system += "\n\n" + msg.Content
			}
		}
	}

	body := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages":   wireMsgs,
		"stream":     true,
	}
	if system != "" {
		body["system"] = system
	}
	if len(tools) > 0 {
		var wireTools []map[string]any
		for _, t := range tools {
			wireTools = append(wireTools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Parameters,
			})
		}
		body["tools"] = wireTools
	}
	return body
}
