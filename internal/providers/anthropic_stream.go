package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// anthropicStream pumps SSE events from one or more Messages API requests
// into an ordered part sequence. When a request ends with stop_reason
// "tool_use" the stream waits for PushResult calls matching every emitted
// tool call, then issues a follow-up request carrying the results.
type anthropicStream struct {
	client   *AnthropicClient
	system   string
	tools    []ToolDefinition
	messages []Message

	parts   chan Part
	results chan FunctionResult
	errCh   chan error
	done    chan struct{}

	closeOnce sync.Once
}

// SSE event payloads (only the fields we consume).
type sseMessageStart struct {
	Message struct {
		Usage sseUsage `json:"usage"`
	} `json:"message"`
}

type sseUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type sseBlockStart struct {
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

type sseBlockDelta struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

type sseMessageDelta struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage sseUsage `json:"usage"`
}

func (s *anthropicStream) Next(ctx context.Context) (Part, error) {
	select {
	case <-ctx.Done():
		return Part{}, ctx.Err()
	case err := <-s.errCh:
		return Part{}, err
	case p, ok := <-s.parts:
		if !ok {
			return Part{}, io.EOF
		}
		return p, nil
	}
}

func (s *anthropicStream) PushResult(ctx context.Context, res FunctionResult) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return fmt.Errorf("%w: stream closed", ErrTransport)
	case s.results <- res:
		return nil
	}
}

func (s *anthropicStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *anthropicStream) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *anthropicStream) emit(ctx context.Context, p Part) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case s.parts <- p:
		return true
	}
}

// run drives the request loop until the model stops asking for tools.
func (s *anthropicStream) run(ctx context.Context) {
	for {
		calls, text, stopReason, err := s.streamOne(ctx)
		if err != nil {
			s.fail(err)
			return
		}

		if stopReason != "tool_use" || len(calls) == 0 {
			close(s.parts)
			return
		}

		// Record what the model said so the follow-up request replays it.
		s.messages = append(s.messages, Message{
			Role:          RoleAssistant,
			Content:       text,
			FunctionCalls: calls,
		})

		// Collect one result per emitted call before continuing.
		collected := make([]FunctionResult, 0, len(calls))
		for len(collected) < len(calls) {
			select {
			case <-ctx.Done():
				s.fail(ctx.Err())
				return
			case <-s.done:
				return
			case res := <-s.results:
				collected = append(collected, res)
			}
		}
		s.messages = append(s.messages, Message{
			Role:            RoleTool,
			FunctionResults: collected,
		})
	}
}

// streamOne performs a single HTTP request and forwards its parts.
// Returns the tool calls the model requested, its text, and the stop reason.
func (s *anthropicStream) streamOne(ctx context.Context) ([]FunctionCall, string, string, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Idle watchdog: cancel the request when no event arrives in time.
	idle := time.AfterFunc(s.client.idleTimeout, cancel)
	defer idle.Stop()

	body, err := s.client.doRequest(reqCtx, s.client.buildRequestBody(s.system, s.messages, s.tools))
	if err != nil {
		return nil, "", "", err
	}
	defer body.Close()

	var (
		calls        []FunctionCall
		text         strings.Builder
		stopReason   string
		usage        Usage
		currentEvent string
		// raw JSON argument fragments accumulated per tool-call index
		callJSON = make(map[int]*strings.Builder)
		blockIdx = make(map[int]int) // SSE block index → calls index
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		idle.Reset(s.client.idleTimeout)
		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := []byte(strings.TrimPrefix(line, "data: "))

		switch currentEvent {
		case "message_start":
			var ev sseMessageStart
			if json.Unmarshal(data, &ev) == nil {
				usage.InputTokens = ev.Message.Usage.InputTokens
				usage.CacheWriteTokens = ev.Message.Usage.CacheCreationInputTokens
				usage.CacheReadTokens = ev.Message.Usage.CacheReadInputTokens
			}

		case "content_block_start":
			var ev sseBlockStart
			if json.Unmarshal(data, &ev) == nil && ev.ContentBlock.Type == "tool_use" {
				calls = append(calls, FunctionCall{
					CallID:    ev.ContentBlock.ID,
					Name:      strings.TrimSpace(ev.ContentBlock.Name),
					Arguments: map[string]any{},
				})
				idx := len(calls) - 1
				blockIdx[ev.Index] = idx
				callJSON[idx] = &strings.Builder{}
			}

		case "content_block_delta":
			var ev sseBlockDelta
			if json.Unmarshal(data, &ev) != nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				text.WriteString(ev.Delta.Text)
				if !s.emit(ctx, Part{Kind: PartText, Text: ev.Delta.Text}) {
					return nil, "", "", ctx.Err()
				}
			case "input_json_delta":
				if idx, ok := blockIdx[ev.Index]; ok {
					callJSON[idx].WriteString(ev.Delta.PartialJSON)
				}
			}

		case "content_block_stop":
			var ev sseBlockStart
			if json.Unmarshal(data, &ev) != nil {
				continue
			}
			if idx, ok := blockIdx[ev.Index]; ok {
				if raw := callJSON[idx].String(); raw != "" {
					_ = json.Unmarshal([]byte(raw), &calls[idx].Arguments)
				}
				call := calls[idx]
				if !s.emit(ctx, Part{Kind: PartFunctionCall, Call: &call}) {
					return nil, "", "", ctx.Err()
				}
			}

		case "message_delta":
			var ev sseMessageDelta
			if json.Unmarshal(data, &ev) == nil {
				if ev.Delta.StopReason != "" {
					stopReason = ev.Delta.StopReason
				}
				usage.OutputTokens = ev.Usage.OutputTokens
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, "", "", fmt.Errorf("%w: stream idle for %s", ErrTransport, s.client.idleTimeout)
		}
		if ctx.Err() != nil {
			return nil, "", "", ctx.Err()
		}
		return nil, "", "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	u := usage
	if !s.emit(ctx, Part{Kind: PartUsage, Usage: &u}) {
		return nil, "", "", ctx.Err()
	}
	return calls, text.String(), stopReason, nil
}
