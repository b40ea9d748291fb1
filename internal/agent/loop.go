package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
	"github.com/nextlevelbuilder/mogzi/internal/sessions"
	"github.com/nextlevelbuilder/mogzi/internal/tools"
)

// EventType identifies orchestrator progress events consumed by the TUI.
type EventType int

const (
	EventToolStarted EventType = iota
	EventToolFinished
	EventUsageUpdated
	EventTaskComplete
)

// Event is one orchestrator progress notification.
type Event struct {
	Type      EventType
	ToolName  string
	ToolError bool
	// Result carries the attempt_completion summary for EventTaskComplete.
	Result string
}

// Loop drives one conversation turn at a time: stream consumption, boundary
// detection, synchronous tool dispatch and persistence.
type Loop struct {
	client  providers.Client
	tools   *tools.Registry
	history *sessions.HistoryManager

	systemPrompt string
	onEvent      func(Event)

	images *tools.ImageCollector
}

// Config wires a new Loop.
type Config struct {
	Client       providers.Client
	Tools        *tools.Registry
	History      *sessions.HistoryManager
	SystemPrompt string
	OnEvent      func(Event)
}

func NewLoop(cfg Config) *Loop {
	return &Loop{
		client:       cfg.Client,
		tools:        cfg.Tools,
		history:      cfg.History,
		systemPrompt: cfg.SystemPrompt,
		onEvent:      cfg.OnEvent,
		images:       &tools.ImageCollector{},
	}
}

func (l *Loop) emit(evt Event) {
	if l.onEvent != nil {
		l.onEvent(evt)
	}
}

// contentKind tracks the boundary-detection state while consuming the
// stream: a transition between text and tool content closes the pending
// message and opens a new one.
type contentKind int

const (
	kindNone contentKind = iota
	kindText
	kindTool
)

// RunTurn processes one user submission to completion. Tool failures never
// abort the turn; transport failures do, leaving completed messages
// persisted. Cancellation discards the pending message and returns
// context.Canceled.
func (l *Loop) RunTurn(ctx context.Context, userText string) error {
	if err := l.history.AppendUser(userText, nil); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}

	req := providers.Request{
		System:   l.systemPrompt,
		Messages: l.history.ProviderMessages(),
		Tools:    l.tools.List(),
	}
	// Images normally travel on the tool result that produced them; the
	// collector only holds leftovers here when the previous turn was
	// cancelled mid-dispatch. Attach those to the outgoing user message so
	// they are not lost.
	if staged := l.images.Drain(); len(staged) > 0 && len(req.Messages) > 0 {
		req.Messages[len(req.Messages)-1].Images = staged
	}

	stream, err := l.client.StreamChat(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	toolCtx := tools.WithImageCollector(ctx, l.images)
	kind := kindNone
	// Call ids seen without a result yet, in arrival order.
	var unmatched []string

	for {
		part, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			l.history.DiscardPending()
			if ctx.Err() != nil {
				return context.Canceled
			}
			return err
		}

		switch part.Kind {
		case providers.PartText:
			if kind != kindText {
				if err := l.history.FinalizePending(); err != nil {
					return err
				}
				if err := l.history.BeginPending(providers.RoleAssistant); err != nil {
					return err
				}
				kind = kindText
			}
			l.history.AppendPendingText(part.Text)

		case providers.PartFunctionCall:
			if err := l.history.FinalizePending(); err != nil {
				return err
			}
			kind = kindTool
			if err := l.dispatchCall(toolCtx, stream, *part.Call, &unmatched); err != nil {
				l.history.DiscardPending()
				if ctx.Err() != nil {
					return context.Canceled
				}
				return err
			}

		case providers.PartFunctionResult:
			if err := l.absorbResult(*part.Result, &unmatched); err != nil {
				return err
			}
			kind = kindTool

		case providers.PartUsage:
			if part.Usage != nil {
				if err := l.history.AccumulateUsage(*part.Usage); err != nil {
					slog.Warn("persist usage metrics failed", "error", err)
				}
				l.emit(Event{Type: EventUsageUpdated})
			}
		}
	}

	if err := l.history.FinalizePending(); err != nil {
		return err
	}
	return nil
}

// dispatchCall persists the assistant call message, executes the tool
// synchronously, persists the tool-role result message, and feeds the result
// back into the stream.
func (l *Loop) dispatchCall(ctx context.Context, stream providers.Stream, call providers.FunctionCall, unmatched *[]string) error {
	if err := l.history.BeginPending(providers.RoleAssistant); err != nil {
		return err
	}
	l.history.AppendPendingCall(call)
	if err := l.history.FinalizePending(); err != nil {
		return err
	}
	*unmatched = append(*unmatched, call.CallID)

	argsJSON, _ := json.Marshal(call.Arguments)
	slog.Info("tool call", "tool", call.Name, "args_len", len(argsJSON))
	l.emit(Event{Type: EventToolStarted, ToolName: call.Name})

	resp := l.tools.Invoke(ctx, call.Name, call.Arguments)
	envelope := resp.XML()
	// Images staged by this call ride on its result so the model sees them
	// within the same turn; their bytes persist as session attachments.
	staged := l.images.Drain()

	l.emit(Event{Type: EventToolFinished, ToolName: call.Name, ToolError: resp.IsError()})
	if call.Name == "attempt_completion" && !resp.IsError() {
		l.emit(Event{Type: EventTaskComplete, Result: resp.Content})
	}

	result := providers.FunctionResult{CallID: call.CallID, Result: envelope, Images: staged}
	if err := l.history.AppendCompletedWithImages(sessions.Message{
		Role:            providers.RoleTool,
		Content:         envelope,
		FunctionResults: []providers.FunctionResult{result},
	}, staged); err != nil {
		return err
	}
	dropMatched(unmatched, call.CallID)

	if err := stream.PushResult(ctx, result); err != nil {
		return err
	}
	return nil
}

// absorbResult handles a FunctionResult arriving from the stream itself
// (provider acknowledgement). A result with no matching open call attaches
// to the most recent unmatched call, or becomes a standalone diagnostic
// message when none exists.
func (l *Loop) absorbResult(res providers.FunctionResult, unmatched *[]string) error {
	if containsID(*unmatched, res.CallID) {
		dropMatched(unmatched, res.CallID)
	} else if len(*unmatched) > 0 {
		recent := (*unmatched)[len(*unmatched)-1]
		slog.Warn("function result without matching call, attaching to most recent",
			"resultId", res.CallID, "attachedTo", recent)
		res.CallID = recent
		dropMatched(unmatched, recent)
	} else {
		slog.Warn("standalone function result without any open call", "resultId", res.CallID)
		return l.history.AppendCompleted(sessions.Message{
			Role:            providers.RoleTool,
			Content:         fmt.Sprintf("received result for unknown call id %s", res.CallID),
			FunctionResults: []providers.FunctionResult{res},
		})
	}
	return l.history.AppendCompleted(sessions.Message{
		Role:            providers.RoleTool,
		Content:         res.Result,
		FunctionResults: []providers.FunctionResult{res},
	})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dropMatched(ids *[]string, id string) {
	out := (*ids)[:0]
	for _, v := range *ids {
		if v != id {
			out = append(out, v)
		}
	}
	*ids = out
}
