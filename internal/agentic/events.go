package agentic

import (
	"context"
	"time"
)

// EventKind identifies a streamed loop event.
type EventKind string

const (
	EventTurnStart  EventKind = "turn_start"
	EventAssistant  EventKind = "assistant" // model text for the turn
	EventToolStart  EventKind = "tool_start"
	EventToolEnd    EventKind = "tool_end"
	EventTurnEnd    EventKind = "turn_end"
	EventRetry      EventKind = "retry"
	EventCompaction EventKind = "compaction"
	EventResult     EventKind = "result" // terminal, always last
)

// Event is one entry of the lazy, finite event sequence produced by
// Loop.RunStream. The sequence is terminated by an EventResult carrying
// the final Result.
type Event struct {
	Kind EventKind

	Turn     int
	Text     string // EventAssistant
	ToolName string // EventToolStart / EventToolEnd
	ToolErr  string // EventToolEnd, empty on success
	Result   *Result
}

// eventHook bridges loop hooks onto an event channel.
type eventHook struct {
	NopHook
	ch chan<- Event
}

func (h eventHook) OnTurnStart(_ context.Context, rc *RunContext) {
	h.ch <- Event{Kind: EventTurnStart, Turn: rc.Turns}
}
func (h eventHook) OnModelResponse(_ context.Context, rc *RunContext, resp ModelResponse) {
	if resp.Text != "" {
		h.ch <- Event{Kind: EventAssistant, Turn: rc.Turns, Text: resp.Text}
	}
}
func (h eventHook) OnToolStart(_ context.Context, rc *RunContext, req ToolRequest) {
	h.ch <- Event{Kind: EventToolStart, Turn: rc.Turns, ToolName: req.Name}
}
func (h eventHook) OnToolEnd(_ context.Context, rc *RunContext, req ToolRequest, _ string, err error) {
	ev := Event{Kind: EventToolEnd, Turn: rc.Turns, ToolName: req.Name}
	if err != nil {
		ev.ToolErr = err.Error()
	}
	h.ch <- ev
}
func (h eventHook) OnTurnEnd(_ context.Context, rc *RunContext) {
	h.ch <- Event{Kind: EventTurnEnd, Turn: rc.Turns}
}
func (h eventHook) OnRetryAttempt(_ context.Context, rc *RunContext, _ int, _ int, _ time.Duration, _ error) {
	h.ch <- Event{Kind: EventRetry, Turn: rc.Turns}
}
func (h eventHook) OnCompaction(_ context.Context, rc *RunContext, _, _ int, _ bool) {
	h.ch <- Event{Kind: EventCompaction, Turn: rc.Turns}
}
