package core

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// dataPrefix is the fixed marker prefixing every streamed event record.
const dataPrefix = "data:"

// EventStream is a finite, consume-once sequence of StreamEvents.
//
// Channel rules:
//   - Events emits events in the order their records completed on the
//     wire, regardless of how network chunks split them.
//   - The sequence ends with exactly one terminal event (EventComplete or
//     EventError), after which Events is closed.
//   - The channel is bounded, so a slow consumer applies backpressure to
//     the producing read loop instead of buffering without limit.
type EventStream struct {
	// Events delivers the stream. Closed after the terminal event.
	Events <-chan StreamEvent

	// Live is true when the stream came from the upstream service.
	Live bool
}

// Drain consumes the whole stream and returns the terminal completion
// payload, or an error if the stream terminated with EventError or the
// context was cancelled first.
func Drain(ctx context.Context, s *EventStream) (*CompleteData, error) {
	if s == nil {
		return nil, ErrBadRequest
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-s.Events:
			if !ok {
				return nil, fmt.Errorf("stream closed without terminal event: %w", ErrDecode)
			}
			switch ev.Type {
			case EventComplete:
				return ev.Complete, nil
			case EventError:
				return nil, fmt.Errorf("stream error: %s", ev.Err)
			}
		}
	}
}

// StreamProcessor reassembles a raw response body into typed
// StreamEvents. Each logical record is one line of the form
// "data: <json>"; the JSON payload carries an "event" discriminator. The
// processor buffers partial lines across reads, so record boundaries are
// independent of how the network chunked the body.
//
// A processor is stateless and may be shared; each Process call consumes
// its source exactly once.
type StreamProcessor struct {
	logger *slog.Logger
	buffer int
}

// StreamOption customizes a StreamProcessor.
type StreamOption func(*StreamProcessor)

// WithStreamLogger sets the logger used for skipped-record warnings.
func WithStreamLogger(l *slog.Logger) StreamOption {
	return func(p *StreamProcessor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStreamBuffer sets the event channel capacity (default 16).
func WithStreamBuffer(n int) StreamOption {
	return func(p *StreamProcessor) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// NewStreamProcessor creates a stream processor.
func NewStreamProcessor(opts ...StreamOption) *StreamProcessor {
	p := &StreamProcessor{
		logger: slog.Default(),
		buffer: 16,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process consumes r in a background goroutine and returns the resulting
// event stream. If r implements io.Closer it is closed when the stream
// ends, including on cancellation, so response bodies cannot leak.
//
// Records that fail to parse are logged and skipped. If the source closes
// before a terminal record was seen, an EventError is synthesized so
// consumers never wait indefinitely.
func (p *StreamProcessor) Process(ctx context.Context, r io.Reader) *EventStream {
	ch := make(chan StreamEvent, p.buffer)
	go p.run(ctx, r, ch)
	return &EventStream{Events: ch}
}

func (p *StreamProcessor) run(ctx context.Context, r io.Reader, ch chan<- StreamEvent) {
	defer close(ch)
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	reader := bufio.NewReader(r)
	asm := newEventAssembler()

	for {
		line, err := reader.ReadString('\n')

		// A final record may arrive without a trailing newline.
		if line != "" {
			for _, ev := range p.parseLine(line, asm) {
				if !p.emit(ctx, ch, ev) {
					return
				}
				if ev.Terminal() {
					return
				}
			}
		}

		if err != nil {
			if err != io.EOF {
				p.emit(ctx, ch, StreamEvent{Type: EventError, Err: fmt.Sprintf("stream read failed: %v", err)})
				return
			}
			// Source closed without a terminal record.
			p.emit(ctx, ch, StreamEvent{Type: EventError, Err: "stream closed before completion"})
			return
		}
	}
}

// emit delivers one event, honoring cancellation. Returns false when the
// consumer is gone.
func (p *StreamProcessor) emit(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		// Best effort terminal event for any consumer still listening.
		select {
		case ch <- StreamEvent{Type: EventError, Err: ctx.Err().Error()}:
		default:
		}
		return false
	}
}

// parseLine converts one raw line into zero or more events. Unparseable
// or unrecognized records yield nothing.
func (p *StreamProcessor) parseLine(raw string, asm *eventAssembler) []StreamEvent {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil
	}
	if !strings.HasPrefix(line, dataPrefix) {
		p.logger.Warn("skipping record without data marker", "record", truncateForLog(line))
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))

	var rec wireRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		p.logger.Warn("skipping malformed stream record", "error", err, "record", truncateForLog(payload))
		return nil
	}
	return asm.apply(rec)
}

func truncateForLog(s string) string {
	const max = 120
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// wireRecord is the upstream's JSON record shape. Only the fields the
// core consumes are declared; everything else rides in Metadata.
type wireRecord struct {
	Event          string         `json:"event"`
	Answer         string         `json:"answer"`
	ConversationID string         `json:"conversation_id"`
	MessageID      string         `json:"message_id"`
	NodeType       string         `json:"node_type"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	Code           string         `json:"code"`
	Message        string         `json:"message"`
	Usage          *Usage         `json:"usage"`
	Metadata       map[string]any `json:"metadata"`
}

// eventAssembler accumulates per-stream state (content deltas and
// conversation identity) across records until the terminal record.
type eventAssembler struct {
	content        strings.Builder
	conversationID string
	messageID      string
	usage          Usage
}

func newEventAssembler() *eventAssembler {
	return &eventAssembler{}
}

func (a *eventAssembler) apply(rec wireRecord) []StreamEvent {
	if rec.ConversationID != "" {
		a.conversationID = rec.ConversationID
	}
	if rec.MessageID != "" {
		a.messageID = rec.MessageID
	}
	if rec.Usage != nil {
		a.usage = *rec.Usage
	}

	switch rec.Event {
	case "message":
		if rec.Answer == "" {
			return nil
		}
		a.content.WriteString(rec.Answer)
		return []StreamEvent{{Type: EventContent, Content: rec.Answer}}

	case "message_end":
		return []StreamEvent{{Type: EventComplete, Complete: a.complete(rec)}}

	case "workflow_started":
		return []StreamEvent{progressEvent("workflow_started", "workflow started", rec.Progress, 60)}

	case "node_started":
		stage := fmt.Sprintf("node_%s_running", nodeType(rec))
		return []StreamEvent{progressEvent(stage, fmt.Sprintf("running %s node", nodeType(rec)), rec.Progress, 70)}

	case "node_finished":
		stage := fmt.Sprintf("node_%s_finished", nodeType(rec))
		return []StreamEvent{progressEvent(stage, fmt.Sprintf("%s node %s", nodeType(rec), finishStatus(rec)), rec.Progress, 80)}

	case "workflow_finished":
		percent := 90
		if rec.Status != "" && rec.Status != "succeeded" {
			percent = 0
		}
		return []StreamEvent{progressEvent("workflow_finished", "workflow "+finishStatus(rec), rec.Progress, percent)}

	case "error":
		msg := rec.Message
		if msg == "" {
			msg = "upstream reported an error"
		}
		if rec.Code != "" {
			msg = rec.Code + ": " + msg
		}
		return []StreamEvent{{Type: EventError, Err: msg}}

	default:
		// Unknown record types are forward-compatible noise.
		return nil
	}
}

// complete builds the terminal payload, preferring the terminal record's
// own answer over the accumulated deltas when both are present.
func (a *eventAssembler) complete(rec wireRecord) *CompleteData {
	content := rec.Answer
	if content == "" {
		content = a.content.String()
	}
	data := &CompleteData{
		ConversationID: a.conversationID,
		MessageID:      a.messageID,
		Content:        content,
		Usage:          a.usage,
		Metadata:       rec.Metadata,
	}
	if trimmed := strings.TrimSpace(content); strings.HasPrefix(trimmed, "[") && json.Valid([]byte(trimmed)) {
		data.Cases = json.RawMessage(trimmed)
	}
	return data
}

func progressEvent(stage, message string, wirePercent, fallbackPercent int) StreamEvent {
	percent := wirePercent
	if percent <= 0 {
		percent = fallbackPercent
	}
	return StreamEvent{Type: EventProgress, Progress: &ProgressData{
		Stage:   stage,
		Message: message,
		Percent: percent,
	}}
}

func nodeType(rec wireRecord) string {
	if rec.NodeType == "" {
		return "unknown"
	}
	return rec.NodeType
}

func finishStatus(rec wireRecord) string {
	if rec.Status == "" || rec.Status == "succeeded" {
		return "succeeded"
	}
	return "failed"
}
