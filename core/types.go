package core

import "encoding/json"

// OperationKind identifies the logical operation being executed against
// the agent backend.
type OperationKind string

const (
	// KindMessage sends one conversational message and waits for the reply.
	KindMessage OperationKind = "message"
	// KindAnalyze asks the agent to analyze uploaded file summaries.
	KindAnalyze OperationKind = "analyze"
	// KindGenerate asks the agent to generate structured test cases.
	KindGenerate OperationKind = "generate"
)

// Operation describes one logical call against an upstream target.
// It is owned by the caller and treated as read-only by this package.
type Operation struct {
	Kind OperationKind

	// ConversationID correlates related calls. Empty means "start a new
	// conversation"; the upstream assigns an ID which is echoed back in
	// the result.
	ConversationID string

	// Message is the user-visible message text for the operation.
	Message string

	// Metadata is an open string-keyed map passed through to the upstream
	// payload (and to the fallback responder) without interpretation.
	Metadata map[string]any
}

// Usage tracks token consumption reported by the upstream.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Analysis is the structured result of a file-analysis operation.
type Analysis struct {
	TemplateInfo string   `json:"template_info"`
	HistoryInfo  string   `json:"history_info"`
	Suggestions  []string `json:"suggestions"`
}

// Result is the uniform outcome of a non-streaming operation. The shape is
// identical for live and fallback execution; Live is the only provenance
// marker.
type Result struct {
	// OK reports that the operation produced a usable result. It is true
	// on both live and fallback paths so callers never need to
	// special-case degraded runs.
	OK bool `json:"ok"`

	// Live is true when the result came from the upstream service and
	// false when the fallback responder produced it.
	Live bool `json:"live"`

	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`

	// Reply is the agent's answer for message operations.
	Reply string `json:"reply,omitempty"`

	// NeedMoreInfo and ReadyToGenerate describe where the requirement
	// dialogue stands.
	NeedMoreInfo    bool     `json:"need_more_info"`
	ReadyToGenerate bool     `json:"ready_to_generate"`
	Suggestions     []string `json:"suggestions,omitempty"`

	// Analysis is set for analyze operations.
	Analysis *Analysis `json:"analysis,omitempty"`

	Usage Usage `json:"usage"`
}

// EventType discriminates StreamEvent variants.
type EventType string

const (
	// EventProgress reports a generation stage update.
	EventProgress EventType = "progress"
	// EventContent carries a text delta of the reply being streamed.
	EventContent EventType = "content"
	// EventComplete terminates a stream successfully.
	EventComplete EventType = "complete"
	// EventError terminates a stream with a failure.
	EventError EventType = "error"
)

// ProgressData describes a generation stage.
type ProgressData struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// CompleteData is the payload of the terminal EventComplete event.
type CompleteData struct {
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`

	// Content is the full assembled reply text.
	Content string `json:"content"`

	// Cases holds the structured test-case payload when the reply parsed
	// as one. The core does not interpret it beyond validity.
	Cases json.RawMessage `json:"cases,omitempty"`

	Usage    Usage          `json:"usage"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StreamEvent is one discrete unit of a streamed response. Exactly one of
// the payload fields matching Type is set.
type StreamEvent struct {
	Type     EventType     `json:"type"`
	Progress *ProgressData `json:"progress,omitempty"`
	Content  string        `json:"content,omitempty"`
	Complete *CompleteData `json:"complete,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
