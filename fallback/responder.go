// Package fallback implements a deterministic local responder producing
// results that are structurally identical to live upstream responses. It
// serves two purposes: graceful degradation when the upstream is
// unavailable, and local development without a live backend.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/relay/core"
)

// scriptedReplies is the requirement-gathering dialogue script. The
// reply for a given turn is selected deterministically from the
// operation, so repeated identical calls produce identical output.
var scriptedReplies = []string{
	"I have reviewed your uploaded template. Please describe the kind of test cases and scenarios you want to generate.",
	"Understood. For the login functionality, which scenarios should be covered: successful login, wrong password, unknown account, or captcha validation?",
	"Good. A few more details: which browsers need compatibility coverage, and should mobile flows be included?",
	"Almost there. Should the cases use real test accounts or synthetic data? Reply 'start generation' when you are ready.",
	"I have enough information to generate high-quality test cases now. Say 'start generation' to begin.",
}

// chatSuggestions accompany every scripted reply.
var chatSuggestions = []string{
	"Describe the concrete test scenarios you need",
	"Point out the functional modules to focus on",
	"State the priority requirements for the cases",
}

// generationStages is the staged progress script for generation streams.
var generationStages = []core.ProgressData{
	{Stage: "analyzing", Message: "Analyzing requirements and file contents...", Percent: 10},
	{Stage: "planning", Message: "Planning the test case structure...", Percent: 25},
	{Stage: "generating", Message: "Generating test steps...", Percent: 50},
	{Stage: "optimizing", Message: "Optimizing the test cases...", Percent: 75},
	{Stage: "formatting", Message: "Formatting the output...", Percent: 90},
}

// Responder is the deterministic fallback implementation of
// core.Responder. It is safe for concurrent use.
type Responder struct {
	logger *slog.Logger
	delay  time.Duration
	newID  func() string
}

// Option customizes a Responder.
type Option func(*Responder)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Responder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDelay inserts a pause between streamed events to simulate upstream
// pacing during local development. Zero (the default) streams without
// delay.
func WithDelay(d time.Duration) Option {
	return func(r *Responder) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithIDGenerator overrides conversation/message id generation. Intended
// for tests that need stable ids.
func WithIDGenerator(fn func() string) Option {
	return func(r *Responder) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// New creates a fallback responder.
func New(opts ...Option) *Responder {
	r := &Responder{
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the responder identifier.
func (r *Responder) ID() string {
	return "fallback"
}

// Send produces a deterministic non-streaming result for the operation.
func (r *Responder) Send(ctx context.Context, op *core.Operation) (*core.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &core.Result{
		ConversationID: r.conversationID(op),
		MessageID:      r.newID(),
	}

	switch op.Kind {
	case core.KindAnalyze:
		res.Analysis = r.analyze(op)
	default:
		r.chat(op, res)
	}

	r.logger.Debug("fallback served operation", "kind", string(op.Kind))
	return res, nil
}

// Stream produces a deterministic event stream for the operation. For
// generation operations it emits the staged progress script followed by
// a complete event carrying the canned structured cases; for message
// operations it streams the scripted reply as content deltas.
func (r *Responder) Stream(ctx context.Context, op *core.Operation) (*core.EventStream, error) {
	ch := make(chan core.StreamEvent, 1)
	go r.stream(ctx, op, ch)
	return &core.EventStream{Events: ch}, nil
}

func (r *Responder) stream(ctx context.Context, op *core.Operation, ch chan<- core.StreamEvent) {
	defer close(ch)

	emit := func(ev core.StreamEvent) bool {
		if r.delay > 0 {
			timer := time.NewTimer(r.delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			select {
			case ch <- core.StreamEvent{Type: core.EventError, Err: ctx.Err().Error()}:
			default:
			}
			return false
		}
	}

	conversationID := r.conversationID(op)

	if op.Kind == core.KindGenerate {
		for _, stage := range generationStages {
			s := stage
			if !emit(core.StreamEvent{Type: core.EventProgress, Progress: &s}) {
				return
			}
		}
		payload, count := cannedCasesJSON()
		emit(core.StreamEvent{Type: core.EventComplete, Complete: &core.CompleteData{
			ConversationID: conversationID,
			MessageID:      r.newID(),
			Content:        fmt.Sprintf("Generated %d test cases.", count),
			Cases:          payload,
			Metadata:       map[string]any{"total_count": count},
		}})
		return
	}

	reply := r.scriptedReply(op)
	for _, chunk := range splitChunks(reply, 24) {
		if !emit(core.StreamEvent{Type: core.EventContent, Content: chunk}) {
			return
		}
	}
	emit(core.StreamEvent{Type: core.EventComplete, Complete: &core.CompleteData{
		ConversationID: conversationID,
		MessageID:      r.newID(),
		Content:        reply,
	}})
}

// chat fills a message-operation result from the dialogue script.
func (r *Responder) chat(op *core.Operation, res *core.Result) {
	if wantsGeneration(op.Message) {
		res.Reply = "Starting test case generation now. One moment..."
		res.ReadyToGenerate = true
		res.NeedMoreInfo = false
		return
	}
	res.Reply = r.scriptedReply(op)
	res.NeedMoreInfo = true
	res.Suggestions = append([]string(nil), chatSuggestions...)
}

// analyze builds a canned analysis whose figures are derived
// deterministically from the operation metadata.
func (r *Responder) analyze(op *core.Operation) *core.Analysis {
	analysis := &core.Analysis{}

	if _, ok := op.Metadata["case_template"]; ok {
		scenarios := 15 + int(hashOf("template:"+op.ConversationID)%16)
		analysis.TemplateInfo = fmt.Sprintf(
			"The template file contains %d test scenarios covering user management, permissions, and data operations.", scenarios)
	}
	if _, ok := op.Metadata["history_case"]; ok {
		cases := 40 + int(hashOf("history:"+op.ConversationID)%41)
		analysis.HistoryInfo = fmt.Sprintf(
			"Found %d historical cases for reference, covering login, search, and order flows.", cases)
	}
	if _, ok := op.Metadata["aw_template"]; ok {
		analysis.Suggestions = append(analysis.Suggestions,
			"An AW project template was detected; focus on interface compatibility testing.")
	}

	analysis.Suggestions = append(analysis.Suggestions,
		"Add coverage for exception scenarios",
		"Consider performance test cases",
		"Include boundary value tests",
	)
	return analysis
}

// scriptedReply picks the reply for the current turn. The turn comes
// from the metadata when the business layer tracks it, and otherwise is
// derived from the message so the choice stays deterministic.
func (r *Responder) scriptedReply(op *core.Operation) string {
	idx := -1
	switch v := op.Metadata["turn"].(type) {
	case int:
		idx = v
	case float64:
		idx = int(v)
	}
	if idx < 0 {
		idx = int(hashOf(op.Message))
	}
	return scriptedReplies[idx%len(scriptedReplies)]
}

func (r *Responder) conversationID(op *core.Operation) string {
	if op.ConversationID != "" {
		return op.ConversationID
	}
	return r.newID()
}

func wantsGeneration(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "start generation") ||
		strings.Contains(lower, "start generating") ||
		strings.Contains(lower, "start")
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func splitChunks(s string, size int) []string {
	runes := []rune(s)
	if size <= 0 || len(runes) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(runes)/size+1)
	for len(runes) > size {
		chunks = append(chunks, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// cannedCasesJSON marshals the canned structured cases once per call;
// the payload is small and the marshaling cannot fail.
func cannedCasesJSON() (json.RawMessage, int) {
	payload, err := json.Marshal(cannedCases)
	if err != nil {
		// Unreachable with the static canned data.
		return json.RawMessage("[]"), 0
	}
	return payload, len(cannedCases)
}

// Compile-time check against the core interface.
var _ core.Responder = (*Responder)(nil)
