package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/petal-labs/relay/core"
)

func TestStreamDeliversEvents(t *testing.T) {
	records := []string{
		`{"event": "workflow_started", "conversation_id": "conv-9"}`,
		`{"event": "message", "answer": "Generating", "message_id": "msg-1"}`,
		`{"event": "message", "answer": " cases..."}`,
		`{"event": "message_end", "usage": {"total_tokens": 33}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseMode != "streaming" {
			t.Errorf("response_mode = %q, want streaming", req.ResponseMode)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, rec := range records {
			fmt.Fprintf(w, "data: %s\n", rec)
			flusher.Flush()
		}
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	stream, err := agent.Stream(context.Background(), &core.Operation{Kind: core.KindGenerate})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	data, err := core.Drain(context.Background(), stream)
	if err != nil {
		t.Fatalf("Drain() error: %v", err)
	}
	if data.Content != "Generating cases..." {
		t.Errorf("Content = %q, want accumulated deltas", data.Content)
	}
	if data.ConversationID != "conv-9" || data.MessageID != "msg-1" {
		t.Errorf("ids = %q/%q, want conv-9/msg-1", data.ConversationID, data.MessageID)
	}
	if data.Usage.TotalTokens != 33 {
		t.Errorf("TotalTokens = %d, want 33", data.Usage.TotalTokens)
	}
}

func TestStreamErrorStatusBeforeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(errorResponse{Code: "conversation_not_exists", Message: "gone"})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	_, err := agent.Stream(context.Background(), &core.Operation{Kind: core.KindMessage, Message: "x"})
	if !errors.Is(err, core.ErrConversationNotFound) {
		t.Errorf("Stream() error = %v, want ErrConversationNotFound", err)
	}
}

func TestStreamUpstreamErrorRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"event\": \"message\", \"answer\": \"so far\"}\n")
		fmt.Fprint(w, "data: {\"event\": \"error\", \"code\": \"internal\", \"message\": \"model crashed\"}\n")
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	stream, err := agent.Stream(context.Background(), &core.Operation{Kind: core.KindGenerate})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	_, err = core.Drain(context.Background(), stream)
	if err == nil {
		t.Fatal("Drain() error = nil, want the upstream error record")
	}
}

func TestStreamServerDiesMidStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"event\": \"message\", \"answer\": \"partial\"}\n")
		// Connection drops without a terminal record.
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	stream, err := agent.Stream(context.Background(), &core.Operation{Kind: core.KindGenerate})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	var sawContent, sawError bool
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-stream.Events:
			if !ok {
				done = true
				break
			}
			switch ev.Type {
			case core.EventContent:
				sawContent = true
			case core.EventError:
				sawError = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for the stream to terminate")
		}
	}

	if !sawContent {
		t.Error("delivered content before the drop was lost")
	}
	if !sawError {
		t.Error("no synthesized error after the server died mid-stream")
	}
}

func TestStreamCancellationClosesBody(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"event\": \"message\", \"answer\": \"hi\"}\n")
		w.(http.Flusher).Flush()
		// Hold the stream open until the client goes away.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	agent := New(server.URL, "test-token")
	stream, err := agent.Stream(ctx, &core.Operation{Kind: core.KindGenerate})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	// Consume the first event, then abandon the stream.
	select {
	case <-stream.Events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first event")
	}
	cancel()

	// The processor owns the body; cancellation must end the channel.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-stream.Events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}
