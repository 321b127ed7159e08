package agentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/petal-labs/relay/core"
)

func TestSendBlockingSuccess(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat-messages" {
			t.Errorf("path = %s, want /chat-messages", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}

		json.NewEncoder(w).Encode(chatResponse{
			Answer:         "Tell me more about the login flow.",
			ConversationID: "conv-42",
			MessageID:      "msg-7",
			Metadata:       chatMetadata{Usage: core.Usage{TotalTokens: 21}},
		})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	res, err := agent.Send(context.Background(), &core.Operation{
		Kind:           core.KindMessage,
		ConversationID: "conv-42",
		Message:        "The app has a login page.",
		Metadata:       map[string]any{"aw_template": "tpl.xml"},
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.ResponseMode != "blocking" {
		t.Errorf("response_mode = %q, want blocking", gotReq.ResponseMode)
	}
	if gotReq.Query != "The app has a login page." {
		t.Errorf("query = %q, want the message text", gotReq.Query)
	}
	if gotReq.ConversationID != "conv-42" {
		t.Errorf("conversation_id = %q, want conv-42", gotReq.ConversationID)
	}
	if gotReq.User != DefaultUser {
		t.Errorf("user = %q, want default %q", gotReq.User, DefaultUser)
	}
	if gotReq.Inputs["aw_template"] != "tpl.xml" {
		t.Errorf("inputs = %v, want metadata passthrough", gotReq.Inputs)
	}

	if res.ConversationID != "conv-42" || res.MessageID != "msg-7" {
		t.Errorf("ids = %q/%q, want conv-42/msg-7", res.ConversationID, res.MessageID)
	}
	if res.Reply != "Tell me more about the login flow." {
		t.Errorf("Reply = %q, want the answer", res.Reply)
	}
	if res.Usage.TotalTokens != 21 {
		t.Errorf("TotalTokens = %d, want 21", res.Usage.TotalTokens)
	}
	if !res.NeedMoreInfo || res.ReadyToGenerate {
		t.Errorf("NeedMoreInfo = %v, ReadyToGenerate = %v, want dialogue continuing", res.NeedMoreInfo, res.ReadyToGenerate)
	}
}

func TestSendOmitsEmptyConversationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		json.NewDecoder(r.Body).Decode(&raw)
		if _, present := raw["conversation_id"]; present {
			t.Error("conversation_id sent for a new conversation, want omitted")
		}
		json.NewEncoder(w).Encode(chatResponse{Answer: "hi", ConversationID: "conv-new"})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	res, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindMessage, Message: "hello"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if res.ConversationID != "conv-new" {
		t.Errorf("ConversationID = %q, want the server-assigned id", res.ConversationID)
	}
}

func TestSendReadinessDetection(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantReady bool
	}{
		{"ready phrase", "I have enough details. Ready to generate the cases.", true},
		{"start generation", "You can now START GENERATION.", true},
		{"still gathering", "What browsers must be covered?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(chatResponse{Answer: tt.answer})
			}))
			defer server.Close()

			agent := New(server.URL, "test-token")
			res, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindMessage, Message: "x"})
			if err != nil {
				t.Fatalf("Send() error: %v", err)
			}
			if res.ReadyToGenerate != tt.wantReady {
				t.Errorf("ReadyToGenerate = %v, want %v", res.ReadyToGenerate, tt.wantReady)
			}
			if res.NeedMoreInfo == tt.wantReady {
				t.Errorf("NeedMoreInfo = %v, want inverse of readiness", res.NeedMoreInfo)
			}
		})
	}
}

func TestSendAnalyzeParsesStructuredReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "Analyze the uploaded files." {
			t.Errorf("query = %q, want the default analyze prompt", req.Query)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Answer: `{"template_info": "3 scenario groups", "history_info": "120 prior cases", "suggestions": ["cover logout"]}`,
		})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	res, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindAnalyze})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if res.Analysis == nil {
		t.Fatal("Analysis = nil, want parsed analysis")
	}
	if res.Analysis.TemplateInfo != "3 scenario groups" {
		t.Errorf("TemplateInfo = %q", res.Analysis.TemplateInfo)
	}
	if len(res.Analysis.Suggestions) != 1 || res.Analysis.Suggestions[0] != "cover logout" {
		t.Errorf("Suggestions = %v", res.Analysis.Suggestions)
	}
}

func TestSendAnalyzeDegradesUnstructuredReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Answer: "  The template has three sections.  "})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	res, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindAnalyze})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if res.Analysis == nil || res.Analysis.TemplateInfo != "The template has three sections." {
		t.Errorf("Analysis = %+v, want trimmed free-text degradation", res.Analysis)
	}
}

func TestSendUserFromMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.User != "alice" {
			t.Errorf("user = %q, want alice", req.User)
		}
		json.NewEncoder(w).Encode(chatResponse{Answer: "hi"})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	_, err := agent.Send(context.Background(), &core.Operation{
		Kind:     core.KindMessage,
		Message:  "x",
		Metadata: map[string]any{"user": "alice"},
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestSendTimeoutClassifiedAsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(chatResponse{Answer: "late"})
	}))
	defer server.Close()

	agent := New(server.URL, "test-token", WithTimeout(20*time.Millisecond))
	_, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindMessage, Message: "x"})
	if err == nil {
		t.Fatal("Send() error = nil, want timeout")
	}
	if core.Classify(err) != core.ClassTimeout {
		t.Errorf("Classify() = %v, want ClassTimeout (err: %v)", core.Classify(err), err)
	}
}

func TestSendConnectionRefusedClassifiedAsNetwork(t *testing.T) {
	// A server that is already closed refuses connections.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	agent := New(server.URL, "test-token")
	_, err := agent.Send(context.Background(), &core.Operation{Kind: core.KindMessage, Message: "x"})
	if err == nil {
		t.Fatal("Send() error = nil, want network failure")
	}
	if core.Classify(err) != core.ClassNetwork {
		t.Errorf("Classify() = %v, want ClassNetwork (err: %v)", core.Classify(err), err)
	}
}

func TestCheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parameters" {
			t.Errorf("path = %s, want /parameters", r.URL.Path)
		}
		w.Write([]byte(`{"opening_statement": ""}`))
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	if err := agent.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() error: %v", err)
	}
}

func TestCheckHealthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	agent := New(server.URL, "test-token")
	err := agent.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("CheckHealth() error = nil, want failure")
	}
	if core.Classify(err) != core.ClassServer {
		t.Errorf("Classify() = %v, want ClassServer", core.Classify(err))
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(DefaultTokenEnvVar, "")
	if _, err := NewFromEnv("http://example.invalid"); err != ErrTokenNotFound {
		t.Errorf("NewFromEnv() error = %v, want ErrTokenNotFound", err)
	}

	t.Setenv(DefaultTokenEnvVar, "env-token")
	agent, err := NewFromEnv("http://example.invalid")
	if err != nil {
		t.Fatalf("NewFromEnv() error: %v", err)
	}
	if agent.config.Token.Expose() != "env-token" {
		t.Error("token not taken from the environment")
	}
}
