package agentapi

import (
	"github.com/petal-labs/relay/core"
)

// chatMessagesPath is the API endpoint for both blocking and streaming
// conversational calls.
const chatMessagesPath = "/chat-messages"

// parametersPath is the API endpoint used as a lightweight health probe.
const parametersPath = "/parameters"

// responseMode values accepted by the backend.
const (
	responseModeBlocking  = "blocking"
	responseModeStreaming = "streaming"
)

// chatRequest is the wire shape of a chat-messages request.
type chatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
}

// chatResponse is the wire shape of a blocking chat-messages response.
type chatResponse struct {
	Answer         string       `json:"answer"`
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	Metadata       chatMetadata `json:"metadata"`
}

type chatMetadata struct {
	Usage core.Usage `json:"usage"`
}

// errorResponse is the wire shape of an error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}
