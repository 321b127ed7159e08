package agentapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/petal-labs/relay/core"
)

// healthProbeTimeout bounds the parameters probe when no client timeout
// is configured.
const healthProbeTimeout = 5 * time.Second

// readinessMarkers are the phrases in an agent reply that signal the
// dialogue has gathered enough requirements to start generating.
var readinessMarkers = []string{
	"ready to generate",
	"start generation",
	"start generating",
}

// mapResponse converts a blocking wire response into the uniform Result
// shape.
func mapResponse(op *core.Operation, resp *chatResponse) *core.Result {
	res := &core.Result{
		ConversationID: resp.ConversationID,
		MessageID:      resp.MessageID,
		Reply:          resp.Answer,
		Usage:          resp.Metadata.Usage,
	}

	switch op.Kind {
	case core.KindAnalyze:
		res.Analysis = parseAnalysis(resp.Answer)
	default:
		ready := replySignalsReadiness(resp.Answer)
		res.ReadyToGenerate = ready
		res.NeedMoreInfo = !ready
	}
	return res
}

// parseAnalysis decodes a structured analysis from the agent's reply.
// Replies that are not valid analysis JSON degrade to a minimal result
// instead of failing the operation.
func parseAnalysis(answer string) *core.Analysis {
	var analysis core.Analysis
	if err := json.Unmarshal([]byte(answer), &analysis); err != nil {
		return &core.Analysis{TemplateInfo: strings.TrimSpace(answer)}
	}
	return &analysis
}

func replySignalsReadiness(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range readinessMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
