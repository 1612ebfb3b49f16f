package turn

import (
	"encoding/json"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/session"
)

// BuildPrompt assembles the generation prompt for one turn: the node's
// question, the accumulated patient context, the reasoning notes, the recent
// conversation, and the patient's latest message. Context is rendered as
// JSON with sorted keys so the same state always yields the same prompt.
func BuildPrompt(node *domain.Node, sessionCtx map[string]any, analysis *domain.ReasoningResult, steps []domain.SessionStep, input string, historyLimit int) string {
	var b strings.Builder

	b.WriteString("Current intake question:\n")
	b.WriteString(node.Prompt)
	b.WriteString("\n")

	if len(sessionCtx) > 0 {
		if data, err := json.MarshalIndent(sessionCtx, "", "  "); err == nil {
			b.WriteString("\nPatient context:\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}

	if analysis != nil && len(analysis.Notes) > 0 {
		b.WriteString("\nClinical notes:\n")
		for _, note := range analysis.Notes {
			b.WriteString("- ")
			b.WriteString(note)
			b.WriteString("\n")
		}
	}

	if history := session.BuildConversationSummary(steps, historyLimit); history != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("\nPatient's latest message:\n")
	b.WriteString(input)

	return b.String()
}
