package openai

import (
	"context"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// cannedResponse pairs prompt keywords with a deterministic reply.
type cannedResponse struct {
	keywords []string
	text     string
}

// cannedResponses is scanned in order; the first entry with a keyword
// present in the prompt wins.
var cannedResponses = []cannedResponse{
	{
		keywords: []string{"urgent", "emergency", "911"},
		text: "Based on what you've shared, please seek immediate medical attention. " +
			"If your symptoms are severe, call your local emergency number now.",
	},
	{
		keywords: []string{"chest", "cardiac", "heart"},
		text: "Thank you for telling me about your chest symptoms. " +
			"Could you describe when they started and what makes them better or worse?",
	},
	{
		keywords: []string{"breath", "respiratory", "cough"},
		text: "Thank you for describing your breathing. " +
			"Does it change with activity, or does it happen at rest as well?",
	},
	{
		keywords: []string{"summary", "recap"},
		text:     "Thank you for completing the intake. A clinician will review everything you've shared.",
	},
	{
		keywords: []string{"medication", "prescription"},
		text:     "Thanks. Are you currently taking any other medications, vitamins, or supplements?",
	},
}

const defaultCanned = "Thank you. Let's continue with the next question."

// Fallback is a pure deterministic generator. It is both the last resort of
// the API-backed generator and a standalone choice for offline runs.
type Fallback struct{}

// NewFallback creates the deterministic generator.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Generate picks a canned reply from keywords in the prompt. It never fails.
func (f *Fallback) Generate(ctx context.Context, prompt string) *domain.GenerationResult {
	return &domain.GenerationResult{
		Content: cannedFor(prompt),
		Source:  domain.SourceFallback,
	}
}

func cannedFor(prompt string) string {
	lowered := strings.ToLower(prompt)
	for _, c := range cannedResponses {
		for _, kw := range c.keywords {
			if strings.Contains(lowered, kw) {
				return c.text
			}
		}
	}
	return defaultCanned
}
