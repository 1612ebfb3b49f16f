package controller

import (
	"context"
	"regexp"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// MentalHealth records PHQ-2 answers and escalates immediately on suicidal
// ideation. The same controller serves both PHQ-2 question nodes; which
// item an answer belongs to comes from the node's "phq2_item" metadata
// (falling back to a node-ID heuristic).
type MentalHealth struct {
	urgentNode string
}

// NewMentalHealth creates the controller.
func NewMentalHealth(urgentNode string) *MentalHealth {
	return &MentalHealth{urgentNode: urgentNode}
}

var suicidalIdeation = regexp.MustCompile(`\b(?:suicid|kill(?:ing)? myself|end(?:ing)? (?:my life|it all)|don'?t want to (?:live|be alive|wake up)|better off dead|hurt(?:ing)? myself|self[- ]harm)`)

const mentalHealthUrgentResponse = "Thank you for telling me. What you're describing matters, " +
	"and you deserve support right now. Please reach out to a crisis line immediately " +
	"(in the US, call or text 988) or go to the nearest emergency department. " +
	"You don't have to go through this alone."

// Preprocess stores the Likert answer for the node's PHQ-2 item and screens
// the raw text for crisis language.
func (c *MentalHealth) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	if suicidalIdeation.MatchString(input) {
		return &domain.ControllerResult{
			OverrideNextState: c.urgentNode,
			OverrideResponse:  mentalHealthUrgentResponse,
			ExtraData: map[string]any{
				"isUrgent":               true,
				"suicidalIdeationRaised": true,
			},
		}, nil
	}

	item := c.itemFor(t.Node)
	if item == "" || input == "" {
		return nil, nil
	}

	return &domain.ControllerResult{
		ExtraData: map[string]any{
			"phq2": map[string]any{item: t.Input},
		},
	}, nil
}

func (c *MentalHealth) itemFor(node *domain.Node) string {
	if node == nil {
		return ""
	}
	if item, ok := node.Metadata["phq2_item"]; ok {
		return item
	}
	switch {
	case strings.Contains(node.ID, "interest"):
		return "interest"
	case strings.Contains(node.ID, "mood"), strings.Contains(node.ID, "down"):
		return "mood"
	}
	return ""
}
