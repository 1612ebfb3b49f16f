package controller

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// CardioSymptoms extracts chest-pain characteristics on cardio-context
// nodes and escalates immediately when the answer alone is enough to
// recognize a possible acute coronary pattern, without waiting for the
// reasoning pass.
type CardioSymptoms struct {
	urgentNode string
}

// NewCardioSymptoms creates the controller. urgentNode is the node the
// conversation jumps to on an immediate escalation.
func NewCardioSymptoms(urgentNode string) *CardioSymptoms {
	return &CardioSymptoms{urgentNode: urgentNode}
}

var cardioRules = []rule{
	{regexp.MustCompile(`\b(?:crushing|squeezing|pressure|tight(?:ness)?|heavy|elephant)\b`), setString("quality", "pressure")},
	{regexp.MustCompile(`\b(?:sharp|stabbing)\b`), setString("quality", "sharp")},
	{regexp.MustCompile(`\bburn(?:ing)?\b`), setString("quality", "burning")},
	{regexp.MustCompile(`\b(?:chest|sternum|breastbone)\b`), setFlag("chestLocation")},
	{regexp.MustCompile(`\b(?:radiat|spread|jaw|left arm|shoulder|my arm|my back)`), setFlag("radiation")},
	{regexp.MustCompile(`\b(?:sweat|diaphore|clammy)`), setFlag("diaphoresis")},
	{regexp.MustCompile(`\b(?:nausea|nauseous|vomit|throw(?:ing)? up)\b`), setFlag("nausea")},
	{regexp.MustCompile(`\b(?:short(?:ness)? of breath|breathless|can'?t catch my breath)\b`), setFlag("dyspnea")},
	{regexp.MustCompile(`\b(?:exert|exercise|walking|climbing|stairs|effort)`), setFlag("exertional")},
	{regexp.MustCompile(`\b(?:minutes|ongoing|constant|won'?t stop|still hurts)\b`), setFlag("persistent")},
	{regexp.MustCompile(`\b(?:sudden(?:ly)?|out of nowhere)\b`), setFlag("suddenOnset")},
}

// The immediate-escalation pattern: pressure-type pain with radiation or
// autonomic symptoms.
func cardioCritical(data map[string]any) bool {
	if q, _ := data["quality"].(string); q != "pressure" {
		return false
	}
	return data["radiation"] == true || data["diaphoresis"] == true || data["nausea"] == true
}

const cardioUrgentResponse = "I'm concerned about the symptoms you're describing. " +
	"Chest pressure together with those signs can indicate a heart problem that needs " +
	"immediate attention. Please call your local emergency number or have someone take " +
	"you to an emergency department now."

// Preprocess extracts the cardio feature set and decides on escalation.
func (c *CardioSymptoms) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	features := map[string]any{}
	if !runRules(cardioRules, input, features) {
		return nil, nil
	}

	// Small additive score over the extracted features; the reasoning
	// engine computes the full 0-10 risk score with history modifiers.
	score := 0
	if features["quality"] == "pressure" {
		score += 3
	}
	if features["radiation"] == true {
		score += 2
	}
	if features["diaphoresis"] == true {
		score += 2
	}
	if features["nausea"] == true {
		score++
	}
	if features["exertional"] == true {
		score++
	}
	features["featureScore"] = score

	result := &domain.ControllerResult{
		ExtraData: map[string]any{"cardio": features},
	}

	if cardioCritical(features) {
		result.OverrideNextState = c.urgentNode
		result.OverrideResponse = cardioUrgentResponse
		result.ExtraData["isUrgent"] = true
	}
	return result, nil
}
