package controller

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// RespiratorySymptoms extracts breathing-related features and escalates on
// signs of severe respiratory distress.
type RespiratorySymptoms struct {
	urgentNode string
}

// NewRespiratorySymptoms creates the controller.
func NewRespiratorySymptoms(urgentNode string) *RespiratorySymptoms {
	return &RespiratorySymptoms{urgentNode: urgentNode}
}

var respiratoryRules = []rule{
	{regexp.MustCompile(`\b(?:can'?t breathe|cannot breathe|gasping|suffocat)`), setFlag("severeDistress")},
	{regexp.MustCompile(`\b(?:lips?|fingers?|skin) (?:are |is )?(?:turning )?blue\b|\bcyanosis\b`), setFlag("cyanosis")},
	{regexp.MustCompile(`\b(?:coughing (?:up )?blood|blood in (?:my )?(?:cough|sputum|phlegm)|hemoptysis)\b`), setFlag("hemoptysis")},
	{regexp.MustCompile(`\b(?:at rest|sitting still|lying down|doing nothing)\b`), setFlag("atRest")},
	{regexp.MustCompile(`\b(?:exert|stairs|walking|activity|effort)`), setFlag("exertional")},
	{regexp.MustCompile(`\bwheez`), setFlag("wheezing")},
	{regexp.MustCompile(`\b(?:confus|drowsy|hard to stay awake|dizzy|faint)`), setFlag("alteredMentation")},
	{regexp.MustCompile(`\b(?:getting worse|worsening|worse every|progressi)`), setFlag("progressive")},
	{regexp.MustCompile(`\b(?:days|weeks)\b`), setFlag("prolonged")},
}

const respiratoryUrgentResponse = "Severe difficulty breathing is an emergency. " +
	"Please call your local emergency number right away, or have someone take you to " +
	"an emergency department immediately."

// Preprocess extracts the respiratory feature set and decides on escalation.
func (c *RespiratorySymptoms) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	features := map[string]any{}
	if !runRules(respiratoryRules, input, features) {
		return nil, nil
	}

	result := &domain.ControllerResult{
		ExtraData: map[string]any{"respiratory": features},
	}

	if features["severeDistress"] == true || features["cyanosis"] == true || features["alteredMentation"] == true {
		result.OverrideNextState = c.urgentNode
		result.OverrideResponse = respiratoryUrgentResponse
		result.ExtraData["isUrgent"] = true
	}
	return result, nil
}
