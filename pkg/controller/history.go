package controller

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// MedicalHistory maps a free-text condition answer onto the known-condition
// flags the reasoning engine uses as risk modifiers.
type MedicalHistory struct{}

// NewMedicalHistory creates the medical history controller.
func NewMedicalHistory() *MedicalHistory { return &MedicalHistory{} }

var historyRules = []rule{
	{regexp.MustCompile(`\b(?:diabetes|diabetic|type\s*[12])\b`), setFlag("diabetes")},
	{regexp.MustCompile(`\b(?:hypertension|high blood pressure|htn)\b`), setFlag("hypertension")},
	{regexp.MustCompile(`\b(?:high cholesterol|dyslipidemia|hyperlipidemia|statin)\b`), setFlag("dyslipidemia")},
	{regexp.MustCompile(`\b(?:heart attack|myocardial|stent|bypass|angina|heart disease|afib|atrial fibrillation)\b`), setFlag("cardiacHistory")},
	{regexp.MustCompile(`\bstroke|tia\b`), setFlag("strokeHistory")},
	{regexp.MustCompile(`\basthma\b`), setFlag("asthma")},
	{regexp.MustCompile(`\b(?:copd|emphysema|chronic bronchitis)\b`), setFlag("copd")},
	{regexp.MustCompile(`\bcancer\b`), setFlag("cancerHistory")},
	{regexp.MustCompile(`\b(?:kidney disease|renal|dialysis)\b`), setFlag("kidneyDisease")},
	{regexp.MustCompile(`\b(?:depression|anxiety|bipolar)\b`), setFlag("mentalHealthHistory")},
}

var noConditionsPattern = regexp.MustCompile(`^\s*(?:none|nothing|no|nope|healthy|no conditions?|nothing i know of)\s*\.?\s*$`)

// Preprocess populates the "history" context object.
func (c *MedicalHistory) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	if noConditionsPattern.MatchString(input) {
		return &domain.ControllerResult{
			ExtraData: map[string]any{
				"history": map[string]any{"noKnownConditions": true},
			},
		}, nil
	}

	found := map[string]any{}
	if !runRules(historyRules, input, found) {
		return nil, nil
	}

	return &domain.ControllerResult{
		ExtraData: map[string]any{"history": found},
	}, nil
}
