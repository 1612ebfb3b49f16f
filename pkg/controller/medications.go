package controller

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Medications turns a free-text medication answer into a structured list.
// "none" (and friends) is a real answer, not an unmatched input: it yields
// an empty list plus the noMedications flag.
type Medications struct{}

// NewMedications creates the medications controller.
func NewMedications() *Medications { return &Medications{} }

var (
	noMedsPattern = regexp.MustCompile(`^\s*(?:none|nothing|no|nope|no medications?|not taking any(?:thing)?|i don'?t take any(?:thing)?)\s*\.?\s*$`)

	// Noise dropped before list splitting.
	medsLeadIn = regexp.MustCompile(`^(?:i\s*(?:am|'m)?\s*(?:currently\s*)?(?:tak(?:e|ing)|on|use|using)\s*)`)

	anticoagulants = regexp.MustCompile(`\b(?:warfarin|coumadin|xarelto|rivaroxaban|eliquis|apixaban|pradaxa|dabigatran|heparin)\b`)
	insulinPattern = regexp.MustCompile(`\binsulin\b`)
)

// Preprocess extracts the medication list.
func (c *Medications) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	if noMedsPattern.MatchString(input) {
		return &domain.ControllerResult{
			ExtraData: map[string]any{
				"medications":   []string{},
				"noMedications": true,
			},
		}, nil
	}

	cleaned := medsLeadIn.ReplaceAllString(input, "")
	meds := splitList(cleaned)
	if len(meds) == 0 {
		return nil, nil
	}

	extra := map[string]any{
		"medications":     meds,
		"medicationCount": len(meds),
		"noMedications":   false,
	}
	if anticoagulants.MatchString(input) {
		extra["onAnticoagulants"] = true
	}
	if insulinPattern.MatchString(input) {
		extra["onInsulin"] = true
	}

	return &domain.ControllerResult{ExtraData: extra}, nil
}
