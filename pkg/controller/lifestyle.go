package controller

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Lifestyle extracts smoking, alcohol and activity habits.
type Lifestyle struct{}

// NewLifestyle creates the lifestyle controller.
func NewLifestyle() *Lifestyle { return &Lifestyle{} }

var lifestyleRules = []rule{
	{regexp.MustCompile(`\b(?:i smoke|smoker|smoking|cigarettes? a day|pack a day|vap(?:e|ing))\b`), setString("smoking", "current")},
	{regexp.MustCompile(`\b(?:quit smoking|used to smoke|former smoker|stopped smoking)\b`), setString("smoking", "former")},
	{regexp.MustCompile(`\b(?:never smoked|don'?t smoke|non[- ]?smoker)\b`), setString("smoking", "never")},
	{regexp.MustCompile(`\b(?:drink|alcohol|beer|wine|liquor)\b`), setFlag("drinksAlcohol")},
	{regexp.MustCompile(`\b(?:daily|every day|most days)\b`), setFlag("dailyHabit")},
	{regexp.MustCompile(`\b(?:exercise|gym|run(?:ning)?|work(?:ing)? out|sports?)\b`), setFlag("exercises")},
	{regexp.MustCompile(`\b(?:sedentary|no exercise|don'?t exercise)\b`), setString("activity", "sedentary")},
}

// Preprocess populates the "lifestyle" context object. The later rules can
// refine earlier ones ("used to smoke" overrides the bare "smoke" match),
// which is why order matters in the chain.
func (c *Lifestyle) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)

	found := map[string]any{}
	if !runRules(lifestyleRules, input, found) {
		return nil, nil
	}

	extra := map[string]any{"lifestyle": found}
	if found["smoking"] == "current" {
		extra["currentSmoker"] = true
	}

	return &domain.ControllerResult{ExtraData: extra}, nil
}
