package controller

import (
	"context"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// SafetyBanner appends an urgent-care banner to the generated response when
// a previous stage of the turn marked the session urgent.
type SafetyBanner struct{}

// NewSafetyBanner creates the safety banner controller.
func NewSafetyBanner() *SafetyBanner { return &SafetyBanner{} }

const urgentBanner = "⚠ If your symptoms get worse, or you feel this cannot wait, " +
	"call your local emergency number immediately."

// Postprocess appends the banner when isUrgent is set in the session
// context. It is idempotent across turns: the banner is not stacked.
func (c *SafetyBanner) Postprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	urgent, _ := domain.ContextValue(t.Context, "isUrgent")
	if urgent != true {
		return nil, nil
	}
	if strings.Contains(t.Response, urgentBanner) {
		return nil, nil
	}
	return &domain.ControllerResult{
		OverrideResponse: t.Response + "\n\n" + urgentBanner,
	}, nil
}
