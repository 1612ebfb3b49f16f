package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/domain"
)

func TestMetrics_HooksRecord(t *testing.T) {
	m := NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTurnComplete(ctx, &domain.TurnEvent{
		NodeID:   "welcome",
		Source:   domain.SourceGenerated,
		Duration: 120 * time.Millisecond,
	})
	hooks.OnRedFlag(ctx, &domain.RedFlagEvent{
		FlagID:   "cardio_acs_pattern",
		Severity: domain.SeverityHigh,
	})
	hooks.OnEscalation(ctx, &domain.EscalationEvent{
		Origin:     "reasoning",
		TargetNode: "urgent_cardiac",
	})
	hooks.OnGenerationFallback(ctx, &domain.GenerationEvent{Err: "timeout"})

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, recorder.Code)

	body := recorder.Body.String()
	assert.Contains(t, body, `intake_turns_total{node_id="welcome",source="generated"} 1`)
	assert.Contains(t, body, `intake_red_flags_total{flag_id="cardio_acs_pattern",severity="high"} 1`)
	assert.Contains(t, body, `intake_escalations_total{origin="reasoning",target="urgent_cardiac"} 1`)
	assert.Contains(t, body, "intake_generation_fallbacks_total 1")
}
