package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/pkg/domain"
)

func TestBMI(t *testing.T) {
	assert.InDelta(t, 22.9, BMI(70, 1.75), 0.01)
	assert.InDelta(t, 39.1, BMI(100, 1.60), 0.01)
	assert.Zero(t, BMI(0, 1.75))
	assert.Zero(t, BMI(70, 0))
}

func TestBMICategory(t *testing.T) {
	cases := []struct {
		bmi  float64
		want string
	}{
		{16.0, BMIUnderweight},
		{18.4, BMIUnderweight},
		{18.5, BMINormal},
		{22.9, BMINormal},
		{27.0, BMIOverweight},
		{32.0, BMIObese1},
		{39.1, BMIObese2},
		{40.0, BMIObese3},
		{44.0, BMIObese3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BMICategory(tc.bmi), "bmi %.1f", tc.bmi)
	}
}

func TestAnalyze_BMIDerivation(t *testing.T) {
	e := New()

	ctx := map[string]any{
		"demographics": map[string]any{"weightKg": 70.0, "heightM": 1.75},
	}
	result := e.Analyze("", ctx)

	assert.InDelta(t, 22.9, result.Scores["bmi"], 0.01)
	assert.Equal(t, "normal", result.ExtraData["bmiCategory"])
	assert.Empty(t, result.RedFlags)
}

func TestAnalyze_ObesityRaisesSingleModerateFlag(t *testing.T) {
	e := New()

	ctx := map[string]any{
		"demographics": map[string]any{"weightKg": 100.0, "heightM": 1.60},
	}
	result := e.Analyze("", ctx)

	assert.InDelta(t, 39.1, result.Scores["bmi"], 0.01)

	var obesity []domain.RedFlag
	for _, f := range result.RedFlags {
		if f.ID == "bmi_obesity" {
			obesity = append(obesity, f)
		}
	}
	require.Len(t, obesity, 1)
	assert.Equal(t, domain.SeverityModerate, obesity[0].Severity)
	assert.Contains(t, result.Recommendations.EducationTopics, "weight_management")
}

func TestAnalyze_ACSPatternEscalatesToCardiacNode(t *testing.T) {
	e := New()

	input := "Crushing pressure in my chest radiating to my left arm, sweating and nauseous"
	result := e.Analyze(input, map[string]any{})

	var acs *domain.RedFlag
	for i, f := range result.RedFlags {
		if f.ID == "cardio_acs_pattern" {
			acs = &result.RedFlags[i]
		}
	}
	require.NotNil(t, acs, "expected the acute coronary pattern flag")
	assert.Equal(t, domain.SeverityHigh, acs.Severity)
	assert.Equal(t, domain.DefaultUrgentCardiacNode, result.OverrideNextState)
	assert.GreaterOrEqual(t, result.Scores["cardiacRisk"], 7.0)
}

func TestAnalyze_CardiacScoreUsesHistoryModifiers(t *testing.T) {
	e := New()
	input := "some chest tightness when climbing stairs"

	base := e.Analyze(input, map[string]any{})

	loaded := e.Analyze(input, map[string]any{
		"demographics": map[string]any{"age": 68, "sex": "male"},
		"history":      map[string]any{"diabetes": true, "hypertension": true},
		"lifestyle":    map[string]any{"smoking": "current"},
	})

	// age>45, age>65, male, diabetes, hypertension, smoker add six points.
	assert.Equal(t, clamp10(base.Scores["cardiacRisk"]+6), loaded.Scores["cardiacRisk"])
}

func TestAnalyze_DemographicsAloneNeverScoreCardiac(t *testing.T) {
	e := New()

	result := e.Analyze("my knee hurts", map[string]any{
		"demographics": map[string]any{"age": 70, "sex": "male"},
		"history":      map[string]any{"diabetes": true, "cardiacHistory": true},
	})

	_, ok := result.Scores["cardiacRisk"]
	assert.False(t, ok)
}

func TestAnalyze_SevereBreathingEscalatesToRespiratoryNode(t *testing.T) {
	e := New()

	result := e.Analyze("I can't breathe and my lips are turning blue", map[string]any{})

	var found bool
	for _, f := range result.RedFlags {
		if f.ID == "resp_severe_distress" {
			found = true
			assert.Equal(t, domain.SeverityHigh, f.Severity)
		}
	}
	require.True(t, found)
	assert.Equal(t, domain.DefaultUrgentRespiratoryNode, result.OverrideNextState)
}

func TestLikertScore(t *testing.T) {
	cases := []struct {
		answer string
		want   int
		ok     bool
	}{
		{"not at all", 0, true},
		{"Several days", 1, true},
		{"more than half the days", 2, true},
		{"nearly every day", 3, true},
		{"2", 2, true},
		{"", 0, false},
		{"banana", 0, false},
	}
	for _, tc := range cases {
		got, ok := LikertScore(tc.answer)
		assert.Equal(t, tc.ok, ok, "answer %q", tc.answer)
		assert.Equal(t, tc.want, got, "answer %q", tc.answer)
	}
}

func TestAnalyze_PHQ2PositiveScreen(t *testing.T) {
	e := New()

	ctx := map[string]any{
		"phq2": map[string]any{
			"interest": "several days",
			"mood":     "more than half the days",
		},
	}
	result := e.Analyze("", ctx)

	assert.Equal(t, 3.0, result.Scores["phq2"])
	assert.Equal(t, true, result.ExtraData["shouldScreenForDepression"])

	var found bool
	for _, f := range result.RedFlags {
		if f.ID == "mh_phq2_positive" {
			found = true
			assert.Equal(t, domain.SeverityModerate, f.Severity)
		}
	}
	require.True(t, found)
	// A positive screen is moderate, not an escalation by itself.
	assert.Empty(t, result.OverrideNextState)
}

func TestAnalyze_PHQ2RequiresBothItems(t *testing.T) {
	e := New()

	result := e.Analyze("", map[string]any{
		"phq2": map[string]any{"interest": "nearly every day"},
	})

	_, ok := result.Scores["phq2"]
	assert.False(t, ok)
}

func TestAnalyze_SuicidalIdeationEscalates(t *testing.T) {
	e := New()

	result := e.Analyze("lately I think about ending my life", map[string]any{})

	var found bool
	for _, f := range result.RedFlags {
		if f.ID == "mh_suicidal_ideation" {
			found = true
			assert.Equal(t, domain.SeverityHigh, f.Severity)
		}
	}
	require.True(t, found)
	assert.Equal(t, domain.DefaultUrgentMentalHealthNode, result.OverrideNextState)
}

func TestAnalyze_EscalationPrecedence(t *testing.T) {
	e := New()

	// Cardiac and mental-health high flags in the same turn: mental health
	// wins regardless of detection order.
	input := "crushing chest pain radiating to my jaw, and honestly I want to kill myself"
	result := e.Analyze(input, map[string]any{})

	ids := map[string]bool{}
	for _, f := range result.RedFlags {
		ids[f.ID] = true
	}
	require.True(t, ids["cardio_acs_pattern"])
	require.True(t, ids["mh_suicidal_ideation"])
	assert.Equal(t, domain.DefaultUrgentMentalHealthNode, result.OverrideNextState)
}

func TestAnalyze_TargetsAreConfigurable(t *testing.T) {
	e := New(WithTargets(Targets{
		Cardiac:      "er_cardiac",
		Respiratory:  "er_resp",
		MentalHealth: "crisis_line",
	}))

	result := e.Analyze("I want to hurt myself", map[string]any{})
	assert.Equal(t, "crisis_line", result.OverrideNextState)
}

func TestRecommendScreenings(t *testing.T) {
	e := New()

	t.Run("older female smoker", func(t *testing.T) {
		result := e.Analyze("", map[string]any{
			"demographics": map[string]any{"age": 52, "sex": "female"},
			"lifestyle":    map[string]any{"smoking": "former"},
		})
		s := result.Recommendations.ScreeningSuggestions
		assert.Contains(t, s, "mammography")
		assert.Contains(t, s, "colorectal_cancer_screening")
		assert.Contains(t, s, "lung_cancer_ct")
		assert.NotContains(t, s, "prostate_cancer_discussion")
	})

	t.Run("young male never smoker", func(t *testing.T) {
		result := e.Analyze("", map[string]any{
			"demographics": map[string]any{"age": 30, "sex": "male"},
		})
		s := result.Recommendations.ScreeningSuggestions
		assert.Contains(t, s, "blood_pressure_check")
		assert.NotContains(t, s, "colorectal_cancer_screening")
		assert.NotContains(t, s, "lung_cancer_ct")
		assert.NotContains(t, s, "mammography")
	})

	t.Run("unknown age emits nothing", func(t *testing.T) {
		result := e.Analyze("", map[string]any{})
		assert.Empty(t, result.Recommendations.ScreeningSuggestions)
	})
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := New()
	ctx := map[string]any{
		"demographics": map[string]any{"age": 58, "sex": "male", "weightKg": 98.0, "heightM": 1.7},
		"history":      map[string]any{"hypertension": true},
		"lifestyle":    map[string]any{"smoking": "current"},
	}

	a := e.Analyze("chest pressure when walking uphill", ctx)
	b := e.Analyze("chest pressure when walking uphill", ctx)

	assert.Equal(t, a, b)
}
