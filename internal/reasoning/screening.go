package reasoning

import (
	"github.com/meridianhealth/intake/pkg/domain"
)

// guideline is one preventive-screening rule. Zero bounds mean unbounded;
// an empty sex matches everyone; a nil riskGate matches everyone.
type guideline struct {
	id       string
	minAge   int
	maxAge   int
	sex      string
	riskGate func(*Profile) bool
}

var defaultGuidelines = []guideline{
	{id: "blood_pressure_check", minAge: 18},
	{id: "lipid_panel", minAge: 40},
	{id: "colorectal_cancer_screening", minAge: 45, maxAge: 75},
	{id: "mammography", minAge: 40, maxAge: 74, sex: "female"},
	{id: "cervical_cancer_screening", minAge: 21, maxAge: 65, sex: "female"},
	{id: "prostate_cancer_discussion", minAge: 55, maxAge: 69, sex: "male"},
	{id: "lung_cancer_ct", minAge: 50, maxAge: 80, riskGate: (*Profile).EverSmoked},
	{id: "diabetes_screening", minAge: 35, maxAge: 70, riskGate: func(p *Profile) bool {
		return !p.History.Diabetes
	}},
}

// recommendScreenings emits age- and sex-appropriate preventive screening
// suggestions. It only runs once age is known.
func (e *Engine) recommendScreenings(p *Profile, result *domain.ReasoningResult) {
	age := p.Demographics.Age
	if age <= 0 {
		return
	}

	for _, g := range e.guidelines {
		if age < g.minAge {
			continue
		}
		if g.maxAge > 0 && age > g.maxAge {
			continue
		}
		if g.sex != "" && p.Demographics.Sex != g.sex {
			continue
		}
		if g.riskGate != nil && !g.riskGate(p) {
			continue
		}
		result.Recommendations.ScreeningSuggestions = append(
			result.Recommendations.ScreeningSuggestions, g.id)
	}
}
