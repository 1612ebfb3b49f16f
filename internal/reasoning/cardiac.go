package reasoning

import (
	"fmt"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// scoreRule is one additive entry of a symptom score table.
type scoreRule struct {
	pattern *regexp.Regexp
	points  float64
	note    string
}

// cardiacRules is the additive 0-10 chest-pain table over the input text.
var cardiacRules = []scoreRule{
	{regexp.MustCompile(`\b(?:chest|sternum|breastbone)\b`), 1, "chest location"},
	{regexp.MustCompile(`\b(?:crushing|squeezing|pressure|tight(?:ness)?|heavy|elephant)\b`), 2, "pressure-type quality"},
	{regexp.MustCompile(`\b(?:radiat|spread|jaw|left arm|shoulder)`), 2, "radiation"},
	{regexp.MustCompile(`\b(?:sweat|diaphore|clammy)`), 1, "diaphoresis"},
	{regexp.MustCompile(`\b(?:nausea|nauseous|vomit)`), 1, "nausea"},
	{regexp.MustCompile(`\b(?:short(?:ness)? of breath|breathless)\b`), 1, "dyspnea"},
	{regexp.MustCompile(`\b(?:exert|exercise|walking|climbing|stairs|effort)`), 1, "exertional"},
	{regexp.MustCompile(`\b(?:sudden(?:ly)?|out of nowhere)\b`), 1, "sudden onset"},
	{regexp.MustCompile(`\b(?:minutes|ongoing|constant|won'?t stop)\b`), 1, "persistent"},
}

// scoreCardiac computes the 0-10 cardiac risk score: the additive symptom
// table over the input plus demographic and history modifiers, clamped.
func (e *Engine) scoreCardiac(input string, p *Profile, result *domain.ReasoningResult) {
	score := applyScoreRules(cardiacRules, input)
	if score == 0 {
		// No cardiac language this turn; demographics alone never
		// create a cardiac score.
		return
	}

	if p.Demographics.Age > 45 {
		score++
	}
	if p.Demographics.Age > 65 {
		score++
	}
	if p.Demographics.Sex == "male" {
		score++
	}
	if p.History.Diabetes {
		score++
	}
	if p.History.Hypertension {
		score++
	}
	if p.History.Dyslipidemia {
		score++
	}
	if p.History.CardiacHistory {
		score++
	}
	if p.CurrentSmoker() {
		score++
	}

	score = clamp10(score)
	result.Scores["cardiacRisk"] = score
	result.ExtraData["cardiacRiskScore"] = score
	addNote(result, fmt.Sprintf("cardiac risk score %.0f/10", score))

	if score >= 7 {
		addFlag(result, "cardio_high_risk_score", "Elevated cardiac risk",
			fmt.Sprintf("additive chest pain score %.0f/10", score),
			domain.SeverityModerate)
		result.Recommendations.FollowUpQuestions = append(result.Recommendations.FollowUpQuestions,
			"How long has the chest discomfort lasted this time?")
	}
}

func applyScoreRules(rules []scoreRule, input string) float64 {
	var score float64
	for _, r := range rules {
		if r.pattern.MatchString(input) {
			score += r.points
		}
	}
	return score
}

func clamp10(v float64) float64 {
	if v > 10 {
		return 10
	}
	if v < 0 {
		return 0
	}
	return v
}
