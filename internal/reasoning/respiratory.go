package reasoning

import (
	"fmt"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// respiratoryRules is the additive 0-10 severity table for breathing
// complaints.
var respiratoryRules = []scoreRule{
	{regexp.MustCompile(`\b(?:can'?t breathe|cannot breathe|gasping|suffocat|severe)\b`), 3, "severe descriptor"},
	{regexp.MustCompile(`\b(?:at rest|sitting still|lying down|doing nothing)\b`), 2, "dyspnea at rest"},
	{regexp.MustCompile(`\b(?:exert|stairs|walking|activity|effort)`), 1, "exertional dyspnea"},
	{regexp.MustCompile(`\b(?:lips?|fingers?|skin) (?:are |is )?(?:turning )?blue\b|\bcyanosis\b`), 3, "cyanosis"},
	{regexp.MustCompile(`\b(?:coughing (?:up )?blood|blood in (?:my )?(?:cough|sputum|phlegm)|hemoptysis)\b`), 2, "hemoptysis"},
	{regexp.MustCompile(`\b(?:confus|drowsy|hard to stay awake)`), 2, "altered mentation"},
	{regexp.MustCompile(`\bwheez`), 1, "wheezing"},
	{regexp.MustCompile(`\b(?:getting worse|worsening|worse every|progressi)`), 1, "progressive"},
	{regexp.MustCompile(`\b(?:days|weeks)\b`), 1, "prolonged duration"},
}

// breathingTopic gates scoring to turns that talk about breathing at all.
var breathingTopic = regexp.MustCompile(`\b(?:breath|breathe|breathing|wheez|cough|gasping|suffocat|cyanosis)`)

// scoreRespiratory computes the 0-10 respiratory severity score.
func (e *Engine) scoreRespiratory(input string, result *domain.ReasoningResult) {
	if !breathingTopic.MatchString(input) {
		return
	}

	score := clamp10(applyScoreRules(respiratoryRules, input))
	if score == 0 {
		return
	}

	result.Scores["respiratorySeverity"] = score
	result.ExtraData["respiratorySeverityScore"] = score
	addNote(result, fmt.Sprintf("respiratory severity score %.0f/10", score))

	if score >= 7 {
		addFlag(result, "resp_high_severity_score", "Severe respiratory symptoms",
			fmt.Sprintf("additive severity score %.0f/10", score),
			domain.SeverityModerate)
	}
}
