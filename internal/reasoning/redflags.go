package reasoning

import (
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// criticalRule detects a pattern that is urgent regardless of any numeric
// score. Every listed pattern must match. These always yield high severity.
type criticalRule struct {
	id       string
	label    string
	reason   string
	patterns []*regexp.Regexp
}

var criticalRules = []criticalRule{
	{
		id:     "mh_suicidal_ideation",
		label:  "Suicidal ideation",
		reason: "input contains crisis language",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:suicid|kill(?:ing)? myself|end(?:ing)? (?:my life|it all)|don'?t want to (?:live|be alive|wake up)|better off dead|hurt(?:ing)? myself|self[- ]harm)`),
		},
	},
	{
		id:     "cardio_acs_pattern",
		label:  "Possible acute coronary syndrome",
		reason: "pressure-type chest pain with radiation or autonomic symptoms",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:crushing|squeezing|pressure|tight(?:ness)?|heavy)\b`),
			regexp.MustCompile(`\b(?:chest|sternum|breastbone)\b`),
			regexp.MustCompile(`\b(?:radiat|jaw|left arm|shoulder|sweat|diaphore|clammy|nausea|nauseous)`),
		},
	},
	{
		id:     "resp_severe_distress",
		label:  "Severe respiratory distress",
		reason: "acute inability to breathe or signs of hypoxia",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:can'?t breathe|cannot breathe|gasping|suffocat)|(?:lips?|fingers?|skin) (?:are |is )?(?:turning )?blue\b|\bcyanosis\b`),
		},
	},
}

// detectCriticalPatterns runs the critical rule set against the raw turn
// input, independent of the numeric scores.
func (e *Engine) detectCriticalPatterns(input string, result *domain.ReasoningResult) {
	if input == "" {
		return
	}

	for _, rule := range criticalRules {
		all := true
		for _, p := range rule.patterns {
			if !p.MatchString(input) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		addFlag(result, rule.id, rule.label, rule.reason, domain.SeverityHigh)
		e.logger.Warn("critical pattern detected",
			"flag_id", rule.id,
		)
	}
}
