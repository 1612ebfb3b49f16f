package reasoning

import (
	"fmt"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// LikertScore maps a PHQ-2 answer onto the 0-3 scale. Matching is fuzzy on
// purpose: patients type "more than half the days", "nearly every day",
// plain digits, or close variants.
func LikertScore(answer string) (int, bool) {
	a := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case a == "":
		return 0, false
	case strings.Contains(a, "not at all"), a == "0", a == "never":
		return 0, true
	case strings.Contains(a, "several"), a == "1", strings.Contains(a, "some days"):
		return 1, true
	case strings.Contains(a, "more than half"), a == "2", strings.Contains(a, "most days"):
		return 2, true
	case strings.Contains(a, "nearly every"), strings.Contains(a, "every day"), a == "3":
		return 3, true
	}
	return 0, false
}

// scorePHQ2 computes the 0-6 depression screen once both items have been
// answered. A total of 3 or more is a positive screen: moderate flag plus a
// follow-up prompt.
func (e *Engine) scorePHQ2(p *Profile, result *domain.ReasoningResult) {
	interest, okInterest := LikertScore(p.PHQ2["interest"])
	mood, okMood := LikertScore(p.PHQ2["mood"])
	if !okInterest || !okMood {
		return
	}

	total := interest + mood
	result.Scores["phq2"] = float64(total)
	result.ExtraData["phq2Score"] = total
	addNote(result, fmt.Sprintf("PHQ-2 score %d/6", total))

	if total >= 3 {
		result.ExtraData["shouldScreenForDepression"] = true
		addFlag(result, "mh_phq2_positive", "Positive depression screen",
			fmt.Sprintf("PHQ-2 total %d/6 (threshold 3)", total),
			domain.SeverityModerate)
		result.Recommendations.FollowUpQuestions = append(result.Recommendations.FollowUpQuestions,
			"Would you be open to completing a longer depression questionnaire (PHQ-9)?")
		result.Recommendations.ScreeningSuggestions = append(result.Recommendations.ScreeningSuggestions,
			"depression_screening")
	}
}
