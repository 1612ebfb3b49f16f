package controller

import (
	"regexp"
	"strings"
)

// rule is one entry of an ordered extraction chain: a matcher plus the
// effect applied to the extracted data when it fires. Keeping extractors as
// data-driven rule tables (rather than inlined conditionals) is what makes
// them testable in isolation.
type rule struct {
	pattern *regexp.Regexp
	apply   func(match []string, data map[string]any)
}

// runRules evaluates every rule of the chain against the normalized input,
// in order, applying each match. Returns true if at least one rule fired.
func runRules(rules []rule, input string, data map[string]any) bool {
	matched := false
	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(input); m != nil {
			r.apply(m, data)
			matched = true
		}
	}
	return matched
}

// setFlag returns an effect that sets a boolean key.
func setFlag(key string) func([]string, map[string]any) {
	return func(_ []string, data map[string]any) {
		data[key] = true
	}
}

// setString returns an effect that stores a fixed value under key.
func setString(key, value string) func([]string, map[string]any) {
	return func(_ []string, data map[string]any) {
		data[key] = value
	}
}

// normalize lower-cases and trims the input once, for the whole chain.
func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// splitList breaks a free-text enumeration ("lisinopril, metformin and
// aspirin") into cleaned items.
var listSeparators = regexp.MustCompile(`\s*(?:,|;|\band\b|\bplus\b|&|\n)\s*`)

func splitList(input string) []string {
	parts := listSeparators.Split(input, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, ".,"))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
