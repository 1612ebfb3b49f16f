package controller

import (
	"context"
	"regexp"
	"strconv"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Demographics extracts age, sex, height and weight from free text into the
// "demographics" context object. Values accumulate across turns via the
// shallow nested-map merge.
type Demographics struct{}

// NewDemographics creates the demographics controller.
func NewDemographics() *Demographics { return &Demographics{} }

var (
	agePattern = regexp.MustCompile(`\b(\d{1,3})\s*(?:years?\s*old|years?\s+of\s+age|yo\b|y/o)|\bage\s*(?:is\s*)?(\d{1,3})\b|\bi(?:'|a)?m\s+(\d{1,3})\b`)

	heightCm = regexp.MustCompile(`\b(\d{2,3})\s*(?:cm|centimet)`)
	heightM  = regexp.MustCompile(`\b([12][.,]\d{1,2})\s*(?:m\b|met)`)
	heightFt = regexp.MustCompile(`\b([4-7])\s*(?:'|ft|feet|foot)\s*(\d{1,2})?`)

	weightKg  = regexp.MustCompile(`\b(\d{2,3}(?:[.,]\d)?)\s*(?:kg|kilo)`)
	weightLbs = regexp.MustCompile(`\b(\d{2,3}(?:[.,]\d)?)\s*(?:lbs?|pounds?)`)

	sexFemale = regexp.MustCompile(`\b(?:female|woman|girl)\b`)
	sexMale   = regexp.MustCompile(`\b(?:male|man|boy|guy)\b`)
)

// Preprocess populates demographics fields found in the input.
func (c *Demographics) Preprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	input := normalize(t.Input)
	demo := map[string]any{}

	if m := agePattern.FindStringSubmatch(input); m != nil {
		raw := firstNonEmpty(m[1:])
		if age, err := strconv.Atoi(raw); err == nil && age > 0 && age < 130 {
			demo["age"] = age
		}
	}

	// Sex: female patterns first so "female" is not shadowed by "male".
	if sexFemale.MatchString(input) {
		demo["sex"] = "female"
	} else if sexMale.MatchString(input) {
		demo["sex"] = "male"
	}

	if m := heightM.FindStringSubmatch(input); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			demo["heightM"] = v
		}
	} else if m := heightCm.FindStringSubmatch(input); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			demo["heightM"] = float64(v) / 100
		}
	} else if m := heightFt.FindStringSubmatch(input); m != nil {
		feet, _ := strconv.Atoi(m[1])
		inches := 0
		if m[2] != "" {
			inches, _ = strconv.Atoi(m[2])
		}
		demo["heightM"] = round2(float64(feet)*0.3048 + float64(inches)*0.0254)
	}

	if m := weightKg.FindStringSubmatch(input); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			demo["weightKg"] = v
		}
	} else if m := weightLbs.FindStringSubmatch(input); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			demo["weightKg"] = round2(v * 0.453592)
		}
	}

	if len(demo) == 0 {
		return nil, nil
	}
	return &domain.ControllerResult{
		ExtraData: map[string]any{"demographics": demo},
	}, nil
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

func parseDecimal(s string) (float64, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			s = s[:i] + "." + s[i+1:]
			break
		}
	}
	return strconv.ParseFloat(s, 64)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
