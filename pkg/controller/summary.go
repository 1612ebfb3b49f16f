package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Summary renders the accumulated session context as a structured recap,
// appended to the response of the terminal/summary node.
type Summary struct{}

// NewSummary creates the summary controller.
func NewSummary() *Summary { return &Summary{} }

// Postprocess appends the formatted summary block.
func (c *Summary) Postprocess(_ context.Context, t *TurnContext) (*domain.ControllerResult, error) {
	block := renderSummary(t.Context)
	if block == "" {
		return nil, nil
	}
	return &domain.ControllerResult{
		OverrideResponse: strings.TrimRight(t.Response, "\n") + "\n\n" + block,
	}, nil
}

func renderSummary(ctx map[string]any) string {
	var b strings.Builder
	b.WriteString("— Summary of what you shared —\n")
	wrote := false

	if demo, ok := ctx["demographics"].(map[string]any); ok && len(demo) > 0 {
		var parts []string
		if age, ok := demo["age"]; ok {
			parts = append(parts, fmt.Sprintf("age %v", age))
		}
		if sex, ok := demo["sex"]; ok {
			parts = append(parts, fmt.Sprintf("%v", sex))
		}
		if h, ok := demo["heightM"]; ok {
			parts = append(parts, fmt.Sprintf("height %vm", h))
		}
		if w, ok := demo["weightKg"]; ok {
			parts = append(parts, fmt.Sprintf("weight %vkg", w))
		}
		if len(parts) > 0 {
			fmt.Fprintf(&b, "Profile: %s\n", strings.Join(parts, ", "))
			wrote = true
		}
	}

	if bmi, ok := ctx["bmi"]; ok {
		cat, _ := ctx["bmiCategory"].(string)
		fmt.Fprintf(&b, "BMI: %.1f (%s)\n", toFloat(bmi), cat)
		wrote = true
	}

	switch meds := ctx["medications"].(type) {
	case []string:
		if len(meds) == 0 {
			b.WriteString("Medications: none reported\n")
		} else {
			fmt.Fprintf(&b, "Medications: %s\n", strings.Join(meds, ", "))
		}
		wrote = true
	case []any:
		names := make([]string, 0, len(meds))
		for _, m := range meds {
			names = append(names, fmt.Sprintf("%v", m))
		}
		if len(names) == 0 {
			b.WriteString("Medications: none reported\n")
		} else {
			fmt.Fprintf(&b, "Medications: %s\n", strings.Join(names, ", "))
		}
		wrote = true
	default:
		if ctx["noMedications"] == true {
			b.WriteString("Medications: none reported\n")
			wrote = true
		}
	}

	if hist, ok := ctx["history"].(map[string]any); ok && len(hist) > 0 {
		if hist["noKnownConditions"] == true {
			b.WriteString("Known conditions: none reported\n")
		} else {
			var names []string
			for k, v := range hist {
				if v == true {
					names = append(names, humanizeKey(k))
				}
			}
			if len(names) > 0 {
				sort.Strings(names)
				fmt.Fprintf(&b, "Known conditions: %s\n", strings.Join(names, ", "))
			}
		}
		wrote = true
	}

	if ctx["isUrgent"] == true {
		b.WriteString("Urgent findings were raised during this conversation; please follow the guidance above.\n")
		wrote = true
	}

	if !wrote {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case float32:
		return float64(n)
	}
	return 0
}

// humanizeKey converts a camelCase context flag into readable words.
func humanizeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
