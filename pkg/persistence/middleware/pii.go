package middleware

import (
	"context"
	"regexp"

	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/ports"
)

const maskValue = "***"

type piiMiddleware struct {
	ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks context and step values
// whose keys match the patterns before they reach the store. Masking is
// permanent: once a key is written masked, later turns read it masked, so
// the patterns must only cover keys the pipeline never computes on
// (free-form identifiers like name, phone, email, address).
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{SessionStore: next, patterns: patterns}
	}
}

func (m *piiMiddleware) MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error) {
	masked := deepCopyMap(patch)
	maskMap(masked, m.patterns)
	return m.SessionStore.MergeContext(ctx, sessionID, masked)
}

func (m *piiMiddleware) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	if len(step.ControllerData) == 0 {
		return m.SessionStore.AppendStep(ctx, sessionID, step)
	}
	cloned := *step
	cloned.ControllerData = deepCopyMap(step.ControllerData)
	maskMap(cloned.ControllerData, m.patterns)
	return m.SessionStore.AppendStep(ctx, sessionID, &cloned)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		matched := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = maskValue
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
