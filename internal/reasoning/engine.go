// Package reasoning implements the stateless per-turn analyzer. Given the
// accumulated session context and the current input it derives numeric
// scores (BMI, cardiac risk, respiratory severity, PHQ-2), detects red
// flags, produces preventive-screening recommendations, and may request an
// escalation. All detection is deterministic pattern matching over rule
// tables; the engine is consistent given fixed inputs, not clinically
// exhaustive.
package reasoning

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Targets holds the urgent-path node IDs used for escalation overrides.
type Targets struct {
	Cardiac      string
	Respiratory  string
	MentalHealth string
}

// Engine is the reasoning engine. It holds no per-session state; every
// Analyze call is independent.
type Engine struct {
	logger     *slog.Logger
	targets    Targets
	guidelines []guideline
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTargets overrides the urgent-path node IDs.
func WithTargets(t Targets) Option {
	return func(e *Engine) { e.targets = t }
}

// New creates a reasoning engine with the default guideline table.
func New(opts ...Option) *Engine {
	e := &Engine{
		targets: Targets{
			Cardiac:      domain.DefaultUrgentCardiacNode,
			Respiratory:  domain.DefaultUrgentRespiratoryNode,
			MentalHealth: domain.DefaultUrgentMentalHealthNode,
		},
		guidelines: defaultGuidelines,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Analyze runs every analyzer over the merged context and the current
// input. It runs unconditionally each turn, whether or not the node has a
// controller.
func (e *Engine) Analyze(input string, ctx map[string]any) *domain.ReasoningResult {
	profile := decodeProfile(ctx, e.logger)
	norm := strings.ToLower(strings.TrimSpace(input))

	result := &domain.ReasoningResult{
		Scores:    map[string]float64{},
		ExtraData: map[string]any{},
	}

	e.analyzeBMI(profile, result)
	e.scoreCardiac(norm, profile, result)
	e.scoreRespiratory(norm, result)
	e.scorePHQ2(profile, result)
	e.detectCriticalPatterns(norm, result)
	e.recommendScreenings(profile, result)

	dedupe(&result.Recommendations)
	e.applyEscalation(result)

	return result
}

// applyEscalation sets the override when any flag is high severity. The
// category priority is fixed: mental health beats cardiac beats
// respiratory, regardless of the order flags were raised in.
func (e *Engine) applyEscalation(result *domain.ReasoningResult) {
	categories := []struct {
		prefix string
		target string
	}{
		{"mh_", e.targets.MentalHealth},
		{"cardio_", e.targets.Cardiac},
		{"resp_", e.targets.Respiratory},
	}

	for _, cat := range categories {
		for _, f := range result.RedFlags {
			if f.Severity != domain.SeverityHigh || !strings.HasPrefix(f.ID, cat.prefix) {
				continue
			}
			result.OverrideNextState = cat.target
			e.logger.Info("reasoning escalation",
				"flag_id", f.ID,
				"target", cat.target,
			)
			return
		}
	}
}

func addFlag(result *domain.ReasoningResult, id, label, reason string, severity domain.Severity) {
	for _, f := range result.RedFlags {
		if f.ID == id {
			return
		}
	}
	result.RedFlags = append(result.RedFlags, domain.RedFlag{
		ID:       id,
		Label:    label,
		Reason:   reason,
		Severity: severity,
	})
}

func addNote(result *domain.ReasoningResult, note string) {
	result.Notes = append(result.Notes, note)
}

func dedupe(r *domain.Recommendations) {
	r.EducationTopics = uniqueSorted(r.EducationTopics)
	r.ScreeningSuggestions = uniqueSorted(r.ScreeningSuggestions)
	r.FollowUpQuestions = uniqueSorted(r.FollowUpQuestions)
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
