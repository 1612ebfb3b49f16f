// Package router picks the next node of a conversation by evaluating a
// node's ordered transition list against the user input and the session
// context. Conditions are written in a small, deterministic grammar; there
// is no learned inference anywhere in here.
package router

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/meridianhealth/intake/pkg/domain"
)

// affirmatives and negatives are the word sets behind the "yes"/"no"
// condition forms. Matching is exact on the normalized input.
var affirmatives = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "y": {}, "ok": {}, "okay": {},
	"sure": {}, "true": {}, "1": {}, "certainly": {}, "definitely": {},
	"correct": {}, "right": {},
}

var negatives = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "n": {}, "false": {}, "0": {},
	"never": {}, "negative": {}, "none": {},
}

var (
	equalsForm  = regexp.MustCompile(`(?i)^equals\(\s*input\s*,\s*'(.*)'\s*\)$`)
	regexForm   = regexp.MustCompile(`^(?:regex:|match\(\s*input\s*,\s*)/(.*)/([a-z]*)\)?$`)
	missingForm = regexp.MustCompile(`(?i)^is_missing\(\s*([^)]+?)\s*\)$`)
	hasForm     = regexp.MustCompile(`(?i)^has\(\s*([^)]+?)\s*\)$`)
)

// Evaluator evaluates single conditions. It caches compiled regular
// expressions; an invalid pattern is logged once and evaluates to false,
// it never aborts transition evaluation.
type Evaluator struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
	bad   map[string]struct{}
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		logger: logger,
		cache:  make(map[string]*regexp.Regexp),
		bad:    make(map[string]struct{}),
	}
}

// Matches reports whether a condition holds for the given input and session
// context. Input-side comparisons are case-insensitive.
func (e *Evaluator) Matches(condition, input string, ctx map[string]any) bool {
	cond := strings.TrimSpace(condition)
	norm := strings.ToLower(strings.TrimSpace(input))

	switch strings.ToLower(cond) {
	case "", "always", "default":
		return true
	case "yes", "affirmative":
		_, ok := affirmatives[norm]
		return ok
	case "no", "negative":
		_, ok := negatives[norm]
		return ok
	}

	if m := equalsForm.FindStringSubmatch(cond); m != nil {
		return norm == strings.ToLower(strings.TrimSpace(m[1]))
	}

	if rest, ok := strings.CutPrefix(cond, "choice:"); ok {
		want := strings.ToLower(strings.TrimSpace(rest))
		return norm == want || strings.Contains(norm, want)
	}

	if rest, ok := strings.CutPrefix(cond, "contains:"); ok {
		return strings.Contains(norm, strings.ToLower(strings.TrimSpace(rest)))
	}

	if m := regexForm.FindStringSubmatch(cond); m != nil {
		re := e.compile(cond, m[1], m[2])
		if re == nil {
			return false
		}
		return re.MatchString(input)
	}

	if m := missingForm.FindStringSubmatch(cond); m != nil {
		return isMissing(ctx, m[1])
	}

	if m := hasForm.FindStringSubmatch(cond); m != nil {
		return !isMissing(ctx, m[1])
	}

	// Bare condition text: exact or substring match against the input.
	want := strings.ToLower(cond)
	return norm == want || strings.Contains(norm, want)
}

// isMissing implements the is_missing(path)/has(path) complement: a path is
// missing iff it is undefined, nil, or the empty string.
func isMissing(ctx map[string]any, path string) bool {
	v, ok := domain.ContextValue(ctx, strings.TrimSpace(path))
	if !ok || v == nil {
		return true
	}
	if s, isStr := v.(string); isStr && s == "" {
		return true
	}
	return false
}

// compile translates JS-style flags to Go inline flags and caches the
// result. Invalid patterns are remembered so the warning fires once.
func (e *Evaluator) compile(key, pattern, flags string) *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()

	if re, ok := e.cache[key]; ok {
		return re
	}
	if _, ok := e.bad[key]; ok {
		return nil
	}

	var prefix string
	if strings.ContainsRune(flags, 'i') {
		prefix += "i"
	}
	if strings.ContainsRune(flags, 's') {
		prefix += "s"
	}
	if strings.ContainsRune(flags, 'm') {
		prefix += "m"
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		e.logger.Warn("invalid regex condition, will never match",
			"condition", key,
			"err", err,
		)
		e.bad[key] = struct{}{}
		return nil
	}
	e.cache[key] = re
	return re
}
