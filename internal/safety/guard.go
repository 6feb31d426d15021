package safety

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// RiskLevel grades how dangerous a rejected text is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Verdict is the outcome of one validation. It is produced fresh for every
// text and never cached.
type Verdict struct {
	Safe           bool      `json:"safe"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Reason         string    `json:"reason,omitempty"`
	MatchedRuleIDs []string  `json:"matched_rule_ids"`
}

func pass() Verdict {
	return Verdict{Safe: true, RiskLevel: RiskLow, MatchedRuleIDs: []string{}}
}

func reject(level RiskLevel, reason string, ruleIDs ...string) Verdict {
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	return Verdict{Safe: false, RiskLevel: level, Reason: reason, MatchedRuleIDs: ruleIDs}
}

// Guard validates inbound messages and outbound responses against a
// versioned rule configuration. Validation is a pure function of the text and
// the snapshot current at call time; operator mutations swap in a new
// snapshot atomically so concurrent turns never see a half-applied change.
type Guard struct {
	current atomic.Pointer[RuleSet]
}

// NewGuard creates a guard with the given initial rule set.
func NewGuard(rs *RuleSet) *Guard {
	g := &Guard{}
	g.current.Store(rs)
	return g
}

// RuleSet returns the current snapshot.
func (g *Guard) RuleSet() *RuleSet {
	return g.current.Load()
}

// AddRule compiles pattern and publishes a new configuration version.
func (g *Guard) AddRule(cat RuleCategory, id, pattern string) (int, error) {
	for {
		cur := g.current.Load()
		next, err := cur.WithRule(cat, id, pattern)
		if err != nil {
			return 0, err
		}
		if g.current.CompareAndSwap(cur, next) {
			return next.Version, nil
		}
	}
}

// RemoveRule publishes a new configuration version without the given rule.
func (g *Guard) RemoveRule(cat RuleCategory, id string) int {
	for {
		cur := g.current.Load()
		next := cur.WithoutRule(cat, id)
		if g.current.CompareAndSwap(cur, next) {
			return next.Version
		}
	}
}

// ValidateMessage checks an inbound user message. Checks run in fixed
// precedence order and short-circuit on the first failure. Any panic during
// evaluation fails closed with a high-risk verdict.
func (g *Guard) ValidateMessage(text string) (v Verdict) {
	defer failClosed(&v)
	rs := g.current.Load()

	if strings.TrimSpace(text) == "" {
		return reject(RiskLow, "please provide a valid message")
	}
	if n := utf8.RuneCountInString(text); n > rs.MaxMessageLength {
		return reject(RiskMedium,
			fmt.Sprintf("message too long (%d characters), maximum allowed is %d", n, rs.MaxMessageLength),
			"length_exceeded")
	}

	if ids := matchAll(text, rs.Rules(CategoryBlocked)); len(ids) > 0 {
		return reject(RiskHigh, "message contains blocked content", ids...)
	}
	if ids := matchAll(text, rs.Rules(CategoryInjection)); len(ids) > 0 {
		return reject(RiskHigh, "message contains prompt injection patterns", ids...)
	}
	if ids := matchAll(text, rs.Rules(CategorySuspicious)); len(ids) > rs.SuspiciousThreshold {
		return reject(RiskMedium, "message contains too many suspicious patterns", ids...)
	}
	if ids := matchAll(text, rs.Rules(CategoryAdvice)); len(ids) > 0 {
		return reject(RiskMedium, "message contains financial advice patterns", ids...)
	}
	if v, ok := structuralCheck(text, rs); ok {
		return v
	}
	return pass()
}

// ValidateResponse checks a candidate model response before delivery. The
// advice check is applied exactly as on input, because the model can itself
// emit advice language.
func (g *Guard) ValidateResponse(text string) (v Verdict) {
	defer failClosed(&v)
	rs := g.current.Load()

	if ids := matchAll(text, rs.Rules(CategoryAdvice)); len(ids) > 0 {
		return reject(RiskMedium, "response contains financial advice patterns", ids...)
	}
	if ids := matchAll(text, rs.Rules(CategoryPIIOut)); len(ids) > 0 {
		return reject(RiskHigh, "response contains personal information patterns", ids...)
	}
	if ids := matchAll(text, rs.Rules(CategoryHarmfulOut)); len(ids) > 0 {
		return reject(RiskHigh, "response contains harmful content patterns", ids...)
	}
	if ids, terms := countMatches(text, rs.Rules(CategoryConfidence)); terms > rs.ConfidenceTermThreshold {
		return reject(RiskMedium, "response contains excessive confidence claims", ids...)
	}
	if v, ok := structuralCheck(text, rs); ok {
		return v
	}
	return pass()
}

func failClosed(v *Verdict) {
	if r := recover(); r != nil {
		*v = reject(RiskHigh, "safety validation failed", "validation_error")
	}
}

// matchAll returns the ids of every rule whose pattern matches text.
func matchAll(text string, rules []Rule) []string {
	var ids []string
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// countMatches returns matching rule ids plus the total number of term
// occurrences across all rules, not just distinct rules.
func countMatches(text string, rules []Rule) ([]string, int) {
	var ids []string
	total := 0
	for _, r := range rules {
		if n := len(r.Pattern.FindAllStringIndex(text, -1)); n > 0 {
			ids = append(ids, r.ID)
			total += n
		}
	}
	return ids, total
}

// structuralCheck covers the anomaly heuristics: special-character density,
// unusual Unicode, encoded payloads and repetition. Encoding attempts are
// graded high, the rest medium.
func structuralCheck(text string, rs *RuleSet) (Verdict, bool) {
	if ratio := specialCharRatio(text); ratio > rs.SpecialCharRatio {
		return reject(RiskMedium, "message contains an unusual amount of special characters", "special_char_ratio"), true
	}
	if countSymbolRunes(text) > rs.MaxUnicodeSymbols {
		return reject(RiskMedium, "message contains unusual unicode density", "unicode_density"), true
	}
	if isEncodingAttempt(text) {
		return reject(RiskHigh, "message contains an encoded payload", "encoding_attempt"), true
	}
	if hasRuneRun(text, rs.MaxRuneRepeat) {
		return reject(RiskMedium, "message contains excessive character repetition", "char_repetition"), true
	}
	if word, ok := repeatedWord(text, rs.MaxWordRepeat); ok {
		return reject(RiskMedium, fmt.Sprintf("message repeats the word %q excessively", word), "word_repetition"), true
	}
	return Verdict{}, false
}

func specialCharRatio(text string) float64 {
	total := 0
	special := 0
	for _, r := range text {
		total++
		if strings.ContainsRune("!@#$%^&*()_+-=[]{};':\"\\|,.<>/?", r) {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

// countSymbolRunes counts emoji and pictographic runes.
func countSymbolRunes(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF,
			r >= 0x2600 && r <= 0x27BF,
			r >= 0x1F1E6 && r <= 0x1F1FF:
			n++
		}
	}
	return n
}

var base64Run = mustRule("base64_run", `[A-Za-z0-9+/]{24,}={0,2}`)

func isEncodingAttempt(text string) bool {
	for _, marker := range []string{"%20", "%2F", "%2f", "%3F", "%3f", "&amp;", "&lt;", "&gt;"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return base64Run.Pattern.MatchString(text)
}

// hasRuneRun reports whether any single rune repeats limit or more times in a
// row. RE2 has no backreferences, so this is a plain scan.
func hasRuneRun(text string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= limit {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// repeatedWord reports the first word longer than two runes that occurs more
// than limit times.
func repeatedWord(text string, limit int) (string, bool) {
	counts := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		counts[w]++
		if counts[w] > limit {
			return w, true
		}
	}
	return "", false
}
