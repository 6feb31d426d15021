package safety

import (
	"fmt"
	"regexp"
)

// RuleCategory selects which check a rule participates in.
type RuleCategory string

const (
	CategoryBlocked    RuleCategory = "blocked"
	CategoryInjection  RuleCategory = "injection"
	CategorySuspicious RuleCategory = "suspicious"
	CategoryAdvice     RuleCategory = "advice"
	CategoryPIIOut     RuleCategory = "pii_out"
	CategoryHarmfulOut RuleCategory = "harmful_out"
	CategoryConfidence RuleCategory = "confidence"
)

// Rule is one compiled safety pattern.
type Rule struct {
	ID      string
	Pattern *regexp.Regexp
}

// RuleSet is an immutable snapshot of the guard's configuration. Operator
// mutations produce a new snapshot with a bumped Version; turns already in
// flight keep evaluating against the one they read.
type RuleSet struct {
	Version int

	MaxMessageLength        int
	SuspiciousThreshold     int // distinct suspicious rules tolerated before reject
	ConfidenceTermThreshold int // absolute-certainty term occurrences tolerated
	SpecialCharRatio        float64
	MaxUnicodeSymbols       int
	MaxRuneRepeat           int
	MaxWordRepeat           int

	rules map[RuleCategory][]Rule
}

// Rules returns the rules of one category. The returned slice must not be
// mutated.
func (rs *RuleSet) Rules(cat RuleCategory) []Rule {
	return rs.rules[cat]
}

// WithRule returns a copy of rs with pattern added under cat.
func (rs *RuleSet) WithRule(cat RuleCategory, id, pattern string) (*RuleSet, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile safety pattern %q failed: %w", id, err)
	}
	next := rs.clone()
	next.rules[cat] = append(next.rules[cat], Rule{ID: id, Pattern: re})
	next.Version++
	return next, nil
}

// WithoutRule returns a copy of rs with the rule id removed from cat. Removal
// of an unknown id still bumps the version so callers can observe the write.
func (rs *RuleSet) WithoutRule(cat RuleCategory, id string) *RuleSet {
	next := rs.clone()
	kept := next.rules[cat][:0:0]
	for _, r := range next.rules[cat] {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	next.rules[cat] = kept
	next.Version++
	return next
}

func (rs *RuleSet) clone() *RuleSet {
	next := *rs
	next.rules = make(map[RuleCategory][]Rule, len(rs.rules))
	for cat, rules := range rs.rules {
		next.rules[cat] = append([]Rule(nil), rules...)
	}
	return &next
}

func mustRule(id, pattern string) Rule {
	return Rule{ID: id, Pattern: regexp.MustCompile(pattern)}
}

// DefaultRuleSet builds the initial configuration. The pattern sets and the
// tolerance thresholds are deliberate constants; the thresholds in particular
// are carried over unchanged from the production rule base.
func DefaultRuleSet(maxMessageLength int) *RuleSet {
	if maxMessageLength <= 0 {
		maxMessageLength = 1000
	}
	return &RuleSet{
		Version:                 1,
		MaxMessageLength:        maxMessageLength,
		SuspiciousThreshold:     2,
		ConfidenceTermThreshold: 3,
		SpecialCharRatio:        0.30,
		MaxUnicodeSymbols:       5,
		MaxRuneRepeat:           5,
		MaxWordRepeat:           5,
		rules: map[RuleCategory][]Rule{
			CategoryBlocked: {
				mustRule("blocked_self_harm", `(?i)\b(kill|murder|suicide|self-harm|violence)\b`),
				mustRule("blocked_hacking", `(?i)\b(hack|crack|exploit|vulnerability)\b`),
				mustRule("blocked_illegal", `(?i)\b(illegal|unlawful|criminal)\b`),
				mustRule("blocked_contraband", `(?i)\b(drugs|weapons)\b`),
				mustRule("blocked_market_abuse", `(?i)\b(pump and dump|front-run|insider trading|manipulate the market)\b`),
				mustRule("blocked_scheme", `(?i)\b(pyramid|ponzi|scam)\b`),
				mustRule("blocked_pii_request", `(?i)\b(ssn|social security|credit card|password)\b`),
			},
			CategoryInjection: {
				mustRule("injection_ignore", `(?i)\b(ignore|forget|disregard)\s+(all\s+|any\s+)?(previous|prior|above|your)\s+(instructions|prompts|rules|guidelines)\b`),
				mustRule("injection_role", `(?i)\b(you are now|pretend to be|act as|roleplay as)\b`),
				mustRule("injection_reset", `(?i)\b(start over|new instructions|system prompt)\b`),
				mustRule("injection_marker", `(?i)(^|\s)(system|assistant)\s*:`),
				mustRule("injection_jailbreak", `(?i)\b(bypass|override|circumvent|jailbreak)\b`),
				mustRule("injection_unrestricted", `(?i)\b(no restrictions|no limits|do anything now|unrestricted)\b`),
				mustRule("injection_code", `(?i)\beval\s*\(|<script|javascript:|vbscript:`),
			},
			CategorySuspicious: {
				mustRule("suspicious_get_rich", `(?i)\b(get rich|quick money|easy profit|no risk)\b`),
				mustRule("suspicious_insider", `(?i)\b(secret|hidden|exclusive|insider)\b`),
				mustRule("suspicious_urgency", `(?i)\b(urgent|limited time|act now|don't wait)\b`),
				mustRule("suspicious_guarantee", `(?i)\b(100%|guaranteed|risk-free|never lose)\b`),
				mustRule("suspicious_hype", `(?i)\b(breakthrough|revolutionary|game-changing)\b`),
			},
			CategoryAdvice: {
				mustRule("advice_imperative", `(?i)\b(you should|you must|you need to|i recommend)\b`),
				mustRule("advice_trade", `(?i)\b(buy now|sell now|buy this|sell this)\b`),
				mustRule("advice_certainty", `(?i)\b(this will go up|this guarantees|trust me|can't lose)\b`),
				mustRule("advice_all_in", `(?i)\b(put all your money|invest everything|go all in)\b`),
				mustRule("advice_leverage", `(?i)\b(take out a loan|borrow money to invest|max leverage)\b`),
			},
			CategoryPIIOut: {
				mustRule("pii_credentials", `(?i)\b(ssn|social security|credit card|password)\b`),
				mustRule("pii_contact", `(?i)\b(home address|phone number|date of birth)\b`),
			},
			CategoryHarmfulOut: {
				mustRule("harmful_violence", `(?i)\b(kill|murder|suicide|self-harm)\b`),
				mustRule("harmful_hacking", `(?i)\b(hack|crack|exploit)\b`),
				mustRule("harmful_illegal", `(?i)\b(illegal|unlawful|criminal)\b`),
			},
			CategoryConfidence: {
				mustRule("confidence_absolute", `(?i)\b(100%|guaranteed|certainly|definitely|absolutely)\b`),
				mustRule("confidence_universal", `(?i)\b(never|always|everyone|nobody)\b`),
				mustRule("confidence_proof", `(?i)\b(proven|scientific fact|undeniable)\b`),
			},
		},
	}
}
