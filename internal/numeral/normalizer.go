package numeral

import "slices"

// RuleDigits names the [Change]s produced by [DigitsToSino].
const RuleDigits = "digits"

// Change records one rewrite performed by a [Normalizer].
type Change struct {
	Rule string `json:"rule"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithRules replaces the counter table. The rules are sorted by priority;
// rules of equal priority keep the given order.
func WithRules(rules ...Rule) Option {
	return func(n *Normalizer) {
		n.rules = slices.Clone(rules)
		sortRules(n.rules)
	}
}

// Normalizer applies the digit and counter passes. It is read-only after
// construction and safe for concurrent use.
type Normalizer struct {
	rules []Rule
}

// New returns a [Normalizer] using [DefaultRules] unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{rules: DefaultRules()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Rules returns a copy of the counter table in application order.
func (n *Normalizer) Rules() []Rule {
	return slices.Clone(n.rules)
}

var defaultNormalizer = New()

// Normalize is ApplyCounterVariants(DigitsToSino(text)) with the default
// rules.
func Normalize(text string) string {
	out, _ := defaultNormalizer.NormalizeWithChanges(text)
	return out
}

// ApplyCounterVariants applies the default counter table to text.
func ApplyCounterVariants(text string) string {
	out, _ := defaultNormalizer.ApplyCounterVariants(text, nil)
	return out
}

// ApplyCounterVariants applies every rule of n in order, appending one
// [Change] per rewrite to changes.
func (n *Normalizer) ApplyCounterVariants(text string, changes []Change) (string, []Change) {
	for _, r := range n.rules {
		text, changes = r.apply(text, changes)
	}
	return text, changes
}

// NormalizeWithChanges spells digits as Sino numerals, then applies the
// counter table, and reports every rewrite in order.
func (n *Normalizer) NormalizeWithChanges(text string) (string, []Change) {
	var changes []Change
	spelled := digitRun.ReplaceAllStringFunc(text, func(run string) string {
		s := DigitsToSino(run)
		changes = append(changes, Change{Rule: RuleDigits, From: run, To: s})
		return s
	})
	return n.ApplyCounterVariants(spelled, changes)
}
