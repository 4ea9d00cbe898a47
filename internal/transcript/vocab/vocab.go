// Package vocab implements the [transcript.VocabularyMatcher] interface. It
// snaps misheard words of a transcript onto a short list of expected
// vocabulary terms (names, places, loanwords) that speech recognizers tend to
// misspell.
//
// Matching proceeds in two stages:
//
//  1. Sound-code filtering: every token is reduced to a sound code. Latin
//     tokens use Double Metaphone after accents are folded; Hangul tokens
//     use their consonant skeleton (lead and trail jamo). A term whose codes
//     overlap the input's codes becomes a candidate.
//
//  2. Jaro-Winkler ranking: among candidates the term with the highest
//     similarity wins, provided it reaches the sound threshold. Hangul is
//     compared jamo by jamo so that a single wrong vowel costs less than a
//     wrong syllable.
//
//     When no candidate shares a code, pure similarity against every term is
//     tried with the stricter fuzzy threshold.
//
// Multi-word terms are supported: the best pairwise token score counts as
// well as the full and space-stripped comparisons.
package vocab

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/lingograde/pkg/hangul"
)

const (
	defaultSoundThreshold = 0.70
	defaultFuzzyThreshold = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithSoundThreshold sets the minimum Jaro-Winkler score required for a
// term sharing a sound code to be accepted. Default: 0.70.
func WithSoundThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.soundThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// term shares a sound code. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher snaps words onto vocabulary terms. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	soundThreshold float64
	fuzzyThreshold float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		soundThreshold: defaultSoundThreshold,
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Terms is a vocabulary list with its sound codes computed once. Build it
// with [Prepare] when the same list is matched against many windows.
type Terms struct {
	entries  []entry
	maxWords int
}

type entry struct {
	term   string
	folded string
	tokens []string
	codes  map[string]struct{}
}

// Prepare folds and encodes terms. Blank terms are dropped.
func Prepare(terms []string) *Terms {
	ts := &Terms{maxWords: 1}
	for _, t := range terms {
		folded := fold(t)
		if folded == "" {
			continue
		}
		tokens := strings.Fields(folded)
		ts.entries = append(ts.entries, entry{
			term:   t,
			folded: folded,
			tokens: tokens,
			codes:  codesFor(tokens),
		})
		ts.maxWords = max(ts.maxWords, len(tokens))
	}
	return ts
}

// MaxWords returns the largest number of words in any term, at least 1.
func (ts *Terms) MaxWords() int { return ts.maxWords }

// Match finds the term of vocabulary that best matches word. word may be a
// single token or a space-separated window. When matched is false, corrected
// equals word and confidence is 0.
func (m *Matcher) Match(word string, vocabulary []string) (corrected string, confidence float64, matched bool) {
	return m.MatchPrepared(word, Prepare(vocabulary))
}

// MatchPrepared is [Matcher.Match] against a prepared list.
func (m *Matcher) MatchPrepared(word string, ts *Terms) (corrected string, confidence float64, matched bool) {
	folded := fold(word)
	if folded == "" || ts == nil || len(ts.entries) == 0 {
		return word, 0, false
	}
	tokens := strings.Fields(folded)
	codes := codesFor(tokens)

	var (
		best      string
		bestScore float64
		bestSound bool
	)
	for _, e := range ts.entries {
		score := bestScoreFor(tokens, e.tokens, folded, e.folded)
		if overlaps(codes, e.codes) {
			if score >= m.soundThreshold && (!bestSound || score > bestScore) {
				best, bestScore, bestSound = e.term, score, true
			}
			continue
		}
		if !bestSound && score >= m.fuzzyThreshold && score > bestScore {
			best, bestScore = e.term, score
		}
	}
	if best == "" {
		return word, 0, false
	}
	return best, bestScore, true
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lower-cases s, strips accents, and trims punctuation from every token.
// Hangul is recomposed, so syllables survive unchanged.
func fold(s string) string {
	out, _, err := transform.String(foldChain, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	fields := strings.FieldsFunc(out, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.Join(fields, " ")
}

// codesFor returns the union of the sound codes of tokens. Empty codes are
// skipped.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		if isHangul(t) {
			if c := skeleton(t); c != "" {
				codes[c] = struct{}{}
			}
			continue
		}
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestScoreFor compares the full strings, the space-stripped strings and
// every token pair, and returns the highest similarity.
func bestScoreFor(inputTokens, termTokens []string, input, term string) float64 {
	score := similarity(input, term)
	if len(inputTokens) > 1 || len(termTokens) > 1 {
		score = max(score, similarity(strings.Join(inputTokens, ""), strings.Join(termTokens, "")))
	}
	for _, it := range inputTokens {
		for _, tt := range termTokens {
			score = max(score, similarity(it, tt))
		}
	}
	return score
}

func similarity(a, b string) float64 {
	if isHangul(a) || isHangul(b) {
		a, b = spellJamo(a), spellJamo(b)
	}
	return matchr.JaroWinkler(a, b, false)
}

func isHangul(s string) bool {
	for _, r := range s {
		if hangul.IsSyllable(r) {
			return true
		}
	}
	return false
}

// skeleton returns the consonant letters of the Hangul syllables in s, the
// frame of a word that survives blurred vowels.
func skeleton(s string) string {
	var b strings.Builder
	for _, r := range s {
		syl, ok := hangul.Decompose(r)
		if !ok {
			continue
		}
		lead, _, trail := syl.Letters()
		b.WriteRune(lead)
		if syl.HasTrail() {
			b.WriteRune(trail)
		}
	}
	return b.String()
}

// spellJamo writes every syllable of s as its letters; other runes are kept.
func spellJamo(s string) string {
	var b strings.Builder
	for _, r := range s {
		syl, ok := hangul.Decompose(r)
		if !ok {
			b.WriteRune(r)
			continue
		}
		lead, vowel, trail := syl.Letters()
		b.WriteRune(lead)
		b.WriteRune(vowel)
		if syl.HasTrail() {
			b.WriteRune(trail)
		}
	}
	return b.String()
}
