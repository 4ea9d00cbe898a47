package judge

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeFrench lower-cases s, strips accents, turns punctuation and
// symbols into spaces, and collapses runs of whitespace.
func NormalizeFrench(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}
	stripped = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, stripped)
	return strings.Join(strings.Fields(stripped), " ")
}

// GradeFrench grades a French answer. Both strings are normalized with
// [NormalizeFrench]; the verdict is then decided by the first tier that
// applies:
//
//  1. empty reference or empty answer fails with score 0;
//  2. equality or containment of the reference passes with 100;
//  3. token-set Jaccard similarity at or above the threshold passes with the
//     keyword score;
//  4. otherwise the Levenshtein rate decides: the score is
//     round((1 - rate) × 100) and the answer passes iff the rate is within
//     the pass rate.
func (j *Judge) GradeFrench(reference, answer string) Verdict {
	ref := NormalizeFrench(reference)
	ans := NormalizeFrench(answer)

	switch {
	case ref == "":
		return fail(0, NoteEmptyReference)
	case ans == "":
		return fail(0, NoteEmptyAnswer)
	case ans == ref:
		return pass(100, NoteExactMatch)
	case strings.Contains(ans, ref):
		return pass(100, NoteSubstring)
	}

	if Jaccard(ref, ans) >= j.jaccardThreshold {
		return pass(j.keywordScore, NoteKeywordMatch)
	}

	rate := LevenshteinRate(ref, ans)
	score := max(0, int(math.Round((1-rate)*100)))
	if rate <= j.passRate {
		return pass(score, NoteCloseMatch)
	}
	return fail(score, NoteTooDifferent)
}

// Jaccard returns the token-set similarity of a and b: the number of distinct
// space-delimited tokens they share divided by the number of distinct tokens
// in either. Two empty strings have similarity 0.
func Jaccard(a, b string) float64 {
	ta := lo.Uniq(strings.Fields(a))
	tb := lo.Uniq(strings.Fields(b))
	union := lo.Union(ta, tb)
	if len(union) == 0 {
		return 0
	}
	return float64(len(lo.Intersect(ta, tb))) / float64(len(union))
}

// LevenshteinRate returns the rune-level edit distance between reference and
// answer divided by the rune length of reference (at least 1).
func LevenshteinRate(reference, answer string) float64 {
	d := matchr.Levenshtein(reference, answer)
	return float64(d) / float64(max(1, utf8.RuneCountInString(reference)))
}
