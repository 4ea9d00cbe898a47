// Package posmap maps positions between a raw string (as typed or transcribed,
// with spacing, punctuation, and casing) and its normalized form (the string
// actually compared). Diff results computed on normalized text are projected
// back onto raw characters through a [Map].
//
// Mapping is best-effort: a greedy two-pointer scan with a short lookahead.
// It never produces an index outside the raw string, but it does not promise a
// linguistically correct alignment when the two strings diverge heavily.
package posmap

import (
	"unicode"

	"github.com/MrWong99/lingograde/pkg/hangul"
	"golang.org/x/text/unicode/norm"
)

// lookahead is the maximum number of runes skipped on either side while
// resynchronising after a mismatch.
const lookahead = 2

// Map holds, for every rune index of the normalized string, the rune index of
// the raw character it came from.
type Map []int

// MapRawToNormalized builds the position map from norm back to raw.
//
// Both pointers advance together while the runes agree (case and accents are
// ignored). On a mismatch the scanner first looks up to two runes ahead in raw
// for the current normalized rune (raw characters that normalization
// stripped), then up to two runes ahead in norm for the current raw rune, and
// otherwise advances only the normalized pointer while keeping the current raw
// index.
//
// When neither lookahead resynchronises and more normalized runes remain than
// raw runes, the rest of the normalized indices are distributed as evenly as
// possible over the remaining raw indices. Once raw is exhausted the remaining
// normalized indices stay on the last raw index. With extreme length ratios
// this tail is a heuristic only.
//
// An empty raw string yields an empty map, since no index can be addressed.
func MapRawToNormalized(raw, normalized string) Map {
	r := []rune(raw)
	n := []rune(normalized)
	if len(r) == 0 || len(n) == 0 {
		return Map{}
	}

	last := len(r) - 1
	m := make(Map, len(n))
	i, j := 0, 0

scan:
	for i < len(r) && j < len(n) {
		if same(r[i], n[j]) {
			m[j] = i
			i++
			j++
			continue
		}

		for k := 1; k <= lookahead && i+k < len(r); k++ {
			if same(r[i+k], n[j]) {
				i += k
				m[j] = i
				i++
				j++
				continue scan
			}
		}

		for k := 1; k <= lookahead && j+k < len(n); k++ {
			if same(r[i], n[j+k]) {
				for t := j; t < j+k; t++ {
					m[t] = i
				}
				j += k
				continue scan
			}
		}

		if len(n)-j > len(r)-i {
			distribute(m[j:], i, last)
			return m
		}
		m[j] = i
		j++
	}

	for ; j < len(n); j++ {
		m[j] = last
	}
	return m
}

// distribute spreads the indices of tail over the raw range [from, to]. The
// first len(tail) % width positions receive one extra index.
func distribute(tail Map, from, to int) {
	width := to - from + 1
	per, extra := len(tail)/width, len(tail)%width
	k := 0
	for pos := from; pos <= to && k < len(tail); pos++ {
		count := per
		if pos-from < extra {
			count++
		}
		for c := 0; c < count && k < len(tail); c++ {
			tail[k] = pos
			k++
		}
	}
	for ; k < len(tail); k++ {
		tail[k] = to
	}
}

// same reports whether a raw rune and a normalized rune denote the same
// character, ignoring case and combining marks.
func same(raw, normalized rune) bool {
	if raw == normalized {
		return true
	}
	return fold(raw) == fold(normalized)
}

// fold lower-cases r and drops combining marks from its canonical
// decomposition. Hangul syllables are returned unchanged.
func fold(r rune) rune {
	if hangul.IsSyllable(r) {
		return r
	}
	d := norm.NFD.String(string(r))
	for _, c := range d {
		if !unicode.Is(unicode.Mn, c) {
			return unicode.ToLower(c)
		}
	}
	return unicode.ToLower(r)
}
