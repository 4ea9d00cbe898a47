// Package numeral rewrites numbers in Korean hypothesis text so they can be
// compared against references written with native-Korean numerals.
//
// [Normalize] runs two passes:
//
//  1. [DigitsToSino] spells every run of ASCII digits as a Sino-Korean
//     numeral ("12" → "십이").
//  2. [ApplyCounterVariants] turns a Sino numeral directly followed by a
//     counter syllable into its native form ("이개" → "두개").
//
// The second pass is a context-free heuristic driven by an ordered [Rule]
// table. It relies on character adjacency only and will rewrite some words
// that merely look like a numeral followed by a counter.
package numeral

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxValue is the largest value [Sino] spells; larger values are clamped.
const MaxValue = 99_999_999

var (
	digitWords = [10]string{"", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}
	placeUnits = [4]string{"", "십", "백", "천"}
	groupUnits = [3]string{"", "만", "억"}

	digitRun = regexp.MustCompile(`[0-9]+`)
)

// Sino spells n as a Sino-Korean numeral. n is clamped to [0, MaxValue];
// zero is "영". A 1 in the tens place is written as a bare "십"; every other
// place keeps its digit word ("100" → "일백").
func Sino(n int) string {
	n = max(0, min(MaxValue, n))
	if n == 0 {
		return "영"
	}

	var groups []string
	for g := 0; n > 0 && g < len(groupUnits); g++ {
		if chunk := spellGroup(n % 10000); chunk != "" {
			groups = append(groups, chunk+groupUnits[g])
		}
		n /= 10000
	}

	var b strings.Builder
	for i := len(groups) - 1; i >= 0; i-- {
		b.WriteString(groups[i])
	}
	return b.String()
}

// spellGroup spells a value below 10000.
func spellGroup(n int) string {
	var b strings.Builder
	for place := 3; place >= 0; place-- {
		d := n
		for range place {
			d /= 10
		}
		d %= 10
		switch {
		case d == 0:
		case d == 1 && place == 1:
			b.WriteString(placeUnits[place])
		default:
			b.WriteString(digitWords[d])
			b.WriteString(placeUnits[place])
		}
	}
	return b.String()
}

// DigitsToSino replaces every maximal run of ASCII digits in text with its
// Sino-Korean spelling. Runs too large to parse are clamped to MaxValue.
func DigitsToSino(text string) string {
	return digitRun.ReplaceAllStringFunc(text, func(run string) string {
		n, err := strconv.Atoi(run)
		if err != nil {
			n = MaxValue
		}
		return Sino(n)
	})
}
