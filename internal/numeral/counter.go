package numeral

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/lingograde/pkg/hangul"
)

// sinoSyllables are the syllables Sino numerals are spelled with. They never
// count as a counter and the unit syllables also mark a numeral boundary.
const (
	sinoSyllables = "영일이삼사오육칠팔구십백천만억"
	unitSyllables = "백천만억"
)

// Rule rewrites one numeral into another form when it stands before a
// counter.
//
// A match of Pattern is only replaced when it is preceded by the start of
// the text, a non-Hangul character, or a unit syllable (백 천 만 억), and is
// followed directly by a counter: any Hangul syllable that is not a Sino
// numeral syllable, or, when Counters is set, one of the syllables it lists.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string

	// Priority orders the table: higher priorities run first.
	Priority int

	// Counters restricts the counters this rule fires before. Empty means
	// any counter.
	Counters string
}

func literal(name, from, to string, priority int) Rule {
	return Rule{
		Name:        name,
		Pattern:     regexp.MustCompile(regexp.QuoteMeta(from)),
		Replacement: to,
		Priority:    priority,
	}
}

// DefaultRules returns the built-in counter table sorted by priority. Two-
// and three-syllable contractions outrank single digits so a longer numeral
// is never partly rewritten by a shorter rule.
func DefaultRules() []Rule {
	rules := []Rule{
		literal("twenty-one", "이십일", "스물한", 30),
		literal("twenty-two", "이십이", "스물두", 30),
		literal("twenty-three", "이십삼", "스물세", 30),
		literal("twenty-four", "이십사", "스물네", 30),
		literal("eleven", "십일", "열한", 20),
		literal("twelve", "십이", "열두", 20),
		literal("thirteen", "십삼", "열세", 20),
		literal("fourteen", "십사", "열네", 20),
		literal("twenty", "이십", "스무", 20),
		literal("native-one", "하나", "한", 20),
		literal("ten", "십", "열", 10),
		literal("one", "일", "한", 10),
		literal("two", "이", "두", 10),
		literal("three", "삼", "세", 10),
		literal("four", "사", "네", 10),
		literal("native-two", "둘", "두", 10),
	}
	three := literal("native-three-age", "셋", "세", 10)
	three.Counters = "살"
	four := literal("native-four-age", "넷", "네", 10)
	four.Counters = "살"
	rules = append(rules, three, four)

	sortRules(rules)
	return rules
}

func sortRules(rules []Rule) {
	slices.SortStableFunc(rules, func(a, b Rule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
}

// apply rewrites every qualifying match of r in text and records one
// [Change] per replacement.
func (r Rule) apply(text string, changes []Change) (string, []Change) {
	locs := r.Pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, changes
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if loc[0] == loc[1] || !boundaryBefore(text, loc[0]) || !r.counterAt(text, loc[1]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(r.Replacement)
		changes = append(changes, Change{Rule: r.Name, From: text[loc[0]:loc[1]], To: r.Replacement})
		last = loc[1]
	}
	if last == 0 {
		return text, changes
	}
	b.WriteString(text[last:])
	return b.String(), changes
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return !hangul.IsSyllable(prev) || strings.ContainsRune(unitSyllables, prev)
}

func (r Rule) counterAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[i:])
	if r.Counters != "" {
		return strings.ContainsRune(r.Counters, next)
	}
	return hangul.IsSyllable(next) && !strings.ContainsRune(sinoSyllables, next)
}
