package judge

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/lingograde/pkg/hangul"
)

// NormalizeKorean composes s to NFC and keeps only Hangul syllables.
func NormalizeKorean(s string) string {
	return hangul.Filter(norm.NFC.String(s))
}

// GradeKorean grades a Korean answer. Both strings are normalized with
// [NormalizeKorean]; the verdict is then decided by the first rule that
// applies:
//
//  1. empty reference fails;
//  2. with allowSubstring, an answer containing the reference passes;
//  3. a vowel difference anywhere in the common prefix fails;
//  4. the normalized strings must be equal.
//
// There is no partial credit: scores are 0 or 100.
func (j *Judge) GradeKorean(reference, answer string, allowSubstring bool) Verdict {
	ref := NormalizeKorean(reference)
	ans := NormalizeKorean(answer)

	if ref == "" {
		return fail(0, NoteReferenceEmpty)
	}
	if allowSubstring && strings.Contains(ans, ref) {
		return pass(100, NoteSubstring)
	}
	if vowelMismatch([]rune(ref), []rune(ans)) {
		return fail(0, NoteVowelError)
	}
	if ref == ans {
		return pass(100, NoteExactMatch)
	}
	return fail(0, NoteSpellingMismatch)
}

// vowelMismatch reports whether any position of the common prefix pairs two
// syllables with different vowels.
func vowelMismatch(ref, ans []rune) bool {
	for i := range min(len(ref), len(ans)) {
		a, okA := hangul.Decompose(ref[i])
		b, okB := hangul.Decompose(ans[i])
		if okA && okB && a.Vowel != b.Vowel {
			return true
		}
	}
	return false
}
