package phonetic

import (
	"fmt"

	"github.com/MrWong99/lingograde/pkg/hangul"
)

// TipKind identifies the category of an advisory tip.
type TipKind string

const (
	// TipVowel follows at least one vowel mismatch.
	TipVowel TipKind = "vowel"
	// TipConsonant follows at least one lead or trail mismatch.
	TipConsonant TipKind = "consonant"
	// TipLength follows dropped or extra syllables.
	TipLength TipKind = "length"
	// TipClose is the affirmation given when nothing else applies.
	TipClose TipKind = "close"
)

// Tip is a human-readable explanation attached to a [Result].
type Tip struct {
	Kind    TipKind `json:"kind"`
	Message string  `json:"message"`
}

// tipsFor derives the tips for r. Every applicable category is included; when
// none applies a single [TipClose] affirmation is returned.
func tipsFor(r Result) []Tip {
	var tips []Tip
	if r.Counts.Vowel > 0 {
		msg := "Some vowels differ from the reference. Pay attention to mouth shape and lip rounding."
		if u, ok := firstOf(r.Units, VowelMismatch); ok {
			rs, _ := hangul.Decompose(firstRune(u.Ref))
			hs, _ := hangul.Decompose(firstRune(u.Hyp))
			_, rv, _ := rs.Letters()
			_, hv, _ := hs.Letters()
			msg = fmt.Sprintf("Vowel mismatch: %s was heard as %s (%c vs %c). Pay attention to mouth shape and lip rounding.", u.Ref, u.Hyp, rv, hv)
		}
		tips = append(tips, Tip{Kind: TipVowel, Message: msg})
	}
	if r.Counts.Complex > 0 {
		msg := "Some consonants or final consonants (batchim) differ. Check initial and final sounds."
		if u, ok := firstOf(r.Units, ComplexMismatch); ok {
			msg = fmt.Sprintf("Consonant mismatch: %s was heard as %s. Check initial consonants and final consonants (batchim).", u.Ref, u.Hyp)
		}
		tips = append(tips, Tip{Kind: TipConsonant, Message: msg})
	}
	if r.Counts.Insertions+r.Counts.Deletions > 0 {
		tips = append(tips, Tip{
			Kind: TipLength,
			Message: fmt.Sprintf("%d syllable(s) missing and %d extra. Try to pronounce every syllable clearly without adding sounds.",
				r.Counts.Deletions, r.Counts.Insertions),
		})
	}
	if len(tips) == 0 {
		tips = append(tips, Tip{Kind: TipClose, Message: "Very close to the reference pronunciation. Well done!"})
	}
	return tips
}

func firstOf(units []DiffUnit, k Kind) (DiffUnit, bool) {
	for _, u := range units {
		if u.Kind == k {
			return u, true
		}
	}
	return DiffUnit{}, false
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
