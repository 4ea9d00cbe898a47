// Package hangul decomposes precomposed Hangul syllables (U+AC00–U+D7A3) into
// their lead, vowel, and trail jamo indices.
//
// Every syllable in the block is encoded as
//
//	0xAC00 + lead*21*28 + vowel*28 + trail
//
// with 19 leads, 21 vowels, and 28 trails (trail 0 means "no final
// consonant"). Runes outside the block are opaque: [Decompose] reports false
// for them and callers compare them verbatim.
//
// All functions are pure and safe for concurrent use.
package hangul

const (
	// Base is the first codepoint of the Hangul syllable block.
	Base = 0xAC00

	// Last is the final codepoint of the Hangul syllable block.
	Last = 0xD7A3

	// LeadCount is the number of initial consonants (choseong).
	LeadCount = 19

	// VowelCount is the number of medial vowels (jungseong).
	VowelCount = 21

	// TrailCount is the number of final consonant slots (jongseong),
	// including the empty slot at index 0.
	TrailCount = 28
)

var (
	leadLetters  = []rune{'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ'}
	vowelLetters = []rune{'ㅏ', 'ㅐ', 'ㅑ', 'ㅒ', 'ㅓ', 'ㅔ', 'ㅕ', 'ㅖ', 'ㅗ', 'ㅘ', 'ㅙ', 'ㅚ', 'ㅛ', 'ㅜ', 'ㅝ', 'ㅞ', 'ㅟ', 'ㅠ', 'ㅡ', 'ㅢ', 'ㅣ'}
	trailLetters = []rune{0, 'ㄱ', 'ㄲ', 'ㄳ', 'ㄴ', 'ㄵ', 'ㄶ', 'ㄷ', 'ㄹ', 'ㄺ', 'ㄻ', 'ㄼ', 'ㄽ', 'ㄾ', 'ㄿ', 'ㅀ', 'ㅁ', 'ㅂ', 'ㅄ', 'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ'}
)

// Syllable holds the jamo indices of a precomposed Hangul syllable.
type Syllable struct {
	// Lead is the initial consonant index (0–18).
	Lead int

	// Vowel is the medial vowel index (0–20).
	Vowel int

	// Trail is the final consonant index (0–27). Zero means no final consonant.
	Trail int
}

// HasTrail reports whether the syllable carries a final consonant (batchim).
func (s Syllable) HasTrail() bool { return s.Trail != 0 }

// Rune recomposes the syllable into its codepoint.
func (s Syllable) Rune() rune {
	return rune(Base + (s.Lead*VowelCount+s.Vowel)*TrailCount + s.Trail)
}

// Letters returns the compatibility jamo letters of the syllable, suitable for
// display. The trail letter is 0 when the syllable has no final consonant.
func (s Syllable) Letters() (lead, vowel, trail rune) {
	return leadLetters[s.Lead], vowelLetters[s.Vowel], trailLetters[s.Trail]
}

// IsSyllable reports whether r lies inside the Hangul syllable block.
func IsSyllable(r rune) bool {
	return r >= Base && r <= Last
}

// Decompose splits r into its lead, vowel, and trail indices. It returns false
// for any rune outside U+AC00–U+D7A3; such runes must be treated as opaque.
func Decompose(r rune) (Syllable, bool) {
	if !IsSyllable(r) {
		return Syllable{}, false
	}
	code := int(r - Base)
	return Syllable{
		Lead:  code / (VowelCount * TrailCount),
		Vowel: (code / TrailCount) % VowelCount,
		Trail: code % TrailCount,
	}, true
}

// Compose builds the syllable for the given indices. It returns false when any
// index is out of range.
func Compose(lead, vowel, trail int) (rune, bool) {
	if lead < 0 || lead >= LeadCount || vowel < 0 || vowel >= VowelCount || trail < 0 || trail >= TrailCount {
		return 0, false
	}
	return Syllable{Lead: lead, Vowel: vowel, Trail: trail}.Rune(), true
}

// JamoCount returns the number of phonetic units r expands to: 2 for a
// syllable without a final consonant, 3 for one with a final consonant, and 1
// for everything else.
func JamoCount(r rune) int {
	s, ok := Decompose(r)
	if !ok {
		return 1
	}
	if s.HasTrail() {
		return 3
	}
	return 2
}

// Filter returns s with every rune that is not a Hangul syllable removed.
func Filter(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if IsSyllable(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
