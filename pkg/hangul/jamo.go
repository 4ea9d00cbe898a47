package hangul

// Role identifies the position a [Unit] occupies inside its source character.
type Role uint8

const (
	// RoleOpaque marks a unit produced by a non-Hangul rune.
	RoleOpaque Role = iota

	// RoleLead marks an initial consonant.
	RoleLead

	// RoleVowel marks a medial vowel.
	RoleVowel

	// RoleTrail marks a final consonant.
	RoleTrail
)

// String returns a short name for the role.
func (r Role) String() string {
	switch r {
	case RoleLead:
		return "lead"
	case RoleVowel:
		return "vowel"
	case RoleTrail:
		return "trail"
	default:
		return "opaque"
	}
}

// Unit is one phonetic sub-unit of a string. Units are comparable, so a lead ㄱ
// and a trail ㄱ are distinct values.
type Unit struct {
	Role Role

	// Value is the jamo index for Hangul roles or the rune itself for
	// [RoleOpaque].
	Value rune
}

// Jamo expands s into its phonetic units. Each Hangul syllable yields two or
// three units and every other rune yields exactly one, so
// len(Jamo(s)) equals the sum of [JamoCount] over the runes of s.
func Jamo(s string) []Unit {
	units := make([]Unit, 0, len(s))
	for _, r := range s {
		units = AppendJamo(units, r)
	}
	return units
}

// AppendJamo appends the phonetic units of r to dst and returns the extended
// slice.
func AppendJamo(dst []Unit, r rune) []Unit {
	syl, ok := Decompose(r)
	if !ok {
		return append(dst, Unit{Role: RoleOpaque, Value: r})
	}
	dst = append(dst,
		Unit{Role: RoleLead, Value: rune(syl.Lead)},
		Unit{Role: RoleVowel, Value: rune(syl.Vowel)},
	)
	if syl.HasTrail() {
		dst = append(dst, Unit{Role: RoleTrail, Value: rune(syl.Trail)})
	}
	return dst
}
