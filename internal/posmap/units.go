package posmap

import "github.com/MrWong99/lingograde/pkg/hangul"

// Mark classifies a raw character after an alignment has been projected onto
// it.
type Mark uint8

const (
	// MarkNone means the character produced no phonetic unit (spacing,
	// punctuation, or anything normalization removed).
	MarkNone Mark = iota

	// MarkCorrect means at least half of the character's units were kept by
	// the alignment.
	MarkCorrect

	// MarkWrong means fewer than half of the character's units were kept.
	MarkWrong
)

// String returns the name of the mark.
func (m Mark) String() string {
	switch m {
	case MarkCorrect:
		return "correct"
	case MarkWrong:
		return "wrong"
	default:
		return "none"
	}
}

// MarshalText encodes the mark by name.
func (m Mark) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mark encoded by [Mark.MarshalText]. Unknown names
// decode to [MarkNone].
func (m *Mark) UnmarshalText(b []byte) error {
	switch string(b) {
	case "correct":
		*m = MarkCorrect
	case "wrong":
		*m = MarkWrong
	default:
		*m = MarkNone
	}
	return nil
}

// ExpandJamo expands a per-rune map to per-unit positions: every rune of
// normalized contributes [hangul.JamoCount] entries, all pointing at the raw
// index the rune maps to. The result is parallel to hangul.Jamo(normalized).
func ExpandJamo(normalized string, m Map) []int {
	units := make([]int, 0, len(m)*2)
	j := 0
	for _, r := range normalized {
		if j >= len(m) {
			break
		}
		for range hangul.JamoCount(r) {
			units = append(units, m[j])
		}
		j++
	}
	return units
}

// Invert turns a unit→raw map into raw→units: entry i lists the unit indices
// produced by raw character i. Out-of-range positions are ignored.
func Invert(units []int, rawLen int) [][]int {
	inv := make([][]int, rawLen)
	for u, pos := range units {
		if pos < 0 || pos >= rawLen {
			continue
		}
		inv[pos] = append(inv[pos], u)
	}
	return inv
}

// MarkRaw decides, per raw character, whether the majority of its units were
// kept. kept is indexed by unit; a character is [MarkCorrect] when at least
// 50% of its units are kept.
func MarkRaw(inv [][]int, kept []bool) []Mark {
	marks := make([]Mark, len(inv))
	for i, us := range inv {
		if len(us) == 0 {
			continue
		}
		n := 0
		for _, u := range us {
			if u < len(kept) && kept[u] {
				n++
			}
		}
		if 2*n >= len(us) {
			marks[i] = MarkCorrect
		} else {
			marks[i] = MarkWrong
		}
	}
	return marks
}
