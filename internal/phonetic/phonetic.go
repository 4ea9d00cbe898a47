// Package phonetic scores how closely a Korean hypothesis (typically an ASR
// transcript of the learner) follows a reference sentence, syllable by
// syllable.
//
// The scorer proceeds in three steps:
//
//  1. Both strings are reduced to Hangul syllables and aligned with the LCS
//     aligner from [align].
//
//  2. Between two matched syllables, the unmatched reference and hypothesis
//     syllables are paired in order. A pair whose lead and trail agree but
//     whose vowel differs is a [VowelMismatch]; any other differing pair is a
//     [ComplexMismatch]. Syllables left over after pairing are
//     [Deletion]s or [Insertion]s.
//
//  3. Each class carries a weight; the summed weight, capped at 0.3 by
//     default, is the penalty. The cap bounds how much this pass can take away
//     from an externally supplied accuracy figure (see [AdjustAccuracy]).
//
// A [Scorer] is read-only after construction and safe for concurrent use.
package phonetic

import (
	"fmt"
	"math"

	"github.com/MrWong99/lingograde/pkg/align"
	"github.com/MrWong99/lingograde/pkg/hangul"
)

const (
	defaultVowelWeight   = 0.08
	defaultComplexWeight = 0.04
	defaultGapWeight     = 0.02
	defaultPenaltyCap    = 0.3
)

// Kind classifies one syllable comparison.
type Kind uint8

const (
	// ExactMatch means both syllables are identical.
	ExactMatch Kind = iota

	// VowelMismatch means only the vowel differs.
	VowelMismatch

	// ComplexMismatch means the lead or trail consonant differs.
	ComplexMismatch

	// Deletion means a reference syllable has no counterpart.
	Deletion

	// Insertion means a hypothesis syllable has no counterpart.
	Insertion
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case VowelMismatch:
		return "vowel"
	case ComplexMismatch:
		return "complex"
	case Deletion:
		return "deletion"
	case Insertion:
		return "insertion"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind encoded by [Kind.MarshalText].
func (k *Kind) UnmarshalText(b []byte) error {
	for c := ExactMatch; c <= Insertion; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("phonetic: unknown kind %q", b)
}

// DiffUnit is one classified comparison. Ref and Hyp hold the syllables
// involved; an absent side has an empty string and index -1. Indices count
// Hangul syllables of the filtered input.
type DiffUnit struct {
	Kind     Kind   `json:"kind"`
	Ref      string `json:"ref,omitempty"`
	Hyp      string `json:"hyp,omitempty"`
	RefIndex int    `json:"ref_index"`
	HypIndex int    `json:"hyp_index"`
}

// Counts tallies the diff units of a [Result] by kind.
type Counts struct {
	Exact      int `json:"exact"`
	Vowel      int `json:"vowel"`
	Complex    int `json:"complex"`
	Deletions  int `json:"deletions"`
	Insertions int `json:"insertions"`
}

// Result is the outcome of [Scorer.Score].
type Result struct {
	// Penalty is the capped sum of the unit weights, in [0, cap].
	Penalty float64 `json:"penalty"`

	// Units lists the classified syllable comparisons in reference order.
	Units []DiffUnit `json:"units"`

	// Counts tallies Units by kind.
	Counts Counts `json:"counts"`

	// Tips holds the advisory messages derived from Counts.
	Tips []Tip `json:"tips"`
}

// Weights sets the penalty contributed by each mismatch class.
type Weights struct {
	Vowel   float64
	Complex float64
	Gap     float64
}

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithWeights overrides the per-class penalty weights. Defaults: vowel 0.08,
// complex 0.04, insertion/deletion 0.02.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithPenaltyCap sets the maximum penalty. Default: 0.3.
func WithPenaltyCap(limit float64) Option {
	return func(s *Scorer) {
		s.penaltyCap = limit
	}
}

// Scorer computes phonetic penalties. The zero value is not usable; construct
// one with [New].
type Scorer struct {
	weights    Weights
	penaltyCap float64
}

// New returns a [Scorer] configured with the supplied options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		weights: Weights{
			Vowel:   defaultVowelWeight,
			Complex: defaultComplexWeight,
			Gap:     defaultGapWeight,
		},
		penaltyCap: defaultPenaltyCap,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var defaultScorer = New()

// Score runs [Scorer.Score] with the default weights and cap.
func Score(reference, hypothesis string) Result {
	return defaultScorer.Score(reference, hypothesis)
}

// Score compares the Hangul syllables of reference and hypothesis. Every other
// character is ignored.
func (s *Scorer) Score(reference, hypothesis string) Result {
	ref := []rune(hangul.Filter(reference))
	hyp := []rune(hangul.Filter(hypothesis))

	res := Result{Units: make([]DiffUnit, 0, max(len(ref), len(hyp)))}
	for _, seg := range align.Align(ref, hyp).Segments() {
		if seg.Match != nil {
			res.Units = append(res.Units, DiffUnit{
				Kind:     ExactMatch,
				Ref:      string(ref[seg.Match.I]),
				Hyp:      string(hyp[seg.Match.J]),
				RefIndex: seg.Match.I,
				HypIndex: seg.Match.J,
			})
			continue
		}
		res.Units = appendGap(res.Units, seg.Gap, ref, hyp)
	}

	var total float64
	for _, u := range res.Units {
		switch u.Kind {
		case ExactMatch:
			res.Counts.Exact++
		case VowelMismatch:
			res.Counts.Vowel++
			total += s.weights.Vowel
		case ComplexMismatch:
			res.Counts.Complex++
			total += s.weights.Complex
		case Deletion:
			res.Counts.Deletions++
			total += s.weights.Gap
		case Insertion:
			res.Counts.Insertions++
			total += s.weights.Gap
		}
	}
	res.Penalty = math.Max(0, math.Min(s.penaltyCap, total))
	res.Tips = tipsFor(res)
	return res
}

// appendGap pairs the deleted and inserted syllables of a gap in order and
// classifies each pair; leftovers become deletions or insertions.
func appendGap(units []DiffUnit, g *align.Gap, ref, hyp []rune) []DiffUnit {
	pairs := min(len(g.Deleted), len(g.Inserted))
	for k := 0; k < pairs; k++ {
		i, j := g.Deleted[k], g.Inserted[k]
		units = append(units, DiffUnit{
			Kind:     classify(ref[i], hyp[j]),
			Ref:      string(ref[i]),
			Hyp:      string(hyp[j]),
			RefIndex: i,
			HypIndex: j,
		})
	}
	for _, i := range g.Deleted[pairs:] {
		units = append(units, DiffUnit{Kind: Deletion, Ref: string(ref[i]), RefIndex: i, HypIndex: -1})
	}
	for _, j := range g.Inserted[pairs:] {
		units = append(units, DiffUnit{Kind: Insertion, Hyp: string(hyp[j]), RefIndex: -1, HypIndex: j})
	}
	return units
}

// classify compares two aligned syllables.
func classify(ref, hyp rune) Kind {
	a, okA := hangul.Decompose(ref)
	b, okB := hangul.Decompose(hyp)
	switch {
	case !okA || !okB:
		if ref == hyp {
			return ExactMatch
		}
		return ComplexMismatch
	case a == b:
		return ExactMatch
	case a.Vowel != b.Vowel && a.Lead == b.Lead && a.Trail == b.Trail:
		return VowelMismatch
	default:
		return ComplexMismatch
	}
}

// AdjustAccuracy applies the phonetic penalty of r to an externally supplied
// accuracy figure in [0, 100]: base × (1 − penalty), clamped to [0, 100].
func AdjustAccuracy(base float64, r Result) float64 {
	adjusted := base * (1 - r.Penalty)
	return math.Max(0, math.Min(100, adjusted))
}
