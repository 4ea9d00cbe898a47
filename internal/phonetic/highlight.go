package phonetic

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/MrWong99/lingograde/internal/posmap"
	"github.com/MrWong99/lingograde/pkg/align"
	"github.com/MrWong99/lingograde/pkg/hangul"
)

// Span is a run of consecutive raw characters sharing the same mark.
type Span struct {
	Text string      `json:"text"`
	Mark posmap.Mark `json:"mark"`
}

// Highlight holds per-character marks for both raw inputs, ready for
// rendering. Marks are parallel to the runes of the corresponding raw string.
// Only the spans are encoded; decoding rebuilds the marks from them.
type Highlight struct {
	Reference       []posmap.Mark `json:"-"`
	Hypothesis      []posmap.Mark `json:"-"`
	ReferenceSpans  []Span        `json:"reference"`
	HypothesisSpans []Span        `json:"hypothesis"`
}

// Highlight aligns reference and hypothesis at jamo granularity and projects
// the result back onto the raw characters. A raw Hangul character is marked
// correct when at least half of its jamo were kept by the alignment; spacing,
// punctuation, and other non-Hangul characters are left unmarked.
func (s *Scorer) Highlight(reference, hypothesis string) Highlight {
	refNorm := hangul.Filter(reference)
	hypNorm := hangul.Filter(hypothesis)

	refUnits := hangul.Jamo(refNorm)
	hypUnits := hangul.Jamo(hypNorm)
	path := align.Align(refUnits, hypUnits)

	h := Highlight{
		Reference:  project(reference, refNorm, path.KeptA(len(refUnits))),
		Hypothesis: project(hypothesis, hypNorm, path.KeptB(len(hypUnits))),
	}
	h.ReferenceSpans = Spans(reference, h.Reference)
	h.HypothesisSpans = Spans(hypothesis, h.Hypothesis)
	return h
}

// UnmarshalJSON decodes the spans and rebuilds the per-character marks.
func (h *Highlight) UnmarshalJSON(b []byte) error {
	var w struct {
		ReferenceSpans  []Span `json:"reference"`
		HypothesisSpans []Span `json:"hypothesis"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*h = Highlight{
		Reference:       marksOf(w.ReferenceSpans),
		Hypothesis:      marksOf(w.HypothesisSpans),
		ReferenceSpans:  w.ReferenceSpans,
		HypothesisSpans: w.HypothesisSpans,
	}
	return nil
}

// marksOf expands spans back to one mark per rune.
func marksOf(spans []Span) []posmap.Mark {
	marks := []posmap.Mark{}
	for _, s := range spans {
		for range utf8.RuneCountInString(s.Text) {
			marks = append(marks, s.Mark)
		}
	}
	return marks
}

// project maps a kept-unit mask computed on normalized back to raw marks.
func project(raw, normalized string, kept []bool) []posmap.Mark {
	rawLen := len([]rune(raw))
	m := posmap.MapRawToNormalized(raw, normalized)
	units := posmap.ExpandJamo(normalized, m)
	return posmap.MarkRaw(posmap.Invert(units, rawLen), kept)
}

// Spans groups the runes of raw into runs of equal marks. marks must be
// parallel to the runes of raw; runes without a mark are treated as
// [posmap.MarkNone].
func Spans(raw string, marks []posmap.Mark) []Span {
	var (
		spans []Span
		buf   []rune
		cur   posmap.Mark
	)
	i := 0
	for _, r := range raw {
		mark := posmap.MarkNone
		if i < len(marks) {
			mark = marks[i]
		}
		if len(buf) > 0 && mark != cur {
			spans = append(spans, Span{Text: string(buf), Mark: cur})
			buf = buf[:0]
		}
		cur = mark
		buf = append(buf, r)
		i++
	}
	if len(buf) > 0 {
		spans = append(spans, Span{Text: string(buf), Mark: cur})
	}
	return spans
}
