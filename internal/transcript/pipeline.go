// Package transcript defines the pre-pass applied to a learner's hypothesis
// before it is graded.
//
// A hypothesis is often a speech-recognizer transcript rather than typed
// text, and the recognizer writes things the reference never does: Arabic
// digits where the reference spells native numerals, or misspelled names.
// The [CorrectionPipeline] fixes these in stages:
//
//  1. Numerals ([numeral.Normalizer]): digits are spelled as Sino-Korean
//     numerals and numerals before a counter take their native form.
//
//  2. Vocabulary ([VocabularyMatcher]): words that sound like one of the
//     expected vocabulary terms supplied with the request are replaced by
//     that term.
//
// Each [Correction] records which stage produced it, so callers can audit or
// display every change.
//
// Implementations of both interfaces must be safe for concurrent use.
package transcript

import "context"

// Correction methods.
const (
	MethodNumeral    = "numeral"
	MethodCounter    = "counter"
	MethodVocabulary = "vocabulary"
)

// Correction captures a single substitution made by the pipeline.
type Correction struct {
	// Original is the text as it appeared before the stage ran.
	Original string `json:"original"`

	// Corrected is the replacement.
	Corrected string `json:"corrected"`

	// Confidence is the stage's confidence in this substitution (0.0–1.0).
	// Digit spelling is exact; counter rewrites and vocabulary matches are
	// heuristic.
	Confidence float64 `json:"confidence"`

	// Method names the stage, one of the Method constants.
	Method string `json:"method"`
}

// CorrectedText is the output of a [Pipeline.Correct] call.
type CorrectedText struct {
	// Original is the hypothesis as received.
	Original string `json:"original"`

	// Corrected is the hypothesis with every substitution applied.
	Corrected string `json:"corrected"`

	// Corrections lists the substitutions in the order they were applied. An
	// empty (non-nil) slice means nothing changed.
	Corrections []Correction `json:"corrections"`
}

// Changed reports whether any stage modified the text.
func (c *CorrectedText) Changed() bool {
	return c.Original != c.Corrected
}

// Pipeline rewrites a hypothesis before grading.
type Pipeline interface {
	// Correct processes text. vocabulary lists the terms the vocabulary stage
	// may snap words onto; it may be empty.
	//
	// Returns a non-nil *CorrectedText on success. When nothing changes,
	// Corrected equals text and Corrections is an empty (non-nil) slice.
	Correct(ctx context.Context, text string, vocabulary []string) (*CorrectedText, error)
}

// VocabularyMatcher resolves a word or word window to a vocabulary term that
// sounds like it. It must be fast: no network calls.
type VocabularyMatcher interface {
	// Match returns the best term for word. When matched is false,
	// corrected equals word and confidence is 0.
	Match(word string, vocabulary []string) (corrected string, confidence float64, matched bool)
}
