package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/lingograde/internal/numeral"
	"github.com/MrWong99/lingograde/internal/transcript/vocab"
)

const (
	numeralConfidence = 1.0
	counterConfidence = 0.6
)

// PipelineOption is a functional option for configuring a [CorrectionPipeline].
type PipelineOption func(*CorrectionPipeline)

// WithNumerals attaches a [numeral.Normalizer] as the first stage. When nil
// (the default), numerals are left untouched.
func WithNumerals(n *numeral.Normalizer) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.numerals = n
	}
}

// WithVocabularyMatcher attaches a [VocabularyMatcher] as the second stage.
// When nil (the default), the vocabulary stage is skipped.
func WithVocabularyMatcher(m VocabularyMatcher) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.vocabulary = m
	}
}

// CorrectionPipeline is the staged implementation of [Pipeline]. Stages are
// optional and applied in order:
//
//  1. [numeral.Normalizer]: digit spelling and counter forms.
//  2. [VocabularyMatcher]: n-gram snapping onto vocabulary terms.
//
// CorrectionPipeline is safe for concurrent use.
type CorrectionPipeline struct {
	numerals   *numeral.Normalizer
	vocabulary VocabularyMatcher
}

var _ Pipeline = (*CorrectionPipeline)(nil)

// NewPipeline constructs a [CorrectionPipeline] with the supplied options.
// By default every stage is disabled.
func NewPipeline(opts ...PipelineOption) *CorrectionPipeline {
	p := &CorrectionPipeline{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Correct applies the configured stages to text. Context cancellation is
// checked between stages.
func (p *CorrectionPipeline) Correct(ctx context.Context, text string, vocabulary []string) (*CorrectedText, error) {
	result := &CorrectedText{
		Original:    text,
		Corrections: []Correction{},
	}
	working := text

	if p.numerals != nil {
		var changes []numeral.Change
		working, changes = p.numerals.NormalizeWithChanges(working)
		for _, c := range changes {
			result.Corrections = append(result.Corrections, fromNumeral(c))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transcript: correct: %w", err)
	}

	if p.vocabulary != nil && len(vocabulary) > 0 {
		var corrections []Correction
		working, corrections = p.applyVocabulary(working, vocabulary)
		result.Corrections = append(result.Corrections, corrections...)
	}

	result.Corrected = working
	return result, nil
}

func fromNumeral(c numeral.Change) Correction {
	if c.Rule == numeral.RuleDigits {
		return Correction{Original: c.From, Corrected: c.To, Confidence: numeralConfidence, Method: MethodNumeral}
	}
	return Correction{Original: c.From, Corrected: c.To, Confidence: counterConfidence, Method: MethodCounter}
}

// applyVocabulary runs the vocabulary stage over text and returns the
// corrected text and the corrections applied.
//
// The algorithm:
//  1. Tokenise the text into words.
//  2. Determine the maximum number of words in any vocabulary term.
//  3. At each token position, try windows from that maximum down to 1 and
//     accept the longest match, so multi-word terms win over partial
//     single-word matches.
//  4. Emit matched (or unmatched) tokens and advance past the consumed ones.
func (p *CorrectionPipeline) applyVocabulary(text string, vocabulary []string) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var (
		matchFn  func(string) (string, float64, bool)
		maxWords int
	)
	if vm, ok := p.vocabulary.(*vocab.Matcher); ok {
		ts := vocab.Prepare(vocabulary)
		maxWords = ts.MaxWords()
		matchFn = func(window string) (string, float64, bool) {
			return vm.MatchPrepared(window, ts)
		}
	} else {
		maxWords = maxWordCount(vocabulary)
		matchFn = func(window string) (string, float64, bool) {
			return p.vocabulary.Match(window, vocabulary)
		}
	}

	var (
		output      []string
		corrections []Correction
	)
	for i := 0; i < len(tokens); {
		matched := false
		for n := min(maxWords, len(tokens)-i); n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, conf, ok := matchFn(window)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(term)...)
			if term != window {
				corrections = append(corrections, Correction{
					Original:   window,
					Corrected:  term,
					Confidence: conf,
					Method:     MethodVocabulary,
				})
			}
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}
	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(output, " "), corrections
}

// maxWordCount returns the maximum number of whitespace-separated words in
// any term, at least 1.
func maxWordCount(terms []string) int {
	n := 1
	for _, t := range terms {
		n = max(n, len(strings.Fields(t)))
	}
	return n
}
